// Package api contains the contract of the REST backend client.
package api

import (
	"context"
	"errors"

	"github.com/Decentr-net/iris/internal/entities"
)

//go:generate mockgen -destination=./mock/api.go -package=mock -source=api.go

var (
	// ErrNetwork is returned on transport failure, unexpected status or malformed payload.
	ErrNetwork = errors.New("network error")
	// ErrAuth is returned when credentials are rejected or the session is invalid.
	ErrAuth = errors.New("auth error")
	// ErrNotFound is returned when requested post is absent.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when input is rejected before any request is made.
	ErrValidation = errors.New("validation error")
)

// Client is the single point of contact with the backend.
type Client interface {
	ListUsers(ctx context.Context) ([]entities.User, error)
	Login(ctx context.Context, firstName, password string) (*LoginResult, error)

	ListPosts(ctx context.Context, t entities.PostType, page, limit int) (*PostsPage, error)
	GetPost(ctx context.Context, id string) (*entities.Post, error)
	LikePost(ctx context.Context, id string) (*entities.Post, error)
	AddComment(ctx context.Context, id, content string) (*entities.Comment, error)
}

// TokenSource provides bearer token for requests. Empty token means no session.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// LoginResult ...
type LoginResult struct {
	Token string
	User  entities.User
}

// PostsPage ...
type PostsPage struct {
	Posts      []entities.Post
	Pagination entities.PaginationInfo
}

// HasLiked reports whether user liked the post. It is the only way like state is derived.
func HasLiked(p *entities.Post, userID string) bool {
	if p == nil || userID == "" {
		return false
	}

	for _, v := range p.LikeUserIDs {
		if v == userID {
			return true
		}
	}

	return false
}
