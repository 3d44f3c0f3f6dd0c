// Package entities contains main entities of the feed client.
package entities

import (
	"errors"
	"fmt"
	"time"
)

// PostType ...
type PostType string

const (
	// ImagePostType ...
	ImagePostType PostType = "image"
	// VideoPostType ...
	VideoPostType PostType = "video"
	// BlogPostType ...
	BlogPostType PostType = "blog"
)

// PostTypes lists every feed tab in display order.
var PostTypes = []PostType{ImagePostType, VideoPostType, BlogPostType} // nolint:gochecknoglobals

// ErrInvalidPostType is returned by ParsePostType for unknown types.
var ErrInvalidPostType = errors.New("invalid post type")

// ParsePostType ...
func ParsePostType(s string) (PostType, error) {
	t := PostType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPostType, s)
	}

	return t, nil
}

// Valid ...
func (t PostType) Valid() bool {
	switch t {
	case ImagePostType, VideoPostType, BlogPostType:
		return true
	default:
		return false
	}
}

// UserRef is an author reference embedded into posts and comments.
type UserRef struct {
	ID        string
	FirstName string
	LastName  string
	AvatarURL string
}

// User is a directory entry shown on the account selection screen.
type User struct {
	UserRef
	FullName string
}

// Session is the client-held proof of authentication plus the cached profile.
// Token and User are always written and cleared together.
type Session struct {
	Token string
	User  User
}

// Post ...
type Post struct {
	ID          string
	Type        PostType
	Caption     string
	Content     string
	MediaURL    string
	Author      UserRef
	LikeUserIDs []string
	Comments    []Comment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Body returns the payload meaningful for the post type: media url for images and videos, text for blogs.
func (p Post) Body() string {
	if p.Type == BlogPostType {
		return p.Content
	}

	return p.MediaURL
}

// Comment ...
type Comment struct {
	ID        string
	Content   string
	Author    UserRef
	CreatedAt time.Time
}

// PaginationInfo is the count summary returned by the server alongside a page of posts.
type PaginationInfo struct {
	Page  int
	Limit int
	Total int
	Pages int
}
