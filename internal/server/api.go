package server

import (
	"time"

	"github.com/Decentr-net/iris/internal/api"
	"github.com/Decentr-net/iris/internal/entities"
	"github.com/Decentr-net/iris/internal/feed"
	"github.com/Decentr-net/iris/internal/pagination"
)

// Error ...
// swagger:model
type Error struct {
	Error string `json:"error"`
}

// SessionResponse ...
// swagger:model
type SessionResponse struct {
	// Screen is the screen to start with: login or feed.
	Screen string `json:"screen"`
	User   *User  `json:"user,omitempty"`
}

// LoginRequest ...
// swagger:model
type LoginRequest struct {
	FirstName string `json:"firstName"`
	Password  string `json:"password"`
}

// UsersResponse ...
// swagger:model
type UsersResponse struct {
	Users []User `json:"users"`
}

// User ...
type User struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl"`
	FullName  string `json:"fullName,omitempty"`
}

// Author ...
type Author struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl"`
}

// Comment ...
type Comment struct {
	ID        string    `json:"_id"`
	Content   string    `json:"content"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Post is a post with like state derived for the current user.
type Post struct {
	ID       string `json:"_id"`
	Type     string `json:"type"`
	Caption  string `json:"caption"`
	Content  string `json:"content,omitempty"`
	MediaURL string `json:"mediaUrl,omitempty"`
	// Body is mediaUrl for images and videos and content for blogs.
	Body         string    `json:"body"`
	Author       Author    `json:"author"`
	Likes        []string  `json:"likes"`
	LikeCount    int       `json:"likeCount"`
	IsLiked      bool      `json:"isLiked"`
	CommentCount int       `json:"commentCount"`
	Comments     []Comment `json:"comments"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PostResponse ...
// swagger:model
type PostResponse struct {
	Post Post `json:"post"`
}

// CommentRequest ...
// swagger:model
type CommentRequest struct {
	Content string `json:"content"`
}

// CommentResponse ...
// swagger:model
type CommentResponse struct {
	Comment Comment `json:"comment"`
	Post    Post    `json:"post"`
}

// PageRequest ...
// swagger:model
type PageRequest struct {
	Page int `json:"page"`
}

// Pagination ...
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
	// Visible is false when there is nothing to navigate.
	Visible  bool                `json:"visible"`
	Window   []pagination.Item   `json:"window"`
	Controls pagination.Controls `json:"controls"`
}

// FeedResponse ...
// swagger:model
type FeedResponse struct {
	Type         string      `json:"type"`
	State        string      `json:"state"`
	Page         int         `json:"page"`
	Posts        []Post      `json:"posts"`
	Pagination   *Pagination `json:"pagination,omitempty"`
	Empty        bool        `json:"empty"`
	EmptyMessage string      `json:"emptyMessage,omitempty"`
	Error        string      `json:"error,omitempty"`
}

func toUser(u entities.User) User {
	return User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
		FullName:  u.FullName,
	}
}

func toAuthor(u entities.UserRef) Author {
	return Author{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
	}
}

func toComment(c entities.Comment) Comment {
	return Comment{
		ID:        c.ID,
		Content:   c.Content,
		Author:    toAuthor(c.Author),
		CreatedAt: c.CreatedAt,
	}
}

func toPost(p entities.Post, viewerID string) Post {
	out := Post{
		ID:           p.ID,
		Type:         string(p.Type),
		Caption:      p.Caption,
		Content:      p.Content,
		MediaURL:     p.MediaURL,
		Body:         p.Body(),
		Author:       toAuthor(p.Author),
		Likes:        append([]string{}, p.LikeUserIDs...),
		LikeCount:    len(p.LikeUserIDs),
		IsLiked:      api.HasLiked(&p, viewerID),
		CommentCount: len(p.Comments),
		Comments:     make([]Comment, len(p.Comments)),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}

	for i, v := range p.Comments {
		out.Comments[i] = toComment(v)
	}

	return out
}

func toPagination(p entities.PaginationInfo, current int) *Pagination {
	return &Pagination{
		Page:     p.Page,
		Limit:    p.Limit,
		Total:    p.Total,
		Pages:    p.Pages,
		Visible:  pagination.Visible(p.Pages),
		Window:   pagination.Window(current, p.Pages),
		Controls: pagination.NewControls(current, p.Pages),
	}
}

func toFeedResponse(s feed.Snapshot, viewerID string) FeedResponse {
	out := FeedResponse{
		Type:  string(s.Type),
		State: s.State.String(),
		Page:  s.Page,
		Posts: make([]Post, len(s.Posts)),
		Empty: s.Empty(),
		Error: s.Error,
	}

	for i, v := range s.Posts {
		out.Posts[i] = toPost(v, viewerID)
	}

	if s.Pagination != nil {
		out.Pagination = toPagination(*s.Pagination, s.Page)
	}

	if out.Empty {
		out.EmptyMessage = feed.EmptyMessage(s.Type)
	}

	return out
}
