package rest

import (
	"time"

	"github.com/Decentr-net/iris/internal/entities"
)

type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message,omitempty"`
}

// failed reports an explicit `"success": false`. Payload completeness is checked by callers.
func (e envelope) failed() bool {
	return e.Success != nil && !*e.Success
}

type userRefDTO struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl"`
}

type userDTO struct {
	userRefDTO
	FullName string `json:"fullName"`
}

type commentDTO struct {
	ID        string     `json:"_id"`
	Content   string     `json:"content"`
	Author    userRefDTO `json:"author"`
	CreatedAt time.Time  `json:"createdAt"`
}

type postDTO struct {
	ID        string       `json:"_id"`
	Type      string       `json:"type"`
	Caption   string       `json:"caption"`
	Content   string       `json:"content"`
	MediaURL  string       `json:"mediaUrl,omitempty"`
	Author    userRefDTO   `json:"author"`
	Likes     []string     `json:"likes"`
	Comments  []commentDTO `json:"comments"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

type paginationDTO struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type usersResponse struct {
	envelope
	Users []userDTO `json:"users"`
}

type loginRequest struct {
	FirstName string `json:"firstName"`
	Password  string `json:"password"`
}

type loginResponse struct {
	envelope
	Token string   `json:"token,omitempty"`
	User  *userDTO `json:"user,omitempty"`
}

type postsResponse struct {
	envelope
	Posts      *[]postDTO     `json:"posts"`
	Pagination *paginationDTO `json:"pagination"`
}

type postResponse struct {
	envelope
	Post *postDTO `json:"post"`
}

type commentRequest struct {
	Content string `json:"content"`
}

type commentResponse struct {
	envelope
	Comment *commentDTO `json:"comment"`
}

func toUserRef(u userRefDTO) entities.UserRef {
	return entities.UserRef{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
	}
}

func toUser(u userDTO) entities.User {
	return entities.User{
		UserRef:  toUserRef(u.userRefDTO),
		FullName: u.FullName,
	}
}

func toComment(c commentDTO) entities.Comment {
	return entities.Comment{
		ID:        c.ID,
		Content:   c.Content,
		Author:    toUserRef(c.Author),
		CreatedAt: c.CreatedAt,
	}
}

func toPost(p postDTO) entities.Post {
	out := entities.Post{
		ID:          p.ID,
		Type:        entities.PostType(p.Type),
		Caption:     p.Caption,
		Content:     p.Content,
		MediaURL:    p.MediaURL,
		Author:      toUserRef(p.Author),
		LikeUserIDs: make([]string, len(p.Likes)),
		Comments:    make([]entities.Comment, len(p.Comments)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}

	copy(out.LikeUserIDs, p.Likes)

	for i, v := range p.Comments {
		out.Comments[i] = toComment(v)
	}

	return out
}

func toPagination(p paginationDTO) entities.PaginationInfo {
	return entities.PaginationInfo{
		Page:  p.Page,
		Limit: p.Limit,
		Total: p.Total,
		Pages: p.Pages,
	}
}
