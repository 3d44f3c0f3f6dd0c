// Package interaction contains like and comment state of rendered posts.
package interaction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/iris/internal/api"
	"github.com/Decentr-net/iris/internal/entities"
)

var log = logrus.WithField("package", "interaction")

// Snapshot is a consistent copy of post state. Like state is always derived from Post.
type Snapshot struct {
	Post         entities.Post
	IsLiked      bool
	LikeCount    int
	CommentCount int
	Draft        string
	Error        string
}

// PostState holds a post as last reported by the server plus the comment draft.
// Every successful mutation replaces server-owned fields from the response, nothing is merged locally.
type PostState struct {
	client api.Client
	viewer string

	mu    sync.Mutex
	post  entities.Post
	draft string
	err   error
}

// New seeds state from the post.
func New(c api.Client, post entities.Post, viewerID string) *PostState {
	return &PostState{
		client: c,
		viewer: viewerID,
		post:   copyPost(post),
	}
}

// Open loads a post for the single post view. api.ErrNotFound is terminal for the view.
func Open(ctx context.Context, c api.Client, id, viewerID string) (*PostState, error) {
	p, err := c.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get post %s: %w", id, err)
	}

	return New(c, *p, viewerID), nil
}

// ID ...
func (s *PostState) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.post.ID
}

// Snapshot ...
func (s *PostState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Post:         copyPost(s.post),
		IsLiked:      api.HasLiked(&s.post, s.viewer),
		LikeCount:    len(s.post.LikeUserIDs),
		CommentCount: len(s.post.Comments),
		Draft:        s.draft,
		Error:        api.Message(s.err),
	}
}

// Reseed replaces server-owned fields with newer data. The draft is kept.
func (s *PostState) Reseed(p entities.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.post = copyPost(p)
}

// Like toggles like of the viewer. On success like state is taken from the returned post,
// on failure the state is left untouched.
func (s *PostState) Like(ctx context.Context) error {
	id := s.ID()

	p, err := s.client.LikePost(ctx, id)
	if err != nil {
		log.WithError(err).WithField("post", id).Error("failed to like post")

		s.mu.Lock()
		s.err = err
		s.mu.Unlock()

		return fmt.Errorf("failed to like post: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.post.LikeUserIDs = append([]string{}, p.LikeUserIDs...)
	s.err = nil

	return nil
}

// SetDraft ...
func (s *PostState) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft = text
}

// SubmitDraft submits the draft with SubmitComment.
// The draft is cleared once the comment is accepted even if the reload fails,
// unless it was edited while the request was in flight.
func (s *PostState) SubmitDraft(ctx context.Context) (*entities.Comment, error) {
	s.mu.Lock()
	draft := s.draft
	s.mu.Unlock()

	c, err := s.SubmitComment(ctx, draft)
	if c != nil {
		s.mu.Lock()
		if s.draft == draft {
			s.draft = ""
		}
		s.mu.Unlock()
	}

	return c, err
}

// SubmitComment sends trimmed content and reloads the post to replace the comment list.
// Blank content returns api.ErrValidation without any request. The draft is not touched.
// Comment is returned when it was accepted, even if the reload fails.
func (s *PostState) SubmitComment(ctx context.Context, content string) (*entities.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, api.NewError(api.ErrValidation, "Comment can not be empty", nil)
	}

	id := s.ID()

	c, err := s.client.AddComment(ctx, id, content)
	if err != nil {
		log.WithError(err).WithField("post", id).Error("failed to add comment")
		s.setErr(err)
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	p, err := s.client.GetPost(ctx, id)
	if err != nil {
		log.WithError(err).WithField("post", id).Error("failed to reload post after comment")
		s.setErr(err)
		return c, fmt.Errorf("failed to reload post: %w", err)
	}

	s.mu.Lock()
	s.post = copyPost(*p)
	s.err = nil
	s.mu.Unlock()

	return c, nil
}

func (s *PostState) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

func copyPost(p entities.Post) entities.Post {
	p.LikeUserIDs = append([]string{}, p.LikeUserIDs...)
	p.Comments = append([]entities.Comment{}, p.Comments...)

	return p
}
