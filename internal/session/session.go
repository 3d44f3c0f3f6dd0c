// Package session contains the process-wide session store and its key-value storage interface.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/iris/internal/entities"
)

//go:generate mockgen -destination=./mock/storage.go -package=mock -source=session.go

// Keys the session is persisted under.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// ErrNotFound is returned by Storage when the key is absent.
var ErrNotFound = errors.New("not found")

// ErrNoSession is returned by Store.Load when no usable session is persisted.
var ErrNoSession = errors.New("no session")

var log = logrus.WithField("package", "session")

// Storage is a persistent key-value store.
type Storage interface {
	// Get returns value by key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes all entries atomically.
	Set(ctx context.Context, entries map[string]string) error
	// Delete removes keys atomically. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Ping checks storage availability.
	Ping(ctx context.Context) error
	Close() error
}

// Store reads and writes the session over Storage.
// Token and profile are written and cleared together; a profile without token is not a session.
type Store struct {
	mu sync.RWMutex
	s  Storage
}

// NewStore ...
func NewStore(s Storage) *Store {
	return &Store{s: s}
}

type userDTO struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl"`
	FullName  string `json:"fullName,omitempty"`
}

// Load returns the stored session or ErrNoSession.
func (s *Store) Load(ctx context.Context) (*entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, err := s.s.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if token == "" {
		return nil, ErrNoSession
	}

	raw, err := s.s.Get(ctx, UserKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var u userDTO
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		log.WithError(err).Warn("failed to parse stored user")
		return nil, ErrNoSession
	}

	return &entities.Session{
		Token: token,
		User: entities.User{
			UserRef: entities.UserRef{
				ID:        u.ID,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				AvatarURL: u.AvatarURL,
			},
			FullName: u.FullName,
		},
	}, nil
}

// Save persists token and profile in one write.
func (s *Store) Save(ctx context.Context, sess entities.Session) error {
	if sess.Token == "" {
		return fmt.Errorf("failed to save session: empty token")
	}

	b, err := json.Marshal(userDTO{
		ID:        sess.User.ID,
		FirstName: sess.User.FirstName,
		LastName:  sess.User.LastName,
		AvatarURL: sess.User.AvatarURL,
		FullName:  sess.User.FullName,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.s.Set(ctx, map[string]string{
		TokenKey: sess.Token,
		UserKey:  string(b),
	}); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Clear removes token and profile in one write.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.s.Delete(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	return nil
}

// Token returns the bearer token or an empty string when there is no session.
func (s *Store) Token(ctx context.Context) (string, error) {
	sess, err := s.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return "", nil
		}
		return "", err
	}

	return sess.Token, nil
}

// UserID returns the current user id or an empty string when there is no session.
func (s *Store) UserID(ctx context.Context) (string, error) {
	sess, err := s.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return "", nil
		}
		return "", err
	}

	return sess.User.ID, nil
}

// Ping checks the underlying storage.
func (s *Store) Ping(ctx context.Context) error {
	return s.s.Ping(ctx)
}
