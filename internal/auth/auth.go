// Package auth contains the login flow: user directory, login, logout and the initial screen decision.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/iris/internal/api"
	"github.com/Decentr-net/iris/internal/entities"
	"github.com/Decentr-net/iris/internal/session"
)

var log = logrus.WithField("package", "auth")

// Screen is the screen the client starts with.
type Screen string

const (
	// LoginScreen is shown when there is no session.
	LoginScreen Screen = "login"
	// FeedScreen is shown when a session is stored.
	FeedScreen Screen = "feed"
)

// Flow ...
type Flow struct {
	client api.Client
	store  *session.Store
}

// New ...
func New(c api.Client, store *session.Store) *Flow {
	return &Flow{
		client: c,
		store:  store,
	}
}

// Users returns the account directory.
func (f *Flow) Users(ctx context.Context) ([]entities.User, error) {
	users, err := f.client.ListUsers(ctx)
	if err != nil {
		return nil, api.WithMessage(err, "Failed to load users")
	}

	return users, nil
}

// Login exchanges credentials for a session and stores it.
// The store is written only after the backend accepted the credentials.
func (f *Flow) Login(ctx context.Context, firstName, password string) (*entities.Session, error) {
	if password == "" {
		return nil, api.NewError(api.ErrValidation, "Please enter a password", nil)
	}

	res, err := f.client.Login(ctx, firstName, password)
	if err != nil {
		log.WithError(err).WithField("user", firstName).Info("login rejected")
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	sess := entities.Session{
		Token: res.Token,
		User:  res.User,
	}

	if err := f.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	log.WithField("user", res.User.ID).Info("logged in")

	return &sess, nil
}

// Logout clears the session.
func (f *Flow) Logout(ctx context.Context) error {
	return f.store.Clear(ctx)
}

// Current returns the stored session and the screen to start with. Session is nil on LoginScreen.
func (f *Flow) Current(ctx context.Context) (*entities.Session, Screen, error) {
	sess, err := f.store.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, LoginScreen, nil
		}
		return nil, LoginScreen, err
	}

	return sess, FeedScreen, nil
}
