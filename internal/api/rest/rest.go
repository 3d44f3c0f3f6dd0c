// Package rest is an HTTP implementation of api.Client.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/iris/internal/api"
	"github.com/Decentr-net/iris/internal/entities"
)

// DefaultTimeout bounds every request when no other timeout is configured.
const DefaultTimeout = 30 * time.Second

const maxBodySize = 10 << 20

var log = logrus.WithField("layer", "api").WithField("package", "rest")

var _ api.Client = &Client{}

// Client talks to the REST backend.
type Client struct {
	baseURL    string
	tokens     api.TokenSource
	httpClient *http.Client
}

// Option ...
type Option func(c *Client)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a client. tokens may be nil, then no Authorization header is sent.
func New(baseURL string, tokens api.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

func networkError(message string, err error) error {
	return api.NewError(api.ErrNetwork, message, err)
}

// do performs request and returns status code and raw body.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			log.WithError(err).Warn("failed to get token, sending request without it")
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to do request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, b, nil
}

// checkStatus converts non-2xx statuses into api errors. Server message is kept for auth errors.
func checkStatus(status int, body []byte, message string, notFound bool) error {
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return nil
	}

	var e envelope
	_ = json.Unmarshal(body, &e)

	err := fmt.Errorf("unexpected status: %d", status)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return api.NewError(api.ErrAuth, e.Message, err)
	case status == http.StatusNotFound && notFound:
		return api.NewError(api.ErrNotFound, "", err)
	default:
		return networkError(message, err)
	}
}

// ListUsers ...
func (c *Client) ListUsers(ctx context.Context) (_ []entities.User, err error) {
	defer observe("list_users", time.Now(), &err)

	const message = "Failed to load users"

	status, b, err := c.do(ctx, http.MethodGet, "/auth/users", nil)
	if err != nil {
		return nil, networkError(message, err)
	}

	if err := checkStatus(status, b, message, false); err != nil {
		return nil, err
	}

	var resp usersResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, networkError(message, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if resp.failed() {
		return nil, networkError(message, fmt.Errorf("unsuccessful response: %s", resp.Message))
	}

	out := make([]entities.User, len(resp.Users))
	for i, v := range resp.Users {
		out[i] = toUser(v)
	}

	return out, nil
}

// Login ...
func (c *Client) Login(ctx context.Context, firstName, password string) (_ *api.LoginResult, err error) {
	defer observe("login", time.Now(), &err)

	status, b, err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{
		FirstName: firstName,
		Password:  password,
	})
	if err != nil {
		return nil, networkError("Login failed. Please try again.", err)
	}

	// rejected credentials come with non-2xx status and json body
	var resp loginResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return nil, api.NewError(api.ErrAuth, "", fmt.Errorf("unexpected status: %d", status))
		}
		return nil, networkError("Login failed. Please try again.", fmt.Errorf("failed to unmarshal response (status %d): %w", status, err))
	}

	if status >= http.StatusInternalServerError {
		return nil, networkError(resp.Message, fmt.Errorf("unexpected status: %d", status))
	}

	if resp.failed() || resp.Token == "" || resp.User == nil {
		return nil, api.NewError(api.ErrAuth, resp.Message, nil)
	}

	return &api.LoginResult{
		Token: resp.Token,
		User:  toUser(*resp.User),
	}, nil
}

// ListPosts ...
func (c *Client) ListPosts(ctx context.Context, t entities.PostType, page, limit int) (_ *api.PostsPage, err error) {
	if !t.Valid() {
		return nil, api.NewError(api.ErrValidation, "", fmt.Errorf("%w: %q", entities.ErrInvalidPostType, t))
	}
	if page < 1 {
		return nil, api.NewError(api.ErrValidation, "", fmt.Errorf("page must be positive, got %d", page))
	}
	if limit < 1 {
		return nil, api.NewError(api.ErrValidation, "", fmt.Errorf("limit must be positive, got %d", limit))
	}

	defer observe("list_posts", time.Now(), &err)

	const message = "Failed to fetch posts"

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	status, b, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/type/%s?%s", t, q.Encode()), nil)
	if err != nil {
		return nil, networkError(message, err)
	}

	if err := checkStatus(status, b, message, false); err != nil {
		return nil, err
	}

	var resp postsResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, networkError(message, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if resp.failed() || resp.Posts == nil || resp.Pagination == nil {
		return nil, networkError(message, fmt.Errorf("malformed response"))
	}

	out := &api.PostsPage{
		Posts:      make([]entities.Post, len(*resp.Posts)),
		Pagination: toPagination(*resp.Pagination),
	}
	for i, v := range *resp.Posts {
		out.Posts[i] = toPost(v)
	}

	return out, nil
}

// GetPost ...
func (c *Client) GetPost(ctx context.Context, id string) (_ *entities.Post, err error) {
	defer observe("get_post", time.Now(), &err)

	const message = "Failed to load post"

	status, b, err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, networkError(message, err)
	}

	if err := checkStatus(status, b, message, true); err != nil {
		return nil, err
	}

	var resp postResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, networkError(message, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if resp.failed() || resp.Post == nil {
		return nil, api.NewError(api.ErrNotFound, "", nil)
	}

	p := toPost(*resp.Post)
	return &p, nil
}

// LikePost toggles current user's like. Returned post is the server state after the toggle.
func (c *Client) LikePost(ctx context.Context, id string) (_ *entities.Post, err error) {
	defer observe("like_post", time.Now(), &err)

	const message = "Failed to like post"

	status, b, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/%s/like", url.PathEscape(id)), nil)
	if err != nil {
		return nil, networkError(message, err)
	}

	if err := checkStatus(status, b, message, true); err != nil {
		return nil, err
	}

	var resp postResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, networkError(message, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if resp.failed() || resp.Post == nil {
		return nil, networkError(message, fmt.Errorf("malformed response"))
	}

	p := toPost(*resp.Post)
	return &p, nil
}

// AddComment posts trimmed content. Blank content is rejected without a request.
func (c *Client) AddComment(ctx context.Context, id, content string) (_ *entities.Comment, err error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, api.NewError(api.ErrValidation, "Comment can not be empty", nil)
	}

	defer observe("add_comment", time.Now(), &err)

	const message = "Failed to add comment"

	status, b, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/%s/comments", url.PathEscape(id)), commentRequest{
		Content: content,
	})
	if err != nil {
		return nil, networkError(message, err)
	}

	if err := checkStatus(status, b, message, true); err != nil {
		return nil, err
	}

	var resp commentResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, networkError(message, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if resp.failed() || resp.Comment == nil {
		return nil, networkError(message, fmt.Errorf("malformed response"))
	}

	cm := toComment(*resp.Comment)
	return &cm, nil
}

// Ping checks the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/auth/users", nil)
	if err != nil {
		return err
	}

	if status >= http.StatusInternalServerError {
		return fmt.Errorf("unexpected status: %d", status)
	}

	return nil
}
