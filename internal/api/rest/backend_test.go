package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-chi/chi"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// backend is an in-memory fake of the REST backend.
type backend struct {
	mu        sync.Mutex
	users     []userDTO
	passwords map[string]string // firstName -> password
	tokens    map[string]string // token -> user id
	posts     map[string]*postDTO
	hits      map[string]int
}

func newBackend(t *testing.T, postsPerType int) (*backend, *httptest.Server) {
	b := &backend{
		passwords: map[string]string{},
		tokens:    map[string]string{},
		posts:     map[string]*postDTO{},
		hits:      map[string]int{},
	}

	for i := 0; i < 3; i++ {
		u := userDTO{
			userRefDTO: userRefDTO{
				ID:        gofakeit.UUID(),
				FirstName: gofakeit.FirstName(),
				LastName:  gofakeit.LastName(),
				AvatarURL: gofakeit.URL(),
			},
		}
		u.FullName = u.FirstName + " " + u.LastName
		b.users = append(b.users, u)
		b.passwords[u.FirstName] = gofakeit.Word()
	}

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, typ := range []string{"image", "video", "blog"} {
		for i := 0; i < postsPerType; i++ {
			p := &postDTO{
				ID:        fmt.Sprintf("%s-%03d", typ, i),
				Type:      typ,
				Caption:   gofakeit.Word(),
				Author:    b.users[i%len(b.users)].userRefDTO,
				Likes:     []string{},
				Comments:  []commentDTO{},
				CreatedAt: created.Add(time.Duration(i) * time.Hour),
				UpdatedAt: created.Add(time.Duration(i) * time.Hour),
			}
			if typ == "blog" {
				p.Content = gofakeit.Word()
			} else {
				p.MediaURL = gofakeit.URL()
			}
			b.posts[p.ID] = p
		}
	}

	r := chi.NewRouter()
	r.Use(b.count)
	r.Get("/auth/users", b.listUsers)
	r.Post("/auth/login", b.login)
	r.Group(func(r chi.Router) {
		r.Use(b.auth)
		r.Get("/posts/type/{type}", b.listPosts)
		r.Get("/posts/{id}", b.getPost)
		r.Post("/posts/{id}/like", b.like)
		r.Post("/posts/{id}/comments", b.comment)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return b, srv
}

func (b *backend) hitCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.hits[path]
}

func (b *backend) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[r.URL.Path]++
		b.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func (b *backend) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		b.mu.Lock()
		id, ok := b.tokens[token]
		b.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusUnauthorized, envelope{Success: boolPtr(false), Message: "Not authorized, token failed"})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func boolPtr(v bool) *bool {
	return &v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *backend) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: boolPtr(false), Message: "Bad request"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	pass, ok := b.passwords[req.FirstName]
	if !ok || pass != req.Password {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: boolPtr(false), Message: "Invalid credentials"})
		return
	}

	for i := range b.users {
		if b.users[i].FirstName == req.FirstName {
			token := gofakeit.UUID()
			b.tokens[token] = b.users[i].ID
			writeJSON(w, http.StatusOK, loginResponse{envelope: envelope{Success: boolPtr(true)}, Token: token, User: &b.users[i]})
			return
		}
	}
}

func (b *backend) listUsers(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	writeJSON(w, http.StatusOK, usersResponse{envelope: envelope{Success: boolPtr(true)}, Users: b.users})
}

func (b *backend) listPosts(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 || limit < 1 {
		writeJSON(w, http.StatusBadRequest, envelope{Success: boolPtr(false), Message: "Bad request"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var all []postDTO
	for _, p := range b.posts {
		if p.Type == typ {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	from, to := (page-1)*limit, page*limit
	if from > len(all) {
		from = len(all)
	}
	if to > len(all) {
		to = len(all)
	}

	posts := append([]postDTO{}, all[from:to]...)
	writeJSON(w, http.StatusOK, postsResponse{
		envelope: envelope{Success: boolPtr(true)},
		Posts:    &posts,
		Pagination: &paginationDTO{
			Page:  page,
			Limit: limit,
			Total: len(all),
			Pages: (len(all) + limit - 1) / limit,
		},
	})
}

func (b *backend) getPost(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.posts[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, envelope{Success: boolPtr(false), Message: "Post not found"})
		return
	}

	writeJSON(w, http.StatusOK, postResponse{envelope: envelope{Success: boolPtr(true)}, Post: p})
}

func (b *backend) like(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(ctxKey{}).(string)

	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.posts[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, envelope{Success: boolPtr(false), Message: "Post not found"})
		return
	}

	likes := make([]string, 0, len(p.Likes)+1)
	liked := false
	for _, v := range p.Likes {
		if v == userID {
			liked = true
			continue
		}
		likes = append(likes, v)
	}
	if !liked {
		likes = append(likes, userID)
	}
	p.Likes = likes

	writeJSON(w, http.StatusOK, postResponse{envelope: envelope{Success: boolPtr(true)}, Post: p})
}

func (b *backend) comment(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(ctxKey{}).(string)

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: boolPtr(false), Message: "Content is required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.posts[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, envelope{Success: boolPtr(false), Message: "Post not found"})
		return
	}

	var author userRefDTO
	for _, u := range b.users {
		if u.ID == userID {
			author = u.userRefDTO
		}
	}

	c := commentDTO{
		ID:        gofakeit.UUID(),
		Content:   req.Content,
		Author:    author,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	p.Comments = append(p.Comments, c)

	writeJSON(w, http.StatusCreated, commentResponse{envelope: envelope{Success: boolPtr(true)}, Comment: &c})
}
