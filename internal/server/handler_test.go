package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/golang/mock/gomock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Decentr-net/iris/internal/api"
	"github.com/Decentr-net/iris/internal/api/mock"
	"github.com/Decentr-net/iris/internal/entities"
	"github.com/Decentr-net/iris/internal/session"
	"github.com/Decentr-net/iris/internal/session/memory"
)

var alice = entities.User{
	UserRef: entities.UserRef{
		ID:        "u9",
		FirstName: "Alice",
		LastName:  "Liddell",
		AvatarURL: "https://example.com/a.png",
	},
	FullName: "Alice Liddell",
}

var created = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestServer(t *testing.T, c api.Client, sess *entities.Session) (*httptest.Server, *session.Store) {
	store := session.NewStore(memory.New())
	if sess != nil {
		require.NoError(t, store.Save(context.Background(), *sess))
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := chi.NewRouter()
	SetupRouter(ctx, r, Config{
		Client:    c,
		Store:     store,
		FeedLimit: 10,
		Timeout:   5 * time.Second,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return srv, store
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, string) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, srv.URL+path, r)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(b)
}

func aliceSession() *entities.Session {
	return &entities.Session{Token: "t1", User: alice}
}

func Test_getSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	srv, _ := newTestServer(t, mock.NewMockClient(ctrl), nil)
	code, body := do(t, srv, http.MethodGet, "/v1/session", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"screen":"login"}`, body)

	srv, _ = newTestServer(t, mock.NewMockClient(ctrl), aliceSession())
	code, body = do(t, srv, http.MethodGet, "/v1/session", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{
		"screen":"feed",
		"user":{"_id":"u9","firstName":"Alice","lastName":"Liddell","avatarUrl":"https://example.com/a.png","fullName":"Alice Liddell"}
	}`, body)
}

func Test_login(t *testing.T) {
	tt := []struct {
		name  string
		body  string
		setup func(c *mock.MockClient)
		code  int
		resp  string
	}{
		{
			name: "ok",
			body: `{"firstName":"Alice","password":"secret"}`,
			setup: func(c *mock.MockClient) {
				c.EXPECT().Login(gomock.Any(), "Alice", "secret").Return(&api.LoginResult{Token: "t1", User: alice}, nil)
			},
			code: http.StatusOK,
			resp: `{
				"screen":"feed",
				"user":{"_id":"u9","firstName":"Alice","lastName":"Liddell","avatarUrl":"https://example.com/a.png","fullName":"Alice Liddell"}
			}`,
		},
		{
			name: "invalid credentials",
			body: `{"firstName":"Alice","password":"wrong"}`,
			setup: func(c *mock.MockClient) {
				c.EXPECT().Login(gomock.Any(), "Alice", "wrong").Return(nil, api.NewError(api.ErrAuth, "Invalid credentials", nil))
			},
			code: http.StatusUnauthorized,
			resp: `{"error":"Invalid credentials"}`,
		},
		{
			name:  "empty password",
			body:  `{"firstName":"Alice","password":""}`,
			setup: func(c *mock.MockClient) {},
			code:  http.StatusBadRequest,
			resp:  `{"error":"Please enter a password"}`,
		},
		{
			name: "backend unavailable",
			body: `{"firstName":"Alice","password":"secret"}`,
			setup: func(c *mock.MockClient) {
				c.EXPECT().Login(gomock.Any(), "Alice", "secret").Return(nil, api.NewError(api.ErrNetwork, "", nil))
			},
			code: http.StatusBadGateway,
			resp: `{"error":"Failed to load"}`,
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			c := mock.NewMockClient(ctrl)
			tc.setup(c)

			srv, store := newTestServer(t, c, nil)

			code, body := do(t, srv, http.MethodPost, "/v1/login", tc.body)
			assert.Equal(t, tc.code, code)
			assert.JSONEq(t, tc.resp, body)

			token, err := store.Token(context.Background())
			require.NoError(t, err)
			if tc.code == http.StatusOK {
				assert.Equal(t, "t1", token)
			} else {
				assert.Empty(t, token)
			}
		})
	}
}

func Test_login_InvalidBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	srv, _ := newTestServer(t, mock.NewMockClient(ctrl), nil)

	code, _ := do(t, srv, http.MethodPost, "/v1/login", `{`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func Test_logout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	srv, store := newTestServer(t, mock.NewMockClient(ctrl), aliceSession())

	code, body := do(t, srv, http.MethodPost, "/v1/logout", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"screen":"login"}`, body)

	_, err := store.Load(context.Background())
	assert.True(t, errors.Is(err, session.ErrNoSession))

	code, body = do(t, srv, http.MethodGet, "/v1/feeds/image", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, body)
}

func Test_listUsers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := mock.NewMockClient(ctrl)
	c.EXPECT().ListUsers(gomock.Any()).Return([]entities.User{alice}, nil).Times(2)

	srv, _ := newTestServer(t, c, nil)

	for i := 0; i < 2; i++ {
		code, body := do(t, srv, http.MethodGet, "/v1/users", "")
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"users":[
			{"_id":"u9","firstName":"Alice","lastName":"Liddell","avatarUrl":"https://example.com/a.png","fullName":"Alice Liddell"}
		]}`, body)
	}
}

func Test_getFeed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := mock.NewMockClient(ctrl)
	c.EXPECT().ListPosts(gomock.Any(), entities.ImagePostType, 1, 10).Return(&api.PostsPage{
		Posts: []entities.Post{
			{
				ID:          "p1",
				Type:        entities.ImagePostType,
				Caption:     "sunset",
				MediaURL:    "https://example.com/1.jpg",
				Author:      alice.UserRef,
				LikeUserIDs: []string{"u9", "u3"},
				Comments:    []entities.Comment{},
				CreatedAt:   created,
				UpdatedAt:   created,
			},
		},
		Pagination: entities.PaginationInfo{Page: 1, Limit: 10, Total: 61, Pages: 7},
	}, nil)

	srv, _ := newTestServer(t, c, aliceSession())

	code, body := do(t, srv, http.MethodGet, "/v1/feeds/image?wait=true", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{
		"type":"image",
		"state":"ready",
		"page":1,
		"posts":[{
			"_id":"p1",
			"type":"image",
			"caption":"sunset",
			"mediaUrl":"https://example.com/1.jpg",
			"body":"https://example.com/1.jpg",
			"author":{"_id":"u9","firstName":"Alice","lastName":"Liddell","avatarUrl":"https://example.com/a.png"},
			"likes":["u9","u3"],
			"likeCount":2,
			"isLiked":true,
			"commentCount":0,
			"comments":[],
			"createdAt":"2024-01-02T03:04:05Z",
			"updatedAt":"2024-01-02T03:04:05Z"
		}],
		"pagination":{
			"page":1,"limit":10,"total":61,"pages":7,
			"visible":true,
			"window":[{"page":1},{"page":2},{"ellipsis":true},{"page":7}],
			"controls":{"prev":false,"next":true}
		},
		"empty":false
	}`, body)
}

func Test_getFeed_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := mock.NewMockClient(ctrl)
	c.EXPECT().ListPosts(gomock.Any(), entities.ImagePostType, 1, 10).Return(&api.PostsPage{
		Posts:      []entities.Post{},
		Pagination: entities.PaginationInfo{Page: 1, Limit: 10, Total: 0, Pages: 0},
	}, nil)

	srv, _ := newTestServer(t, c, aliceSession())

	code, body := do(t, srv, http.MethodGet, "/v1/feeds/image?wait=true", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{
		"type":"image",
		"state":"ready",
		"page":1,
		"posts":[],
		"pagination":{
			"page":1,"limit":10,"total":0,"pages":0,
			"visible":false,
			"window":[],
			"controls":{"prev":false,"next":false}
		},
		"empty":true,
		"emptyMessage":"No images found"
	}`, body)
}

func Test_getFeed_Errors(t *testing.T) {
	tt := []struct {
		name string
		err  error
		code int
		resp string
	}{
		{
			name: "network",
			err:  api.NewError(api.ErrNetwork, "Failed to fetch posts", nil),
			code: http.StatusOK,
			resp: `{"type":"video","state":"failed","page":1,"posts":[],"empty":false,"error":"Failed to fetch posts"}`,
		},
		{
			name: "auth",
			err:  api.NewError(api.ErrAuth, "Not authorized, token failed", nil),
			code: http.StatusUnauthorized,
			resp: `{"error":"Not authorized, token failed"}`,
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			c := mock.NewMockClient(ctrl)
			c.EXPECT().ListPosts(gomock.Any(), entities.VideoPostType, 1, 10).Return(nil, tc.err)

			srv, _ := newTestServer(t, c, aliceSession())

			code, body := do(t, srv, http.MethodGet, "/v1/feeds/video?wait=true", "")
			assert.Equal(t, tc.code, code)
			assert.JSONEq(t, tc.resp, body)
		})
	}
}

func Test_getFeed_BadRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	srv, _ := newTestServer(t, mock.NewMockClient(ctrl), aliceSession())

	code, _ := do(t, srv, http.MethodGet, "/v1/feeds/podcast", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, srv, http.MethodPut, "/v1/feeds/image/page", `{"page":0}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, srv, http.MethodPut, "/v1/feeds/image/page", `page`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func Test_setPage_and_refetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pageOf := func(n int) *api.PostsPage {
		return &api.PostsPage{
			Posts:      []entities.Post{{ID: "blog-" + string(rune('0'+n)), Type: entities.BlogPostType}},
			Pagination: entities.PaginationInfo{Page: n, Limit: 10, Total: 30, Pages: 3},
		}
	}

	c := mock.NewMockClient(ctrl)
	gomock.InOrder(
		c.EXPECT().ListPosts(gomock.Any(), entities.BlogPostType, 3, 10).Return(pageOf(3), nil),
		c.EXPECT().ListPosts(gomock.Any(), entities.BlogPostType, 3, 10).Return(pageOf(3), nil),
	)

	srv, _ := newTestServer(t, c, aliceSession())

	code, body := do(t, srv, http.MethodPut, "/v1/feeds/blog/page?wait=true", `{"page":3}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"_id":"blog-3"`)
	assert.Contains(t, body, `"controls":{"prev":true,"next":false}`)

	code, body = do(t, srv, http.MethodPost, "/v1/feeds/blog/refetch?wait=true", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"page":3`)
	assert.Contains(t, body, `"state":"ready"`)
}

func Test_likePost(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := mock.NewMockClient(ctrl)
	c.EXPECT().ListPosts(gomock.Any(), entities.ImagePostType, 1, 10).Return(&api.PostsPage{
		Posts:      []entities.Post{{ID: "p1", Type: entities.ImagePostType, LikeUserIDs: []string{"u9", "u2"}}},
		Pagination: entities.PaginationInfo{Page: 1, Limit: 10, Total: 1, Pages: 1},
	}, nil)
	c.EXPECT().LikePost(gomock.Any(), "p1").Return(&entities.Post{ID: "p1", Type: entities.ImagePostType, LikeUserIDs: []string{"u9"}}, nil)

	srv, _ := newTestServer(t, c, aliceSession())

	code, _ := do(t, srv, http.MethodGet, "/v1/feeds/image?wait=true", "")
	require.Equal(t, http.StatusOK, code)

	// state is seeded by the feed, so no GetPost is expected
	code, body := do(t, srv, http.MethodPost, "/v1/posts/p1/like", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"isLiked":true`)
	assert.Contains(t, body, `"likeCount":1`)
	assert.Contains(t, body, `"likes":["u9"]`)
}

func Test_likePost_Failed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := mock.NewMockClient(ctrl)
	c.EXPECT().GetPost(gomock.Any(), "p1").Return(&entities.Post{ID: "p1", LikeUserIDs: []string{}}, nil)
	c.EXPECT().LikePost(gomock.Any(), "p1").Return(nil, api.NewError(api.ErrNetwork, "Failed to like post", nil))

	srv, _ := newTestServer(t, c, aliceSession())

	code, body := do(t, srv, http.MethodPost, "/v1/posts/p1/like", "")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.JSONEq(t, `{"error":"Failed to like post"}`, body)
}

func Test_getPost(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := mock.NewMockClient(ctrl)
	c.EXPECT().GetPost(gomock.Any(), "p1").Return(&entities.Post{
		ID:          "p1",
		Type:        entities.BlogPostType,
		Content:     "hello",
		LikeUserIDs: []string{"u2"},
		Comments: []entities.Comment{
			{ID: "c1", Content: "hi", Author: entities.UserRef{ID: "u2"}, CreatedAt: created},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}, nil)
	c.EXPECT().GetPost(gomock.Any(), "gone").Return(nil, api.NewError(api.ErrNotFound, "", nil))

	srv, _ := newTestServer(t, c, aliceSession())

	code, body := do(t, srv, http.MethodGet, "/v1/posts/p1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"post":{
		"_id":"p1",
		"type":"blog",
		"caption":"",
		"content":"hello",
		"body":"hello",
		"author":{"_id":"","firstName":"","lastName":"","avatarUrl":""},
		"likes":["u2"],
		"likeCount":1,
		"isLiked":false,
		"commentCount":1,
		"comments":[{"_id":"c1","content":"hi","author":{"_id":"u2","firstName":"","lastName":"","avatarUrl":""},"createdAt":"2024-01-02T03:04:05Z"}],
		"createdAt":"2024-01-02T03:04:05Z",
		"updatedAt":"2024-01-02T03:04:05Z"
	}}`, body)

	code, body = do(t, srv, http.MethodGet, "/v1/posts/gone", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.JSONEq(t, `{"error":"Post not found"}`, body)
}

func Test_addComment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cm := entities.Comment{ID: "c2", Content: "nice", Author: alice.UserRef, CreatedAt: created}

	c := mock.NewMockClient(ctrl)
	gomock.InOrder(
		c.EXPECT().GetPost(gomock.Any(), "p1").Return(&entities.Post{ID: "p1"}, nil),
		c.EXPECT().AddComment(gomock.Any(), "p1", "nice").Return(&cm, nil),
		c.EXPECT().GetPost(gomock.Any(), "p1").Return(&entities.Post{ID: "p1", Comments: []entities.Comment{cm}}, nil),
	)

	srv, _ := newTestServer(t, c, aliceSession())

	// blank comment is rejected before any backend call
	code, body := do(t, srv, http.MethodPost, "/v1/posts/p1/comments", `{"content":"   "}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.JSONEq(t, `{"error":"Comment can not be empty"}`, body)

	code, body = do(t, srv, http.MethodPost, "/v1/posts/p1/comments", `{"content":" nice "}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.Contains(t, body, `"commentCount":1`)
	assert.Contains(t, body, `"comment":{"_id":"c2"`)
}

func Test_withSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	srv, _ := newTestServer(t, mock.NewMockClient(ctrl), nil)

	for _, v := range []struct{ method, path string }{
		{http.MethodGet, "/v1/feeds/image"},
		{http.MethodPut, "/v1/feeds/image/page"},
		{http.MethodPost, "/v1/feeds/image/refetch"},
		{http.MethodGet, "/v1/posts/p1"},
		{http.MethodPost, "/v1/posts/p1/like"},
		{http.MethodPost, "/v1/posts/p1/comments"},
		{http.MethodGet, "/v1/feeds/image/ws"},
	} {
		code, _ := do(t, srv, v.method, v.path, "")
		assert.Equal(t, http.StatusUnauthorized, code, v.path)
	}
}

func Test_streamFeed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	release := make(chan struct{})

	c := mock.NewMockClient(ctrl)
	c.EXPECT().ListPosts(gomock.Any(), entities.VideoPostType, 1, 10).DoAndReturn(
		func(context.Context, entities.PostType, int, int) (*api.PostsPage, error) {
			<-release
			return &api.PostsPage{
				Posts:      []entities.Post{{ID: "v1", Type: entities.VideoPostType}},
				Pagination: entities.PaginationInfo{Page: 1, Limit: 10, Total: 1, Pages: 1},
			}, nil
		},
	)

	srv, _ := newTestServer(t, c, aliceSession())

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/feeds/video/ws", nil)
	require.NoError(t, err)
	defer conn.Close() // nolint:errcheck

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var resp FeedResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "loading", resp.State)

	close(release)

	for resp.State != "ready" {
		require.NoError(t, conn.ReadJSON(&resp))
	}

	require.Len(t, resp.Posts, 1)
	assert.Equal(t, "v1", resp.Posts[0].ID)
}
