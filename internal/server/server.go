// Package server Iris
//
// The Iris is a local gateway which exposes the feed client data layer (session, feeds, posts) to a browser.
//
//     Schemes: http
//     BasePath: /v1
//     Version: 1.0.0
//
//     Produces:
//     - application/json
//     Consumes:
//     - application/json
//
// swagger:meta
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/iris/internal/api"
	"github.com/Decentr-net/iris/internal/auth"
	"github.com/Decentr-net/iris/internal/entities"
	"github.com/Decentr-net/iris/internal/feed"
	"github.com/Decentr-net/iris/internal/interaction"
	mm "github.com/Decentr-net/iris/internal/middleware"
	"github.com/Decentr-net/iris/internal/session"
)

//go:generate swagger generate spec -t swagger -m -c . -o ../../static/swagger.json

const maxBodySize = 4096

var log = logrus.WithField("layer", "server")

// Config ...
type Config struct {
	Client api.Client
	Store  *session.Store
	// FeedLimit is page size of feeds.
	FeedLimit int
	// Timeout bounds plain requests, websocket streams are not bounded.
	Timeout time.Duration
}

const defaultTimeout = 30 * time.Second

type server struct {
	// ctx is the lifetime of background feed requests. They outlive the http request which started them.
	ctx context.Context

	store    *session.Store
	flow     *auth.Flow
	feeds    map[entities.PostType]*feed.Feed
	registry *interaction.Registry
	upgrader websocket.Upgrader
}

// SetupRouter setups handlers to chi router.
func SetupRouter(ctx context.Context, r chi.Router, c Config) {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}

	r.Use(
		middleware.RequestID,
		mm.Logger,
		middleware.StripSlashes,
		cors.AllowAll().Handler,
		middleware.Recoverer,
		mm.Metrics,
		mm.BodyLimiter(maxBodySize),
	)

	srv := &server{
		ctx:      ctx,
		store:    c.Store,
		flow:     auth.New(c.Client, c.Store),
		feeds:    map[entities.PostType]*feed.Feed{},
		registry: interaction.NewRegistry(c.Client, ""),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	for _, t := range entities.PostTypes {
		srv.feeds[t] = feed.New(c.Client, t, c.FeedLimit, feed.WithApplyHook(func(posts []entities.Post) {
			srv.registry.Seed(posts...)
		}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(c.Timeout))

			r.Get("/session", srv.getSession)
			r.Post("/login", srv.login)
			r.Post("/logout", srv.logout)
			r.Get("/users", srv.listUsers)

			r.Group(func(r chi.Router) {
				r.Use(srv.withSession)

				r.Get("/feeds/{type}", srv.getFeed)
				r.Put("/feeds/{type}/page", srv.setPage)
				r.Post("/feeds/{type}/refetch", srv.refetch)

				r.Get("/posts/{id}", srv.getPost)
				r.Post("/posts/{id}/like", srv.likePost)
				r.Post("/posts/{id}/comments", srv.addComment)
			})
		})

		r.With(srv.withSession).Get("/feeds/{type}/ws", srv.streamFeed)
	})
}

// reset drops all feed and post state and switches the viewer.
func (s *server) reset(viewerID string) {
	for _, f := range s.feeds {
		f.Reset()
	}
	s.registry.Reset(viewerID)
}
