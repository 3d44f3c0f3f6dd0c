package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-chi/chi"
	"github.com/go-redis/redis/v8"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Decentr-net/logrus/sentry"

	"github.com/Decentr-net/iris/internal/api/rest"
	"github.com/Decentr-net/iris/internal/feed"
	"github.com/Decentr-net/iris/internal/health"
	mm "github.com/Decentr-net/iris/internal/middleware"
	"github.com/Decentr-net/iris/internal/server"
	"github.com/Decentr-net/iris/internal/session"
	"github.com/Decentr-net/iris/internal/session/bolt"
	"github.com/Decentr-net/iris/internal/session/memory"
	sessionredis "github.com/Decentr-net/iris/internal/session/redis"
	"github.com/Decentr-net/iris/internal/session/sqlstore"
)

// nolint:lll,gochecknoglobals
var opts = struct {
	Host           string        `long:"http.host" env:"HTTP_HOST" default:"127.0.0.1" description:"IP to listen on"`
	Port           int           `long:"http.port" env:"HTTP_PORT" default:"8080" description:"port to listen on for insecure connections"`
	RequestTimeout time.Duration `long:"http.request-timeout" env:"HTTP_REQUEST_TIMEOUT" default:"45s" description:"request processing timeout"`

	APIURL     string        `long:"api.url" env:"API_URL" default:"https://emaur-api-40d46b1fc5a5.herokuapp.com/api" description:"REST backend base url"`
	APITimeout time.Duration `long:"api.timeout" env:"API_TIMEOUT" default:"30s" description:"timeout for requests to REST backend"`

	FeedLimit int `long:"feed.limit" env:"FEED_LIMIT" default:"10" description:"posts per feed page"`

	SessionStorage  string `long:"session.storage" env:"SESSION_STORAGE" default:"bolt" description:"session storage" choice:"memory" choice:"bolt" choice:"sqlite3" choice:"postgres" choice:"redis"`
	SessionBolt     string `long:"session.bolt" env:"SESSION_BOLT" default:"iris.db" description:"bolt session file"`
	SessionSQLite   string `long:"session.sqlite3" env:"SESSION_SQLITE3" default:"iris.sqlite" description:"sqlite3 session dsn"`
	SessionPostgres string `long:"session.postgres" env:"SESSION_POSTGRES" default:"host=localhost port=5432 user=postgres password=root sslmode=disable" description:"postgres session dsn"`
	SessionRedis    string `long:"session.redis" env:"SESSION_REDIS" default:"localhost:6379" description:"redis session address"`
	SessionRedisDB  int    `long:"session.redis-db" env:"SESSION_REDIS_DB" default:"0" description:"redis session database"`

	LogLevel  string `long:"log.level" env:"LOG_LEVEL" default:"info" description:"Log level" choice:"debug" choice:"info" choice:"warning" choice:"error"`
	SentryDSN string `long:"sentry.dsn" env:"SENTRY_DSN" description:"sentry dsn"`
}{}

var errTerminated = errors.New("terminated")

// successful health checks are cached for healthCacheTTL
const healthCacheTTL = 5 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Fatal("failed to load .env")
	}

	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "Iris"
	parser.LongDescription = "Iris is a local gateway to the feed client data layer"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	lvl, _ := logrus.ParseLevel(opts.LogLevel) // err will always be nil
	logrus.SetLevel(lvl)

	logrus.Info("service started")
	logrus.Debug(spew.Sdump(opts))

	if opts.SentryDSN != "" {
		hook, err := sentry.NewHook(sentry.Options{
			Dsn:              opts.SentryDSN,
			AttachStacktrace: true,
			Release:          health.GetVersion(),
			ServerName:       "iris",
		}, logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel)

		if err != nil {
			logrus.WithError(err).Fatal("failed to init sentry")
		}

		logrus.AddHook(hook)
	} else {
		logrus.Info("empty sentry dsn")
		logrus.Warn("skip sentry initialization")
	}

	ctx, cancel := context.WithCancel(context.Background())

	storage := mustGetSessionStorage(ctx)
	defer storage.Close() // nolint:errcheck

	store := session.NewStore(storage)
	client := rest.New(opts.APIURL, store, rest.WithTimeout(opts.APITimeout))

	if opts.FeedLimit < 1 {
		opts.FeedLimit = feed.DefaultLimit
	}

	r := chi.NewMux()

	// middlewares are set up here, so it goes before any route
	server.SetupRouter(ctx, r, server.Config{
		Client:    client,
		Store:     store,
		FeedLimit: opts.FeedLimit,
		Timeout:   opts.RequestTimeout,
	})

	r.Get("/health", mm.Cached(healthCacheTTL, health.Handler(
		5*time.Second,
		health.SubjectPinger("api", client.Ping),
		health.SubjectPinger("session", store.Ping),
	)))
	r.Handle("/metrics", promhttp.Handler())

	srv := http.Server{
		Addr:    fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler: r,
	}

	gr, _ := errgroup.WithContext(ctx)
	gr.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	gr.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

		s := <-sigs

		logrus.Infof("terminating by %s signal", s)

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("failed to shutdown server")
		}

		return errTerminated
	})

	logrus.Infof("listening on %s", srv.Addr)

	if err := gr.Wait(); err != nil && !errors.Is(err, errTerminated) {
		logrus.WithError(err).Fatal("iris unexpectedly closed")
	}
}

func mustGetSessionStorage(ctx context.Context) session.Storage {
	var (
		s   session.Storage
		err error
	)

	switch opts.SessionStorage {
	case "memory":
		logrus.Warn("session will not survive restart")
		s = memory.New()
	case "bolt":
		s, err = bolt.Open(opts.SessionBolt)
	case sqlstore.SQLite:
		s, err = sqlstore.Open(sqlstore.SQLite, opts.SessionSQLite)
	case sqlstore.Postgres:
		s, err = sqlstore.Open(sqlstore.Postgres, opts.SessionPostgres)
	case "redis":
		s, err = sessionredis.Open(ctx, &redis.Options{
			Addr: opts.SessionRedis,
			DB:   opts.SessionRedisDB,
		})
	default:
		err = fmt.Errorf("unknown session storage %q", opts.SessionStorage)
	}

	if err != nil {
		logrus.WithError(err).Fatal("failed to open session storage")
	}

	logrus.Infof("session storage: %s", opts.SessionStorage)

	return s
}
