package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/Decentr-net/iris/internal/api"
	"github.com/Decentr-net/iris/internal/entities"
	"github.com/Decentr-net/iris/internal/session"
)

var errInvalidRequest = errors.New("invalid request")

type sessionCtxKey struct{}

func writeOK(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeOK(w, status, Error{Error: message})
}

func writeInternalErrorf(ctx context.Context, w http.ResponseWriter, format string, args ...interface{}) {
	log.WithField("request_id", middleware.GetReqID(ctx)).Errorf(format, args...)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// writeAPIError answers with a status derived from the error kind and its user-facing message.
func writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway

	switch {
	case errors.Is(err, api.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, api.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, api.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, api.ErrNetwork):
	default:
		writeInternalErrorf(r.Context(), w, "unexpected error: %s", err.Error())
		return
	}

	writeError(w, status, api.Message(err))
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %s", errInvalidRequest, err.Error())
	}

	return nil
}

// withSession answers 401 when no session is stored. Feed and post state of a previous viewer is dropped.
func (s *server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.store.Load(r.Context())
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeInternalErrorf(r.Context(), w, "failed to load session: %s", err.Error())
			return
		}

		if s.registry.Viewer() != sess.User.ID {
			s.reset(sess.User.ID)
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionCtxKey{}, sess)))
	})
}

func sessionFromContext(ctx context.Context) *entities.Session {
	sess, _ := ctx.Value(sessionCtxKey{}).(*entities.Session)
	return sess
}

func viewerFromContext(ctx context.Context) string {
	if sess := sessionFromContext(ctx); sess != nil {
		return sess.User.ID
	}

	return ""
}
