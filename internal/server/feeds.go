package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/Decentr-net/iris/internal/api"
	"github.com/Decentr-net/iris/internal/entities"
	"github.com/Decentr-net/iris/internal/feed"
)

func (s *server) feedFromRequest(r *http.Request) (*feed.Feed, error) {
	t, err := entities.ParsePostType(chi.URLParam(r, "type"))
	if err != nil {
		return nil, err
	}

	return s.feeds[t], nil
}

// writeFeed writes feed snapshot. wait=true query parameter waits for requests in flight.
func (s *server) writeFeed(w http.ResponseWriter, r *http.Request, f *feed.Feed) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		f.Wait()
	}

	snap := f.Snapshot()
	if errors.Is(snap.Cause, api.ErrAuth) {
		writeError(w, http.StatusUnauthorized, snap.Error)
		return
	}

	writeOK(w, http.StatusOK, toFeedResponse(snap, viewerFromContext(r.Context())))
}

func (s *server) getFeed(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /feeds/{type} Feeds GetFeed
	//
	// Returns feed state. Idle feed starts loading its first page.
	//
	// ---
	// produces:
	// - application/json
	// parameters:
	// - name: type
	//   in: path
	//   required: true
	//   type: string
	//   enum: [image, video, blog]
	// - name: wait
	//   description: waits for requests in flight
	//   in: query
	//   required: false
	//   type: boolean
	// responses:
	//   '200':
	//     description: Feed
	//     schema:
	//       "$ref": "#/definitions/FeedResponse"
	//   '400':
	//     description: bad request
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '401':
	//     description: no session or it is rejected by the backend
	//     schema:
	//       "$ref": "#/definitions/Error"

	f, err := s.feedFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.Start(s.ctx)

	s.writeFeed(w, r, f)
}

func (s *server) setPage(w http.ResponseWriter, r *http.Request) {
	// swagger:operation PUT /feeds/{type}/page Feeds SetPage
	//
	// Requests a page. Responses to previous pages are discarded.
	//
	// ---
	// consumes:
	// - application/json
	// produces:
	// - application/json
	// parameters:
	// - name: type
	//   in: path
	//   required: true
	//   type: string
	//   enum: [image, video, blog]
	// - name: request
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/PageRequest"
	// responses:
	//   '200':
	//     description: Feed
	//     schema:
	//       "$ref": "#/definitions/FeedResponse"
	//   '400':
	//     description: bad request
	//     schema:
	//       "$ref": "#/definitions/Error"

	f, err := s.feedFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req PageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := f.SetPage(s.ctx, req.Page); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeFeed(w, r, f)
}

func (s *server) refetch(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /feeds/{type}/refetch Feeds Refetch
	//
	// Reloads the current page.
	//
	// ---
	// produces:
	// - application/json
	// parameters:
	// - name: type
	//   in: path
	//   required: true
	//   type: string
	//   enum: [image, video, blog]
	// responses:
	//   '200':
	//     description: Feed
	//     schema:
	//       "$ref": "#/definitions/FeedResponse"
	//   '400':
	//     description: bad request
	//     schema:
	//       "$ref": "#/definitions/Error"

	f, err := s.feedFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.Refetch(s.ctx)

	s.writeFeed(w, r, f)
}
