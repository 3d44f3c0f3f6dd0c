package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

func (s *server) streamFeed(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /feeds/{type}/ws Feeds StreamFeed
	//
	// Upgrades to websocket and sends FeedResponse on every feed change. The first message is the current state.
	//
	// ---
	// parameters:
	// - name: type
	//   in: path
	//   required: true
	//   type: string
	//   enum: [image, video, blog]
	// responses:
	//   '101':
	//     description: switching protocols
	//   '400':
	//     description: bad request
	//     schema:
	//       "$ref": "#/definitions/Error"

	f, err := s.feedFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	viewer := viewerFromContext(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("failed to upgrade connection")
		return
	}
	defer conn.Close() // nolint:errcheck

	ch, cancel := f.Subscribe()
	defer cancel()

	f.Start(s.ctx)

	// reader detects closing by peer
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(toFeedResponse(f.Snapshot(), viewer))
	}

	if err := send(); err != nil {
		log.WithError(err).Debug("failed to send feed")
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-s.ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
				time.Now().Add(writeWait),
			)
			return
		case <-ch:
			if err := send(); err != nil {
				log.WithError(err).Debug("failed to send feed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
