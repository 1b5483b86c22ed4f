package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"quizarena-service/internal/domain"
	"quizarena-service/internal/notify"
)

// WSHandler streams leaderboard-update events to connected clients.
// Delivery is best-effort: clients that connect after an event re-fetch the
// leaderboard over REST instead of replaying history.
type WSHandler struct {
	hub      *notify.Hub
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *notify.Hub, log *logrus.Logger) *WSHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundEvent struct {
	Type    string            `json:"type"`
	Payload domain.ScoreEvent `json:"payload"`
}

// ServeWS upgrades the connection and forwards hub events until the client
// disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	// Reader only detects disconnect; clients send nothing meaningful.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundEvent{Type: "leaderboard-update", Payload: event}); err != nil {
				h.log.WithError(err).Debug("ws write error")
				return
			}
		case <-done:
			return
		}
	}
}
