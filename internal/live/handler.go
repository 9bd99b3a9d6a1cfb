package live

import (
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// Handler streams hub messages over a websocket.
type Handler struct {
	hub    *Hub
	logger *logging.Logger
}

// NewHandler creates a websocket handler for the admin feed.
func NewHandler(hub *Hub, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{hub: hub, logger: logger}
}

// ServeHTTP upgrades the request and streams messages until either side
// goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	// Reads only detect the client hanging up; inbound frames are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		var discard map[string]any
		for {
			if err := websocket.JSON.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	h.logger.Info("live: admin connected", "remote", r.RemoteAddr)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			h.logger.Debug("live: admin disconnected", "remote", r.RemoteAddr)
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			if err := websocket.JSON.Send(conn, msg); err != nil {
				h.logger.Debug("live: send failed", "error", err)
				return
			}
		}
	}
}
