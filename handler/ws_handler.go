package handler

import (
	"net/http"

	"cmrp/broadcast"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler upgrades clients to websockets and registers them with the hub
type WSHandler struct {
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
	logger   logrus.FieldLogger
}

// NewWSHandler creates a websocket handler. Any origin may connect; the feed carries
// the same data the officer and admin dashboards poll for.
func NewWSHandler(hub *broadcast.Hub, logger logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.WithField("component", "ws_handler"),
	}
}

// Complaints handles GET /ws/complaints. The connection stays registered until the
// client goes away.
func (h *WSHandler) Complaints(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	o := broadcast.NewWSObserver(conn, h.logger)
	h.hub.Connect(o)
	o.Start()

	o.KeepAlive()
	h.hub.Disconnect(o)
}
