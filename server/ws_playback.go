package server

import (
	"net/http"
	"time"

	"recbox/logger"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 5 * time.Second

// PlaybackStreamHandler pushes playback position updates to a UI client for
// the lifetime of the connection.
func (h *APIHandler) PlaybackStreamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	updates, cancel := h.controller.Subscribe()
	defer cancel()

	// Drain client frames so pings and the close handshake are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send the current snapshot first so the client renders immediately.
	if err := conn.WriteJSON(h.controller.Status()); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(update); err != nil {
				logger.Debug("websocket write failed", logger.ErrorField(err))
				return
			}
		}
	}
}
