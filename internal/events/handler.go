package events

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
)

// Handler upgrades HTTP requests to WebSocket connections and streams
// broker events to each client as JSON text messages.
type Handler struct {
	broker *Broker
	logger *slog.Logger
}

// NewHandler creates a WebSocket event handler backed by the broker.
func NewHandler(broker *Broker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{broker: broker, logger: logger}
}

// ServeHTTP implements http.Handler. The connection is closed when the
// client disconnects, the broker shuts down, or a write fails.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()

	ch, cancel := h.broker.Subscribe()
	defer cancel()

	ctx := r.Context()

	// Drain client frames so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case ev, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "event stream closed")
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("marshal event failed", "error", err)
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				h.logger.Warn("write event failed", "error", err)
				return
			}
		}
	}
}
