package gateway

import (
	"net/http"
	"time"

	"github.com/knowdhq/knowd/internal/core"
	"github.com/knowdhq/knowd/internal/knowledge"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime      float64         `json:"uptime_seconds"`
	Stats       knowledge.Stats `json:"stats"`
	Modules     []string        `json:"modules"`
	Subscribers int             `json:"event_subscribers"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Uptime: time.Since(g.startedAt).Truncate(time.Second).Seconds(),
		}

		if stats, err := g.store.Stats(r.Context()); err == nil {
			resp.Stats = stats
		}

		for _, info := range core.GetModules() {
			resp.Modules = append(resp.Modules, string(info.ID))
		}

		if g.broker != nil {
			resp.Subscribers = g.broker.SubscriberCount()
		}

		g.writeJSON(w, http.StatusOK, resp)
	}
}
