package gateway

import (
	"net/http"

	"github.com/knowdhq/knowd/internal/knowledge"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string          `json:"status"`
	Stats  knowledge.Stats `json:"stats"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}

		stats, err := g.store.Stats(r.Context())
		if err != nil {
			resp.Status = "degraded"
			g.writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Stats = stats

		g.writeJSON(w, http.StatusOK, resp)
	}
}
