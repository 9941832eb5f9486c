package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/knowdhq/knowd/internal/knowledge"
)

// errorResponse is the JSON body for failed requests.
type errorResponse struct {
	Error string `json:"error"`
	ID    string `json:"id,omitempty"`
}

// writeJSON encodes v with the given status. Encoding failures are logged
// but not surfaced; the status line has already been written.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("encode response failed", "error", err)
	}
}

// writeStoreError maps store errors onto HTTP statuses: unknown ids become
// 404 with the offending id in the body, invalid arguments become 400,
// anything else a 500.
func (g *Gateway) writeStoreError(w http.ResponseWriter, op string, err error) {
	g.metrics.RecordError(op)

	var nf *knowledge.NotFoundError
	if errors.As(err, &nf) {
		g.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), ID: nf.ID})
		return
	}
	if errors.Is(err, knowledge.ErrInvalidArgument) {
		g.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	g.logger.Error("store operation failed", "operation", op, "error", err)
	g.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

// writeBadRequest reports a malformed request body or query.
func (g *Gateway) writeBadRequest(w http.ResponseWriter, op string, err error) {
	g.metrics.RecordError(op)
	g.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// decodeBody strictly decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
