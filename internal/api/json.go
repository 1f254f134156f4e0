package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"deliverydesk/internal/console"
	"deliverydesk/internal/offline"
	"deliverydesk/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeError maps controller and store errors onto problem responses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := http.StatusInternalServerError, "Internal Error"
	switch {
	case errors.Is(err, store.ErrNotFound):
		status, title = http.StatusNotFound, "Order not found"
	case errors.Is(err, console.ErrDeliveredOrder):
		status, title = http.StatusConflict, "Order already delivered"
	case errors.Is(err, offline.ErrDrainInProgress):
		status, title = http.StatusConflict, "Replay in progress"
	case errors.Is(err, console.ErrInvalidOrder), errors.Is(err, offline.ErrInvalidPayload):
		status, title = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, store.ErrRejected):
		status, title = http.StatusUnprocessableEntity, "Rejected by store"
	case errors.Is(err, console.ErrRateLimited):
		status, title = http.StatusTooManyRequests, "Too many orders"
	case errors.Is(err, console.ErrOffline):
		status, title = http.StatusServiceUnavailable, "Offline"
	}
	if status >= 500 {
		s.Log.Error(r.Context(), "request failed", err)
	}
	writeProblem(w, status, title, err.Error(), r.URL.Path)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
