package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// SnapshotLister returns persisted stats, newest first.
type SnapshotLister interface {
	ListSnapshots(ctx context.Context, limit int) ([]AggregatedStats, error)
}

type Handler struct {
	aggregator *Aggregator
	history    SnapshotLister
	logger     *slog.Logger
}

// NewHandler serves the aggregator's live stats. history may be nil.
func NewHandler(aggregator *Aggregator, history SnapshotLister) *Handler {
	return &Handler{
		aggregator: aggregator,
		history:    history,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

type statsResponse struct {
	Current AggregatedStats   `json:"current"`
	History []AggregatedStats `json:"history,omitempty"`
}

// Stats writes the current stats. With ?history=N and a snapshot store it
// also includes the last N persisted snapshots.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Current: h.aggregator.Stats()}
	if v := r.URL.Query().Get("history"); v != "" && h.history != nil {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "history must be between 1 and 100"})
			return
		}
		snapshots, err := h.history.ListSnapshots(r.Context(), n)
		if err != nil {
			h.logger.Error("listing analytics snapshots", "error", err)
		} else {
			resp.History = snapshots
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
