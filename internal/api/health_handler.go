package api

import (
	"context"
	"net/http"
	"time"

	"github.com/phrazzld/image-tagger/internal/api/shared"
	"github.com/phrazzld/image-tagger/internal/redact"
	"github.com/phrazzld/image-tagger/internal/task"
)

// healthPingTimeout bounds the analyzer reachability check
const healthPingTimeout = 2 * time.Second

// Pinger checks that an analyzer backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthInfo describes the wiring reported by the health endpoint.
type HealthInfo struct {
	Backend  string
	Provider string
	Model    string
	// Pinger is optional; without it the analyzer is reported as "unchecked"
	Pinger Pinger
}

// HealthHandler serves GET /health
type HealthHandler struct {
	queue *task.Queue
	info  HealthInfo
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(queue *task.Queue, info HealthInfo) *HealthHandler {
	return &HealthHandler{queue: queue, info: info}
}

// ServeHTTP reports "ok", or "degraded" when the analyzer cannot be reached.
// The service itself stays usable while degraded, so the status code is 200.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.queue.Status()
	resp := HealthResponse{
		Status:       "ok",
		Backend:      h.info.Backend,
		Provider:     h.info.Provider,
		Model:        h.info.Model,
		Analyzer:     "unchecked",
		QueueLength:  status.QueueLength,
		IsProcessing: status.IsProcessing,
	}

	if h.info.Pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := h.info.Pinger.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Analyzer = "unreachable"
			resp.AnalyzerError = redact.Error(err)
		} else {
			resp.Analyzer = "reachable"
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
