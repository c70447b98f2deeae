package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/image-tagger/internal/api/shared"
	"github.com/phrazzld/image-tagger/internal/task"
)

// ProcessingHandler handles worker control requests
type ProcessingHandler struct {
	queue  *task.Queue
	worker WorkerController
	logger *slog.Logger
}

// NewProcessingHandler creates a new ProcessingHandler
func NewProcessingHandler(queue *task.Queue, worker WorkerController, logger *slog.Logger) *ProcessingHandler {
	return &ProcessingHandler{
		queue:  queue,
		worker: worker,
		logger: logger.With("component", "processing_handler"),
	}
}

// Start handles POST /api/processing/start requests
func (h *ProcessingHandler) Start(w http.ResponseWriter, r *http.Request) {
	// the loop outlives this request
	if err := h.worker.Start(context.WithoutCancel(r.Context())); err != nil {
		respondWithMappedError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "processing started on request")
	shared.RespondWithJSON(w, r, http.StatusAccepted, h.status())
}

// Stop handles POST /api/processing/stop requests. The loop finishes after
// the current analysis; poll GetStatus to observe it.
func (h *ProcessingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.worker.Stop(); err != nil {
		respondWithMappedError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "processing stop requested")
	shared.RespondWithJSON(w, r, http.StatusOK, h.status())
}

// GetStatus handles GET /api/processing/status requests
func (h *ProcessingHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.status())
}

func (h *ProcessingHandler) status() ProcessingStatusResponse {
	s := h.queue.Status()
	return ProcessingStatusResponse{
		IsProcessing: s.IsProcessing,
		ShouldStop:   s.ShouldStop,
		CurrentTask:  s.CurrentTask,
		QueueLength:  s.QueueLength,
	}
}
