package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/image-tagger/internal/api/shared"
	"github.com/phrazzld/image-tagger/internal/task"
)

// WorkerController starts and stops the processing loop.
type WorkerController interface {
	Start(ctx context.Context) error
	Stop() error
	Running() bool
}

// StatePersister writes and clears the durable queue snapshot. Calls are
// serialized with the background snapshot writer.
type StatePersister interface {
	Flush(ctx context.Context) bool
	ClearSavedState(ctx context.Context) bool
}

// QueueHandler handles queue-related HTTP requests
type QueueHandler struct {
	queue       *task.Queue
	worker      WorkerController
	persistence StatePersister
	logger      *slog.Logger
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(
	queue *task.Queue,
	worker WorkerController,
	persistence StatePersister,
	logger *slog.Logger,
) *QueueHandler {
	return &QueueHandler{
		queue:       queue,
		worker:      worker,
		persistence: persistence,
		logger:      logger.With("component", "queue_handler"),
	}
}

// AddTasks handles POST /api/queue/tasks requests
func (h *QueueHandler) AddTasks(w http.ResponseWriter, r *http.Request) {
	var req AddTasksRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		if errors.Is(err, shared.ErrEmptyBody) {
			respondWithMappedError(w, r, err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	created := make([]task.TaskView, 0, len(req.ImagePaths))
	for _, path := range req.ImagePaths {
		created = append(created, h.queue.AddTask(path).View())
	}
	h.logger.InfoContext(r.Context(), "tasks enqueued", "count", len(created))

	started := false
	if req.Start {
		// the loop outlives this request
		err := h.worker.Start(context.WithoutCancel(r.Context()))
		switch {
		case err == nil:
			started = true
		case errors.Is(err, task.ErrAlreadyProcessing):
			// the running loop picks the new tasks up
		default:
			respondWithMappedError(w, r, err)
			return
		}
	}

	// Return 202 Accepted since analysis happens asynchronously
	shared.RespondWithJSON(w, r, http.StatusAccepted, AddTasksResponse{
		Tasks:      created,
		QueueState: h.queue.Status(),
		Started:    started,
	})
}

// GetStatus handles GET /api/queue/status requests
func (h *QueueHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.queue.Status())
}

// GetTasks handles GET /api/queue/tasks requests
func (h *QueueHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.queue.DetailedStatus())
}

// ClearQueue handles POST /api/queue/clear requests. Pending tasks are
// dropped; the current task and history are kept.
func (h *QueueHandler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	h.queue.ClearQueue()
	persisted := h.persistence.Flush(r.Context())

	shared.RespondWithJSON(w, r, http.StatusOK, ClearStateResponse{
		Message:   "queue cleared",
		Persisted: persisted,
	})
}

// ClearSavedState handles DELETE /api/queue/state requests. The in-memory
// queue is untouched.
func (h *QueueHandler) ClearSavedState(w http.ResponseWriter, r *http.Request) {
	if !h.persistence.ClearSavedState(r.Context()) {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to clear saved state")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ClearStateResponse{
		Message:   "saved state cleared",
		Persisted: true,
	})
}
