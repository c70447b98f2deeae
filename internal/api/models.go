package api

import "github.com/phrazzld/image-tagger/internal/task"

// AddTasksRequest represents the request body for enqueuing images
type AddTasksRequest struct {
	ImagePaths []string `json:"image_paths" validate:"required,min=1,max=10000,dive,required"`
	// Start begins processing after enqueuing when no loop is active
	Start bool `json:"start"`
}

// AddTasksResponse lists the tasks created by a request
type AddTasksResponse struct {
	Tasks      []task.TaskView  `json:"tasks"`
	QueueState task.QueueStatus `json:"queue_status"`
	Started    bool             `json:"started"`
}

// ProcessingStatusResponse describes the worker loop
type ProcessingStatusResponse struct {
	IsProcessing bool           `json:"is_processing"`
	ShouldStop   bool           `json:"should_stop"`
	CurrentTask  *task.TaskView `json:"current_task"`
	QueueLength  int            `json:"queue_length"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// ClearStateResponse reports the outcome of a persistence clear or save
type ClearStateResponse struct {
	Message   string `json:"message"`
	Persisted bool   `json:"persisted"`
}

// HealthResponse reports service and analyzer wiring
type HealthResponse struct {
	Status        string `json:"status"`
	Backend       string `json:"backend"`
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	Analyzer      string `json:"analyzer"`
	AnalyzerError string `json:"analyzer_error,omitempty"`
	QueueLength   int    `json:"queue_length"`
	IsProcessing  bool   `json:"is_processing"`
}
