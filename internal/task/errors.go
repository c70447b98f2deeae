package task

import "errors"

// Common errors returned by the task package
var (
	// ErrInvalidTransition is returned when a task is asked to move to a
	// status its current status cannot reach.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrAlreadyProcessing is returned when a worker loop is already active.
	ErrAlreadyProcessing = errors.New("queue is already being processed")

	// ErrNotProcessing is returned when a stop is requested while no worker
	// loop is active.
	ErrNotProcessing = errors.New("queue is not being processed")

	// ErrNoSnapshot is returned by a SnapshotStore when nothing has been saved.
	ErrNoSnapshot = errors.New("no saved queue snapshot")

	// ErrCorruptSnapshot is returned by a SnapshotStore when the stored
	// content cannot be decoded.
	ErrCorruptSnapshot = errors.New("saved queue snapshot is corrupt")
)

// ErrAnalyzerPanic wraps a panic recovered from an analyzer call.
var ErrAnalyzerPanic = errors.New("analyzer panicked")
