package analysis

import "errors"

// Common errors returned by the analysis package
var (
	// ErrImageNotFound is returned when the image path does not exist
	ErrImageNotFound = errors.New("image not found")

	// ErrInvalidResponse is returned when a model answer cannot be decoded
	// or fails validation
	ErrInvalidResponse = errors.New("invalid response from vision model")

	// ErrContentBlocked is returned when the model refuses the image
	ErrContentBlocked = errors.New("content blocked by vision model safety filters")

	// ErrModelUnavailable is returned when the model backend cannot be reached
	ErrModelUnavailable = errors.New("vision model unavailable")

	// ErrInvalidConfig is returned when an analyzer is misconfigured
	ErrInvalidConfig = errors.New("invalid analyzer configuration")
)
