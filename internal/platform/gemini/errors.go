package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyPrompt is returned when a step has no prompt text.
	ErrEmptyPrompt = errors.New("step prompt cannot be empty")
)
