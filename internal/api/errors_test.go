package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/image-tagger/internal/analysis"
	"github.com/phrazzld/image-tagger/internal/api/shared"
	"github.com/phrazzld/image-tagger/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	validationErr := validator.New().Struct(AddTasksRequest{})
	require.Error(t, validationErr)

	tests := []struct {
		name     string
		err      error
		expected int
		message  string
	}{
		{"already processing", task.ErrAlreadyProcessing, http.StatusConflict, "Queue is already being processed"},
		{"wrapped not processing", fmt.Errorf("stop: %w", task.ErrNotProcessing), http.StatusConflict, "Queue is not being processed"},
		{"empty body", shared.ErrEmptyBody, http.StatusBadRequest, "Request body is required"},
		{"validation", validationErr, http.StatusBadRequest, "Invalid ImagePaths: required field"},
		{"model unavailable", analysis.ErrModelUnavailable, http.StatusServiceUnavailable, "Analyzer is unavailable"},
		{"unknown", errors.New("postgres://u:p@db failed"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, MapErrorToStatusCode(tc.err))
			assert.Equal(t, tc.message, GetSafeErrorMessage(tc.err))
		})
	}
}

func TestGetSafeErrorMessage_Nil(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}

func TestSanitizeValidationError_NonValidation(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("nope")))
}
