package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/phrazzld/image-tagger/internal/analysis"
)

// DefaultExpectedTokens is the answer length used to estimate step progress
// while chunks stream in.
const DefaultExpectedTokens = 80

// progressStep is the smallest progress change worth reporting
const progressStep = 0.05

// Config holds the settings for an Ollama runner.
type Config struct {
	Host           string
	Model          string
	ExpectedTokens int
}

// Runner implements analysis.StepRunner using the Ollama chat API.
type Runner struct {
	client   *api.Client
	model    string
	expected int
	logger   *slog.Logger
}

var _ analysis.StepRunner = (*Runner)(nil)

// NewRunner creates a Runner for the Ollama server at cfg.Host. A nil
// httpClient uses http.DefaultClient.
func NewRunner(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", analysis.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: ollama model cannot be empty", analysis.ErrInvalidConfig)
	}
	base, err := url.Parse(cfg.Host)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid ollama host %q", analysis.ErrInvalidConfig, cfg.Host)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	expected := cfg.ExpectedTokens
	if expected <= 0 {
		expected = DefaultExpectedTokens
	}

	return &Runner{
		client:   api.NewClient(base, httpClient),
		model:    cfg.Model,
		expected: expected,
		logger:   logger.With("component", "ollama_runner", "model", cfg.Model),
	}, nil
}

// RunStep implements analysis.StepRunner. It streams the answer, reporting
// progress as chunks arrive, and returns the accumulated JSON content.
func (r *Runner) RunStep(
	ctx context.Context,
	image analysis.Image,
	step analysis.Step,
	progress func(float64),
) ([]byte, error) {
	format, err := json.Marshal(step.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s schema: %w", step.Name, err)
	}

	stream := true
	req := &api.ChatRequest{
		Model: r.model,
		Messages: []api.Message{{
			Role:    "user",
			Content: step.Prompt,
			Images:  []api.ImageData{image.Data},
		}},
		Format: format,
		Stream: &stream,
	}

	var (
		content  strings.Builder
		chunks   int
		reported float64
		done     bool
	)
	err = r.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		chunks++

		if resp.Done {
			done = true
			r.logger.DebugContext(ctx, "ollama step finished",
				"step", step.Name,
				"done_reason", resp.DoneReason,
				"eval_count", resp.EvalCount,
				"prompt_eval_count", resp.PromptEvalCount)
			progress(1)
			return nil
		}

		estimate := float64(chunks) / float64(r.expected)
		if estimate > 0.95 {
			estimate = 0.95
		}
		if estimate-reported >= progressStep {
			reported = estimate
			progress(estimate)
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	if !done {
		return nil, fmt.Errorf("%w: stream ended before completion", analysis.ErrInvalidResponse)
	}

	answer := strings.TrimSpace(content.String())
	if answer == "" {
		return nil, fmt.Errorf("%w: empty answer", analysis.ErrInvalidResponse)
	}
	return []byte(answer), nil
}

// Ping checks that the Ollama server is reachable.
func (r *Runner) Ping(ctx context.Context) error {
	if err := r.client.Heartbeat(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", analysis.ErrInvalidConfig, statusErr.ErrorMessage)
		case statusErr.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %s", analysis.ErrModelUnavailable, statusErr.ErrorMessage)
		default:
			return fmt.Errorf("%w: %s", analysis.ErrInvalidResponse, statusErr.ErrorMessage)
		}
	}

	// transport failures: connection refused, reset, bad gateway
	return fmt.Errorf("%w: %v", analysis.ErrModelUnavailable, err)
}
