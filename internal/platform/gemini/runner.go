package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/image-tagger/internal/analysis"
	"google.golang.org/genai"
)

// Default retry settings
const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = time.Second
)

// Config holds the settings for a Gemini runner.
type Config struct {
	APIKey     string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
}

// contentGenerator is the subset of genai.Models used by the runner
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Runner implements analysis.StepRunner using the Gemini API.
type Runner struct {
	// logger is used for structured logging
	logger *slog.Logger

	// config contains the model name and retry settings
	config Config

	// models is the Gemini API surface for generating content
	models contentGenerator

	// sleep waits between retries; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

var _ analysis.StepRunner = (*Runner)(nil)

// NewRunner creates a Runner with a Gemini API client.
func NewRunner(ctx context.Context, cfg Config, logger *slog.Logger) (*Runner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", analysis.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", analysis.ErrInvalidConfig, err)
	}
	return newRunner(client.Models, cfg, logger)
}

func newRunner(models contentGenerator, cfg Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", analysis.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", analysis.ErrInvalidConfig)
	}
	if cfg.MaxRetries < 0 {
		logger.Warn("invalid max retries value, using default", "max_retries", DefaultMaxRetries)
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	return &Runner{
		logger: logger.With("component", "gemini_runner", "model", cfg.Model),
		config: cfg,
		models: models,
		sleep:  sleepContext,
	}, nil
}

// RunStep implements analysis.StepRunner. Gemini does not stream here, so
// progress is only reported when the answer arrives.
func (r *Runner) RunStep(
	ctx context.Context,
	image analysis.Image,
	step analysis.Step,
	progress func(float64),
) ([]byte, error) {
	if step.Prompt == "" {
		return nil, ErrEmptyPrompt
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: step.Prompt},
			{InlineData: &genai.Blob{MIMEType: image.MIMEType, Data: image.Data}},
		},
	}}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(step),
	}

	text, err := r.generateWithRetry(ctx, step.Name, contents, config)
	if err != nil {
		return nil, err
	}
	progress(1)
	return []byte(text), nil
}

// generateWithRetry calls the API, retrying transient failures with
// exponential backoff: delay = base * 2^attempt * (0.5 + rand(0, 0.5)).
func (r *Runner) generateWithRetry(
	ctx context.Context,
	stepName string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (string, error) {
	maxRetries := r.config.MaxRetries
	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		r.logger.DebugContext(ctx, "making Gemini API call",
			"step", stepName,
			"attempt", attemptNum,
			"max_attempts", maxRetries+1)

		resp, err := r.models.GenerateContent(ctx, r.config.Model, contents, config)
		var text string
		if err == nil {
			text, err = extractText(resp)
		} else {
			err = classifyAPIError(err)
		}
		if err == nil {
			return text, nil
		}

		r.logger.WarnContext(ctx, "Gemini API call failed",
			"step", stepName,
			"attempt", attemptNum,
			"error", err)

		if !isTransient(err) {
			return "", err
		}
		if attempt >= maxRetries {
			return "", fmt.Errorf("exceeded maximum retry attempts (%d): %w", maxRetries, err)
		}

		backoff := float64(r.config.RetryDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rand.Float64()*0.5))
		if err := r.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
}

// extractText returns the JSON text of the first candidate
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", analysis.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", analysis.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("%w: no content generated", analysis.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", analysis.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", analysis.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty text in response", analysis.ErrInvalidResponse)
	}
	return text, nil
}

// classifyAPIError maps client errors onto analysis errors. Unknown errors
// are treated as the model being unavailable, which is retried.
func classifyAPIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusBadRequest,
			apiErr.Code == http.StatusUnauthorized,
			apiErr.Code == http.StatusForbidden,
			apiErr.Code == http.StatusNotFound:
			return fmt.Errorf("%w: %s", analysis.ErrInvalidConfig, apiErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", analysis.ErrModelUnavailable, err)
}

func isTransient(err error) bool {
	return errors.Is(err, analysis.ErrModelUnavailable)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
