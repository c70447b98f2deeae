package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/image-tagger/internal/task"
)

// Image is the input handed to a StepRunner. The bytes are passed through
// to the model as-is.
type Image struct {
	Path     string
	MIMEType string
	Data     []byte
}

// StepRunner executes a single structured prompt against a vision model.
//
// RunStep returns the raw JSON answer. It may call progress with values in
// [0, 1] describing how far the step has come; values outside that range
// are clamped by the caller.
type StepRunner interface {
	RunStep(ctx context.Context, image Image, step Step, progress func(float64)) ([]byte, error)
}

// ImageAnalyzer implements task.Analyzer by running every pipeline step
// through a StepRunner and merging the answers into ImageMetadata.
type ImageAnalyzer struct {
	runner   StepRunner
	logger   *slog.Logger
	validate *validator.Validate
	timeout  time.Duration
	readFile func(name string) ([]byte, error)
}

var _ task.Analyzer = (*ImageAnalyzer)(nil)

// NewImageAnalyzer creates an analyzer backed by runner. A positive timeout
// bounds the whole analysis of one image.
func NewImageAnalyzer(runner StepRunner, logger *slog.Logger, timeout time.Duration) (*ImageAnalyzer, error) {
	if runner == nil {
		return nil, fmt.Errorf("%w: step runner cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
	}
	return &ImageAnalyzer{
		runner:   runner,
		logger:   logger.With("component", "image_analyzer"),
		validate: validator.New(),
		timeout:  timeout,
		readFile: os.ReadFile,
	}, nil
}

// Analyze implements task.Analyzer.
func (a *ImageAnalyzer) Analyze(
	ctx context.Context,
	imagePath string,
	progress task.ProgressFunc,
) (task.Result, error) {
	if progress == nil {
		progress = func(float64) {}
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	image, err := a.loadImage(imagePath)
	if err != nil {
		return nil, err
	}

	logger := a.logger.With("image_path", imagePath)
	logger.InfoContext(ctx, "starting image analysis",
		"mime_type", image.MIMEType,
		"size_bytes", len(image.Data))

	var merged stepAnswer
	total := float64(len(Steps))
	for i, step := range Steps {
		base := float64(i)
		report := func(p float64) {
			progress((base + clampUnit(p)) / total)
		}

		logger.DebugContext(ctx, "running analysis step",
			"step", step.Name,
			"index", i+1,
			"total", len(Steps))

		raw, err := a.runner.RunStep(ctx, image, step, report)
		if err != nil {
			return nil, fmt.Errorf("%s step: %w", step.Name, err)
		}

		answer, err := decodeAnswer(step, raw)
		if err != nil {
			logger.WarnContext(ctx, "vision model returned an unusable answer",
				"step", step.Name,
				"error", err)
			return nil, fmt.Errorf("%s step: %w", step.Name, err)
		}
		merged.merge(answer)
		progress((base + 1) / total)
	}

	metadata := merged.metadata()
	if err := a.validate.Struct(metadata); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	logger.InfoContext(ctx, "image analysis complete",
		"tags", len(metadata.Tags),
		"has_text", metadata.TextContent != "")
	return metadata.AsResult(), nil
}

func (a *ImageAnalyzer) loadImage(imagePath string) (Image, error) {
	data, err := a.readFile(imagePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Image{}, fmt.Errorf("%w: %s", ErrImageNotFound, imagePath)
		}
		return Image{}, fmt.Errorf("failed to read image %s: %w", imagePath, err)
	}
	return Image{
		Path:     imagePath,
		MIMEType: detectMIMEType(imagePath, data),
		Data:     data,
	}, nil
}

// detectMIMEType prefers the file extension and falls back to sniffing
func detectMIMEType(imagePath string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(imagePath))); strings.HasPrefix(byExt, "image/") {
		// drop parameters such as charset
		if semi := strings.IndexByte(byExt, ';'); semi >= 0 {
			byExt = byExt[:semi]
		}
		return byExt
	}
	return http.DetectContentType(data)
}

func decodeAnswer(step Step, raw []byte) (stepAnswer, error) {
	var answer stepAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return stepAnswer{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	for _, f := range step.Fields {
		var present bool
		switch f.Name {
		case "description":
			present = answer.Description != nil
		case "tags":
			present = answer.Tags != nil
		case "has_text":
			present = answer.HasText != nil
		case "text_content":
			present = answer.TextContent != nil
		}
		if !present {
			return stepAnswer{}, fmt.Errorf("%w: missing field %q", ErrInvalidResponse, f.Name)
		}
	}
	return answer, nil
}

func (s *stepAnswer) merge(other stepAnswer) {
	if other.Description != nil {
		s.Description = other.Description
	}
	if other.Tags != nil {
		s.Tags = other.Tags
	}
	if other.HasText != nil {
		s.HasText = other.HasText
	}
	if other.TextContent != nil {
		s.TextContent = other.TextContent
	}
}

func (s stepAnswer) metadata() ImageMetadata {
	m := ImageMetadata{IsProcessed: true}
	if s.Description != nil {
		m.Description = strings.TrimSpace(*s.Description)
	}
	for _, tag := range s.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			m.Tags = append(m.Tags, tag)
		}
	}
	// text is only kept when the model says there is some
	if s.HasText != nil && *s.HasText && s.TextContent != nil {
		m.TextContent = *s.TextContent
	}
	return m
}

func clampUnit(p float64) float64 {
	if p != p || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
