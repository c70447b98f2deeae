package task

import (
	"context"
	"sync"
)

// MockAnalyzer implements Analyzer for testing
type MockAnalyzer struct {
	mutex sync.Mutex
	calls []string

	AnalyzeFn func(ctx context.Context, imagePath string, progress ProgressFunc) (Result, error)
}

// NewMockAnalyzer creates a MockAnalyzer that reports progress once and
// returns a result naming the image.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{
		AnalyzeFn: func(ctx context.Context, imagePath string, progress ProgressFunc) (Result, error) {
			progress(0.5)
			return Result{"image_path": imagePath, "is_processed": true}, nil
		},
	}
}

// Analyze implements Analyzer
func (m *MockAnalyzer) Analyze(ctx context.Context, imagePath string, progress ProgressFunc) (Result, error) {
	m.mutex.Lock()
	m.calls = append(m.calls, imagePath)
	m.mutex.Unlock()
	return m.AnalyzeFn(ctx, imagePath, progress)
}

// Calls returns the image paths passed to Analyze, in call order.
func (m *MockAnalyzer) Calls() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]string(nil), m.calls...)
}
