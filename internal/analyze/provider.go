// Package analyze dispatches sampled frames to a remote vision model for
// deepfake assessment. Calls run under a concurrency ceiling, a minimum
// inter-call delay, and a bounded retry policy; a frame whose calls are
// exhausted is reported as missing evidence rather than failing the run.
package analyze

import (
	"context"

	"github.com/fpang/vidcheck/internal/video"
)

// Assessment is one frame's remote verdict.
type Assessment struct {
	// SuspicionLevel is the model's manipulation estimate in [0, 1].
	SuspicionLevel float64 `json:"suspicion_level"`

	// Confidence is the model's self-reported confidence, 0-100.
	Confidence int `json:"confidence"`

	// Evidence lists the concrete observations supporting the estimate.
	Evidence []string `json:"evidence"`
}

// Provider analyzes a single frame remotely. Implementations must be safe
// for concurrent use; the dispatcher calls Analyze from multiple
// goroutines.
type Provider interface {
	// Name identifies the provider for logs and reports.
	Name() string

	// Analyze submits one frame and returns the model's assessment.
	// Errors wrapped by retry.Permanent are not retried.
	Analyze(ctx context.Context, frame *video.Frame, meta *video.Metadata) (*Assessment, error)
}
