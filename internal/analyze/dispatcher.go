package analyze

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/fpang/vidcheck/internal/config"
	"github.com/fpang/vidcheck/internal/logging"
	"github.com/fpang/vidcheck/internal/retry"
	"github.com/fpang/vidcheck/internal/video"
)

// FrameAnalysis is the dispatch outcome for one frame. Exactly one of
// Assessment and Err is set.
type FrameAnalysis struct {
	// FrameIndex is the source-video frame index.
	FrameIndex int

	// Assessment is the provider's verdict, nil when all attempts failed.
	Assessment *Assessment

	// Err holds the final attempt's error when the frame could not be
	// analyzed.
	Err error
}

// Dispatcher fans frames out to a Provider under a concurrency ceiling and
// a minimum inter-call delay. Individual frame failures are recorded, not
// propagated; only context cancellation stops a dispatch early.
type Dispatcher struct {
	provider    Provider
	sem         *semaphore.Weighted
	limiter     *rate.Limiter
	policy      retry.Policy
	callTimeout time.Duration
	log         zerolog.Logger
}

// NewDispatcher wires a provider to the configured ceiling, rate delay,
// and retry policy.
func NewDispatcher(provider Provider, cfg config.AnalysisConfig) *Dispatcher {
	return &Dispatcher{
		provider: provider,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		limiter:  rate.NewLimiter(rate.Every(cfg.RateDelay()), 1),
		policy: retry.Policy{
			Retries:     cfg.RetryAttempts,
			BackoffBase: cfg.BackoffBase(),
		},
		callTimeout: cfg.CallTimeout(),
		log:         logging.WithComponent("analyze"),
	}
}

// Dispatch analyzes every frame and returns one FrameAnalysis per input
// frame, in input order regardless of completion order. On context
// cancellation the results gathered so far are returned along with the
// context error; not-yet-finished frames carry it as their Err.
func (d *Dispatcher) Dispatch(ctx context.Context, frames []*video.Frame, meta *video.Metadata) ([]FrameAnalysis, error) {
	results := make([]FrameAnalysis, len(frames))

	var wg sync.WaitGroup
	for i, frame := range frames {
		wg.Add(1)
		go func(slot int, frame *video.Frame) {
			defer wg.Done()
			results[slot] = d.analyzeOne(ctx, frame, meta)
		}(i, frame)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	d.log.Info().
		Str("provider", d.provider.Name()).
		Int("frames", len(frames)).
		Int("failed", failed).
		Msg("Remote analysis dispatch complete")

	return results, ctx.Err()
}

// analyzeOne runs the full acquire/pace/retry sequence for a single frame.
func (d *Dispatcher) analyzeOne(ctx context.Context, frame *video.Frame, meta *video.Metadata) FrameAnalysis {
	out := FrameAnalysis{FrameIndex: frame.Index}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		out.Err = err
		return out
	}
	defer d.sem.Release(1)

	// The delay is paid after acquiring a slot so a full semaphore does
	// not burn rate tokens while waiting.
	if err := d.limiter.Wait(ctx); err != nil {
		out.Err = err
		return out
	}

	err := d.policy.Do(ctx, func(ctx context.Context) error {
		callCtx := ctx
		if d.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, d.callTimeout)
			defer cancel()
		}

		assessment, err := d.provider.Analyze(callCtx, frame, meta)
		if err != nil {
			return err
		}
		out.Assessment = assessment
		return nil
	})
	if err != nil {
		d.log.Warn().
			Err(err).
			Int("frame_index", frame.Index).
			Msg("Remote analysis failed for frame")
		out.Err = err
	}
	return out
}
