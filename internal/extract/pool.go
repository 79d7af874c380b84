// Package extract runs frame extraction across a bounded worker pool.
// Output ordering is independent of completion order: workers race, the
// result is re-sorted by frame index after collection. A failed frame is
// recorded, never fatal; the invariant is that requested indices are
// exactly the union of extracted and failed indices.
package extract

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/vidcheck/internal/config"
	"github.com/fpang/vidcheck/internal/video"
)

// FrameSource decodes a single frame by index. *video.Store is the
// production implementation.
type FrameSource interface {
	Extract(ctx context.Context, index int) (video.Frame, error)
}

// Result is the outcome of extracting a set of frame indices.
type Result struct {
	// Frames are the successfully extracted frames, sorted by index.
	Frames []video.Frame

	// FailedIndices are the requested indices that did not yield a frame,
	// sorted. Includes indices never attempted due to cancellation.
	FailedIndices []int

	// WorkerDurations maps worker ID to the total time that worker spent
	// extracting, for diagnostics.
	WorkerDurations map[int]time.Duration
}

// Requested returns the total number of indices the extraction covered.
func (r *Result) Requested() int {
	return len(r.Frames) + len(r.FailedIndices)
}

// Pool extracts frames in parallel with a bounded number of workers.
type Pool struct {
	workers      int
	frameTimeout time.Duration
}

// NewPool creates an extraction pool from configuration. A worker count of
// zero resolves to the available hardware parallelism.
func NewPool(cfg config.ExtractionConfig) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers, frameTimeout: cfg.FrameTimeout()}
}

// Workers returns the resolved pool size.
func (p *Pool) Workers() int { return p.workers }

// Extract decodes the given frame indices using up to the pool's worker
// count in parallel. Each task owns its own decode invocation and is
// bounded by the per-frame timeout; a timeout or decode error records the
// index as failed without aborting siblings.
//
// On context cancellation the pool stops dequeueing work, and frames
// already extracted are returned as a best-effort partial result together
// with the context error.
func (p *Pool) Extract(ctx context.Context, source FrameSource, indices []int) (*Result, error) {
	start := time.Now()

	var (
		mu        sync.Mutex
		extracted = make(map[int]video.Frame, len(indices))
		durations = make(map[int]time.Duration, p.workers)
	)

	jobs := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < p.workers; w++ {
		worker := w
		g.Go(func() error {
			var busy time.Duration
			defer func() {
				mu.Lock()
				durations[worker] = busy
				mu.Unlock()
			}()

			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case idx, ok := <-jobs:
					if !ok {
						return nil
					}
					taskStart := time.Now()
					frame, err := p.extractOne(gctx, source, idx)
					busy += time.Since(taskStart)

					if err != nil {
						log.Warn().Err(err).Int("frame", idx).Msg("Frame extraction failed")
						continue
					}
					mu.Lock()
					extracted[idx] = frame
					mu.Unlock()
				}
			}
		})
	}

	// Feed indices; stop enqueueing as soon as the run is cancelled.
feed:
	for _, idx := range indices {
		select {
		case jobs <- idx:
		case <-gctx.Done():
			break feed
		}
	}
	close(jobs)

	runErr := g.Wait()

	result := p.collect(indices, extracted, durations)

	log.Info().
		Int("requested", len(indices)).
		Int("extracted", len(result.Frames)).
		Int("failed", len(result.FailedIndices)).
		Int("workers", p.workers).
		Dur("elapsed", time.Since(start)).
		Msg("Frame extraction complete")

	if runErr != nil && ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}

// extractOne runs a single bounded extraction task. Decode panics are
// converted into recorded failures so a corrupt frame cannot take down
// the pool.
func (p *Pool) extractOne(ctx context.Context, source FrameSource, idx int) (frame video.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame %d: decode panic: %v", idx, r)
		}
	}()

	tctx, cancel := context.WithTimeout(ctx, p.frameTimeout)
	defer cancel()

	return source.Extract(tctx, idx)
}

// collect sorts extracted frames by index and derives the failed set as
// requested minus succeeded.
func (p *Pool) collect(indices []int, extracted map[int]video.Frame, durations map[int]time.Duration) *Result {
	result := &Result{WorkerDurations: durations}

	for _, idx := range indices {
		if frame, ok := extracted[idx]; ok {
			result.Frames = append(result.Frames, frame)
		} else {
			result.FailedIndices = append(result.FailedIndices, idx)
		}
	}

	sort.Slice(result.Frames, func(i, j int) bool {
		return result.Frames[i].Index < result.Frames[j].Index
	})
	sort.Ints(result.FailedIndices)

	return result
}
