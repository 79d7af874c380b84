// Package pipeline orchestrates a detection run: probe, sample, extract,
// score, optionally dispatch frames for remote analysis, and synthesize
// the verdict. Only an input error aborts a run; every other failure
// degrades into the verdict's evidence.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/vidcheck/internal/analyze"
	"github.com/fpang/vidcheck/internal/config"
	"github.com/fpang/vidcheck/internal/extract"
	"github.com/fpang/vidcheck/internal/sampling"
	"github.com/fpang/vidcheck/internal/score"
	"github.com/fpang/vidcheck/internal/verdict"
	"github.com/fpang/vidcheck/internal/video"
)

// Detection is the full outcome of analyzing one video.
type Detection struct {
	Video   *video.Metadata          `json:"video"`
	Verdict *verdict.CombinedVerdict `json:"verdict"`

	Strategy       string        `json:"sampling_strategy"`
	SampledIndices []int         `json:"sampled_indices"`
	Provider       string        `json:"provider,omitempty"`
	Elapsed        time.Duration `json:"elapsed"`
}

// BatchItem is one video's slot in a batch run.
type BatchItem struct {
	Path      string     `json:"path"`
	Detection *Detection `json:"detection,omitempty"`
	Err       error      `json:"-"`
	Error     string     `json:"error,omitempty"`
}

// BatchResult groups the per-video outcomes of a batch run.
type BatchResult struct {
	RunID string      `json:"run_id"`
	Items []BatchItem `json:"items"`
}

// Runner wires the pipeline stages together. A nil provider disables
// remote analysis; everything else always runs.
type Runner struct {
	cfg        *config.Config
	strategies sampling.Registry
	pool       *extract.Pool
	artifact   *score.ArtifactScorer
	temporal   *score.TemporalScorer
	dispatcher *analyze.Dispatcher
	provider   analyze.Provider
	synth      *verdict.Synthesizer
}

// NewRunner builds a runner from configuration. provider may be nil to
// skip remote analysis regardless of configuration.
func NewRunner(cfg *config.Config, provider analyze.Provider) *Runner {
	r := &Runner{
		cfg:        cfg,
		strategies: sampling.DefaultRegistry(),
		pool:       extract.NewPool(cfg.Extraction),
		artifact:   score.NewArtifactScorer(cfg.Visual),
		temporal:   score.NewTemporalScorer(cfg.Temporal),
		provider:   provider,
		synth:      verdict.NewSynthesizer(cfg.Verdict),
	}
	if provider != nil && cfg.Analysis.Enabled {
		r.dispatcher = analyze.NewDispatcher(provider, cfg.Analysis)
	}
	return r
}

// Detect runs the full pipeline for a single video.
func (r *Runner) Detect(ctx context.Context, path string) (*Detection, error) {
	start := time.Now()

	meta, err := video.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	strategy, ok := r.strategies.Get(r.cfg.Extraction.Strategy)
	if !ok {
		return nil, fmt.Errorf("%w: unknown sampling strategy %q",
			video.ErrInput, r.cfg.Extraction.Strategy)
	}
	indices := strategy.Sample(meta.TotalFrames, r.cfg.Extraction.NumFrames, meta)

	log.Info().
		Str("video", meta.Filename).
		Str("strategy", strategy.Name()).
		Int("sampled", len(indices)).
		Int("total_frames", meta.TotalFrames).
		Msg("Starting detection run")

	store, err := video.NewStore(meta)
	if err != nil {
		return nil, err
	}

	extracted, err := r.pool.Extract(ctx, store, indices)
	if err != nil {
		return nil, err
	}

	in, err := r.scoreAndAnalyze(ctx, extracted, meta)
	if err != nil {
		return nil, err
	}

	d := &Detection{
		Video:          meta,
		Verdict:        r.synth.Synthesize(in),
		Strategy:       strategy.Name(),
		SampledIndices: indices,
		Elapsed:        time.Since(start),
	}
	if r.dispatcher != nil {
		d.Provider = r.provider.Name()
	}
	return d, nil
}

// scoreAndAnalyze runs local scoring and remote dispatch concurrently and
// assembles the synthesizer input.
func (r *Runner) scoreAndAnalyze(ctx context.Context, extracted *extract.Result, meta *video.Metadata) (verdict.Input, error) {
	in := verdict.Input{
		FramesFailed:    len(extracted.FailedIndices),
		FramesRequested: extracted.Requested(),
	}

	frames := extracted.Frames
	framePtrs := make([]*video.Frame, len(frames))
	for i := range frames {
		framePtrs[i] = &frames[i]
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scores := make([]score.FrameScore, 0, len(frames))
		for _, frame := range frames {
			scores = append(scores, r.artifact.Score(frame))
		}
		in.FrameScores = scores
		in.Temporal = r.temporal.Score(frames)
		return nil
	})

	if r.dispatcher != nil && len(frames) > 0 {
		g.Go(func() error {
			remote, err := r.dispatcher.Dispatch(gctx, framePtrs, meta)
			in.Remote = remote
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return verdict.Input{}, err
	}
	return in, nil
}

// DetectBatch analyzes the given videos sequentially. A video that fails
// records its error in the batch result; the batch itself never aborts
// early except on context cancellation.
func (r *Runner) DetectBatch(ctx context.Context, paths []string) (*BatchResult, error) {
	batch := &BatchResult{
		RunID: uuid.NewString(),
		Items: make([]BatchItem, 0, len(paths)),
	}

	log.Info().
		Str("run_id", batch.RunID).
		Int("videos", len(paths)).
		Msg("Starting batch detection run")

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		item := BatchItem{Path: path}
		detection, err := r.Detect(ctx, path)
		if err != nil {
			log.Error().Err(err).Str("video", path).Msg("Detection failed for video")
			item.Err = err
			item.Error = err.Error()
		} else {
			item.Detection = detection
		}
		batch.Items = append(batch.Items, item)
	}

	return batch, nil
}
