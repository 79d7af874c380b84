package score

import (
	"fmt"

	"github.com/fpang/vidcheck/internal/config"
	"github.com/fpang/vidcheck/internal/video"
)

// FindingKind classifies a pairwise temporal observation.
type FindingKind int

const (
	// StaticPair marks two adjacent sampled frames with near-zero
	// measured difference, suggestive of animated-still generation.
	StaticPair FindingKind = iota

	// LargeDiscontinuity marks an abrupt jump between adjacent frames.
	LargeDiscontinuity
)

func (k FindingKind) String() string {
	switch k {
	case StaticPair:
		return "static_pair"
	case LargeDiscontinuity:
		return "large_discontinuity"
	default:
		return "unknown"
	}
}

// Finding is one pairwise temporal observation between adjacent frames of
// the surviving sampled sequence.
type Finding struct {
	FromIndex int
	ToIndex   int
	Kind      FindingKind

	// Magnitude is the mean absolute luminance difference for the pair.
	Magnitude float64
}

// Description renders the finding as an evidence entry.
func (f Finding) Description() string {
	switch f.Kind {
	case LargeDiscontinuity:
		return fmt.Sprintf("Large motion discontinuity between frames %d and %d", f.FromIndex, f.ToIndex)
	case StaticPair:
		return fmt.Sprintf("Very low motion between frames %d and %d (potentially static/frozen)", f.FromIndex, f.ToIndex)
	default:
		return fmt.Sprintf("Temporal anomaly between frames %d and %d", f.FromIndex, f.ToIndex)
	}
}

// TemporalResult aggregates the pairwise findings for one video.
type TemporalResult struct {
	// Findings are the triggered observations in pair order.
	Findings []Finding

	// Pairs is the number of adjacent pairs examined.
	Pairs int

	// Score is the aggregate temporal suspicion in [0,1].
	Score float64
}

// TemporalScorer measures frame-to-frame consistency across the ordered
// sampled sequence. Gaps left by failed extractions are skipped naturally:
// the scorer compares whatever adjacent frames survive, never treating a
// gap as zero motion.
type TemporalScorer struct {
	cfg config.TemporalConfig
}

// NewTemporalScorer creates a scorer with the given thresholds.
func NewTemporalScorer(cfg config.TemporalConfig) *TemporalScorer {
	return &TemporalScorer{cfg: cfg}
}

// Score examines each adjacent pair of the given index-ordered frames.
// A pair whose mean absolute luminance difference exceeds the high
// threshold is a large discontinuity; one below the low threshold is a
// static pair. Static pairs are mildly suspicious individually, but their
// count dominates the aggregate: a clip full of frozen pairs is the
// classic image-to-video synthesis signature.
func (s *TemporalScorer) Score(frames []video.Frame) TemporalResult {
	result := TemporalResult{}
	if len(frames) < 2 {
		return result
	}
	result.Pairs = len(frames) - 1

	planes := make([]lumaPlane, len(frames))
	for i, f := range frames {
		planes[i] = newLumaPlane(f.Image)
	}

	var contributions float64
	staticPairs := 0

	for i := 0; i < len(frames)-1; i++ {
		diff := meanAbsDiff(planes[i], planes[i+1])

		switch {
		case diff > s.cfg.HighThreshold:
			result.Findings = append(result.Findings, Finding{
				FromIndex: frames[i].Index,
				ToIndex:   frames[i+1].Index,
				Kind:      LargeDiscontinuity,
				Magnitude: diff,
			})
			contributions += s.cfg.DiscontinuityContribution
		case diff < s.cfg.LowThreshold:
			result.Findings = append(result.Findings, Finding{
				FromIndex: frames[i].Index,
				ToIndex:   frames[i+1].Index,
				Kind:      StaticPair,
				Magnitude: diff,
			})
			contributions += s.cfg.StaticContribution
			staticPairs++
		}
	}

	meanContribution := contributions / float64(result.Pairs)
	staticFraction := float64(staticPairs) / float64(result.Pairs)
	result.Score = clamp01(meanContribution + staticFraction*s.cfg.StaticRunWeight)

	return result
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
