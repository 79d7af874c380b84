package score

import (
	"testing"

	"github.com/fpang/vidcheck/internal/config"
	"github.com/fpang/vidcheck/internal/video"
)

func flatFrames(values ...uint8) []video.Frame {
	frames := make([]video.Frame, len(values))
	for i, v := range values {
		frames[i] = video.Frame{Index: i * 10, Image: flatImage(16, 16, v)}
	}
	return frames
}

func newTemporal() *TemporalScorer {
	return NewTemporalScorer(config.Default().Temporal)
}

// --- TemporalScorer Tests ---

func TestTemporalScore_StaticClip(t *testing.T) {
	// Every pair identical: all static, the image-to-video signature.
	result := newTemporal().Score(flatFrames(90, 90, 90, 90, 90))

	if result.Pairs != 4 {
		t.Errorf("Pairs = %d, want 4", result.Pairs)
	}
	if len(result.Findings) != 4 {
		t.Fatalf("Findings = %d, want 4", len(result.Findings))
	}
	for _, f := range result.Findings {
		if f.Kind != StaticPair {
			t.Errorf("finding kind = %v, want static_pair", f.Kind)
		}
	}

	// Mean contribution 0.1 plus full static fraction weighted 0.8.
	if want := 0.9; !almostEqual(result.Score, want) {
		t.Errorf("Score = %v, want %v", result.Score, want)
	}
}

func TestTemporalScore_AbruptCuts(t *testing.T) {
	// Black/white alternation: every pair differs by 255.
	result := newTemporal().Score(flatFrames(0, 255, 0, 255))

	if len(result.Findings) != 3 {
		t.Fatalf("Findings = %d, want 3", len(result.Findings))
	}
	for _, f := range result.Findings {
		if f.Kind != LargeDiscontinuity {
			t.Errorf("finding kind = %v, want large_discontinuity", f.Kind)
		}
		if !almostEqual(f.Magnitude, 255) {
			t.Errorf("Magnitude = %v, want 255", f.Magnitude)
		}
	}
	if want := 0.6; !almostEqual(result.Score, want) {
		t.Errorf("Score = %v, want %v", result.Score, want)
	}
}

func TestTemporalScore_NaturalMotion(t *testing.T) {
	// Differences of 20 sit between the static and discontinuity
	// thresholds; nothing triggers.
	result := newTemporal().Score(flatFrames(100, 120, 140, 160))

	if len(result.Findings) != 0 {
		t.Errorf("Findings = %v, want none", result.Findings)
	}
	if result.Score != 0 {
		t.Errorf("Score = %v, want 0", result.Score)
	}
	if result.Pairs != 3 {
		t.Errorf("Pairs = %d, want 3", result.Pairs)
	}
}

func TestTemporalScore_MixedFindingsKeepPairOrder(t *testing.T) {
	// static, natural, discontinuity.
	result := newTemporal().Score(flatFrames(100, 100, 120, 250))

	if len(result.Findings) != 2 {
		t.Fatalf("Findings = %d, want 2", len(result.Findings))
	}
	if result.Findings[0].Kind != StaticPair || result.Findings[0].FromIndex != 0 || result.Findings[0].ToIndex != 10 {
		t.Errorf("first finding = %+v, want static pair 0->10", result.Findings[0])
	}
	if result.Findings[1].Kind != LargeDiscontinuity || result.Findings[1].FromIndex != 20 || result.Findings[1].ToIndex != 30 {
		t.Errorf("second finding = %+v, want discontinuity 20->30", result.Findings[1])
	}

	// (0.1 + 0.6)/3 pairs + (1/3)*0.8
	want := (0.1+0.6)/3 + 0.8/3
	if !almostEqual(result.Score, want) {
		t.Errorf("Score = %v, want %v", result.Score, want)
	}
}

func TestTemporalScore_FewerThanTwoFrames(t *testing.T) {
	scorer := newTemporal()

	for _, frames := range [][]video.Frame{nil, flatFrames(128)} {
		result := scorer.Score(frames)
		if result.Score != 0 || result.Pairs != 0 || len(result.Findings) != 0 {
			t.Errorf("short sequence should score zero, got %+v", result)
		}
	}
}

func TestTemporalScore_ClampedAtOne(t *testing.T) {
	cfg := config.Default().Temporal
	cfg.StaticContribution = 0.9
	cfg.StaticRunWeight = 0.9
	result := NewTemporalScorer(cfg).Score(flatFrames(50, 50, 50))

	if result.Score != 1 {
		t.Errorf("Score = %v, want clamped 1", result.Score)
	}
}

// --- Finding Rendering Tests ---

func TestFindingDescriptions(t *testing.T) {
	disc := Finding{FromIndex: 2, ToIndex: 3, Kind: LargeDiscontinuity}
	if got, want := disc.Description(), "Large motion discontinuity between frames 2 and 3"; got != want {
		t.Errorf("Description() = %q, want %q", got, want)
	}

	static := Finding{FromIndex: 5, ToIndex: 8, Kind: StaticPair}
	if got, want := static.Description(), "Very low motion between frames 5 and 8 (potentially static/frozen)"; got != want {
		t.Errorf("Description() = %q, want %q", got, want)
	}
}
