package verdict

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/fpang/vidcheck/internal/analyze"
	"github.com/fpang/vidcheck/internal/config"
	"github.com/fpang/vidcheck/internal/score"
)

func newSynth() *Synthesizer {
	return NewSynthesizer(config.Default().Verdict)
}

// frameScores builds one FrameScore per value, with ascending indices.
func frameScores(visual ...float64) []score.FrameScore {
	out := make([]score.FrameScore, len(visual))
	for i, v := range visual {
		out[i] = score.FrameScore{FrameIndex: i * 10, VisualScore: v}
	}
	return out
}

// --- Classification Boundary Tests ---

func TestClassify_BoundaryTable(t *testing.T) {
	cases := []struct {
		combined   float64
		want       Classification
		confidence int
	}{
		{0.90, Fake, 85},
		// lower bound of each band is inclusive
		{0.75, Fake, 70},
		{0.749999, LikelyFake, 69},
		{0.60, LikelyFake, 58},
		{0.55, LikelyFake, 55},
		{0.549999, Uncertain, 50},
		{0.50, Uncertain, 50},
		{0.45, Uncertain, 50},
		{0.449999, LikelyReal, 55},
		{0.30, LikelyReal, 66},
		{0.25, LikelyReal, 70},
		{0.249999, Real, 90},
		{0.18, Real, 95},
		{0.00, Real, 95},
	}

	s := newSynth()
	for _, tc := range cases {
		got, conf := s.classify(tc.combined)
		if got != tc.want {
			t.Errorf("classify(%v) = %s, want %s", tc.combined, got, tc.want)
		}
		if conf != tc.confidence {
			t.Errorf("classify(%v) confidence = %d, want %d", tc.combined, conf, tc.confidence)
		}
	}
}

func TestClassify_ConfidenceCapped(t *testing.T) {
	s := newSynth()
	if _, conf := s.classify(1.0); conf != 95 {
		t.Errorf("confidence at score 1.0 = %d, want capped 95", conf)
	}
	if _, conf := s.classify(0.0); conf != 95 {
		t.Errorf("confidence at score 0.0 = %d, want capped 95", conf)
	}
}

// --- Synthesis Scenario Tests ---

func TestSynthesize_StaticClipScenario(t *testing.T) {
	// Low visual suspicion plus a fully static temporal signal.
	v := newSynth().Synthesize(Input{
		FrameScores: frameScores(0.3, 0.3, 0.3),
		Temporal:    score.TemporalResult{Score: 0.9, Pairs: 2},
	})

	if !almostEqual(v.CombinedScore, 0.54) {
		t.Errorf("CombinedScore = %v, want 0.54", v.CombinedScore)
	}
	if v.Classification != Uncertain || v.ConfidencePercent != 50 {
		t.Errorf("got %s/%d%%, want UNCERTAIN/50%%", v.Classification, v.ConfidencePercent)
	}
}

func TestSynthesize_NaturalMotionScenario(t *testing.T) {
	v := newSynth().Synthesize(Input{
		FrameScores: frameScores(0.3, 0.3),
		Temporal:    score.TemporalResult{Score: 0, Pairs: 1},
	})

	if !almostEqual(v.CombinedScore, 0.18) {
		t.Errorf("CombinedScore = %v, want 0.18", v.CombinedScore)
	}
	if v.Classification != Real || v.ConfidencePercent != 95 {
		t.Errorf("got %s/%d%%, want REAL/95%%", v.Classification, v.ConfidencePercent)
	}
}

func TestSynthesize_VisualAggregates(t *testing.T) {
	v := newSynth().Synthesize(Input{
		FrameScores: frameScores(0.2, 0.4, 0.9),
	})

	if !almostEqual(v.VisualScore, 0.5) {
		t.Errorf("VisualScore = %v, want mean 0.5", v.VisualScore)
	}
	if v.MaxVisualScore != 0.9 {
		t.Errorf("MaxVisualScore = %v, want 0.9", v.MaxVisualScore)
	}
	if v.FramesAnalyzed != 3 {
		t.Errorf("FramesAnalyzed = %d, want 3", v.FramesAnalyzed)
	}
}

// --- Evidence Ordering Tests ---

func TestSynthesize_EvidenceOrderingContract(t *testing.T) {
	in := Input{
		FrameScores: []score.FrameScore{
			{FrameIndex: 0, VisualScore: 0.4, Evidence: []string{"tag-frame-0"}},
			{FrameIndex: 10, VisualScore: 0.4, Evidence: []string{"tag-frame-10a", "tag-frame-10b"}},
		},
		Temporal: score.TemporalResult{
			Score: 0.6,
			Pairs: 1,
			Findings: []score.Finding{
				{FromIndex: 0, ToIndex: 10, Kind: score.LargeDiscontinuity},
			},
		},
		Remote: []analyze.FrameAnalysis{
			{FrameIndex: 0, Assessment: &analyze.Assessment{Evidence: []string{"warping"}}},
			{FrameIndex: 10, Err: errors.New("rate limited")},
		},
		FramesFailed:    3,
		FramesRequested: 10,
	}

	v := newSynth().Synthesize(in)

	want := []string{
		"tag-frame-0",
		"tag-frame-10a",
		"tag-frame-10b",
		"Large motion discontinuity between frames 0 and 10",
		"Frame 0 (remote): warping",
		"Remote analysis unavailable for frame 10",
		"3 of 10 frames could not be analyzed",
	}
	if !reflect.DeepEqual(v.Evidence, want) {
		t.Errorf("evidence order mismatch:\n got %q\nwant %q", v.Evidence, want)
	}
}

func TestSynthesize_NoFailureLineWhenComplete(t *testing.T) {
	v := newSynth().Synthesize(Input{
		FrameScores:     frameScores(0.1, 0.1),
		FramesRequested: 2,
	})
	for _, e := range v.Evidence {
		if strings.Contains(e, "could not be analyzed") {
			t.Errorf("unexpected failure line in evidence: %q", e)
		}
	}
}

// --- Insufficient Evidence Tests ---

func TestSynthesize_NoFramesYieldsInsufficientEvidence(t *testing.T) {
	v := newSynth().Synthesize(Input{FramesRequested: 0})

	if v.Classification != Uncertain {
		t.Errorf("Classification = %s, want UNCERTAIN", v.Classification)
	}
	if v.ConfidencePercent != 0 {
		t.Errorf("ConfidencePercent = %d, want 0", v.ConfidencePercent)
	}
	if len(v.Evidence) != 1 || !strings.Contains(v.Evidence[0], "Insufficient evidence") {
		t.Errorf("Evidence = %v, want single insufficient-evidence entry", v.Evidence)
	}
}

func TestSynthesize_AllExtractionFailed(t *testing.T) {
	v := newSynth().Synthesize(Input{FramesRequested: 10, FramesFailed: 10})

	if v.Classification != Uncertain || v.ConfidencePercent != 0 {
		t.Errorf("got %s/%d%%, want UNCERTAIN/0%%", v.Classification, v.ConfidencePercent)
	}
	if v.FramesFailed != 10 {
		t.Errorf("FramesFailed = %d, want 10", v.FramesFailed)
	}
}

// --- Reasoning Tests ---

func TestSynthesize_ReasoningStructure(t *testing.T) {
	v := newSynth().Synthesize(Input{
		FrameScores: []score.FrameScore{
			{FrameIndex: 0, VisualScore: 0.9, Evidence: []string{
				"Low texture variance detected (potential smoothing)",
				"Uniform lighting detected (potentially artificial)",
			}},
		},
		Temporal: score.TemporalResult{Score: 0.9, Pairs: 0},
	})

	if v.Classification != LikelyFake && v.Classification != Fake {
		t.Fatalf("expected a fake-leaning verdict, got %s", v.Classification)
	}

	for _, section := range []string{"Classification:", "KEY EVIDENCE:", "ANALYSIS BREAKDOWN:", "CONCLUSION:"} {
		if !strings.Contains(v.Reasoning, section) {
			t.Errorf("reasoning missing %q section:\n%s", section, v.Reasoning)
		}
	}
	if !strings.Contains(v.Reasoning, "Visual Artifacts: 2 indicators detected") {
		t.Errorf("reasoning should count the two visual indicators:\n%s", v.Reasoning)
	}
	if !strings.Contains(v.Reasoning, "synthetic") {
		t.Errorf("fake-leaning reasoning should mention synthetic generation:\n%s", v.Reasoning)
	}
}

func TestUniqueHead(t *testing.T) {
	got := uniqueHead([]string{"a", "b", "a", "c", "b", "d", "e", "f"}, 5)
	want := []string{"a", "b", "c", "d", "e"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("uniqueHead = %v, want %v", got, want)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
