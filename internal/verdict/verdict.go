// Package verdict combines per-frame visual scores, the temporal score,
// and any remote-analysis evidence into the final classification for a
// video. The verdict is built once at the end of a run and never mutated.
package verdict

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/vidcheck/internal/analyze"
	"github.com/fpang/vidcheck/internal/config"
	"github.com/fpang/vidcheck/internal/score"
)

// Classification is the five-level outcome of a detection run.
type Classification string

const (
	Real       Classification = "REAL"
	LikelyReal Classification = "LIKELY_REAL"
	Uncertain  Classification = "UNCERTAIN"
	LikelyFake Classification = "LIKELY_FAKE"
	Fake       Classification = "FAKE"
)

// CombinedVerdict is the sole externally visible output for one video.
type CombinedVerdict struct {
	Classification    Classification `json:"classification"`
	ConfidencePercent int            `json:"confidence_percent"`

	CombinedScore  float64 `json:"combined_score"`
	VisualScore    float64 `json:"visual_score"`
	MaxVisualScore float64 `json:"max_visual_score"`
	TemporalScore  float64 `json:"temporal_score"`

	// Evidence lists observations in a fixed order: frame tags by frame
	// index, temporal findings by pair order, remote-analysis evidence by
	// frame index, then the extraction-failure count when extraction was
	// partial.
	Evidence []string `json:"evidence"`

	// Reasoning is a human-readable explanation of the verdict.
	Reasoning string `json:"reasoning"`

	FramesAnalyzed int `json:"frames_analyzed"`
	FramesFailed   int `json:"frames_failed"`
}

// Input carries everything the synthesizer needs. FrameScores must be in
// frame-index order and Remote, when present, in the dispatched frame
// order.
type Input struct {
	FrameScores []score.FrameScore
	Temporal    score.TemporalResult
	Remote      []analyze.FrameAnalysis

	// FramesFailed counts sampled frames that could not be extracted.
	FramesFailed int

	// FramesRequested is the total number of sampled indices.
	FramesRequested int
}

// Synthesizer turns scoring output into a CombinedVerdict using fixed
// weights and thresholds.
type Synthesizer struct {
	cfg config.VerdictConfig
}

// NewSynthesizer creates a synthesizer with the given weights and
// thresholds.
func NewSynthesizer(cfg config.VerdictConfig) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

// Synthesize produces the final verdict. With zero scored frames it
// returns the defined insufficient-evidence verdict instead of failing.
func (s *Synthesizer) Synthesize(in Input) *CombinedVerdict {
	if len(in.FrameScores) == 0 {
		return s.insufficientEvidence(in)
	}

	var visualSum, visualMax float64
	for _, fs := range in.FrameScores {
		visualSum += fs.VisualScore
		if fs.VisualScore > visualMax {
			visualMax = fs.VisualScore
		}
	}
	visualAvg := visualSum / float64(len(in.FrameScores))
	temporal := in.Temporal.Score

	combined := visualAvg*s.cfg.VisualWeight + temporal*s.cfg.TemporalWeight
	classification, confidence := s.classify(combined)

	evidence := s.compileEvidence(in)

	v := &CombinedVerdict{
		Classification:    classification,
		ConfidencePercent: confidence,
		CombinedScore:     combined,
		VisualScore:       visualAvg,
		MaxVisualScore:    visualMax,
		TemporalScore:     temporal,
		Evidence:          evidence,
		FramesAnalyzed:    len(in.FrameScores),
		FramesFailed:      in.FramesFailed,
	}
	v.Reasoning = s.generateReasoning(v, in)

	log.Info().
		Str("classification", string(classification)).
		Int("confidence", confidence).
		Float64("combined_score", combined).
		Float64("visual_score", visualAvg).
		Float64("temporal_score", temporal).
		Msg("Verdict synthesized")

	return v
}

// classify maps a combined score to a classification and its integer
// confidence. All boundaries are inclusive on the lower side.
func (s *Synthesizer) classify(combined float64) (Classification, int) {
	switch {
	case combined >= s.cfg.FakeThreshold:
		conf := int(70 + (combined-s.cfg.FakeThreshold)*100)
		return Fake, minInt(95, conf)
	case combined >= s.cfg.LikelyFakeThreshold:
		return LikelyFake, int(55 + (combined-s.cfg.LikelyFakeThreshold)*75)
	case combined >= s.cfg.UncertainThreshold:
		return Uncertain, 50
	case combined >= s.cfg.LikelyRealThreshold:
		return LikelyReal, int(55 + (s.cfg.UncertainThreshold-combined)*75)
	default:
		conf := int(70 + (s.cfg.UncertainThreshold-combined)*100)
		return Real, minInt(95, conf)
	}
}

func (s *Synthesizer) insufficientEvidence(in Input) *CombinedVerdict {
	log.Warn().
		Int("frames_requested", in.FramesRequested).
		Int("frames_failed", in.FramesFailed).
		Msg("No frames available for scoring, returning insufficient-evidence verdict")

	return &CombinedVerdict{
		Classification:    Uncertain,
		ConfidencePercent: 0,
		Evidence: []string{
			"Insufficient evidence: no frames could be analyzed",
		},
		Reasoning: "Classification: UNCERTAIN (Confidence: 0%)\n\n" +
			"No frames could be extracted and scored, so no determination is possible.",
		FramesFailed: in.FramesFailed,
	}
}

// compileEvidence assembles the ordered evidence list. The ordering is a
// documented contract relied on by downstream consumers.
func (s *Synthesizer) compileEvidence(in Input) []string {
	var evidence []string

	for _, fs := range in.FrameScores {
		evidence = append(evidence, fs.Evidence...)
	}
	for _, f := range in.Temporal.Findings {
		evidence = append(evidence, f.Description())
	}
	for _, r := range in.Remote {
		if r.Err != nil {
			evidence = append(evidence,
				fmt.Sprintf("Remote analysis unavailable for frame %d", r.FrameIndex))
			continue
		}
		for _, obs := range r.Assessment.Evidence {
			evidence = append(evidence,
				fmt.Sprintf("Frame %d (remote): %s", r.FrameIndex, obs))
		}
	}
	if in.FramesFailed > 0 {
		evidence = append(evidence,
			fmt.Sprintf("%d of %d frames could not be analyzed",
				in.FramesFailed, in.FramesRequested))
	}

	return evidence
}

// generateReasoning renders the verdict as a structured explanation.
func (s *Synthesizer) generateReasoning(v *CombinedVerdict, in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Classification: %s (Confidence: %d%%)\n\n",
		v.Classification, v.ConfidencePercent)

	switch v.Classification {
	case Fake, LikelyFake:
		b.WriteString("The video exhibits multiple characteristics consistent with synthetic generation or manipulation.\n\n")
	case Uncertain:
		b.WriteString("The analysis reveals mixed signals, making confident classification difficult.\n\n")
	default:
		b.WriteString("The video demonstrates characteristics consistent with authentic, non-manipulated footage.\n\n")
	}

	if key := uniqueHead(v.Evidence, 5); len(key) > 0 {
		b.WriteString("KEY EVIDENCE:\n")
		for _, e := range key {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
		b.WriteString("\n")
	}

	b.WriteString("ANALYSIS BREAKDOWN:\n")
	fmt.Fprintf(&b, "  - Visual Artifacts: %d indicators detected\n", visualIndicatorCount(v.Evidence))
	fmt.Fprintf(&b, "  - Temporal Consistency: %d issues identified\n", len(in.Temporal.Findings))
	fmt.Fprintf(&b, "  - Frames Analyzed: %d\n", v.FramesAnalyzed)
	fmt.Fprintf(&b, "  - Combined Suspicion Score: %.2f/1.00\n\n", v.CombinedScore)

	b.WriteString("CONCLUSION:\n")
	switch v.Classification {
	case Fake, LikelyFake:
		b.WriteString("The combination of visual and temporal artifacts suggests this video is " +
			"synthetically generated or significantly manipulated. The detection system " +
			"identified multiple indicators consistent with deepfake generation techniques.")
	case Uncertain:
		b.WriteString("The evidence is inconclusive. Some artifacts are present, but they could " +
			"potentially be attributed to video compression, lighting conditions, or other " +
			"non-malicious factors. Further analysis or higher-quality source material " +
			"would be needed for confident classification.")
	default:
		b.WriteString("The video shows natural characteristics expected of authentic footage. " +
			"No significant artifacts or temporal inconsistencies were detected that " +
			"would suggest synthetic generation or manipulation.")
	}

	return b.String()
}

// uniqueHead returns the first n distinct entries in their original order.
func uniqueHead(items []string, n int) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
		if len(out) == n {
			break
		}
	}
	return out
}

// visualIndicatorCount counts evidence entries describing texture,
// smoothing, or lighting artifacts.
func visualIndicatorCount(evidence []string) int {
	count := 0
	for _, e := range evidence {
		lower := strings.ToLower(e)
		if strings.Contains(lower, "texture") ||
			strings.Contains(lower, "smoothing") ||
			strings.Contains(lower, "lighting") {
			count++
		}
	}
	return count
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
