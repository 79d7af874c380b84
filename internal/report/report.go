// Package report renders detection results for the console and for JSON
// and plain-text files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/vidcheck/internal/pipeline"
	"github.com/fpang/vidcheck/internal/verdict"
)

const rule = "======================================================================"
const thinRule = "----------------------------------------------------------------------"

// Summary renders a one-line outcome for a detection.
func Summary(d *pipeline.Detection) string {
	return fmt.Sprintf("%s %s: %s (%d%% confidence)",
		marker(d.Verdict.Classification),
		d.Video.Filename,
		d.Verdict.Classification,
		d.Verdict.ConfidencePercent)
}

// Console renders the standard report.
func Console(d *pipeline.Detection) string {
	v := d.Verdict
	lines := []string{
		rule,
		"DEEPFAKE DETECTION ANALYSIS REPORT",
		rule,
		"",
		fmt.Sprintf("Video: %s", d.Video.Filename),
		fmt.Sprintf("Duration: %.2fs", d.Video.Duration.Seconds()),
		fmt.Sprintf("Resolution: %s", d.Video.Resolution()),
		fmt.Sprintf("Frames Analyzed: %d", v.FramesAnalyzed),
		"",
		fmt.Sprintf("Classification: %s", v.Classification),
		fmt.Sprintf("Confidence: %d%%", v.ConfidencePercent),
		"",
		"ANALYSIS:",
		"",
		v.Reasoning,
		"",
		rule,
		fmt.Sprintf("Analysis completed at: %s", time.Now().Format("2006-01-02 15:04:05")),
		rule,
	}
	return strings.Join(lines, "\n")
}

// Detailed renders the full report including video metadata and every
// evidence entry.
func Detailed(d *pipeline.Detection) string {
	v := d.Verdict
	lines := []string{
		rule,
		"DEEPFAKE DETECTION - DETAILED ANALYSIS REPORT",
		rule,
		"",
		"VIDEO INFORMATION",
		thinRule,
		fmt.Sprintf("Filename: %s", d.Video.Filename),
		fmt.Sprintf("Path: %s", d.Video.Path),
		fmt.Sprintf("Duration: %.2f seconds", d.Video.Duration.Seconds()),
		fmt.Sprintf("Resolution: %s", d.Video.Resolution()),
		fmt.Sprintf("Frame Rate: %.2f fps", d.Video.FPS),
		fmt.Sprintf("Codec: %s", d.Video.Codec),
		fmt.Sprintf("File Size: %.2f MB", float64(d.Video.SizeBytes)/1024/1024),
		"",
		"DETECTION RESULTS",
		thinRule,
		fmt.Sprintf("Classification: %s", v.Classification),
		fmt.Sprintf("Confidence Level: %d%%", v.ConfidencePercent),
		fmt.Sprintf("Frames Analyzed: %d", v.FramesAnalyzed),
		fmt.Sprintf("Sampling Strategy: %s", d.Strategy),
		"",
		"EVIDENCE",
		thinRule,
	}

	if len(v.Evidence) == 0 {
		lines = append(lines, "No significant artifacts detected.")
	} else {
		for _, e := range v.Evidence {
			lines = append(lines, fmt.Sprintf("  - %s", e))
		}
	}

	lines = append(lines,
		"",
		"FINAL REASONING",
		thinRule,
		v.Reasoning,
		"",
		rule,
	)
	if d.Provider != "" {
		lines = append(lines, fmt.Sprintf("Remote Provider: %s", d.Provider))
	}
	lines = append(lines,
		fmt.Sprintf("Analysis Timestamp: %s", time.Now().Format(time.RFC3339)),
		rule,
	)
	return strings.Join(lines, "\n")
}

// Print writes the console or detailed report to w.
func Print(w io.Writer, d *pipeline.Detection, detailed bool) {
	if detailed {
		fmt.Fprintln(w, Detailed(d))
		return
	}
	fmt.Fprintln(w, Console(d))
}

// jsonReport is the serialized shape of a detection result.
type jsonReport struct {
	VideoPath string      `json:"video_path"`
	Filename  string      `json:"filename"`
	Metadata  interface{} `json:"metadata"`

	Detection struct {
		Classification   verdict.Classification `json:"classification"`
		Confidence       int                    `json:"confidence"`
		CombinedScore    float64                `json:"combined_score"`
		VisualScore      float64                `json:"visual_score"`
		TemporalScore    float64                `json:"temporal_score"`
		FramesAnalyzed   int                    `json:"num_frames_analyzed"`
		FramesFailed     int                    `json:"num_frames_failed"`
		SamplingStrategy string                 `json:"sampling_strategy"`
		ElapsedSeconds   float64                `json:"elapsed_seconds"`
	} `json:"detection"`

	Analysis struct {
		Reasoning string   `json:"reasoning"`
		Evidence  []string `json:"evidence"`
	} `json:"analysis"`

	System struct {
		Provider  string `json:"provider,omitempty"`
		Timestamp string `json:"timestamp"`
	} `json:"system"`
}

// JSON renders the detection as an indented JSON document.
func JSON(d *pipeline.Detection) ([]byte, error) {
	var r jsonReport
	r.VideoPath = d.Video.Path
	r.Filename = d.Video.Filename
	r.Metadata = d.Video

	r.Detection.Classification = d.Verdict.Classification
	r.Detection.Confidence = d.Verdict.ConfidencePercent
	r.Detection.CombinedScore = d.Verdict.CombinedScore
	r.Detection.VisualScore = d.Verdict.VisualScore
	r.Detection.TemporalScore = d.Verdict.TemporalScore
	r.Detection.FramesAnalyzed = d.Verdict.FramesAnalyzed
	r.Detection.FramesFailed = d.Verdict.FramesFailed
	r.Detection.SamplingStrategy = d.Strategy
	r.Detection.ElapsedSeconds = d.Elapsed.Seconds()

	r.Analysis.Reasoning = d.Verdict.Reasoning
	r.Analysis.Evidence = d.Verdict.Evidence

	r.System.Provider = d.Provider
	r.System.Timestamp = time.Now().Format(time.RFC3339)

	return json.MarshalIndent(r, "", "  ")
}

// SaveJSON writes the JSON report to path, creating parent directories as
// needed.
func SaveJSON(d *pipeline.Detection, path string) error {
	data, err := JSON(d)
	if err != nil {
		return fmt.Errorf("failed to render JSON report: %w", err)
	}
	if err := writeFile(path, data); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("JSON report saved")
	return nil
}

// SaveText writes the detailed text report to path.
func SaveText(d *pipeline.Detection, path string) error {
	if err := writeFile(path, []byte(Detailed(d))); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("Text report saved")
	return nil
}

// SaveBatchJSON writes an indented JSON document for a whole batch run.
func SaveBatchJSON(batch *pipeline.BatchResult, path string) error {
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render batch report: %w", err)
	}
	if err := writeFile(path, data); err != nil {
		return err
	}
	log.Info().Str("path", path).Str("run_id", batch.RunID).Msg("Batch report saved")
	return nil
}

// BatchText renders the detailed reports for every item in a batch as a
// single document. Items that failed are recorded with their error
// message in place of a report.
func BatchText(batch *pipeline.BatchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "BATCH DETECTION RUN %s (%d videos)\n", batch.RunID, len(batch.Items))
	for _, item := range batch.Items {
		b.WriteString("\n")
		if item.Err != nil {
			fmt.Fprintf(&b, "%s\nANALYSIS FAILED: %s\n  %s\n%s\n", rule, item.Path, item.Error, rule)
			continue
		}
		b.WriteString(Detailed(item.Detection))
		b.WriteString("\n")
	}
	return b.String()
}

// SaveBatchText writes the combined text report for a batch run to path.
func SaveBatchText(batch *pipeline.BatchResult, path string) error {
	if err := writeFile(path, []byte(BatchText(batch))); err != nil {
		return err
	}
	log.Info().Str("path", path).Str("run_id", batch.RunID).Msg("Batch text report saved")
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func marker(c verdict.Classification) string {
	switch c {
	case verdict.Real:
		return "[REAL]"
	case verdict.LikelyReal:
		return "[LIKELY REAL]"
	case verdict.LikelyFake:
		return "[LIKELY FAKE]"
	case verdict.Fake:
		return "[FAKE]"
	default:
		return "[UNCERTAIN]"
	}
}
