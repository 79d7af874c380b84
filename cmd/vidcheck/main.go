package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/vidcheck/internal/analyze"
	"github.com/fpang/vidcheck/internal/config"
	"github.com/fpang/vidcheck/internal/logging"
	"github.com/fpang/vidcheck/internal/pipeline"
	"github.com/fpang/vidcheck/internal/report"
	"github.com/fpang/vidcheck/internal/video"
)

// CLI flags
var (
	configFlag   string
	framesFlag   int
	strategyFlag string
	workersFlag  int
	analyzeFlag  bool
	modelFlag    string
	outputFlag   string
	textFlag     string
	detailedFlag bool
)

// rootCmd is the main Cobra command for the vidcheck CLI.
var rootCmd = &cobra.Command{
	Use:   "vidcheck [video files...]",
	Short: "Deepfake detection for video files",
	Long: `Vidcheck analyzes video files for signs of synthetic generation or
manipulation. Frames are sampled, extracted in parallel, and scored with
local artifact and temporal-consistency heuristics; optionally each frame
is also sent to a vision model for a second opinion. The result is a
classification from REAL to FAKE with confidence and supporting evidence.

Examples:
  vidcheck suspicious.mp4
  vidcheck --frames 20 --strategy weighted-edges clip.mp4
  vidcheck --analyze --model gemini-2.5-flash clip.mp4
  vidcheck --output report.json --text report.txt clip.mp4
  vidcheck first.mp4 second.mp4 third.mp4  # batch mode`,
	Args: cobra.MinimumNArgs(1),
	Run:  runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to YAML configuration file")
	rootCmd.Flags().IntVarP(&framesFlag, "frames", "n", 0, "Number of frames to sample (0 = configured default)")
	rootCmd.Flags().StringVarP(&strategyFlag, "strategy", "s", "", "Sampling strategy: uniform, weighted-edges, scene")
	rootCmd.Flags().IntVarP(&workersFlag, "workers", "w", 0, "Extraction workers (0 = configured default)")
	rootCmd.Flags().BoolVar(&analyzeFlag, "analyze", false, "Also analyze frames with a remote vision model")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Remote model to use (e.g., gemini-2.5-flash)")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write JSON report to this path")
	rootCmd.Flags().StringVar(&textFlag, "text", "", "Write detailed text report to this path")
	rootCmd.Flags().BoolVar(&detailedFlag, "detailed", false, "Print the detailed report instead of the summary")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	applyFlags(cfg)

	if err := video.CheckToolsAvailable(); err != nil {
		log.Fatal().Err(err).Msg("required tools not found")
	}

	var provider analyze.Provider
	if cfg.Analysis.Enabled {
		gemini, err := analyze.NewGeminiProvider(ctx, cfg.Analysis.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize remote analysis provider")
		}
		provider = gemini
	}

	runner := pipeline.NewRunner(cfg, provider)

	if len(args) == 1 {
		runSingle(ctx, runner, args[0])
		return
	}
	runBatch(ctx, runner, args)
}

// applyFlags overlays command-line flags onto the loaded configuration.
func applyFlags(cfg *config.Config) {
	if framesFlag > 0 {
		cfg.Extraction.NumFrames = framesFlag
	}
	if strategyFlag != "" {
		cfg.Extraction.Strategy = strategyFlag
	}
	if workersFlag > 0 {
		cfg.Extraction.Workers = workersFlag
	}
	if analyzeFlag {
		cfg.Analysis.Enabled = true
	}
	if modelFlag != "" {
		cfg.Analysis.Model = modelFlag
	}
}

func runSingle(ctx context.Context, runner *pipeline.Runner, path string) {
	detection, err := runner.Detect(ctx, path)
	if err != nil {
		if errors.Is(err, video.ErrInput) {
			log.Fatal().Err(err).Str("video", path).Msg("cannot analyze input video")
		}
		log.Fatal().Err(err).Str("video", path).Msg("detection run failed")
	}

	report.Print(os.Stdout, detection, detailedFlag)
	saveReports(detection)
}

func runBatch(ctx context.Context, runner *pipeline.Runner, paths []string) {
	batch, err := runner.DetectBatch(ctx, paths)
	if err != nil {
		log.Fatal().Err(err).Msg("batch run interrupted")
	}

	failures := 0
	for _, item := range batch.Items {
		if item.Err != nil {
			failures++
			log.Error().Err(item.Err).Str("video", item.Path).Msg("video could not be analyzed")
			continue
		}
		if detailedFlag {
			report.Print(os.Stdout, item.Detection, true)
		} else {
			os.Stdout.WriteString(report.Summary(item.Detection) + "\n")
		}
	}

	if outputFlag != "" {
		if err := report.SaveBatchJSON(batch, outputFlag); err != nil {
			log.Fatal().Err(err).Msg("failed to save batch report")
		}
	}
	if textFlag != "" {
		if err := report.SaveBatchText(batch, textFlag); err != nil {
			log.Fatal().Err(err).Msg("failed to save batch text report")
		}
	}

	log.Info().
		Str("run_id", batch.RunID).
		Int("videos", len(batch.Items)).
		Int("failed", failures).
		Msg("Batch run complete")

	if failures == len(batch.Items) {
		os.Exit(1)
	}
}

func saveReports(detection *pipeline.Detection) {
	if outputFlag != "" {
		if err := report.SaveJSON(detection, outputFlag); err != nil {
			log.Fatal().Err(err).Msg("failed to save JSON report")
		}
	}
	if textFlag != "" {
		if err := report.SaveText(detection, textFlag); err != nil {
			log.Fatal().Err(err).Msg("failed to save text report")
		}
	}
}
