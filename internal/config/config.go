// Package config holds the typed configuration for the detection pipeline.
// Configuration is loaded once at process start and passed explicitly to
// component constructors; nothing reads it at call time.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all pipeline configuration.
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Visual     VisualConfig     `yaml:"visual"`
	Temporal   TemporalConfig   `yaml:"temporal"`
	Verdict    VerdictConfig    `yaml:"verdict"`
}

// ExtractionConfig controls frame sampling and the extraction worker pool.
type ExtractionConfig struct {
	// NumFrames is how many frames to sample from each video.
	NumFrames int `yaml:"num_frames"`

	// Strategy names the registered sampling strategy to use.
	Strategy string `yaml:"strategy"`

	// Workers is the extraction pool size. 0 means one worker per CPU.
	Workers int `yaml:"workers"`

	// FrameTimeoutSeconds bounds a single frame decode. A frame that
	// exceeds it is recorded as failed; the pool keeps going.
	FrameTimeoutSeconds float64 `yaml:"frame_timeout_seconds"`
}

// FrameTimeout returns the per-frame decode timeout as a duration.
func (c ExtractionConfig) FrameTimeout() time.Duration {
	return time.Duration(c.FrameTimeoutSeconds * float64(time.Second))
}

// AnalysisConfig controls the optional remote frame-analysis path.
type AnalysisConfig struct {
	// Enabled switches the remote analysis dispatcher on.
	Enabled bool `yaml:"enabled"`

	// Model is the remote model identifier. Empty uses the provider default.
	Model string `yaml:"model"`

	// MaxConcurrent is the concurrency ceiling for in-flight remote calls.
	MaxConcurrent int `yaml:"max_concurrent"`

	// RateDelaySeconds is the minimum delay between dispatched calls.
	RateDelaySeconds float64 `yaml:"rate_delay_seconds"`

	// RetryAttempts is the number of retries after the first failed call.
	RetryAttempts int `yaml:"retry_attempts"`

	// BackoffBaseSeconds is the base for exponential retry backoff
	// (delay = base * 2^attempt).
	BackoffBaseSeconds float64 `yaml:"backoff_base_seconds"`

	// CallTimeoutSeconds bounds a single remote call.
	CallTimeoutSeconds float64 `yaml:"call_timeout_seconds"`
}

// RateDelay returns the inter-call delay as a duration.
func (c AnalysisConfig) RateDelay() time.Duration {
	return time.Duration(c.RateDelaySeconds * float64(time.Second))
}

// BackoffBase returns the retry backoff base as a duration.
func (c AnalysisConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseSeconds * float64(time.Second))
}

// CallTimeout returns the per-call timeout as a duration.
func (c AnalysisConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds * float64(time.Second))
}

// VisualConfig holds the per-frame artifact rule weights and thresholds.
// The step thresholds reproduce the reference rule set exactly; scores are
// step functions, not interpolations.
type VisualConfig struct {
	SmoothingWeight float64 `yaml:"smoothing_weight"`
	LightingWeight  float64 `yaml:"lighting_weight"`
	BoundaryWeight  float64 `yaml:"boundary_weight"`

	// Laplacian-variance steps: variance below High scores HighScore,
	// below Moderate scores ModerateScore.
	SmoothingHighVariance     float64 `yaml:"smoothing_high_variance"`
	SmoothingModerateVariance float64 `yaml:"smoothing_moderate_variance"`
	SmoothingHighScore        float64 `yaml:"smoothing_high_score"`
	SmoothingModerateScore    float64 `yaml:"smoothing_moderate_score"`

	// Gradient-magnitude stddev below LightingStdDev scores LightingScore.
	LightingStdDev float64 `yaml:"lighting_stddev"`
	LightingScore  float64 `yaml:"lighting_score"`

	// EdgeMagnitude is the gradient magnitude above which a pixel counts
	// as an edge pixel for the boundary density measure.
	EdgeMagnitude       float64 `yaml:"edge_magnitude"`
	BoundaryLowDensity  float64 `yaml:"boundary_low_density"`
	BoundaryHighDensity float64 `yaml:"boundary_high_density"`
	BoundaryLowScore    float64 `yaml:"boundary_low_score"`
	BoundaryHighScore   float64 `yaml:"boundary_high_score"`
}

// TemporalConfig holds the pairwise-difference thresholds and contributions.
type TemporalConfig struct {
	// HighThreshold is the mean absolute luminance difference above which
	// a pair is a large discontinuity.
	HighThreshold float64 `yaml:"high_threshold"`

	// LowThreshold is the difference below which a pair is static/frozen.
	LowThreshold float64 `yaml:"low_threshold"`

	DiscontinuityContribution float64 `yaml:"discontinuity_contribution"`
	StaticContribution        float64 `yaml:"static_contribution"`

	// StaticRunWeight scales the fraction of static pairs into the
	// aggregate score. Many static pairs across a short clip are the
	// dominant image-to-video synthesis signal.
	StaticRunWeight float64 `yaml:"static_run_weight"`
}

// VerdictConfig holds the score combination weights and classification
// thresholds. All comparisons are >= against these bounds.
type VerdictConfig struct {
	VisualWeight   float64 `yaml:"visual_weight"`
	TemporalWeight float64 `yaml:"temporal_weight"`

	FakeThreshold       float64 `yaml:"fake_threshold"`
	LikelyFakeThreshold float64 `yaml:"likely_fake_threshold"`
	UncertainThreshold  float64 `yaml:"uncertain_threshold"`
	LikelyRealThreshold float64 `yaml:"likely_real_threshold"`
}

// Default returns the built-in configuration. The numeric values mirror the
// reference rule set and must not drift: compatibility tests pin them.
func Default() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			NumFrames:           10,
			Strategy:            "uniform",
			Workers:             0,
			FrameTimeoutSeconds: 30,
		},
		Analysis: AnalysisConfig{
			Enabled:            false,
			MaxConcurrent:      5,
			RateDelaySeconds:   0.5,
			RetryAttempts:      2,
			BackoffBaseSeconds: 0.5,
			CallTimeoutSeconds: 60,
		},
		Visual: VisualConfig{
			SmoothingWeight:           0.25,
			LightingWeight:            0.20,
			BoundaryWeight:            0.20,
			SmoothingHighVariance:     100,
			SmoothingModerateVariance: 200,
			SmoothingHighScore:        0.7,
			SmoothingModerateScore:    0.4,
			LightingStdDev:            20,
			LightingScore:             0.6,
			EdgeMagnitude:             150,
			BoundaryLowDensity:        0.05,
			BoundaryHighDensity:       0.20,
			BoundaryLowScore:          0.5,
			BoundaryHighScore:         0.4,
		},
		Temporal: TemporalConfig{
			HighThreshold:             50,
			LowThreshold:              5,
			DiscontinuityContribution: 0.6,
			StaticContribution:        0.1,
			StaticRunWeight:           0.8,
		},
		Verdict: VerdictConfig{
			VisualWeight:        0.6,
			TemporalWeight:      0.4,
			FakeThreshold:       0.75,
			LikelyFakeThreshold: 0.55,
			UncertainThreshold:  0.45,
			LikelyRealThreshold: 0.25,
		},
	}
}

// Load reads configuration from a YAML file, overlaying the defaults.
// An empty path or a missing file returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Extraction.NumFrames < 0 {
		return fmt.Errorf("extraction.num_frames must be >= 0, got %d", c.Extraction.NumFrames)
	}
	if c.Extraction.Workers < 0 {
		return fmt.Errorf("extraction.workers must be >= 0, got %d", c.Extraction.Workers)
	}
	if c.Extraction.FrameTimeoutSeconds <= 0 {
		return fmt.Errorf("extraction.frame_timeout_seconds must be > 0, got %v", c.Extraction.FrameTimeoutSeconds)
	}
	if c.Analysis.MaxConcurrent < 1 {
		return fmt.Errorf("analysis.max_concurrent must be >= 1, got %d", c.Analysis.MaxConcurrent)
	}
	if c.Analysis.RetryAttempts < 0 {
		return fmt.Errorf("analysis.retry_attempts must be >= 0, got %d", c.Analysis.RetryAttempts)
	}
	if c.Verdict.VisualWeight < 0 || c.Verdict.TemporalWeight < 0 {
		return fmt.Errorf("verdict weights must be >= 0")
	}
	return nil
}
