package score

import (
	"math"

	"github.com/fpang/vidcheck/internal/config"
	"github.com/fpang/vidcheck/internal/video"
)

// FrameScore is the visual suspicion result for a single frame.
type FrameScore struct {
	// FrameIndex is the source index of the scored frame.
	FrameIndex int

	// VisualScore is the weighted artifact suspicion in [0,1].
	VisualScore float64

	// Evidence lists which sub-measures triggered, in rule order.
	Evidence []string
}

// ArtifactScorer computes per-frame visual suspicion from three
// independent sub-measures: texture smoothing, lighting uniformity, and
// edge-boundary density. Each measure maps through fixed step thresholds
// rather than a continuous interpolation; the steps are the compatibility
// contract with the reference rule set.
type ArtifactScorer struct {
	cfg config.VisualConfig
}

// NewArtifactScorer creates a scorer with the given rule configuration.
func NewArtifactScorer(cfg config.VisualConfig) *ArtifactScorer {
	return &ArtifactScorer{cfg: cfg}
}

// Score analyzes one frame. The frame is read-only; calling Score
// concurrently on different frames is safe.
func (s *ArtifactScorer) Score(frame video.Frame) FrameScore {
	result := FrameScore{FrameIndex: frame.Index}

	plane := newLumaPlane(frame.Image)
	if plane.width < 3 || plane.height < 3 {
		return result
	}

	var smoothing, lighting, boundary float64

	// 1. Texture smoothing: low Laplacian variance means unnaturally
	// smooth texture.
	laplacianVar := laplacianVariance(plane)
	switch {
	case laplacianVar < s.cfg.SmoothingHighVariance:
		smoothing = s.cfg.SmoothingHighScore
		result.Evidence = append(result.Evidence, "Low texture variance detected (potential smoothing)")
	case laplacianVar < s.cfg.SmoothingModerateVariance:
		smoothing = s.cfg.SmoothingModerateScore
		result.Evidence = append(result.Evidence, "Moderate texture variance (some smoothing possible)")
	}

	// 2. Lighting uniformity: low spread of Sobel gradient magnitude.
	magnitudes := gradientMagnitudes(plane)
	if stddev(magnitudes) < s.cfg.LightingStdDev {
		lighting = s.cfg.LightingScore
		result.Evidence = append(result.Evidence, "Uniform lighting detected (potentially artificial)")
	}

	// 3. Boundary artifacts: edge-pixel density outside the natural band.
	density := edgeDensity(magnitudes, s.cfg.EdgeMagnitude)
	switch {
	case density < s.cfg.BoundaryLowDensity:
		boundary = s.cfg.BoundaryLowScore
		result.Evidence = append(result.Evidence, "Low edge density (possible boundary blending)")
	case density > s.cfg.BoundaryHighDensity:
		boundary = s.cfg.BoundaryHighScore
		result.Evidence = append(result.Evidence, "High edge density (possible artifacts)")
	}

	result.VisualScore = smoothing*s.cfg.SmoothingWeight +
		lighting*s.cfg.LightingWeight +
		boundary*s.cfg.BoundaryWeight

	return result
}

// laplacianVariance applies a 4-neighbor Laplacian filter to the interior
// pixels and returns the variance of the response.
func laplacianVariance(p lumaPlane) float64 {
	n := (p.width - 2) * (p.height - 2)
	if n <= 0 {
		return 0
	}

	var sum, sumSq float64
	for y := 1; y < p.height-1; y++ {
		for x := 1; x < p.width-1; x++ {
			v := p.at(x-1, y) + p.at(x+1, y) + p.at(x, y-1) + p.at(x, y+1) - 4*p.at(x, y)
			sum += v
			sumSq += v * v
		}
	}

	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// gradientMagnitudes returns the Sobel gradient magnitude for every
// interior pixel.
func gradientMagnitudes(p lumaPlane) []float64 {
	n := (p.width - 2) * (p.height - 2)
	if n <= 0 {
		return nil
	}

	magnitudes := make([]float64, 0, n)
	for y := 1; y < p.height-1; y++ {
		for x := 1; x < p.width-1; x++ {
			gx := -p.at(x-1, y-1) + p.at(x+1, y-1) +
				-2*p.at(x-1, y) + 2*p.at(x+1, y) +
				-p.at(x-1, y+1) + p.at(x+1, y+1)
			gy := -p.at(x-1, y-1) - 2*p.at(x, y-1) - p.at(x+1, y-1) +
				p.at(x-1, y+1) + 2*p.at(x, y+1) + p.at(x+1, y+1)
			magnitudes = append(magnitudes, math.Sqrt(gx*gx+gy*gy))
		}
	}
	return magnitudes
}

// edgeDensity is the fraction of pixels whose gradient magnitude exceeds
// the edge threshold.
func edgeDensity(magnitudes []float64, threshold float64) float64 {
	if len(magnitudes) == 0 {
		return 0
	}
	edges := 0
	for _, m := range magnitudes {
		if m > threshold {
			edges++
		}
	}
	return float64(edges) / float64(len(magnitudes))
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
