package score

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/fpang/vidcheck/internal/config"
	"github.com/fpang/vidcheck/internal/video"
)

func flatImage(w, h int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return img
}

func noiseImage(w, h int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

// rampImage has luminance increasing linearly along x: zero Laplacian,
// uniform Sobel response.
func rampImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = uint8(x)
		}
	}
	return img
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// --- ArtifactScorer Tests ---

func TestArtifactScore_FlatFrameTriggersAllRules(t *testing.T) {
	cfg := config.Default().Visual
	scorer := NewArtifactScorer(cfg)

	fs := scorer.Score(video.Frame{Index: 4, Image: flatImage(32, 32, 128)})

	if fs.FrameIndex != 4 {
		t.Errorf("FrameIndex = %d, want 4", fs.FrameIndex)
	}

	// A perfectly flat frame trips smoothing, lighting, and low edge
	// density: 0.7*0.25 + 0.6*0.20 + 0.5*0.20.
	if want := 0.395; !almostEqual(fs.VisualScore, want) {
		t.Errorf("VisualScore = %v, want %v", fs.VisualScore, want)
	}

	wantEvidence := []string{
		"Low texture variance detected (potential smoothing)",
		"Uniform lighting detected (potentially artificial)",
		"Low edge density (possible boundary blending)",
	}
	if len(fs.Evidence) != len(wantEvidence) {
		t.Fatalf("Evidence = %v, want %v", fs.Evidence, wantEvidence)
	}
	for i := range wantEvidence {
		if fs.Evidence[i] != wantEvidence[i] {
			t.Errorf("Evidence[%d] = %q, want %q", i, fs.Evidence[i], wantEvidence[i])
		}
	}
}

func TestArtifactScore_NoisyFrameSkipsSmoothing(t *testing.T) {
	scorer := NewArtifactScorer(config.Default().Visual)

	fs := scorer.Score(video.Frame{Index: 0, Image: noiseImage(64, 64, 99)})

	for _, e := range fs.Evidence {
		if e == "Low texture variance detected (potential smoothing)" ||
			e == "Moderate texture variance (some smoothing possible)" {
			t.Errorf("noisy frame flagged as smoothed: %v", fs.Evidence)
		}
	}
}

func TestArtifactScore_ModerateSmoothingBand(t *testing.T) {
	cfg := config.Default().Visual
	// Shift the steps so a flat frame (variance 0) lands in the moderate
	// band instead of the high one.
	cfg.SmoothingHighVariance = -1
	cfg.SmoothingModerateVariance = 1
	scorer := NewArtifactScorer(cfg)

	fs := scorer.Score(video.Frame{Image: flatImage(16, 16, 40)})

	found := false
	for _, e := range fs.Evidence {
		if e == "Moderate texture variance (some smoothing possible)" {
			found = true
		}
		if e == "Low texture variance detected (potential smoothing)" {
			t.Error("flat frame hit the high-smoothing branch with shifted thresholds")
		}
	}
	if !found {
		t.Errorf("moderate smoothing evidence missing: %v", fs.Evidence)
	}
}

func TestArtifactScore_HighEdgeDensityBand(t *testing.T) {
	cfg := config.Default().Visual
	// A ramp has a uniform Sobel magnitude of 8; lowering the edge
	// threshold below it makes every interior pixel an edge pixel.
	cfg.EdgeMagnitude = 5
	scorer := NewArtifactScorer(cfg)

	fs := scorer.Score(video.Frame{Image: rampImage(32, 32)})

	found := false
	for _, e := range fs.Evidence {
		if e == "High edge density (possible artifacts)" {
			found = true
		}
	}
	if !found {
		t.Errorf("high edge density evidence missing: %v", fs.Evidence)
	}
}

func TestArtifactScore_TinyFrameScoresZero(t *testing.T) {
	scorer := NewArtifactScorer(config.Default().Visual)

	fs := scorer.Score(video.Frame{Index: 7, Image: flatImage(2, 2, 0)})

	if fs.VisualScore != 0 || len(fs.Evidence) != 0 {
		t.Errorf("tiny frame should score zero, got %+v", fs)
	}
	if fs.FrameIndex != 7 {
		t.Errorf("FrameIndex = %d, want 7", fs.FrameIndex)
	}
}

func TestArtifactScore_Deterministic(t *testing.T) {
	scorer := NewArtifactScorer(config.Default().Visual)
	frame := video.Frame{Index: 1, Image: noiseImage(48, 48, 5)}

	first := scorer.Score(frame)
	for i := 0; i < 5; i++ {
		if got := scorer.Score(frame); got.VisualScore != first.VisualScore {
			t.Fatalf("score varied across calls: %v vs %v", got.VisualScore, first.VisualScore)
		}
	}
}

// --- Measure Helper Tests ---

func TestLaplacianVariance_FlatIsZero(t *testing.T) {
	if v := laplacianVariance(newLumaPlane(flatImage(16, 16, 200))); v != 0 {
		t.Errorf("laplacianVariance(flat) = %v, want 0", v)
	}
}

func TestLaplacianVariance_NoiseIsHigh(t *testing.T) {
	if v := laplacianVariance(newLumaPlane(noiseImage(32, 32, 3))); v <= 200 {
		t.Errorf("laplacianVariance(noise) = %v, want > 200", v)
	}
}

func TestGradientMagnitudes_RampIsUniform(t *testing.T) {
	mags := gradientMagnitudes(newLumaPlane(rampImage(16, 16)))
	for _, m := range mags {
		if !almostEqual(m, 8) {
			t.Fatalf("ramp gradient magnitude = %v, want 8", m)
		}
	}
	if s := stddev(mags); !almostEqual(s, 0) {
		t.Errorf("stddev of uniform magnitudes = %v, want 0", s)
	}
}

func TestEdgeDensity_Bounds(t *testing.T) {
	if d := edgeDensity(nil, 150); d != 0 {
		t.Errorf("edgeDensity(nil) = %v, want 0", d)
	}
	if d := edgeDensity([]float64{200, 200, 10, 10}, 150); !almostEqual(d, 0.5) {
		t.Errorf("edgeDensity = %v, want 0.5", d)
	}
}

func TestMeanAbsDiff(t *testing.T) {
	black := newLumaPlane(flatImage(8, 8, 0))
	white := newLumaPlane(flatImage(8, 8, 255))

	if d := meanAbsDiff(black, white); !almostEqual(d, 255) {
		t.Errorf("meanAbsDiff(black, white) = %v, want 255", d)
	}
	if d := meanAbsDiff(black, black); d != 0 {
		t.Errorf("meanAbsDiff(black, black) = %v, want 0", d)
	}
}

func TestMeanAbsDiff_MismatchedSizesUseOverlap(t *testing.T) {
	small := newLumaPlane(flatImage(4, 4, 100))
	large := newLumaPlane(flatImage(8, 8, 150))

	if d := meanAbsDiff(small, large); !almostEqual(d, 50) {
		t.Errorf("meanAbsDiff over overlap = %v, want 50", d)
	}
}
