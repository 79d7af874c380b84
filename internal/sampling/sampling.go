// Package sampling selects which frame indices to extract from a video.
// Strategies are pure functions: same inputs yield identical output
// regardless of call order or concurrency elsewhere in the pipeline, which
// is what keeps detection results reproducible across worker counts.
package sampling

import (
	"sort"

	"github.com/fpang/vidcheck/internal/video"
)

// Strategy maps a total frame count and a requested sample count to an
// ordered, deduplicated set of frame indices. Metadata is optional and may
// be nil. Implementations must be pure and safe for concurrent use.
type Strategy interface {
	// Name is the unique registry key for the strategy.
	Name() string

	// Description is a human-readable summary for CLI help output.
	Description() string

	// Sample returns strictly increasing indices in [0, totalFrames).
	// When requested >= totalFrames the full range is returned; a
	// requested count of zero yields an empty set. Never errors.
	Sample(totalFrames, requested int, meta *video.Metadata) []int
}

// Uniform samples evenly spaced indices spanning the whole video.
type Uniform struct{}

func (Uniform) Name() string        { return "uniform" }
func (Uniform) Description() string { return "Evenly spaced frames across the full video" }

func (Uniform) Sample(totalFrames, requested int, _ *video.Metadata) []int {
	if requested <= 0 || totalFrames <= 0 {
		return nil
	}
	if requested >= totalFrames {
		return fullRange(totalFrames)
	}

	step := float64(totalFrames) / float64(requested)
	indices := make([]int, 0, requested)
	for i := 0; i < requested; i++ {
		indices = append(indices, int(float64(i)*step))
	}
	return dedupeSorted(indices)
}

// WeightedEdges draws 40% of samples from the first 20% of frames, 20%
// from the middle 60%, and 40% from the last 20%. Generation artifacts
// concentrate near clip boundaries, so the edges get the sampling budget.
type WeightedEdges struct{}

func (WeightedEdges) Name() string { return "weighted-edges" }
func (WeightedEdges) Description() string {
	return "Oversamples the first and last 20% of frames where artifacts concentrate"
}

func (WeightedEdges) Sample(totalFrames, requested int, _ *video.Metadata) []int {
	if requested <= 0 || totalFrames <= 0 {
		return nil
	}
	if requested >= totalFrames {
		return fullRange(totalFrames)
	}

	first20 := totalFrames * 20 / 100
	last20 := totalFrames * 80 / 100

	var indices []int

	// First 20% of frames: 40% of the budget.
	numFirst := requested * 40 / 100
	indices = appendStride(indices, 0, first20, numFirst)

	// Middle 60%: 20% of the budget.
	numMiddle := requested * 20 / 100
	indices = appendStride(indices, first20, last20, numMiddle)

	// Last 20%: the remaining budget.
	numLast := requested - len(indices)
	indices = appendStride(indices, last20, totalFrames, numLast)

	indices = dedupeSorted(indices)
	if len(indices) > requested {
		indices = indices[:requested]
	}
	return indices
}

// appendStride appends up to count evenly strided indices from [start, end).
func appendStride(indices []int, start, end, count int) []int {
	if count <= 0 || end <= start {
		return indices
	}
	step := (end - start) / count
	if step < 1 {
		step = 1
	}
	for i, n := start, 0; i < end && n < count; i, n = i+step, n+1 {
		indices = append(indices, i)
	}
	return indices
}

// Scene samples frame pairs at estimated scene boundaries, assuming an
// average scene length of about three seconds. Scene transitions often
// reveal quality drops in synthesized footage.
type Scene struct{}

func (Scene) Name() string        { return "scene" }
func (Scene) Description() string { return "Samples frames at likely scene transition boundaries" }

func (Scene) Sample(totalFrames, requested int, meta *video.Metadata) []int {
	if requested <= 0 || totalFrames <= 0 {
		return nil
	}
	if requested >= totalFrames {
		return fullRange(totalFrames)
	}

	fps := 30.0
	duration := float64(totalFrames) / fps
	if meta != nil {
		if meta.FPS > 0 {
			fps = meta.FPS
		}
		if meta.Duration > 0 {
			duration = meta.Duration.Seconds()
		} else {
			duration = float64(totalFrames) / fps
		}
	}

	estimatedScenes := int(duration / 3)
	if estimatedScenes < 2 {
		estimatedScenes = 2
	}
	maxScenes := requested / 2
	sceneCount := estimatedScenes
	if maxScenes >= 1 && sceneCount > maxScenes {
		sceneCount = maxScenes
	}
	if sceneCount < 1 {
		sceneCount = 1
	}

	sceneLength := float64(totalFrames) / float64(sceneCount)
	offset := int(sceneLength * 0.05)
	if offset > 5 {
		offset = 5
	}

	var indices []int
	for s := 0; s < sceneCount; s++ {
		sceneStart := int(float64(s) * sceneLength)
		sceneEnd := int(float64(s+1)*sceneLength) - 1

		indices = append(indices, clampIndex(sceneStart+offset, totalFrames))
		if len(indices) < requested {
			indices = append(indices, clampIndex(sceneEnd-offset, totalFrames))
		}
	}

	// Fill out the budget with uniform indices if boundaries alone fall short.
	if len(indices) < requested {
		step := float64(totalFrames) / float64(requested)
		for i := 0; i < requested && len(indices) < requested; i++ {
			indices = append(indices, int(float64(i)*step))
		}
	}

	indices = dedupeSorted(indices)
	if len(indices) > requested {
		indices = thinEvenly(indices, requested)
	}
	return indices
}

func clampIndex(i, total int) int {
	if i < 0 {
		return 0
	}
	if i >= total {
		return total - 1
	}
	return i
}

// thinEvenly keeps an evenly distributed subset of n indices.
func thinEvenly(indices []int, n int) []int {
	step := float64(len(indices)) / float64(n)
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, indices[int(float64(i)*step)])
	}
	return dedupeSorted(out)
}

func fullRange(total int) []int {
	indices := make([]int, total)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// dedupeSorted sorts and deduplicates indices, preserving the strictly
// increasing invariant every strategy must satisfy.
func dedupeSorted(indices []int) []int {
	if len(indices) == 0 {
		return nil
	}
	sort.Ints(indices)
	out := indices[:1]
	for _, idx := range indices[1:] {
		if idx != out[len(out)-1] {
			out = append(out, idx)
		}
	}
	return out
}
