// Package score computes the local suspicion heuristics: per-frame visual
// artifact measures and inter-frame temporal consistency. Both scorers are
// pure and stateless; for fixed inputs and configuration they produce
// bit-identical output regardless of worker counts elsewhere.
package score

import "image"

// lumaPlane holds an 8-bit Rec.601 luminance plane for one frame. All
// heuristics run on integer luminance so results are deterministic across
// platforms.
type lumaPlane struct {
	pix    []uint8
	width  int
	height int
}

// newLumaPlane converts a decoded frame to its luminance plane.
func newLumaPlane(img image.Image) lumaPlane {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	plane := lumaPlane{
		pix:    make([]uint8, w*h),
		width:  w,
		height: h,
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA() returns 16-bit values; scale to 8-bit.
			r8 := r >> 8
			g8 := g >> 8
			b8 := b >> 8
			plane.pix[i] = uint8((299*r8 + 587*g8 + 114*b8) / 1000)
			i++
		}
	}
	return plane
}

func (p lumaPlane) at(x, y int) float64 {
	return float64(p.pix[y*p.width+x])
}

// meanAbsDiff computes the mean absolute luminance difference between two
// planes over their overlapping region.
func meanAbsDiff(a, b lumaPlane) float64 {
	w := a.width
	if b.width < w {
		w = b.width
	}
	h := a.height
	if b.height < h {
		h = b.height
	}
	if w == 0 || h == 0 {
		return 0
	}

	var sum int64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := int(a.pix[y*a.width+x]) - int(b.pix[y*b.width+x])
			if d < 0 {
				d = -d
			}
			sum += int64(d)
		}
	}
	return float64(sum) / float64(w*h)
}
