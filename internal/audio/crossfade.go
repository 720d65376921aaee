package audio

import "image"

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// CrossfadeFrames blends an outgoing frame with an incoming frame at the given
// progress (0.0 = all outgoing, 1.0 = all incoming). Uses smoothstep curve.
// A shorter side is treated as silence. Returns the blended frame.
func CrossfadeFrames(outgoing, incoming []int16, progress float64) []int16 {
	gain := Smoothstep(progress)
	n := max(len(outgoing), len(incoming))
	result := make([]int16, n)

	for i := 0; i < n; i++ {
		var out, in float64
		if i < len(outgoing) {
			out = float64(outgoing[i]) * (1 - gain)
		}
		if i < len(incoming) {
			in = float64(incoming[i]) * gain
		}
		mixed := out + in

		// Clip to int16 range
		if mixed > 32767 {
			mixed = 32767
		} else if mixed < -32768 {
			mixed = -32768
		}
		result[i] = int16(mixed)
	}

	return result
}

// BlendImages dissolves from outgoing to incoming at the given progress using
// the same smoothstep curve as CrossfadeFrames. A nil side, or the part of
// bounds a side does not cover, is treated as fully transparent. The result
// covers bounds. Cost is one fixed-point multiply-add per channel byte.
func BlendImages(bounds image.Rectangle, outgoing, incoming *image.RGBA, progress float64) *image.RGBA {
	if outgoing == nil && incoming == nil {
		return nil
	}
	// weights out of 256
	in := uint32(Smoothstep(progress)*256 + 0.5)
	out := 256 - in

	result := image.NewRGBA(bounds)
	width := bounds.Dx()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		dst := result.Pix[result.PixOffset(bounds.Min.X, y):][:width*4]
		a, aLo, aHi := rowSpan(outgoing, bounds.Min.X, width, y)
		b, bLo, bHi := rowSpan(incoming, bounds.Min.X, width, y)

		for i := range dst {
			v := uint32(128)
			if i >= aLo && i < aHi {
				v += uint32(a[i-aLo]) * out
			}
			if i >= bLo && i < bHi {
				v += uint32(b[i-bLo]) * in
			}
			dst[i] = uint8(v >> 8)
		}
	}

	return result
}

// rowSpan returns the bytes of row y of img that fall inside
// [minX, minX+width), and where they sit as byte offsets into that row.
func rowSpan(img *image.RGBA, minX, width, y int) (pix []uint8, lo, hi int) {
	if img == nil || y < img.Rect.Min.Y || y >= img.Rect.Max.Y {
		return nil, 0, 0
	}
	x0 := max(minX, img.Rect.Min.X)
	x1 := min(minX+width, img.Rect.Max.X)
	if x0 >= x1 {
		return nil, 0, 0
	}
	off := img.PixOffset(x0, y)
	return img.Pix[off : off+(x1-x0)*4], (x0 - minX) * 4, (x1 - minX) * 4
}
