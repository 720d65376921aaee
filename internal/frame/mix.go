package frame

import (
	"image"
	"image/draw"
)

// Mix composites frames bottom to top onto a transparent canvas of the
// given format and sums their audio. gain scales the summed audio, which is
// then clipped to the int16 range. Sentinels and nil frames are skipped;
// when nothing is left the empty frame is returned.
func Mix(format Format, gain float64, frames ...*Frame) *Frame {
	var canvas *image.RGBA
	var acc []int32
	used := 0

	for _, f := range frames {
		if f == nil || f == empty || f == eof {
			continue
		}
		used++

		if f.image != nil {
			if canvas == nil {
				canvas = image.NewRGBA(format.Bounds())
			}
			draw.Draw(canvas, canvas.Bounds(), f.image, f.image.Bounds().Min, draw.Over)
		}

		if len(f.audio) > len(acc) {
			grown := make([]int32, len(f.audio))
			copy(grown, acc)
			acc = grown
		}
		for i, s := range f.audio {
			acc[i] += int32(s)
		}
	}

	if used == 0 {
		return empty
	}

	var audio []int16
	if acc != nil {
		audio = make([]int16, len(acc))
		for i, s := range acc {
			mixed := float64(s) * gain
			// Clip to int16 range
			if mixed > 32767 {
				mixed = 32767
			} else if mixed < -32768 {
				mixed = -32768
			}
			audio[i] = int16(mixed)
		}
	}

	return &Frame{image: canvas, audio: audio}
}
