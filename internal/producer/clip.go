package producer

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/satindergrewal/slotmix/internal/audio"
	"github.com/satindergrewal/slotmix/internal/frame"
)

// Clip plays decoded audio one tick at a time, optionally over a still
// image, and returns EOF when the samples run out.
type Clip struct {
	Links

	label   string
	samples []int16 // interleaved stereo, 48kHz
	image   *image.RGBA
	loop    bool
	pos     int // next frame index
}

// NewClip wraps already decoded samples. img may be nil.
func NewClip(name string, samples []int16, img *image.RGBA, loop bool) *Clip {
	return &Clip{
		label:   fmt.Sprintf("file[%s|%s]", name, instanceID()),
		samples: samples,
		image:   img,
		loop:    loop,
	}
}

// OpenClip decodes an audio file into a Clip. Decoding happens here so the
// tick never waits on I/O.
func OpenClip(path string, loop bool) (*Clip, error) {
	samples, err := audio.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return NewClip(filepath.Base(path), samples, nil, loop), nil
}

// Frames returns the clip length in ticks.
func (p *Clip) Frames() int {
	return (len(p.samples) + audio.FrameSamples - 1) / audio.FrameSamples
}

func (p *Clip) Receive() (*frame.Frame, error) {
	total := p.Frames()
	if p.pos >= total {
		if !p.loop || total == 0 {
			return frame.EOF(), nil
		}
		p.pos = 0
	}

	start := p.pos * audio.FrameSamples
	end := start + audio.FrameSamples
	p.pos++

	if end <= len(p.samples) {
		return frame.New(p.image, p.samples[start:end:end]), nil
	}

	// pad the tail with silence
	block := make([]int16, audio.FrameSamples)
	copy(block, p.samples[start:])
	return frame.New(p.image, block), nil
}

func (p *Clip) Label() string { return p.label }

// Still shows a single image. With a non-zero limit it returns EOF after
// that many ticks.
type Still struct {
	Links

	label string
	frame *frame.Frame
	limit int
	sent  int
}

// NewStill wraps an image already scaled to the channel raster.
func NewStill(name string, img *image.RGBA, limit int) *Still {
	return &Still{
		label: fmt.Sprintf("still[%s|%s]", name, instanceID()),
		frame: frame.New(img, nil),
		limit: limit,
	}
}

// OpenStill decodes a PNG, JPEG or GIF file and places it top-left on a
// raster of the given format.
func OpenStill(path string, format frame.Format, limit int) (*Still, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("still: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("still: decode %s: %w", path, err)
	}

	img := image.NewRGBA(format.Bounds())
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	return NewStill(filepath.Base(path), img, limit), nil
}

func (p *Still) Receive() (*frame.Frame, error) {
	if p.limit > 0 && p.sent >= p.limit {
		return frame.EOF(), nil
	}
	p.sent++
	return p.frame, nil
}

func (p *Still) Label() string { return p.label }
