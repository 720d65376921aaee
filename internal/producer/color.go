package producer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/satindergrewal/slotmix/internal/frame"
)

// Color fills the raster with one solid color. With a non-zero limit it
// returns EOF after that many ticks.
type Color struct {
	Links

	label string
	frame *frame.Frame
	limit int
	sent  int
}

// NewColor creates a color producer for the given format. limit 0 plays
// forever.
func NewColor(format frame.Format, c color.RGBA, limit int) *Color {
	img := image.NewRGBA(format.Bounds())
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)

	return &Color{
		label: fmt.Sprintf("color[#%02X%02X%02X%02X|%s]", c.A, c.R, c.G, c.B, instanceID()),
		frame: frame.New(img, nil),
		limit: limit,
	}
}

func (p *Color) Receive() (*frame.Frame, error) {
	if p.limit > 0 && p.sent >= p.limit {
		return frame.EOF(), nil
	}
	p.sent++
	return p.frame, nil
}

func (p *Color) Label() string { return p.label }

// ParseColor parses "#RRGGBB" or "#AARRGGBB" (alpha first). Named colors
// black, white, red, green, blue and transparent are accepted too.
func ParseColor(s string) (color.RGBA, error) {
	switch strings.ToLower(s) {
	case "black":
		return color.RGBA{A: 255}, nil
	case "white":
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}, nil
	case "red":
		return color.RGBA{R: 255, A: 255}, nil
	case "green":
		return color.RGBA{G: 255, A: 255}, nil
	case "blue":
		return color.RGBA{B: 255, A: 255}, nil
	case "transparent":
		return color.RGBA{}, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v |= 0xFF000000
	}

	c := color.RGBA{
		A: uint8(v >> 24),
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}
	// image.RGBA holds premultiplied alpha
	if c.A != 255 {
		c.R = uint8(uint32(c.R) * uint32(c.A) / 255)
		c.G = uint8(uint32(c.G) * uint32(c.A) / 255)
		c.B = uint8(uint32(c.B) * uint32(c.A) / 255)
	}
	return c, nil
}
