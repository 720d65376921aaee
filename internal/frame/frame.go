package frame

import "image"

// Frame is one tick of renderable output: an image and the audio that goes
// with it. Frames are shared by pointer and never modified once built.
type Frame struct {
	image *image.RGBA
	audio []int16 // interleaved stereo
}

// Format describes the video raster of a channel.
type Format struct {
	Width  int
	Height int
}

// Bounds returns the raster rectangle for the format.
func (f Format) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

var (
	empty = &Frame{}
	eof   = &Frame{}
)

// Empty returns the sentinel for "nothing to show".
func Empty() *Frame { return empty }

// EOF returns the sentinel a producer hands back once its content is
// exhausted. It is a signal and is never composited.
func EOF() *Frame { return eof }

// New wraps an image and audio block into a frame. Either may be nil.
// The caller gives up ownership of both.
func New(img *image.RGBA, audio []int16) *Frame {
	return &Frame{image: img, audio: audio}
}

// Image returns the frame's image, or nil for audio-only frames.
func (f *Frame) Image() *image.RGBA { return f.image }

// Audio returns the frame's interleaved stereo samples.
func (f *Frame) Audio() []int16 { return f.audio }

// IsEmpty reports whether f is the empty sentinel.
func (f *Frame) IsEmpty() bool { return f == empty }

// IsEOF reports whether f is the end-of-content sentinel.
func (f *Frame) IsEOF() bool { return f == eof }
