// Package layer implements a playback slot: one playing producer, at most
// one staged producer, and the per-tick frame pull that hands over between
// them.
//
// Concurrency: Load, Preview, Play, Stop, Clear and Receive must be
// serialized by the caller (the channel runs them all on one goroutine).
// Pause and Paused are safe from any goroutine and take effect on the next
// Receive.
package layer

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/satindergrewal/slotmix/internal/frame"
	"github.com/satindergrewal/slotmix/internal/producer"
)

// MaxAdvance bounds how many end-of-content hand-overs a single Receive may
// follow. A longer chain of immediately exhausted producers is treated as a
// broken chain and handled like a producer fault.
const MaxAdvance = 16

// Layer is one output slot of a channel.
type Layer struct {
	index int

	paused    atomic.Bool
	lastFrame *frame.Frame
	playing   producer.Producer
	staged    producer.Producer
}

// Status is a snapshot of a layer for diagnostics.
type Status struct {
	Index      int    `json:"index"`
	Foreground string `json:"foreground"`
	Background string `json:"background"`
	Paused     bool   `json:"paused"`
	Empty      bool   `json:"empty"`
}

// New creates an idle layer.
func New(index int) *Layer {
	return &Layer{
		index:     index,
		lastFrame: frame.Empty(),
		playing:   producer.Empty(),
		staged:    producer.Empty(),
	}
}

// Load stages p, replacing whatever was staged. With autoplay it is promoted
// straight away.
func (l *Layer) Load(p producer.Producer, autoplay bool) {
	l.staged = p
	log.Printf("%s %s => background", l, p.Label())
	if autoplay {
		l.Play()
	}
}

// Preview stops the layer, stages p and pulls one frame from it so the layer
// shows something without starting playback. A failing producer is dropped
// from the background.
func (l *Layer) Preview(p producer.Producer) {
	l.Stop()
	l.Load(p, false)

	f, err := pull(p)
	if err != nil {
		log.Printf("%s preview %s: %v", l, p.Label(), err)
		log.Printf("%s empty => background", l)
		l.staged = producer.Empty()
		return
	}
	if !f.IsEOF() {
		l.lastFrame = f
	}
}

// Play promotes the staged producer, handing it the producer it supersedes
// as predecessor, and clears pause. With nothing staged it only resumes.
func (l *Layer) Play() {
	if l.staged != producer.Empty() {
		l.staged.SetPredecessor(l.playing)
		l.playing = l.staged
		l.staged = producer.Empty()
		log.Printf("%s background => foreground", l)
	}
	l.paused.Store(false)
}

// Pause freezes the layer on its last frame.
func (l *Layer) Pause() {
	l.paused.Store(true)
}

// Paused reports whether the layer is frozen.
func (l *Layer) Paused() bool {
	return l.paused.Load()
}

// Stop drops the playing producer and blanks the layer. The staged producer
// is kept.
func (l *Layer) Stop() {
	l.paused.Store(false)
	l.lastFrame = frame.Empty()
	l.playing = producer.Empty()
}

// Clear stops the layer and drops the staged producer as well.
func (l *Layer) Clear() {
	l.Stop()
	l.staged = producer.Empty()
}

// Empty reports whether nothing is playing or staged.
func (l *Layer) Empty() bool {
	return l.playing == producer.Empty() && l.staged == producer.Empty()
}

// Foreground returns the playing producer.
func (l *Layer) Foreground() producer.Producer { return l.playing }

// Background returns the staged producer.
func (l *Layer) Background() producer.Producer { return l.staged }

// Index returns the layer's position in its channel.
func (l *Layer) Index() int { return l.index }

func (l *Layer) String() string {
	return fmt.Sprintf("layer[%d]", l.index)
}

// Status returns a snapshot for diagnostics.
func (l *Layer) Status() Status {
	return Status{
		Index:      l.index,
		Foreground: l.playing.Label(),
		Background: l.staged.Label(),
		Paused:     l.paused.Load(),
		Empty:      l.Empty(),
	}
}

// Receive returns the frame for this tick. It never returns frame.EOF() and
// never fails: when the playing producer runs out it advances to its
// successor within the same call, and when it fails the layer is blanked.
func (l *Layer) Receive() *frame.Frame {
	if l.paused.Load() {
		return l.lastFrame
	}

	for hops := 0; ; hops++ {
		f, err := pull(l.playing)
		if err != nil {
			log.Printf("%s %s: %v", l, l.playing.Label(), err)
			return l.demote()
		}
		if !f.IsEOF() {
			l.lastFrame = f
			return f
		}

		if hops == MaxAdvance {
			log.Printf("%s [EOF] gave up after %d hand-overs", l, MaxAdvance)
			return l.demote()
		}

		next := l.playing.Successor()
		next.SetPredecessor(l.playing)
		l.playing = next
		log.Printf("%s [EOF] %s => foreground", l, next.Label())
	}
}

// demote replaces a broken foreground with the empty producer.
func (l *Layer) demote() *frame.Frame {
	l.playing = producer.Empty()
	l.lastFrame = frame.Empty()
	log.Printf("%s empty => foreground", l)
	return l.lastFrame
}

// pull takes one frame from p, turning a panic into an error.
func pull(p producer.Producer) (f *frame.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	f, err = p.Receive()
	if err == nil && f == nil {
		err = fmt.Errorf("producer returned no frame")
	}
	return f, err
}
