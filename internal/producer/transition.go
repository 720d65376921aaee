package producer

import (
	"fmt"

	"github.com/satindergrewal/slotmix/internal/audio"
	"github.com/satindergrewal/slotmix/internal/frame"
)

// TransitionKind selects how a Transition blends its two sides.
type TransitionKind int

const (
	Cut TransitionKind = iota
	Mix
)

func (k TransitionKind) String() string {
	switch k {
	case Cut:
		return "cut"
	case Mix:
		return "mix"
	default:
		return "unknown"
	}
}

// ParseTransitionKind maps "cut" and "mix" (or "") to a TransitionKind.
func ParseTransitionKind(s string) (TransitionKind, error) {
	switch s {
	case "", "cut":
		return Cut, nil
	case "mix":
		return Mix, nil
	}
	return Cut, fmt.Errorf("unknown transition %q", s)
}

// Transition blends from its predecessor into a destination producer over a
// fixed number of ticks. When done it returns EOF and reports the
// destination as its successor, so the layer hands over to the destination
// through the ordinary end-of-content path.
type Transition struct {
	Links

	label    string
	kind     TransitionKind
	source   Producer // outgoing side, nil once released
	dest     Producer
	duration int
	current  int
	format   frame.Format
}

// NewTransition wraps dest. A Cut or a zero duration hands over on the first
// pull.
func NewTransition(dest Producer, kind TransitionKind, duration int, format frame.Format) *Transition {
	if kind == Cut {
		duration = 0
	}
	return &Transition{
		label:    fmt.Sprintf("transition[%s:%d]->%s", kind, duration, dest.Label()),
		kind:     kind,
		dest:     dest,
		duration: duration,
		format:   format,
	}
}

// SetPredecessor sets the outgoing side of the blend.
func (t *Transition) SetPredecessor(p Producer) { t.source = p }

// Predecessor returns the outgoing side, or Empty() once it is released.
func (t *Transition) Predecessor() Producer {
	if t.source == nil {
		return Empty()
	}
	return t.source
}

func (t *Transition) release() { t.source = nil }

// SetSuccessor links p after the destination, not after the transition.
func (t *Transition) SetSuccessor(p Producer) { t.dest.SetSuccessor(p) }

// Successor is always the destination.
func (t *Transition) Successor() Producer { return t.dest }

func (t *Transition) Label() string { return t.label }

func (t *Transition) Receive() (*frame.Frame, error) {
	if t.current >= t.duration {
		t.release()
		return frame.EOF(), nil
	}

	dst, err := receive(t.dest)
	if err != nil {
		return nil, fmt.Errorf("transition: %w", err)
	}
	if dst.IsEOF() {
		// destination already exhausted, let the layer advance past it
		t.current = t.duration
		t.release()
		return frame.EOF(), nil
	}

	src := t.pullSource()

	t.current++
	progress := float64(t.current) / float64(t.duration+1)

	img := audio.BlendImages(t.format.Bounds(), src.Image(), dst.Image(), progress)
	samples := audio.CrossfadeFrames(src.Audio(), dst.Audio(), progress)
	return frame.New(img, samples), nil
}

// pullSource takes the outgoing frame. A source that fails, panics or runs
// out is dropped and the blend continues from nothing.
func (t *Transition) pullSource() *frame.Frame {
	src := t.Predecessor()
	if src == Empty() {
		return frame.Empty()
	}

	f, err := receive(src)
	if err != nil || f.IsEOF() {
		t.release()
		return frame.Empty()
	}
	return f
}

// receive pulls one frame from p, turning a panic or a nil frame into an
// error.
func receive(p Producer) (f *frame.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", p.Label(), r)
		}
	}()

	f, err = p.Receive()
	if err == nil && f == nil {
		err = fmt.Errorf("%s: no frame", p.Label())
	}
	return f, err
}
