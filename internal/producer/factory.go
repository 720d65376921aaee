package producer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/satindergrewal/slotmix/internal/frame"
)

// ErrUnknownKind is returned for a producer kind the factory cannot build.
var ErrUnknownKind = errors.New("unknown producer kind")

// Params describes a producer to create, as sent by the control surface.
type Params struct {
	Kind             string `json:"kind,omitempty"`  // color, file or still; inferred when empty
	Path             string `json:"path,omitempty"`  // media path, relative to the media dir
	Color            string `json:"color,omitempty"` // #RRGGBB or #AARRGGBB
	Loop             bool   `json:"loop,omitempty"`
	Frames           int    `json:"frames,omitempty"` // tick limit for color and still, 0 = forever
	Transition       string `json:"transition,omitempty"`
	TransitionFrames *int   `json:"transition_frames,omitempty"`
}

// Factory builds producers for one channel.
type Factory struct {
	MediaDir         string
	Format           frame.Format
	TransitionFrames int // default length of a mix
}

var stillExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

// Create builds the producer p describes, wrapped in a transition when one is
// requested. Files are decoded before Create returns.
func (f *Factory) Create(p Params) (Producer, error) {
	kind, err := ParseTransitionKind(p.Transition)
	if err != nil {
		return nil, err
	}

	prod, err := f.create(p)
	if err != nil {
		return nil, err
	}

	if kind == Cut {
		return prod, nil
	}
	duration := f.TransitionFrames
	if p.TransitionFrames != nil {
		duration = *p.TransitionFrames
	}
	if duration < 0 {
		return nil, fmt.Errorf("transition_frames must not be negative")
	}
	return NewTransition(prod, kind, duration, f.Format), nil
}

func (f *Factory) create(p Params) (Producer, error) {
	kind := p.Kind
	if kind == "" {
		switch {
		case p.Color != "":
			kind = "color"
		case stillExts[strings.ToLower(filepath.Ext(p.Path))]:
			kind = "still"
		default:
			kind = "file"
		}
	}

	switch kind {
	case "color":
		c, err := ParseColor(p.Color)
		if err != nil {
			return nil, err
		}
		return NewColor(f.Format, c, p.Frames), nil
	case "file":
		if p.Path == "" {
			return nil, fmt.Errorf("file producer needs a path")
		}
		return OpenClip(f.resolve(p.Path), p.Loop)
	case "still":
		if p.Path == "" {
			return nil, fmt.Errorf("still producer needs a path")
		}
		return OpenStill(f.resolve(p.Path), f.Format, p.Frames)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func (f *Factory) resolve(path string) string {
	if f.MediaDir == "" {
		return path
	}
	// paths never escape the media dir
	return filepath.Join(f.MediaDir, filepath.Clean("/"+path))
}
