package stream

import (
	"net/http"

	"github.com/satindergrewal/slotmix/internal/audio"
	"github.com/satindergrewal/slotmix/internal/frame"
)

// silence is one tick of zero samples. Read only.
var silence = make([]int16, audio.FrameSamples)

// tickAudio returns exactly one tick of interleaved samples for f. Frames
// without audio (the empty frame, a still) become silence so encoders keep
// their clock; short or long blocks are padded or cut.
func tickAudio(f *frame.Frame) []int16 {
	samples := f.Audio()
	switch {
	case len(samples) == audio.FrameSamples:
		return samples
	case len(samples) == 0:
		return silence
	case len(samples) > audio.FrameSamples:
		return samples[:audio.FrameSamples]
	}
	padded := make([]int16, audio.FrameSamples)
	copy(padded, samples)
	return padded
}

// flushWriter flushes after every write so chunks reach the client as soon
// as the encoder produces them.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	fw.f.Flush()
	return n, err
}
