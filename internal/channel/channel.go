package channel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/satindergrewal/slotmix/internal/audio"
	"github.com/satindergrewal/slotmix/internal/frame"
	"github.com/satindergrewal/slotmix/internal/layer"
)

var (
	// ErrNoSuchLayer is returned for a layer index outside the channel.
	ErrNoSuchLayer = errors.New("no such layer")
	// ErrStopped is returned when the channel loop is no longer running.
	ErrStopped = errors.New("channel stopped")
)

type command struct {
	fn   func()
	done chan struct{}
}

// Stats counts ticks since the channel started.
type Stats struct {
	Ticks   uint64 `json:"ticks"`
	Dropped uint64 `json:"dropped"` // output frames the consumer was too slow for
}

// Channel owns a fixed stack of layers and mixes them once per tick.
// All layer commands and ticks run on the Run goroutine, one at a time.
type Channel struct {
	index  int
	format frame.Format
	gain   float64
	layers []*layer.Layer

	cmdCh   chan command
	frameCh chan *frame.Frame
	stopped chan struct{}

	mu    sync.RWMutex
	stats Stats
}

// New creates a channel with numLayers idle layers.
func New(index, numLayers int, format frame.Format, gain float64) *Channel {
	layers := make([]*layer.Layer, numLayers)
	for i := range layers {
		layers[i] = layer.New(i)
	}
	return &Channel{
		index:   index,
		format:  format,
		gain:    gain,
		layers:  layers,
		cmdCh:   make(chan command),
		frameCh: make(chan *frame.Frame, 100),
		stopped: make(chan struct{}),
	}
}

// Format returns the channel's video format.
func (c *Channel) Format() frame.Format { return c.format }

// Layers returns the number of layers.
func (c *Channel) Layers() int { return len(c.layers) }

// Frames returns the channel of mixed output frames, one per tick.
func (c *Channel) Frames() <-chan *frame.Frame {
	return c.frameCh
}

func (c *Channel) String() string {
	return fmt.Sprintf("channel[%d]", c.index)
}

// Run drives the tick loop. Blocks until ctx is cancelled.
func (c *Channel) Run(ctx context.Context) {
	defer close(c.frameCh)
	defer close(c.stopped)

	ticker := time.NewTicker(audio.FrameDuration)
	defer ticker.Stop()

	log.Printf("%s running %d layers at %dx%d", c, len(c.layers), c.format.Width, c.format.Height)

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-c.cmdCh:
			cmd.fn()
			close(cmd.done)
		case <-ticker.C:
			c.send(c.Tick())
		}
	}
}

// send hands a frame to the consumer without ever blocking the tick.
func (c *Channel) send(f *frame.Frame) {
	select {
	case c.frameCh <- f:
	default:
		c.mu.Lock()
		c.stats.Dropped++
		c.mu.Unlock()
	}
}

// Tick pulls one frame from every layer and mixes them bottom to top. The
// result always carries one tick of audio, silent if no layer has any.
// Only the Run goroutine may call Tick while the channel is running.
func (c *Channel) Tick() *frame.Frame {
	frames := make([]*frame.Frame, len(c.layers))
	for i, l := range c.layers {
		frames[i] = l.Receive()
	}

	mixed := frame.Mix(c.format, c.gain, frames...)

	samples := mixed.Audio()
	if len(samples) < audio.FrameSamples {
		padded := make([]int16, audio.FrameSamples)
		copy(padded, samples)
		samples = padded
	}

	c.mu.Lock()
	c.stats.Ticks++
	c.mu.Unlock()

	return frame.New(mixed.Image(), samples)
}

// Exec runs fn against layer index on the tick goroutine and waits for it to
// finish.
func (c *Channel) Exec(ctx context.Context, index int, fn func(l *layer.Layer)) error {
	l, err := c.layer(index)
	if err != nil {
		return err
	}
	return c.do(ctx, func() { fn(l) })
}

// Pause freezes layer index immediately, without waiting for the tick loop.
func (c *Channel) Pause(index int) error {
	l, err := c.layer(index)
	if err != nil {
		return err
	}
	l.Pause()
	return nil
}

// Status returns a snapshot of every layer.
func (c *Channel) Status(ctx context.Context) ([]layer.Status, error) {
	out := make([]layer.Status, len(c.layers))
	err := c.do(ctx, func() {
		for i, l := range c.layers {
			out[i] = l.Status()
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns tick counters.
func (c *Channel) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

func (c *Channel) layer(index int) (*layer.Layer, error) {
	if index < 0 || index >= len(c.layers) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchLayer, index)
	}
	return c.layers[index], nil
}

func (c *Channel) do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}

	select {
	case c.cmdCh <- cmd:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// once accepted the command always runs to completion
	<-cmd.done
	return nil
}
