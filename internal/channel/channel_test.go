package channel

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/satindergrewal/slotmix/internal/audio"
	"github.com/satindergrewal/slotmix/internal/frame"
	"github.com/satindergrewal/slotmix/internal/layer"
	"github.com/satindergrewal/slotmix/internal/producer"
)

var testFormat = frame.Format{Width: 2, Height: 2}

func startChannel(t *testing.T, layers int) (*Channel, context.CancelFunc) {
	t.Helper()
	c := New(1, layers, testFormat, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(cancel)
	return c, cancel
}

// --- Tick ---

func TestTickIdleChannelIsSilent(t *testing.T) {
	c := New(1, 3, testFormat, 1)
	f := c.Tick()
	if f.Image() != nil {
		t.Error("Idle channel should produce no image")
	}
	if len(f.Audio()) != audio.FrameSamples {
		t.Fatalf("Audio length = %d, want %d", len(f.Audio()), audio.FrameSamples)
	}
	for i, s := range f.Audio() {
		if s != 0 {
			t.Fatalf("Sample %d = %d, want silence", i, s)
		}
	}
	if c.Stats().Ticks != 1 {
		t.Errorf("Ticks = %d, want 1", c.Stats().Ticks)
	}
}

func TestTickStacksLayers(t *testing.T) {
	c := New(1, 3, testFormat, 1)
	c.layers[0].Load(producer.NewColor(testFormat, color.RGBA{R: 255, A: 255}, 0), true)
	c.layers[2].Load(producer.NewColor(testFormat, color.RGBA{B: 255, A: 255}, 0), true)

	f := c.Tick()
	if got := f.Image().RGBAAt(0, 0); got != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("Pixel = %v, want the higher layer (blue)", got)
	}

	c.layers[2].Stop()
	f = c.Tick()
	if got := f.Image().RGBAAt(0, 0); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("Pixel = %v, want red once the top layer stops", got)
	}
}

func TestTickMixesClipAudio(t *testing.T) {
	c := New(1, 2, testFormat, 1)
	samples := make([]int16, audio.FrameSamples)
	for i := range samples {
		samples[i] = 100
	}
	c.layers[0].Load(producer.NewClip("a", samples, nil, false), true)
	c.layers[1].Load(producer.NewClip("b", samples, nil, false), true)

	f := c.Tick()
	if f.Audio()[0] != 200 {
		t.Errorf("Mixed sample = %d, want 200", f.Audio()[0])
	}

	// both clips are exhausted on the next tick
	f = c.Tick()
	if f.Audio()[0] != 0 {
		t.Errorf("Sample after EOF = %d, want 0", f.Audio()[0])
	}
	if !c.layers[0].Empty() || !c.layers[1].Empty() {
		t.Error("Layers should be idle once their clips end")
	}
}

// --- Exec / Pause / Status ---

func TestExecNoSuchLayer(t *testing.T) {
	c := New(1, 2, testFormat, 1)
	for _, idx := range []int{-1, 2, 99} {
		err := c.Exec(context.Background(), idx, func(*layer.Layer) {})
		if !errors.Is(err, ErrNoSuchLayer) {
			t.Errorf("Exec(%d) error = %v, want ErrNoSuchLayer", idx, err)
		}
		if err := c.Pause(idx); !errors.Is(err, ErrNoSuchLayer) {
			t.Errorf("Pause(%d) error = %v, want ErrNoSuchLayer", idx, err)
		}
	}
}

func TestExecRunsOnLoop(t *testing.T) {
	c, _ := startChannel(t, 2)
	p := producer.NewColor(testFormat, color.RGBA{G: 255, A: 255}, 0)

	err := c.Exec(context.Background(), 1, func(l *layer.Layer) { l.Load(p, true) })
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}

	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status) != 2 {
		t.Fatalf("Status has %d layers, want 2", len(status))
	}
	if status[1].Foreground != p.Label() {
		t.Errorf("Layer 1 foreground = %q, want %q", status[1].Foreground, p.Label())
	}
	if !status[0].Empty {
		t.Error("Layer 0 should be empty")
	}
}

func TestRunEmitsFrames(t *testing.T) {
	c, _ := startChannel(t, 1)
	if err := c.Exec(context.Background(), 0, func(l *layer.Layer) {
		l.Load(producer.NewColor(testFormat, color.RGBA{R: 255, A: 255}, 0), true)
	}); err != nil {
		t.Fatalf("Exec: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case f := <-c.Frames():
			if f.Image() != nil && f.Image().RGBAAt(1, 1) == (color.RGBA{R: 255, A: 255}) {
				return
			}
		case <-deadline:
			t.Fatal("No red frame within 2s")
		}
	}
}

func TestPauseBypassesQueue(t *testing.T) {
	c := New(1, 1, testFormat, 1)
	// Run is not started: a queued command would block, Pause must not.
	if err := c.Pause(0); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !c.layers[0].Paused() {
		t.Error("Pause should flip the layer flag directly")
	}
}

func TestExecHonoursContext(t *testing.T) {
	c := New(1, 1, testFormat, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Exec(ctx, 0, func(*layer.Layer) {})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Exec without a running loop = %v, want deadline exceeded", err)
	}
}

func TestExecAfterStop(t *testing.T) {
	c, cancel := startChannel(t, 1)
	cancel()

	// drain until Run has closed the output
	for range c.Frames() {
	}

	err := c.Exec(context.Background(), 0, func(*layer.Layer) {})
	if !errors.Is(err, ErrStopped) {
		t.Errorf("Exec after stop = %v, want ErrStopped", err)
	}
}

func TestSlowConsumerDropsFrames(t *testing.T) {
	c := New(1, 1, testFormat, 1)
	for i := 0; i < cap(c.frameCh)+5; i++ {
		c.send(c.Tick())
	}
	if got := c.Stats().Dropped; got != 5 {
		t.Errorf("Dropped = %d, want 5", got)
	}
}
