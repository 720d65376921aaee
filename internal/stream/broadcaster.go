package stream

import (
	"context"
	"sync"

	"github.com/satindergrewal/slotmix/internal/frame"
)

// Broadcaster fans out channel frames from one source to N outputs and keeps
// the most recent frame for snapshots.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[*Listener]struct{}
	last      *frame.Frame
	dropped   uint64
}

// Listener receives channel frames from the broadcaster.
type Listener struct {
	C    chan *frame.Frame // buffered channel of 20ms frames
	done chan struct{}
}

// Done is closed once the listener is unsubscribed.
func (l *Listener) Done() <-chan struct{} { return l.done }

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[*Listener]struct{}),
		last:      frame.Empty(),
	}
}

// Subscribe registers a new output. Returns a Listener that receives frames.
func (b *Broadcaster) Subscribe() *Listener {
	l := &Listener{
		C:    make(chan *frame.Frame, 150), // ~3 seconds of buffer at 20ms/frame
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe removes a listener and signals it to stop.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	delete(b.listeners, l)
	b.mu.Unlock()
	close(l.done)
}

// ListenerCount returns the number of active listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Last returns the most recent frame seen, or frame.Empty() before the first.
func (b *Broadcaster) Last() *frame.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

// Dropped returns how many deliveries were skipped for slow listeners.
func (b *Broadcaster) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Run reads frames from source and fans out to all listeners.
// Slow listeners get frames dropped rather than blocking the broadcast.
func (b *Broadcaster) Run(ctx context.Context, source <-chan *frame.Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-source:
			if !ok {
				return
			}
			b.mu.Lock()
			b.last = f
			for l := range b.listeners {
				select {
				case l.C <- f:
				default:
					// listener too slow, drop frame to keep broadcast moving
					b.dropped++
				}
			}
			b.mu.Unlock()
		}
	}
}
