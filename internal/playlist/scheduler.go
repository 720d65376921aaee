package playlist

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/satindergrewal/slotmix/internal/channel"
	"github.com/satindergrewal/slotmix/internal/layer"
	"github.com/satindergrewal/slotmix/internal/producer"
)

// Config holds playlist parameters.
type Config struct {
	Layer       int               // layer the playlist owns
	Items       []producer.Params // played in order
	BufferAhead int               // producers to keep decoded and chained ahead
	Loop        bool              // start over after the last item
	Interval    time.Duration     // how often the chain is topped up
}

// Status is the current state of the playlist.
type Status struct {
	Layer int  `json:"layer"`
	Items int  `json:"items"`
	Next  int  `json:"next"`  // index of the next item to decode
	Ahead int  `json:"ahead"` // producers chained after the foreground
	Loop  bool `json:"loop"`
	Done  bool `json:"done"`
}

// Creator builds producers; *producer.Factory satisfies it.
type Creator interface {
	Create(p producer.Params) (producer.Producer, error)
}

// Scheduler keeps a layer fed from a list of media. Items are decoded off
// the tick and linked as successors of the layer's current chain, so the
// layer moves from one to the next on end-of-content without a gap.
type Scheduler struct {
	channel *channel.Channel
	creator Creator
	cfg     Config

	mu    sync.RWMutex
	next  int
	ahead int

	skipCh chan struct{}
}

// NewScheduler creates a playlist scheduler.
func NewScheduler(ch *channel.Channel, creator Creator, cfg Config) *Scheduler {
	if cfg.BufferAhead < 1 {
		cfg.BufferAhead = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Scheduler{
		channel: ch,
		creator: creator,
		cfg:     cfg,
		skipCh:  make(chan struct{}, 1),
	}
}

// Status returns the current playlist state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Layer: s.cfg.Layer,
		Items: len(s.cfg.Items),
		Next:  s.next,
		Ahead: s.ahead,
		Loop:  s.cfg.Loop,
		Done:  s.doneLocked(),
	}
}

// Skip moves the layer on to the next chained item.
func (s *Scheduler) Skip() {
	select {
	case s.skipCh <- struct{}{}:
	default:
	}
}

// Run starts the playlist loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("Playlist started on layer %d with %d items", s.cfg.Layer, len(s.cfg.Items))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.fill(ctx); err != nil {
			log.Printf("Playlist stopped: %v", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-s.skipCh:
			if err := s.skip(ctx); err != nil {
				log.Printf("Playlist stopped: %v", err)
				return
			}
		case <-ticker.C:
		}
	}
}

// fill decodes and chains items until BufferAhead producers wait after the
// foreground or the list is exhausted.
func (s *Scheduler) fill(ctx context.Context) error {
	failed := 0
	for failed < len(s.cfg.Items) {
		ahead, idle, err := s.inspect(ctx)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.ahead = ahead
		done := s.doneLocked()
		s.mu.Unlock()

		if done || (!idle && ahead >= s.cfg.BufferAhead) {
			return nil
		}

		p, ok := s.decodeNext()
		if !ok {
			failed++
			continue
		}

		err = s.channel.Exec(ctx, s.cfg.Layer, func(l *layer.Layer) {
			if l.Foreground() == producer.Empty() {
				l.Load(p, true)
				return
			}
			tail(l.Foreground()).SetSuccessor(p)
		})
		if err != nil {
			return err
		}
		log.Printf("Playlist queued %s on layer %d", p.Label(), s.cfg.Layer)
	}
	return nil
}

// inspect counts the producers chained after the layer's foreground and
// reports whether nothing is playing.
func (s *Scheduler) inspect(ctx context.Context) (ahead int, idle bool, err error) {
	err = s.channel.Exec(ctx, s.cfg.Layer, func(l *layer.Layer) {
		idle = l.Foreground() == producer.Empty()
		ahead = chainLength(l.Foreground())
	})
	return ahead, idle, err
}

// decodeNext creates the producer for the next item. A broken item is logged
// and skipped.
func (s *Scheduler) decodeNext() (producer.Producer, bool) {
	s.mu.Lock()
	if s.next >= len(s.cfg.Items) && s.cfg.Loop {
		s.next = 0
	}
	idx := s.next
	item := s.cfg.Items[idx]
	s.next++
	s.mu.Unlock()

	p, err := s.creator.Create(item)
	if err != nil {
		log.Printf("Playlist item %d (%s) failed: %v", idx, item.Path, err)
		return nil, false
	}
	return p, true
}

func (s *Scheduler) skip(ctx context.Context) error {
	return s.channel.Exec(ctx, s.cfg.Layer, func(l *layer.Layer) {
		next := l.Foreground().Successor()
		if next == producer.Empty() {
			l.Stop()
			log.Printf("Playlist skip: nothing queued on layer %d", s.cfg.Layer)
			return
		}
		l.Load(next, true)
		log.Printf("Playlist skipped to %s", next.Label())
	})
}

// doneLocked reports whether every item has been handed out. Must be called
// with mu held.
func (s *Scheduler) doneLocked() bool {
	if len(s.cfg.Items) == 0 {
		return true
	}
	return !s.cfg.Loop && s.next >= len(s.cfg.Items)
}

// tail walks successor links to the last producer of a chain.
func tail(p producer.Producer) producer.Producer {
	for i := 0; i < layer.MaxAdvance; i++ {
		next := p.Successor()
		if next == producer.Empty() {
			break
		}
		p = next
	}
	return p
}

// chainLength counts the producers linked after p.
func chainLength(p producer.Producer) int {
	n := 0
	for i := 0; i < layer.MaxAdvance; i++ {
		p = p.Successor()
		if p == producer.Empty() {
			break
		}
		n++
	}
	return n
}
