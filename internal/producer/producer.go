// Package producer defines the content-source contract a layer plays from,
// the shared empty producer, and the stock producers the control surface
// can create.
package producer

import (
	"github.com/google/uuid"

	"github.com/satindergrewal/slotmix/internal/frame"
)

// Producer is a content source pulled once per tick by a layer.
//
// Receive returns the next frame, frame.EOF() once the content is exhausted,
// or an error on failure. A layer treats an error (or a panic) as final for
// the producer and never pulls from it again.
//
// Successor links are how end-of-content auto-advance finds what plays next;
// Successor must return Empty() when nothing is linked. The predecessor is
// context only (for example the source of a transition) and must not be
// retained past the point it is needed.
type Producer interface {
	Receive() (*frame.Frame, error)
	SetSuccessor(p Producer)
	SetPredecessor(p Producer)
	Successor() Producer
	Label() string
}

type emptyProducer struct{}

func (emptyProducer) Receive() (*frame.Frame, error) { return frame.Empty(), nil }
func (emptyProducer) SetSuccessor(Producer)          {}
func (emptyProducer) SetPredecessor(Producer)        {}
func (emptyProducer) Successor() Producer            { return empty }
func (emptyProducer) Label() string                  { return "empty" }

var empty Producer = &emptyProducer{}

// Empty returns the shared producer that always yields frame.Empty().
// Compare against it by identity to test for "nothing loaded".
func Empty() Producer { return empty }

// Links holds the successor of a producer. Embed it to get the chaining half
// of the Producer interface. The predecessor is not kept: a producer that
// needs its predecessor (a transition) holds it itself and lets go of it
// once finished, so a played-out chain is never kept reachable from the
// producer that replaced it.
type Links struct {
	successor Producer
}

// SetSuccessor registers p as the producer to advance to on EOF.
func (l *Links) SetSuccessor(p Producer) { l.successor = p }

// SetPredecessor does nothing.
func (l *Links) SetPredecessor(Producer) {}

// Successor returns the linked successor, or Empty().
func (l *Links) Successor() Producer {
	if l.successor == nil {
		return empty
	}
	return l.successor
}

// instanceID returns a short unique id used in producer labels.
func instanceID() string {
	return uuid.NewString()[:8]
}
