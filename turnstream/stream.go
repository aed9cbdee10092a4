package turnstream

import (
	"context"
	"sync"
)

// DefaultBufferSize is used when NewStream is given a non-positive size.
const DefaultBufferSize = 64

// Stream is the ordered sequence of Events produced for one user message.
// The consumer reads Events until the channel closes, then checks Err.
type Stream struct {
	ch  chan Event
	err error
	mu  sync.Mutex
}

// Emitter is the producer side of a Stream. Emit may be called from several
// goroutines; Close waits for in-flight emits before closing the channel.
type Emitter struct {
	s      *Stream
	mu     sync.RWMutex
	closed bool
}

// NewStream creates a Stream and the Emitter that feeds it.
func NewStream(bufferSize int) (*Stream, *Emitter) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	s := &Stream{ch: make(chan Event, bufferSize)}
	return s, &Emitter{s: s}
}

// FromEvents returns an already-closed Stream holding events in order.
func FromEvents(events ...Event) *Stream {
	s, em := NewStream(len(events))
	for _, ev := range events {
		em.Emit(context.Background(), ev)
	}
	em.Close(nil)
	return s
}

// Failed returns an already-closed, empty Stream whose terminal error is err.
func Failed(err error) *Stream {
	s, em := NewStream(1)
	em.Close(err)
	return s
}

// Events returns the receive side of the stream. It is closed once the
// producer calls Close.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// Err returns the error attached to the stream's terminal state. It is only
// meaningful after the event channel has been closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Emit delivers ev to the consumer, blocking until there is room. Events are
// never dropped. It returns false if the emitter is closed or ctx ends first.
func (e *Emitter) Emit(ctx context.Context, ev Event) bool {
	if ev == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}
	select {
	case e.s.ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close ends the stream. A non-nil err becomes the stream's terminal error.
// Only the first call has an effect.
func (e *Emitter) Close(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.s.mu.Lock()
	e.s.err = err
	e.s.mu.Unlock()
	close(e.s.ch)
}
