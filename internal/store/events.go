package store

import (
	"sync"

	"draftpad/pkg/draftdoc"
)

type EventKind int

const (
	EventChanged EventKind = iota + 1
	EventLoaded
	EventSaved
	EventSaveFailed
	EventReloaded
)

func (k EventKind) String() string {
	switch k {
	case EventChanged:
		return "changed"
	case EventLoaded:
		return "loaded"
	case EventSaved:
		return "saved"
	case EventSaveFailed:
		return "save-failed"
	case EventReloaded:
		return "reloaded"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers. Doc is set for EventLoaded and
// EventReloaded; Err for EventSaveFailed and a failed EventLoaded.
type Event struct {
	Kind EventKind
	Doc  *draftdoc.Document
	Err  error
}

// Subscribe registers fn for store events and returns a function that removes
// it. fn runs on whichever goroutine produced the event, outside the store's
// locks.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) emit(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// EventQueue buffers events for a consumer that polls, such as a frame loop.
// Push never blocks and never drops.
type EventQueue struct {
	mu     sync.Mutex
	events []Event
}

func (q *EventQueue) Push(ev Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

// Take returns the queued events in arrival order and empties the queue.
func (q *EventQueue) Take() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}
