package feed

import (
	"sync"

	"github.com/AdhubOrg/rebase-bot/internal/events"
)

// Buffer accumulates normalized events between digests. Insertion order is
// preserved; it matters for commit display order inside a digest. The buffer
// is owned by the ingestion/digest subsystem and only mutated through
// Append and DrainAll.
type Buffer struct {
	mu     sync.Mutex
	events []events.Event
}

// NewBuffer creates an empty event buffer
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds one event to the end of the buffer
func (b *Buffer) Append(ev events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, ev)
}

// DrainAll returns the full ordered snapshot and resets the buffer to empty.
// The returned slice is owned by the caller.
func (b *Buffer) DrainAll() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	drained := b.events
	b.events = nil
	return drained
}

// PeekAll returns a copy of the current snapshot without mutating the buffer
func (b *Buffer) PeekAll() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := make([]events.Event, len(b.events))
	copy(snapshot, b.events)
	return snapshot
}

// Len returns the number of buffered events
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.events)
}
