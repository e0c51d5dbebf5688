// Package session tracks connected players: who they are, which character id
// stands for them in the world graph, and the outbox other players' actions
// are delivered through.
package session

import (
	"fmt"
	"sync"
)

// Outbox buffers lines pushed to one player by other players, e.g. speech
// and arrivals. The player's connection goroutine drains Lines.
type Outbox struct {
	uid    string
	lines  chan string
	mu     sync.Mutex
	closed bool
}

// NewOutbox creates an Outbox for the given player UID.
//
// Precondition: uid must be non-empty.
// Postcondition: Returns an Outbox with an open channel of at least one slot.
func NewOutbox(uid string, bufferSize int) *Outbox {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Outbox{
		uid:   uid,
		lines: make(chan string, bufferSize),
	}
}

// Push enqueues a line without blocking.
//
// Postcondition: The line is enqueued, or an error is returned when the
// outbox is closed or full.
func (o *Outbox) Push(line string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("outbox %s is closed", o.uid)
	}
	select {
	case o.lines <- line:
		return nil
	default:
		return fmt.Errorf("outbox %s buffer full", o.uid)
	}
}

// Lines returns the read-only channel of pushed lines.
func (o *Outbox) Lines() <-chan string {
	return o.lines
}

// Close closes the channel. Idempotent.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.lines)
	}
}

// IsClosed reports whether the outbox has been closed.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
