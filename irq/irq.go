// Package irq routes edge triggered interrupt lines to registered
// handlers.  A line may be shared by several devices, so a handler
// reports whether the edge was actually caused by its device.  Edges
// claimed by nobody are counted as spurious.
package irq

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Outcome is a handler's verdict on an edge.
type Outcome int

const (
	NotMine Outcome = iota // edge was caused by another device on the line
	Claimed                // edge was handled
)

// Handler services one edge.  It runs in the delivery context of the
// line and must not block.
type Handler func() Outcome

var ErrShared = errors.New("irq: line conflicts with registered handler")

// Line is an edge triggered interrupt line.  Raise delivers one edge to
// the registered handlers in registration order until one claims it.
//
// The zero value is an unconnected line, ready for use.
type Line struct {
	mu       sync.Mutex
	handlers []Handler
	shared   bool

	spurious atomic.Uint32
}

// Register adds h to the line.  A line can hold multiple handlers only
// if every registration allows sharing.
func (l *Line) Register(h Handler, shared bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.handlers) > 0 && !(l.shared && shared) {
		return ErrShared
	}
	l.handlers = append(l.handlers, h)
	l.shared = shared
	return nil
}

// Raise delivers one edge.  It returns NotMine if no handler claimed
// the edge, in which case the edge is counted as spurious.
func (l *Line) Raise() Outcome {
	l.mu.Lock()
	handlers := l.handlers
	l.mu.Unlock()

	for _, h := range handlers {
		if h() == Claimed {
			return Claimed
		}
	}
	l.spurious.Add(1)
	return NotMine
}

// Spurious returns the number of edges no handler claimed.
func (l *Line) Spurious() uint32 { return l.spurious.Load() }
