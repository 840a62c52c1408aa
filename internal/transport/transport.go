// Package transport moves protocol messages between one server and its
// clients. Sending never blocks and receiving is a per-tick drain, so the
// simulation loop never waits on the network.
package transport

import (
	"iter"
	"sync"

	"github.com/vovakirdan/fpsnet/internal/protocol"
)

// ServerConn is the connection id a client uses to address its server.
const ServerConn protocol.ConnID = 0

// DefaultOutboxSize bounds the messages queued per connection and direction.
const DefaultOutboxSize = 256

// Kind distinguishes messages from connection lifecycle notices.
type Kind uint8

const (
	KindMessage Kind = iota
	KindConnected
	KindDisconnected
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindConnected:
		return "connected"
	case KindDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Envelope is one item returned by Poll.
type Envelope struct {
	Conn    protocol.ConnID
	Kind    Kind
	Message protocol.Message // set for KindMessage
	Reason  string           // set for KindDisconnected
}

// Transport is the endpoint seen by the simulation.
type Transport interface {
	// Send queues msg for conn. It never blocks. Unknown or closed connections
	// are ignored.
	Send(conn protocol.ConnID, msg protocol.Message)

	// Poll returns everything received since the previous drain. Iteration is
	// lazy and bounded by what was queued when it started; stopping early keeps
	// the rest for the next Poll.
	Poll() iter.Seq[Envelope]

	// Drop closes one connection. The peer observes KindDisconnected.
	Drop(conn protocol.ConnID, reason string)

	// Close shuts the endpoint and all of its connections.
	Close() error
}

// inbox is a FIFO of envelopes filled by network goroutines and drained by the
// tick loop.
type inbox struct {
	mu    sync.Mutex
	items []Envelope
}

func (q *inbox) push(e Envelope) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
}

func (q *inbox) pop() (Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Envelope{}, false
	}
	e := q.items[0]
	q.items[0] = Envelope{}
	q.items = q.items[1:]
	return e, true
}

func (q *inbox) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// drain yields at most the number of items present when iteration starts.
// The lock is never held while yielding, so consumers may call Send.
func (q *inbox) drain() iter.Seq[Envelope] {
	return func(yield func(Envelope) bool) {
		n := q.len()
		for i := 0; i < n; i++ {
			e, ok := q.pop()
			if !ok || !yield(e) {
				return
			}
		}
	}
}
