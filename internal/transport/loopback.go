package transport

import (
	"iter"
	"slices"
	"sync"

	"github.com/vovakirdan/fpsnet/internal/protocol"
)

// Conditioner degrades a loopback link in a reproducible way. Delay is counted
// in receiver polls rather than wall time, so tick-driven tests never sleep.
type Conditioner struct {
	// DelayPolls holds every message back for this many extra receiver polls.
	// Zero delivers on the receiver's next poll.
	DelayPolls int
	// Drop decides per unreliable message whether it is lost.
	Drop func(protocol.Message) bool
	// Reorder reverses the unreliable messages of every delivered batch.
	Reorder bool
}

// Hub is an in-memory network with one server endpoint and any number of
// client endpoints. Messages are encoded on send and decoded on delivery, so
// in-process sessions use the exact wire format.
type Hub struct {
	mu         sync.Mutex
	cond       Conditioner
	outboxSize int
	server     *Endpoint
	links      []*link
	nextID     protocol.ConnID
	closed     bool
	dropped    int
}

type link struct {
	id          protocol.ConnID
	client      *Endpoint
	up          []pending // client to server
	down        []pending // server to client
	closed      bool
	partitioned bool
}

type pending struct {
	due   uint64
	class protocol.Class
	data  []byte
	note  Envelope // lifecycle notice when data is nil
}

// Endpoint is one side of the hub. It implements Transport.
type Endpoint struct {
	hub   *Hub
	link  *link // nil for the server endpoint
	polls uint64
	ready inbox
}

// NewHub creates an empty in-memory network.
func NewHub(cond Conditioner) *Hub {
	h := &Hub{cond: cond, outboxSize: DefaultOutboxSize}
	h.server = &Endpoint{hub: h}
	return h
}

// NewLoopback creates a hub with one connected client and returns both ends.
func NewLoopback(cond Conditioner) (server, client *Endpoint) {
	h := NewHub(cond)
	return h.Server(), h.Dial()
}

// SetOutboxSize changes the per-direction queue bound for new messages.
func (h *Hub) SetOutboxSize(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n > 0 {
		h.outboxSize = n
	}
}

// Server returns the server endpoint.
func (h *Hub) Server() *Endpoint {
	return h.server
}

// Dial connects a new client. The server sees KindConnected on a later poll.
func (h *Hub) Dial() *Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	l := &link{id: h.nextID}
	l.client = &Endpoint{hub: h, link: l}
	if h.closed {
		l.closed = true
		l.client.ready.push(Envelope{Conn: ServerConn, Kind: KindDisconnected, Reason: protocol.ReasonServerShutdown})
		return l.client
	}
	h.links = append(h.links, l)
	l.up = append(l.up, h.notice(h.server, Envelope{Conn: l.id, Kind: KindConnected}))
	l.down = append(l.down, h.notice(l.client, Envelope{Conn: ServerConn, Kind: KindConnected}))
	return l.client
}

// Partition cuts or restores a link. While cut, everything sent either way
// is lost, including reliable messages; liveness timeouts take over.
func (h *Hub) Partition(conn protocol.ConnID, cut bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l := h.find(conn); l != nil {
		l.partitioned = cut
	}
}

// Dropped returns how many messages the conditioner or a full outbox discarded.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hub) find(conn protocol.ConnID) *link {
	for _, l := range h.links {
		if l.id == conn && !l.closed {
			return l
		}
	}
	return nil
}

func (h *Hub) due(receiver *Endpoint) uint64 {
	return receiver.polls + 1 + uint64(max(0, h.cond.DelayPolls))
}

func (h *Hub) notice(receiver *Endpoint, e Envelope) pending {
	return pending{due: h.due(receiver), class: protocol.Reliable, note: e}
}

// enqueue must be called with h.mu held.
func (h *Hub) enqueue(l *link, toServer bool, msg protocol.Message) {
	if l.partitioned {
		h.dropped++
		return
	}
	class := msg.Class()
	if class == protocol.Unreliable && h.cond.Drop != nil && h.cond.Drop(msg) {
		h.dropped++
		return
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		h.dropped++
		return
	}

	q, receiver := &l.down, l.client
	if toServer {
		q, receiver = &l.up, h.server
	}

	if len(*q) >= h.outboxSize {
		i := slices.IndexFunc(*q, func(p pending) bool { return p.class == protocol.Unreliable })
		switch {
		case i >= 0:
			*q = slices.Delete(*q, i, i+1)
			h.dropped++
		case class == protocol.Reliable:
			h.closeLink(l, protocol.ReasonTransportClosed, true, true)
			return
		default:
			h.dropped++
			return
		}
	}
	*q = append(*q, pending{due: h.due(receiver), class: class, data: data})
}

// closeLink must be called with h.mu held.
func (h *Hub) closeLink(l *link, reason string, notifyServer, notifyClient bool) {
	if l.closed {
		return
	}
	l.closed = true
	if notifyServer {
		l.up = append(l.up, h.notice(h.server, Envelope{Conn: l.id, Kind: KindDisconnected, Reason: reason}))
	} else {
		l.up = nil
	}
	if notifyClient {
		l.down = append(l.down, h.notice(l.client, Envelope{Conn: ServerConn, Kind: KindDisconnected, Reason: reason}))
	} else {
		l.down = nil
	}
}

// deliver moves every due message for e into its ready queue.
func (h *Hub) deliver(e *Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e.polls++
	if e.link != nil {
		h.take(e, &e.link.down, ServerConn)
		return
	}
	for _, l := range h.links {
		h.take(e, &l.up, l.id)
	}
	h.links = slices.DeleteFunc(h.links, func(l *link) bool {
		return l.closed && len(l.up) == 0 && len(l.down) == 0
	})
}

func (h *Hub) take(e *Endpoint, q *[]pending, from protocol.ConnID) {
	n := 0
	for n < len(*q) && (*q)[n].due <= e.polls {
		n++
	}
	if n == 0 {
		return
	}
	batch := slices.Clone((*q)[:n])
	*q = slices.Delete(*q, 0, n)

	var unreliable []pending
	for _, p := range batch {
		if p.class == protocol.Unreliable {
			unreliable = append(unreliable, p)
			continue
		}
		h.push(e, p, from)
	}
	if h.cond.Reorder {
		slices.Reverse(unreliable)
	}
	for _, p := range unreliable {
		h.push(e, p, from)
	}
}

func (h *Hub) push(e *Endpoint, p pending, from protocol.ConnID) {
	if p.data == nil {
		e.ready.push(p.note)
		return
	}
	msg, err := protocol.Decode(p.data)
	if err != nil {
		h.dropped++
		return
	}
	e.ready.push(Envelope{Conn: from, Kind: KindMessage, Message: msg})
}

// Send implements Transport. A client endpoint ignores conn.
func (e *Endpoint) Send(conn protocol.ConnID, msg protocol.Message) {
	h := e.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if e.link != nil {
		if !e.link.closed {
			h.enqueue(e.link, true, msg)
		}
		return
	}
	if l := h.find(conn); l != nil {
		h.enqueue(l, false, msg)
	}
}

// Poll implements Transport.
func (e *Endpoint) Poll() iter.Seq[Envelope] {
	return func(yield func(Envelope) bool) {
		e.hub.deliver(e)
		e.ready.drain()(yield)
	}
}

// Drop implements Transport. On a client endpoint it disconnects from the server.
func (e *Endpoint) Drop(conn protocol.ConnID, reason string) {
	h := e.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if e.link != nil {
		h.closeLink(e.link, reason, true, false)
		return
	}
	if l := h.find(conn); l != nil {
		h.closeLink(l, reason, false, true)
	}
}

// Close implements Transport. Closing the server endpoint disconnects every client.
func (e *Endpoint) Close() error {
	if e.link != nil {
		e.Drop(ServerConn, protocol.ReasonQuit)
		return nil
	}
	h := e.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, l := range h.links {
		h.closeLink(l, protocol.ReasonServerShutdown, false, true)
	}
	return nil
}
