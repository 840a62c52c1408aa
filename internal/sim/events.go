package sim

import "github.com/vovakirdan/fpsnet/internal/protocol"

// Event is a session event raised by the server for excluded collaborators
// such as a UI or the history store.
type Event interface {
	simEvent()
}

// PlayerJoined is raised when a handshake completes and an entity is spawned.
type PlayerJoined struct {
	Tick     uint64
	Conn     protocol.ConnID
	Entity   protocol.EntityID
	ClientID string
	Name     string
}

func (PlayerJoined) simEvent() {}

// PlayerReady is raised when a client confirms its generated world.
type PlayerReady struct {
	Tick   uint64
	Conn   protocol.ConnID
	Entity protocol.EntityID
}

func (PlayerReady) simEvent() {}

// PlayerLeft is raised when a connection and its entity are removed.
type PlayerLeft struct {
	Tick   uint64
	Conn   protocol.ConnID
	Entity protocol.EntityID
	Reason string
}

func (PlayerLeft) simEvent() {}

// ConnectionRejected is raised when a handshake is refused.
type ConnectionRejected struct {
	Tick   uint64
	Conn   protocol.ConnID
	Reason string
}

func (ConnectionRejected) simEvent() {}

// Recorder receives every event as it happens. Implementations must not block.
type Recorder interface {
	Record(Event)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Event)

// Record implements Recorder.
func (f RecorderFunc) Record(e Event) { f(e) }
