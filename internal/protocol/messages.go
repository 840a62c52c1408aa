// Package protocol defines the messages exchanged between server and clients.
package protocol

import (
	"fmt"
	"strconv"

	"github.com/vovakirdan/fpsnet/internal/level"
	"github.com/vovakirdan/fpsnet/internal/movement"
)

// Version is bumped whenever a message layout or the shared movement and
// generation rules change. Peers with different versions refuse each other.
const Version = 1

// ConnID identifies one client connection on the server.
type ConnID uint32

// EntityID identifies a replicated entity. Assigned by the server, never reused
// within a session.
type EntityID uint32

// Class is the delivery class of a message.
type Class uint8

const (
	// Reliable messages arrive in order and are never lost, only delayed.
	Reliable Class = iota
	// Unreliable messages may be lost, duplicated or reordered.
	Unreliable
)

func (c Class) String() string {
	if c == Reliable {
		return "reliable"
	}
	return "unreliable"
}

// Message is implemented by every wire message.
type Message interface {
	Type() string
	Class() Class
}

// Disconnect and reject reasons.
const (
	ReasonTimeout            = "timeout"
	ReasonQuit               = "quit"
	ReasonServerFull         = "server full"
	ReasonVersionMismatch    = "version mismatch"
	ReasonGenerationMismatch = "generation mismatch"
	ReasonServerShutdown     = "server shutdown"
	ReasonTransportClosed    = "transport closed"
	ReasonProtocolViolation  = "protocol violation"
)

// Connect is the client's handshake request.
type Connect struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// Accept answers Connect with everything the client needs to build the same
// world as the server.
type Accept struct {
	Entity           EntityID        `json:"entity"`
	Seed             uint64          `json:"seed"`
	Tick             uint64          `json:"tick"`
	SnapshotInterval int             `json:"snapshot_interval"`
	Level            level.Params    `json:"level"`
	Movement         movement.Params `json:"movement"`
	Checksum         string          `json:"checksum"`
	Spawn            movement.State  `json:"spawn"`
	Color            string          `json:"color"`
}

// Reject refuses a Connect.
type Reject struct {
	Reason string `json:"reason"`
}

// Ready tells the server the client generated its world and is about to play.
type Ready struct {
	Checksum string `json:"checksum"`
}

// Input carries every command the server has not acknowledged yet, oldest
// first, so one lost packet is repaired by the next.
type Input struct {
	Ack      uint64             `json:"ack"` // newest snapshot tick seen by the client
	Commands []movement.Command `json:"cmds"`
}

// EntityState is one entry of a snapshot. State is confirmed after
// LastInput and is what the owner reconciles against. Predicted includes the
// server's dead reckoning over missing input and is what everyone else sees.
type EntityState struct {
	ID        EntityID       `json:"id"`
	Owner     ConnID         `json:"owner"`
	LastInput uint32         `json:"last_input"`
	State     movement.State `json:"state"`
	Predicted movement.State `json:"predicted"`
}

// Snapshot is the authoritative state of every entity at a server tick.
type Snapshot struct {
	Tick     uint64        `json:"tick"`
	Entities []EntityState `json:"entities"`
}

// Find returns the entry for an entity.
func (s Snapshot) Find(id EntityID) (EntityState, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return EntityState{}, false
}

// Joined announces a new entity.
type Joined struct {
	Entity EntityID `json:"entity"`
	Name   string   `json:"name"`
	Color  string   `json:"color"`
}

// Left announces the removal of an entity.
type Left struct {
	Entity EntityID `json:"entity"`
	Reason string   `json:"reason"`
}

// Disconnect ends a connection from either side.
type Disconnect struct {
	Reason string `json:"reason"`
}

func (Connect) Type() string    { return "connect" }
func (Accept) Type() string     { return "accept" }
func (Reject) Type() string     { return "reject" }
func (Ready) Type() string      { return "ready" }
func (Input) Type() string      { return "input" }
func (Snapshot) Type() string   { return "snapshot" }
func (Joined) Type() string     { return "joined" }
func (Left) Type() string       { return "left" }
func (Disconnect) Type() string { return "disconnect" }

func (Connect) Class() Class    { return Reliable }
func (Accept) Class() Class     { return Reliable }
func (Reject) Class() Class     { return Reliable }
func (Ready) Class() Class      { return Reliable }
func (Input) Class() Class      { return Unreliable }
func (Snapshot) Class() Class   { return Unreliable }
func (Joined) Class() Class     { return Reliable }
func (Left) Class() Class       { return Reliable }
func (Disconnect) Class() Class { return Reliable }

// FormatChecksum renders a geometry checksum as 16 hex digits. Strings keep
// the full 64 bits intact for peers whose JSON numbers are doubles.
func FormatChecksum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

// ParseChecksum reverses FormatChecksum.
func ParseChecksum(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("protocol: bad checksum %q: %w", s, err)
	}
	return v, nil
}
