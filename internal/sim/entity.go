package sim

import (
	"slices"

	"github.com/vovakirdan/fpsnet/internal/movement"
	"github.com/vovakirdan/fpsnet/internal/protocol"
)

// ConnState is the handshake state of a connection.
type ConnState uint8

const (
	// Loading connections were accepted and are generating their level.
	Loading ConnState = iota
	// Active connections confirmed their level; their inputs are applied.
	Active
)

func (s ConnState) String() string {
	if s == Active {
		return "active"
	}
	return "loading"
}

// Connection is one client's session on the server.
type Connection struct {
	ID        protocol.ConnID
	ClientID  string
	Name      string
	Entity    protocol.EntityID
	AckTick   uint64 // Newest snapshot tick the client reported seeing
	State     ConnState
	LastHeard uint64 // Tick of the last message received
	JoinedAt  uint64
}

// Entity is a simulated player.
//
// base is the confirmed state after LastInput. current is base advanced by
// one step of the last known command for every tick without real input, up to
// the extrapolation limit. When real commands arrive they are applied to base
// and current falls back onto it, so late commands replace the guesses they
// stood in for.
type Entity struct {
	ID    protocol.EntityID
	Owner protocol.ConnID
	Name  string
	Color string

	LastInput uint32

	base         movement.State
	current      movement.State
	lastCmd      movement.Command
	hasCmd       bool
	extrapolated int
	pending      []movement.Command // sorted by sequence, all > LastInput
}

// EntityView is a read-only copy of an entity.
type EntityView struct {
	ID           protocol.EntityID
	Owner        protocol.ConnID
	Name         string
	Color        string
	LastInput    uint32
	Confirmed    movement.State
	Current      movement.State
	Extrapolated int
	Pending      int
}

func (e *Entity) view() EntityView {
	return EntityView{
		ID:           e.ID,
		Owner:        e.Owner,
		Name:         e.Name,
		Color:        e.Color,
		LastInput:    e.LastInput,
		Confirmed:    e.base,
		Current:      e.current,
		Extrapolated: e.extrapolated,
		Pending:      len(e.pending),
	}
}

// enqueue inserts cmd in sequence order. Already applied or duplicate
// sequences are discarded; past the limit the oldest queued commands go.
func (e *Entity) enqueue(cmd movement.Command, limit int) {
	if cmd.Sequence <= e.LastInput {
		return
	}
	i, found := slices.BinarySearchFunc(e.pending, cmd.Sequence, func(c movement.Command, seq uint32) int {
		switch {
		case c.Sequence < seq:
			return -1
		case c.Sequence > seq:
			return 1
		}
		return 0
	})
	if found {
		return
	}
	e.pending = slices.Insert(e.pending, i, cmd)
	if over := len(e.pending) - limit; over > 0 {
		e.pending = slices.Delete(e.pending, 0, over)
	}
}

// advance runs one server tick for the entity.
func (e *Entity) advance(cfg Config, world movement.Collider) {
	n := min(len(e.pending), cfg.MaxInputsPerTick)
	for _, cmd := range e.pending[:n] {
		e.base = movement.Step(e.base, cmd, cfg.Movement, world)
		e.LastInput = cmd.Sequence
		e.lastCmd = cmd
		e.hasCmd = true
	}
	e.pending = slices.Delete(e.pending, 0, n)

	if !e.hasCmd {
		e.current = e.base
		return
	}

	if n > 0 {
		e.extrapolated = 0
		e.current = e.base
		return
	}
	if e.extrapolated < cfg.MaxExtrapolationTicks {
		e.extrapolated++
		e.current = movement.Step(e.current, e.lastCmd, cfg.Movement, world)
	}
}
