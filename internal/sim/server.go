// Package sim is the authoritative server simulation. It owns the canonical
// state of every entity and advances it on a fixed tick from client inputs.
package sim

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/elliotchance/orderedmap/v2"

	"github.com/vovakirdan/fpsnet/internal/level"
	"github.com/vovakirdan/fpsnet/internal/movement"
	"github.com/vovakirdan/fpsnet/internal/protocol"
	"github.com/vovakirdan/fpsnet/internal/transport"
)

var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("sim: invalid configuration")
	// ErrNoGeometry is returned when a server is built before its level exists.
	ErrNoGeometry = errors.New("sim: level geometry required before the first tick")
)

// Config holds the server tuning.
type Config struct {
	MaxClients            int
	SnapshotInterval      int // Ticks between snapshots, 1 sends every tick
	TimeoutTicks          int // Silence after which a connection is dropped
	MaxInputsPerTick      int // Real commands applied per entity per tick
	MaxExtrapolationTicks int // Dead-reckoned steps allowed ahead of confirmed input
	MaxPendingInputs      int // Queued commands kept per connection
	Movement              movement.Params

	Logger   *log.Logger
	Recorder Recorder
}

// DefaultConfig returns a config for a 60 Hz server sending 30 snapshots per second.
func DefaultConfig() Config {
	return Config{
		MaxClients:            16,
		SnapshotInterval:      2,
		TimeoutTicks:          300,
		MaxInputsPerTick:      8,
		MaxExtrapolationTicks: 15,
		MaxPendingInputs:      64,
		Movement:              movement.DefaultParams(),
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	switch {
	case c.MaxClients < 1:
		return fmt.Errorf("%w: max clients must be at least 1", ErrInvalidConfig)
	case c.SnapshotInterval < 1:
		return fmt.Errorf("%w: snapshot interval must be at least 1 tick", ErrInvalidConfig)
	case c.TimeoutTicks < 1:
		return fmt.Errorf("%w: timeout must be at least 1 tick", ErrInvalidConfig)
	case c.MaxInputsPerTick < 1:
		return fmt.Errorf("%w: max inputs per tick must be at least 1", ErrInvalidConfig)
	case c.MaxExtrapolationTicks < 0:
		return fmt.Errorf("%w: max extrapolation must not be negative", ErrInvalidConfig)
	case c.MaxPendingInputs < c.MaxInputsPerTick:
		return fmt.Errorf("%w: max pending inputs below inputs per tick", ErrInvalidConfig)
	}
	return c.Movement.Validate()
}

// Server is the authoritative simulation. It is single-writer: Tick must be
// called from one goroutine, and nothing else mutates entity state.
type Server struct {
	cfg      Config
	geo      *level.Geometry
	tr       transport.Transport
	logger   *log.Logger
	checksum string

	tick       uint64
	nextEntity protocol.EntityID

	// handshaking tracks transport connections that have not sent connect yet.
	handshaking *orderedmap.OrderedMap[protocol.ConnID, uint64]
	conns       *orderedmap.OrderedMap[protocol.ConnID, *Connection]
	entities    *orderedmap.OrderedMap[protocol.EntityID, *Entity]

	events []Event
}

// NewServer creates a server for an already generated level.
func NewServer(cfg Config, geo *level.Geometry, tr transport.Transport) (*Server, error) {
	if geo == nil {
		return nil, ErrNoGeometry
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		cfg:         cfg,
		geo:         geo,
		tr:          tr,
		logger:      logger,
		checksum:    protocol.FormatChecksum(geo.Checksum()),
		handshaking: orderedmap.NewOrderedMap[protocol.ConnID, uint64](),
		conns:       orderedmap.NewOrderedMap[protocol.ConnID, *Connection](),
		entities:    orderedmap.NewOrderedMap[protocol.EntityID, *Entity](),
	}, nil
}

// Now returns the number of completed ticks.
func (s *Server) Now() uint64 { return s.tick }

// Geometry returns the level shared with clients.
func (s *Server) Geometry() *level.Geometry { return s.geo }

// Tick runs one fixed step: CollectInputs, AdvanceEntities, liveness check,
// ProduceSnapshot.
func (s *Server) Tick() {
	s.tick++
	s.collectInputs()
	s.advanceEntities()
	s.checkLiveness()
	if s.tick%uint64(s.cfg.SnapshotInterval) == 0 {
		s.broadcastSnapshot()
	}
}

// Events returns and clears the events raised since the previous call.
func (s *Server) Events() []Event {
	out := s.events
	s.events = nil
	return out
}

// Shutdown tells every client the session is over.
func (s *Server) Shutdown() {
	for el := s.conns.Front(); el != nil; el = el.Next() {
		s.tr.Send(el.Key, protocol.Disconnect{Reason: protocol.ReasonServerShutdown})
	}
}

func (s *Server) emit(e Event) {
	s.events = append(s.events, e)
	if s.cfg.Recorder != nil {
		s.cfg.Recorder.Record(e)
	}
}

func (s *Server) collectInputs() {
	for env := range s.tr.Poll() {
		switch env.Kind {
		case transport.KindConnected:
			if _, ok := s.conns.Get(env.Conn); !ok {
				s.handshaking.Set(env.Conn, s.tick)
			}
		case transport.KindDisconnected:
			s.handshaking.Delete(env.Conn)
			reason := env.Reason
			if reason == "" {
				reason = protocol.ReasonTransportClosed
			}
			s.removeConnection(env.Conn, reason, false)
		case transport.KindMessage:
			s.handleMessage(env.Conn, env.Message)
		}
	}
}

func (s *Server) handleMessage(id protocol.ConnID, msg protocol.Message) {
	conn, known := s.conns.Get(id)
	if known {
		conn.LastHeard = s.tick
	} else if _, ok := s.handshaking.Get(id); ok {
		s.handshaking.Set(id, s.tick)
	}

	switch m := msg.(type) {
	case protocol.Connect:
		if known {
			return
		}
		s.handleConnect(id, m)
	case protocol.Ready:
		if known {
			s.handleReady(conn, m)
		}
	case protocol.Input:
		if known && conn.State == Active {
			s.handleInput(conn, m)
		}
	case protocol.Disconnect:
		s.handshaking.Delete(id)
		reason := m.Reason
		if reason == "" {
			reason = protocol.ReasonQuit
		}
		s.removeConnection(id, reason, true)
	default:
		s.logger.Debug("ignoring unexpected message", "conn", id, "type", msg.Type())
	}
}

func (s *Server) reject(id protocol.ConnID, reason string) {
	s.logger.Warn("rejecting connection", "conn", id, "reason", reason)
	s.tr.Send(id, protocol.Reject{Reason: reason})
	s.tr.Drop(id, reason)
	s.handshaking.Delete(id)
	s.emit(ConnectionRejected{Tick: s.tick, Conn: id, Reason: reason})
}

func (s *Server) handleConnect(id protocol.ConnID, m protocol.Connect) {
	if m.Version != protocol.Version {
		s.reject(id, protocol.ReasonVersionMismatch)
		return
	}
	if s.conns.Len() >= s.cfg.MaxClients {
		s.reject(id, protocol.ReasonServerFull)
		return
	}
	s.handshaking.Delete(id)

	s.nextEntity++
	eid := s.nextEntity
	spawn := movement.Spawn(s.geo.SpawnPoint(int(eid)))
	ent := &Entity{ID: eid, Owner: id, Name: m.Name, Color: ColorFor(eid), base: spawn, current: spawn}
	conn := &Connection{ID: id, ClientID: m.ClientID, Name: m.Name, Entity: eid, State: Loading, LastHeard: s.tick, JoinedAt: s.tick}
	s.entities.Set(eid, ent)
	s.conns.Set(id, conn)

	s.tr.Send(id, protocol.Accept{
		Entity:           eid,
		Seed:             s.geo.Seed(),
		Tick:             s.tick,
		SnapshotInterval: s.cfg.SnapshotInterval,
		Level:            s.geo.Params(),
		Movement:         s.cfg.Movement,
		Checksum:         s.checksum,
		Spawn:            spawn,
		Color:            ent.Color,
	})

	// The newcomer learns about everyone already here; everyone else learns
	// about the newcomer.
	for el := s.entities.Front(); el != nil; el = el.Next() {
		other := el.Value
		if other.ID == eid {
			continue
		}
		s.tr.Send(id, protocol.Joined{Entity: other.ID, Name: other.Name, Color: other.Color})
		s.tr.Send(other.Owner, protocol.Joined{Entity: eid, Name: m.Name, Color: ent.Color})
	}

	s.logger.Info("player joined", "conn", id, "entity", eid, "name", m.Name, "client", m.ClientID)
	s.emit(PlayerJoined{Tick: s.tick, Conn: id, Entity: eid, ClientID: m.ClientID, Name: m.Name})
}

func (s *Server) handleReady(conn *Connection, m protocol.Ready) {
	if conn.State != Loading {
		return
	}
	if m.Checksum != s.checksum {
		s.logger.Error("client generated a different level", "conn", conn.ID, "want", s.checksum, "got", m.Checksum)
		s.tr.Send(conn.ID, protocol.Reject{Reason: protocol.ReasonGenerationMismatch})
		s.removeConnection(conn.ID, protocol.ReasonGenerationMismatch, true)
		return
	}
	conn.State = Active
	s.emit(PlayerReady{Tick: s.tick, Conn: conn.ID, Entity: conn.Entity})
}

func (s *Server) handleInput(conn *Connection, m protocol.Input) {
	conn.AckTick = max(conn.AckTick, m.Ack)
	ent, ok := s.entities.Get(conn.Entity)
	if !ok {
		return
	}
	for _, cmd := range m.Commands {
		ent.enqueue(cmd, s.cfg.MaxPendingInputs)
	}
}

func (s *Server) advanceEntities() {
	for el := s.entities.Front(); el != nil; el = el.Next() {
		el.Value.advance(s.cfg, s.geo)
	}
}

func (s *Server) checkLiveness() {
	limit := uint64(s.cfg.TimeoutTicks)

	var expired []protocol.ConnID
	for el := s.conns.Front(); el != nil; el = el.Next() {
		if s.tick-el.Value.LastHeard > limit {
			expired = append(expired, el.Key)
		}
	}
	for _, id := range expired {
		s.logger.Warn("connection timed out", "conn", id)
		s.removeConnection(id, protocol.ReasonTimeout, true)
	}

	var silent []protocol.ConnID
	for el := s.handshaking.Front(); el != nil; el = el.Next() {
		if s.tick-el.Value > limit {
			silent = append(silent, el.Key)
		}
	}
	for _, id := range silent {
		s.handshaking.Delete(id)
		s.tr.Drop(id, protocol.ReasonTimeout)
	}
}

// removeConnection destroys a connection and its entity. drop also closes
// the transport connection; it is false when the transport already did.
func (s *Server) removeConnection(id protocol.ConnID, reason string, drop bool) {
	conn, ok := s.conns.Get(id)
	if !ok {
		if drop {
			s.tr.Drop(id, reason)
		}
		return
	}
	s.conns.Delete(id)
	s.entities.Delete(conn.Entity)
	if drop {
		s.tr.Drop(id, reason)
	}

	for el := s.conns.Front(); el != nil; el = el.Next() {
		s.tr.Send(el.Key, protocol.Left{Entity: conn.Entity, Reason: reason})
	}
	s.logger.Info("player left", "conn", id, "entity", conn.Entity, "reason", reason)
	s.emit(PlayerLeft{Tick: s.tick, Conn: id, Entity: conn.Entity, Reason: reason})
}

// Snapshot builds the snapshot for the current tick. Each entry carries the
// confirmed state after the entity's last applied input and the dead-reckoned
// state that hides missing input from other clients.
func (s *Server) Snapshot() protocol.Snapshot {
	snap := protocol.Snapshot{Tick: s.tick, Entities: make([]protocol.EntityState, 0, s.entities.Len())}
	for el := s.entities.Front(); el != nil; el = el.Next() {
		e := el.Value
		snap.Entities = append(snap.Entities, protocol.EntityState{
			ID:        e.ID,
			Owner:     e.Owner,
			LastInput: e.LastInput,
			State:     e.base,
			Predicted: e.current,
		})
	}
	return snap
}

func (s *Server) broadcastSnapshot() {
	snap := s.Snapshot()
	for el := s.conns.Front(); el != nil; el = el.Next() {
		if el.Value.State == Active {
			s.tr.Send(el.Key, snap)
		}
	}
}

// View returns every entity's current canonical state, dead reckoning included.
func (s *Server) View() []EntityView {
	out := make([]EntityView, 0, s.entities.Len())
	for el := s.entities.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.view())
	}
	return out
}

// Entity returns one entity's view.
func (s *Server) Entity(id protocol.EntityID) (EntityView, bool) {
	e, ok := s.entities.Get(id)
	if !ok {
		return EntityView{}, false
	}
	return e.view(), true
}

// Connections returns copies of all connections in join order.
func (s *Server) Connections() []Connection {
	out := make([]Connection, 0, s.conns.Len())
	for el := s.conns.Front(); el != nil; el = el.Next() {
		out = append(out, *el.Value)
	}
	return out
}
