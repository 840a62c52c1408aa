package session

import (
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/fpsnet/internal/fixed"
	"github.com/vovakirdan/fpsnet/internal/level"
	"github.com/vovakirdan/fpsnet/internal/movement"
	"github.com/vovakirdan/fpsnet/internal/predict"
	"github.com/vovakirdan/fpsnet/internal/sim"
)

// InputSource supplies the local player's intent once per tick.
type InputSource interface {
	Next(tick uint64, f predict.Frame) predict.Intent
}

// FrameSink receives the view after every client tick. Implementations must
// return quickly and must not keep f.Remotes past the call.
type FrameSink interface {
	Present(f predict.Frame)
}

// EventSink receives the session events raised during a tick, server events
// first. Implementations must return quickly.
type EventSink interface {
	ServerEvent(e sim.Event)
	ClientEvent(e predict.Event)
}

// IdleInput stands still.
type IdleInput struct{}

// Next implements InputSource.
func (IdleInput) Next(uint64, predict.Frame) predict.Intent { return predict.Intent{} }

// WanderInput walks forward and turns to a new random heading every Hold
// ticks. The walk is reproducible for a given seed.
type WanderInput struct {
	rng     *level.RNG
	hold    uint64
	heading fixed.Angle
	sprint  bool
}

// NewWanderInput returns a wandering input. hold below 1 means one second.
func NewWanderInput(seed uint64, hold int) *WanderInput {
	if hold < 1 {
		hold = 60
	}
	return &WanderInput{rng: level.NewRNG(seed), hold: uint64(hold)}
}

// Next implements InputSource.
func (w *WanderInput) Next(tick uint64, _ predict.Frame) predict.Intent {
	if tick%w.hold == 1 || w.hold == 1 {
		w.heading = fixed.Angle(w.rng.Intn(1 << 16))
		w.sprint = w.rng.Intn(4) == 0
	}
	in := predict.Intent{Forward: fixed.One, Yaw: w.heading}
	if w.sprint {
		in.Actions |= movement.Sprint
	}
	return in
}

// DiscardSink drops every frame.
type DiscardSink struct{}

// Present implements FrameSink.
func (DiscardSink) Present(predict.Frame) {}

// LogSink is the headless renderer: it logs a one-line summary of the view
// every Every ticks and whenever the status changes.
type LogSink struct {
	Logger *log.Logger
	Every  uint64

	last     predict.Status
	degraded bool
}

// Present implements FrameSink.
func (s *LogSink) Present(f predict.Frame) {
	changed := f.Status != s.last || f.Degraded != s.degraded
	s.last, s.degraded = f.Status, f.Degraded
	if !changed && (s.Every == 0 || f.Tick%s.Every != 0) {
		return
	}
	p := f.Local.Position
	s.Logger.Info("frame",
		"tick", f.Tick,
		"server_tick", f.ServerTick,
		"status", f.Status,
		"degraded", f.Degraded,
		"pos", [3]float32{p.X(), p.Y(), p.Z()},
		"yaw", f.Local.Yaw,
		"remotes", len(f.Remotes),
		"pending", f.Pending,
		"corrections", f.Stats.Corrections,
		"resyncs", f.Stats.Resyncs,
	)
}

// DiscardEvents drops every event.
type DiscardEvents struct{}

// ServerEvent implements EventSink.
func (DiscardEvents) ServerEvent(sim.Event) {}

// ClientEvent implements EventSink.
func (DiscardEvents) ClientEvent(predict.Event) {}

// LogEvents logs every event as one line.
type LogEvents struct {
	Logger *log.Logger
}

// ServerEvent implements EventSink.
func (l LogEvents) ServerEvent(e sim.Event) {
	switch e := e.(type) {
	case sim.PlayerJoined:
		l.Logger.Info("player joined", "tick", e.Tick, "conn", e.Conn, "entity", e.Entity, "name", e.Name)
	case sim.PlayerReady:
		l.Logger.Info("player ready", "tick", e.Tick, "conn", e.Conn, "entity", e.Entity)
	case sim.PlayerLeft:
		l.Logger.Info("player left", "tick", e.Tick, "conn", e.Conn, "entity", e.Entity, "reason", e.Reason)
	case sim.ConnectionRejected:
		l.Logger.Info("connection rejected", "tick", e.Tick, "conn", e.Conn, "reason", e.Reason)
	}
}

// ClientEvent implements EventSink.
func (l LogEvents) ClientEvent(e predict.Event) {
	switch e := e.(type) {
	case predict.RemoteJoined:
		l.Logger.Info("remote joined", "tick", e.Tick, "entity", e.Entity, "name", e.Name)
	case predict.RemoteLeft:
		l.Logger.Info("remote left", "tick", e.Tick, "entity", e.Entity, "reason", e.Reason)
	}
}
