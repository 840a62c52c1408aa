package session

import (
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/fpsnet/internal/predict"
	"github.com/vovakirdan/fpsnet/internal/sim"
	"github.com/vovakirdan/fpsnet/internal/storage"
)

// HistoryStore persists session history. *storage.Store implements it.
type HistoryStore interface {
	BeginSession(rec storage.SessionRecord) error
	RecordEvent(e storage.EventRecord) (int64, error)
	EndSession(id string, ticks uint64, reason string) error
}

var _ HistoryStore = (*storage.Store)(nil)

// History records one session and its connection events. Write failures are
// logged and never interrupt the simulation.
type History struct {
	store  HistoryStore
	logger *log.Logger
	id     string
	tried  bool
	begun  bool
}

// NewHistory creates a recorder with a fresh session id.
func NewHistory(store HistoryStore, logger *log.Logger) *History {
	return &History{store: store, logger: logger, id: uuid.NewString()}
}

// ID returns the session id.
func (h *History) ID() string { return h.id }

// Begin records the session start.
func (h *History) Begin(mode Mode, seed uint64, checksum string) {
	if h.tried {
		return
	}
	h.tried = true
	err := h.store.BeginSession(storage.SessionRecord{ID: h.id, Mode: mode.String(), Seed: seed, Checksum: checksum})
	if err != nil {
		h.logger.Error("history unavailable", "err", err)
		return
	}
	h.begun = true
}

// Record implements sim.Recorder.
func (h *History) Record(e sim.Event) {
	if !h.begun {
		return
	}
	rec := storage.EventRecord{SessionID: h.id}
	switch e := e.(type) {
	case sim.PlayerJoined:
		rec.Kind, rec.Tick, rec.Conn, rec.Entity, rec.Name = "joined", e.Tick, uint32(e.Conn), uint32(e.Entity), e.Name
	case sim.PlayerReady:
		rec.Kind, rec.Tick, rec.Conn, rec.Entity = "ready", e.Tick, uint32(e.Conn), uint32(e.Entity)
	case sim.PlayerLeft:
		rec.Kind, rec.Tick, rec.Conn, rec.Entity, rec.Reason = "left", e.Tick, uint32(e.Conn), uint32(e.Entity), e.Reason
	case sim.ConnectionRejected:
		rec.Kind, rec.Tick, rec.Conn, rec.Reason = "rejected", e.Tick, uint32(e.Conn), e.Reason
	default:
		return
	}
	h.write(rec)
}

// RecordClient records what a client without a local server learned about
// other players. Connection ids are not known to clients and stay zero.
func (h *History) RecordClient(e predict.Event) {
	if !h.begun {
		return
	}
	rec := storage.EventRecord{SessionID: h.id}
	switch e := e.(type) {
	case predict.RemoteJoined:
		rec.Kind, rec.Tick, rec.Entity, rec.Name = "joined", e.Tick, uint32(e.Entity), e.Name
	case predict.RemoteLeft:
		rec.Kind, rec.Tick, rec.Entity, rec.Reason = "left", e.Tick, uint32(e.Entity), e.Reason
	default:
		return
	}
	h.write(rec)
}

func (h *History) write(rec storage.EventRecord) {
	if _, err := h.store.RecordEvent(rec); err != nil {
		h.logger.Error("cannot record session event", "kind", rec.Kind, "err", err)
	}
}

// End records the session end.
func (h *History) End(ticks uint64, reason string) {
	if !h.begun {
		return
	}
	if err := h.store.EndSession(h.id, ticks, reason); err != nil {
		h.logger.Error("cannot close session history", "err", err)
	}
	h.begun = false
}
