// Package session wires a run together for one of the three session modes
// and drives it on a fixed tick.
package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMode is returned for an unknown mode name.
var ErrInvalidMode = errors.New("session: invalid mode")

// Mode is the role of this process, chosen once at start-up.
type Mode uint8

const (
	// ModeServer runs the authoritative simulation and accepts remote clients.
	ModeServer Mode = iota + 1
	// ModeClient connects to a remote server and predicts locally.
	ModeClient
	// ModeSolo runs server and client in one process over a loopback link.
	ModeSolo
)

// ParseMode converts "server", "client" or "solo" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "server":
		return ModeServer, nil
	case "client":
		return ModeClient, nil
	case "solo":
		return ModeSolo, nil
	}
	return 0, fmt.Errorf("%w: %q (want server, client or solo)", ErrInvalidMode, s)
}

func (m Mode) String() string {
	switch m {
	case ModeServer:
		return "server"
	case ModeClient:
		return "client"
	case ModeSolo:
		return "solo"
	default:
		return "invalid"
	}
}

// RunsServer reports whether the mode hosts the authoritative simulation.
func (m Mode) RunsServer() bool { return m == ModeServer || m == ModeSolo }

// RunsClient reports whether the mode has a local player.
func (m Mode) RunsClient() bool { return m == ModeClient || m == ModeSolo }
