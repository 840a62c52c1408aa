package level

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vovakirdan/fpsnet/internal/fixed"
)

// MaxSeed is the largest accepted seed. Every seed up to 2^53-1 survives a
// round trip through any JSON peer without precision loss.
const MaxSeed = 1<<53 - 1

var (
	// ErrInvalidSeed is returned for seeds outside 1..MaxSeed.
	ErrInvalidSeed = errors.New("level: seed out of range")
	// ErrInvalidParams is returned when generation parameters are unusable.
	ErrInvalidParams = errors.New("level: invalid parameters")
)

// Params configures the room-grid generator.
type Params struct {
	Cols          int         `yaml:"cols" json:"cols"`                     // Rooms along X
	Rows          int         `yaml:"rows" json:"rows"`                     // Rooms along Z
	RoomSize      fixed.Fixed `yaml:"room_size" json:"room_size"`           // Edge length of a square room
	WallHeight    fixed.Fixed `yaml:"wall_height" json:"wall_height"`       // Height of every wall
	WallThickness fixed.Fixed `yaml:"wall_thickness" json:"wall_thickness"` // Full thickness of a wall
	DoorWidth     fixed.Fixed `yaml:"door_width" json:"door_width"`         // Gap left in an open boundary
	LoopChance    int         `yaml:"loop_chance" json:"loop_chance"`       // Percent chance of extra doors
	SpawnsPerRoom int         `yaml:"spawns_per_room" json:"spawns_per_room"`
}

// DefaultParams returns a 4x3 grid of 20 m rooms.
func DefaultParams() Params {
	return Params{
		Cols:          4,
		Rows:          3,
		RoomSize:      fixed.FromInt(20),
		WallHeight:    fixed.FromInt(4),
		WallThickness: fixed.Half,
		DoorWidth:     fixed.FromInt(3),
		LoopChance:    25,
		SpawnsPerRoom: 2,
	}
}

// Validate checks the parameters for consistency.
func (p Params) Validate() error {
	switch {
	case p.Cols < 1 || p.Cols > 16:
		return fmt.Errorf("%w: cols %d not in 1..16", ErrInvalidParams, p.Cols)
	case p.Rows < 1 || p.Rows > 16:
		return fmt.Errorf("%w: rows %d not in 1..16", ErrInvalidParams, p.Rows)
	case p.RoomSize < fixed.FromInt(4) || p.RoomSize > fixed.FromInt(1000):
		return fmt.Errorf("%w: room size %v not in 4..1000", ErrInvalidParams, p.RoomSize)
	case p.WallHeight <= 0:
		return fmt.Errorf("%w: wall height must be positive", ErrInvalidParams)
	case p.WallThickness <= 0 || p.WallThickness >= p.RoomSize/4:
		return fmt.Errorf("%w: wall thickness %v must be positive and below a quarter room", ErrInvalidParams, p.WallThickness)
	case p.DoorWidth <= 0 || p.DoorWidth >= p.RoomSize-2*p.WallThickness:
		return fmt.Errorf("%w: door width %v does not fit the room", ErrInvalidParams, p.DoorWidth)
	case p.LoopChance < 0 || p.LoopChance > 100:
		return fmt.Errorf("%w: loop chance %d not in 0..100", ErrInvalidParams, p.LoopChance)
	case p.SpawnsPerRoom < 1 || p.SpawnsPerRoom > 16:
		return fmt.Errorf("%w: spawns per room %d not in 1..16", ErrInvalidParams, p.SpawnsPerRoom)
	}
	return nil
}

// ValidateSeed reports whether seed is in the accepted range.
func ValidateSeed(seed uint64) error {
	if seed == 0 || seed > MaxSeed {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidSeed, seed, uint64(MaxSeed))
	}
	return nil
}

// RandomSeed picks a seed from the operating system's entropy source.
func RandomSeed() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("level: random seed: %w", err)
	}
	return binary.BigEndian.Uint64(buf[:])%MaxSeed + 1, nil
}
