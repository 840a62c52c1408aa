// Package movement holds the single movement function used by both the
// authoritative server and client-side prediction. Both roles call Step with
// the same state, command and parameters and get the same result, bit for bit.
package movement

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/fpsnet/internal/fixed"
)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("movement: invalid parameters")

// ActionFlags is a bit set of discrete actions.
type ActionFlags uint8

const (
	Jump ActionFlags = 1 << iota
	Sprint
	Crouch
	Fire // carried for gameplay collaborators, ignored by movement
)

// Has reports whether all bits of f are set.
func (a ActionFlags) Has(f ActionFlags) bool {
	return a&f == f
}

// Command is one tick of player intent.
type Command struct {
	Sequence uint32      `json:"seq"`
	Tick     uint64      `json:"tick"`
	Forward  fixed.Fixed `json:"fwd"`    // -1..1, positive is forward
	Strafe   fixed.Fixed `json:"strafe"` // -1..1, positive is right
	Yaw      fixed.Angle `json:"yaw"`
	Pitch    fixed.Angle `json:"pitch"`
	Actions  ActionFlags `json:"act"`
}

// State is the dynamic state of one player entity. Position is at the feet.
type State struct {
	Position fixed.Vec3  `json:"pos"`
	Velocity fixed.Vec3  `json:"vel"`
	Yaw      fixed.Angle `json:"yaw"`
	Pitch    fixed.Angle `json:"pitch"`
	Grounded bool        `json:"grounded"`
}

// Params are the physical constants of movement.
type Params struct {
	TickRate     int         `yaml:"tick_rate" json:"tick_rate"`
	WalkSpeed    fixed.Fixed `yaml:"walk_speed" json:"walk_speed"`
	SprintSpeed  fixed.Fixed `yaml:"sprint_speed" json:"sprint_speed"`
	CrouchSpeed  fixed.Fixed `yaml:"crouch_speed" json:"crouch_speed"`
	JumpSpeed    fixed.Fixed `yaml:"jump_speed" json:"jump_speed"`
	Gravity      fixed.Fixed `yaml:"gravity" json:"gravity"`
	PlayerRadius fixed.Fixed `yaml:"player_radius" json:"player_radius"`
	PlayerHeight fixed.Fixed `yaml:"player_height" json:"player_height"`
	PitchLimit   fixed.Angle `yaml:"pitch_limit" json:"pitch_limit"`
}

// DefaultParams returns the default movement tuning at 60 ticks per second.
func DefaultParams() Params {
	return Params{
		TickRate:     60,
		WalkSpeed:    fixed.FromInt(5),
		SprintSpeed:  fixed.FromInt(8),
		CrouchSpeed:  fixed.FromRatio(5, 2),
		JumpSpeed:    fixed.FromRatio(27, 5),
		Gravity:      fixed.FromRatio(49, 5),
		PlayerRadius: fixed.Half,
		PlayerHeight: fixed.FromRatio(3, 2),
		PitchLimit:   fixed.AngleFromDegrees(89),
	}
}

// DT returns the tick duration in seconds.
func (p Params) DT() fixed.Fixed {
	return fixed.One.DivInt(p.TickRate)
}

// Validate checks the parameters for consistency.
func (p Params) Validate() error {
	switch {
	case p.TickRate < 1 || p.TickRate > 1000:
		return fmt.Errorf("%w: tick rate %d not in 1..1000", ErrInvalidParams, p.TickRate)
	case p.WalkSpeed <= 0 || p.SprintSpeed <= 0 || p.CrouchSpeed <= 0:
		return fmt.Errorf("%w: speeds must be positive", ErrInvalidParams)
	case p.JumpSpeed < 0 || p.Gravity < 0:
		return fmt.Errorf("%w: jump speed and gravity must not be negative", ErrInvalidParams)
	case p.PlayerRadius <= 0 || p.PlayerHeight <= 0:
		return fmt.Errorf("%w: player size must be positive", ErrInvalidParams)
	case p.PitchLimit == 0 || p.PitchLimit > fixed.QuarterTurn:
		return fmt.Errorf("%w: pitch limit %v not in (0, 90]", ErrInvalidParams, p.PitchLimit)
	}
	return nil
}

// Collider is the static world movement resolves against.
// *level.Geometry implements it.
type Collider interface {
	Walls() []fixed.Box
	Bounds() fixed.Box
}

// Step advances s by one tick of cmd.
func Step(s State, cmd Command, p Params, world Collider) State {
	dt := p.DT()

	s.Yaw = cmd.Yaw
	s.Pitch = fixed.ClampSigned(cmd.Pitch, p.PitchLimit)

	fwd, strafe := wish(cmd.Forward, cmd.Strafe)

	speed := p.WalkSpeed
	switch {
	case cmd.Actions.Has(Crouch):
		speed = p.CrouchSpeed
	case cmd.Actions.Has(Sprint):
		speed = p.SprintSpeed
	}

	// forward = (-sin, 0, -cos), right = (cos, 0, -sin)
	sin, cos := s.Yaw.Sin(), s.Yaw.Cos()
	s.Velocity.X = (strafe.Mul(cos) - fwd.Mul(sin)).Mul(speed)
	s.Velocity.Z = (-fwd.Mul(cos) - strafe.Mul(sin)).Mul(speed)

	if cmd.Actions.Has(Jump) && s.Grounded {
		s.Velocity.Y = p.JumpSpeed
		s.Grounded = false
	}
	s.Velocity.Y -= p.Gravity.Mul(dt)

	walls := world.Walls()
	bounds := world.Bounds()

	// Axis-separated resolution: X, then Z, then Y against the floor.
	next := s.Position
	next.X += s.Velocity.X.Mul(dt)
	if overlapsAny(body(next, p), walls) {
		next.X = s.Position.X
		s.Velocity.X = 0
	}
	z := next
	z.Z += s.Velocity.Z.Mul(dt)
	if overlapsAny(body(z, p), walls) {
		s.Velocity.Z = 0
	} else {
		next = z
	}

	next.Y += s.Velocity.Y.Mul(dt)
	floor := bounds.Min.Y
	if next.Y <= floor {
		next.Y = floor
		s.Velocity.Y = 0
		s.Grounded = true
	} else {
		s.Grounded = false
	}

	r := p.PlayerRadius
	next.X = fixed.Clamp(next.X, bounds.Min.X+r, bounds.Max.X-r)
	next.Z = fixed.Clamp(next.Z, bounds.Min.Z+r, bounds.Max.Z-r)
	if next.Y > bounds.Max.Y {
		next.Y = bounds.Max.Y
		if s.Velocity.Y > 0 {
			s.Velocity.Y = 0
		}
	}

	s.Position = next
	return s
}

// Replay folds Step over cmds in order.
func Replay(s State, cmds []Command, p Params, world Collider) State {
	for _, c := range cmds {
		s = Step(s, c, p, world)
	}
	return s
}

// Spawn returns a resting state at pos.
func Spawn(pos fixed.Vec3) State {
	return State{Position: pos, Grounded: true}
}

// wish clamps the movement input to the unit disc.
func wish(fwd, strafe fixed.Fixed) (fixed.Fixed, fixed.Fixed) {
	fwd = fixed.Clamp(fwd, -fixed.One, fixed.One)
	strafe = fixed.Clamp(strafe, -fixed.One, fixed.One)
	lenSq := fwd.Mul(fwd) + strafe.Mul(strafe)
	if lenSq > fixed.One {
		l := fixed.Sqrt(lenSq)
		fwd = fwd.Div(l)
		strafe = strafe.Div(l)
	}
	return fwd, strafe
}

// body is the player's collision box for a feet position.
func body(pos fixed.Vec3, p Params) fixed.Box {
	return fixed.Box{
		Min: fixed.V(pos.X-p.PlayerRadius, pos.Y, pos.Z-p.PlayerRadius),
		Max: fixed.V(pos.X+p.PlayerRadius, pos.Y+p.PlayerHeight, pos.Z+p.PlayerRadius),
	}
}

func overlapsAny(b fixed.Box, walls []fixed.Box) bool {
	for _, w := range walls {
		if b.Intersects(w) {
			return true
		}
	}
	return false
}
