package fixed

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Angle is a binary angle: 65536 units per full turn. Wrap-around is free,
// and sine/cosine come from an integer table so they never differ between peers.
type Angle uint16

const (
	// QuarterTurn is 90 degrees.
	QuarterTurn Angle = 1 << 14
	// HalfTurn is 180 degrees.
	HalfTurn Angle = 1 << 15
)

const quarter = 1 << 14

// sinTable holds sin(i * pi/2 / quarter) in fixed-point for i in [0, quarter].
var sinTable [quarter + 1]Fixed

func init() {
	// Taylor series in Q30 using integer arithmetic only.
	const q = 30
	const halfPi = int64(1686629713) // pi/2 * 2^30
	for i := 0; i <= quarter; i++ {
		x := halfPi * int64(i) / quarter
		x2 := (x * x) >> q
		term := x
		sum := x
		for k := int64(1); k <= 8; k++ {
			term = -((term * x2) >> q) / ((2 * k) * (2*k + 1))
			sum += term
		}
		sinTable[i] = Fixed((sum + (1 << (q - FracBits - 1))) >> (q - FracBits))
	}
}

// AngleFromDegrees converts degrees to a binary angle. Configuration input only.
func AngleFromDegrees(deg float64) Angle {
	turns := deg / 360
	turns -= math.Floor(turns)
	return Angle(uint32(math.Round(turns*65536)) & 0xFFFF)
}

// Sin returns the sine.
func (a Angle) Sin() Fixed {
	idx := int(a) & (quarter - 1)
	switch a >> 14 {
	case 0:
		return sinTable[idx]
	case 1:
		return sinTable[quarter-idx]
	case 2:
		return -sinTable[idx]
	default:
		return -sinTable[quarter-idx]
	}
}

// Cos returns the cosine.
func (a Angle) Cos() Fixed {
	return (a + QuarterTurn).Sin()
}

// Signed interprets the angle in the range [-32768, 32767].
func (a Angle) Signed() int32 {
	return int32(int16(a))
}

// Radians converts to radians in (-pi, pi] for rendering.
func (a Angle) Radians() float64 {
	return float64(a.Signed()) * math.Pi / float64(HalfTurn)
}

// Degrees converts to degrees in (-180, 180].
func (a Angle) Degrees() float64 {
	return float64(a.Signed()) * 180 / float64(HalfTurn)
}

// ClampSigned restricts a signed angle (such as pitch) to [-limit, limit].
func ClampSigned(a, limit Angle) Angle {
	l := int32(limit)
	if l > int32(HalfTurn)-1 {
		l = int32(HalfTurn) - 1
	}
	s := a.Signed()
	if s > l {
		s = l
	}
	if s < -l {
		s = -l
	}
	return Angle(uint16(int16(s)))
}

func (a Angle) String() string {
	return fmt.Sprintf("%.2f°", a.Degrees())
}

// UnmarshalYAML reads an angle in degrees.
func (a *Angle) UnmarshalYAML(value *yaml.Node) error {
	var deg float64
	if err := value.Decode(&deg); err != nil {
		return fmt.Errorf("fixed: cannot decode angle %q: %w", value.Value, err)
	}
	*a = AngleFromDegrees(deg)
	return nil
}

// MarshalYAML writes the angle in degrees.
func (a Angle) MarshalYAML() (any, error) {
	return a.Degrees(), nil
}
