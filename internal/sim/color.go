package sim

import (
	"fmt"
	"math"

	"github.com/vovakirdan/fpsnet/internal/protocol"
)

// ColorFor derives a stable display colour from an entity id by stepping the
// hue by the golden angle. Cosmetic only; never part of simulation state.
func ColorFor(id protocol.EntityID) string {
	hue := math.Mod(float64(id)*137.508, 360)
	r, g, b := hslToRGB(hue, 0.65, 0.55)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	to8 := func(v float64) uint8 { return uint8(math.Round((v + m) * 255)) }
	return to8(r), to8(g), to8(b)
}
