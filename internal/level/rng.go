package level

// RNG is the SplitMix64 generator. It is counter-based, so its whole state is
// one word and the output sequence for a seed is fixed by the algorithm alone.
type RNG struct {
	state uint64
}

const (
	golden = 0x9E3779B97F4A7C15
	mix1   = 0xBF58476D1CE4E5B9
	mix2   = 0x94D049BB133111EB
)

// NewRNG creates a new RNG with the given seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{state: seed}
}

// Next returns the next random uint64.
func (r *RNG) Next() uint64 {
	r.state += golden
	z := r.state
	z = (z ^ (z >> 30)) * mix1
	z = (z ^ (z >> 27)) * mix2
	return z ^ (z >> 31)
}

// Intn returns a random int in [0, n).
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Next() % uint64(n))
}
