// Package traffic holds the test-fixture-grade Traffic/Pattern
// implementations needed to exercise the core: Burst, PeriodicBurst, and
// the Cartesian shift pattern they route through.
package traffic

import (
	"fmt"

	"github.com/flitsim/flitsim/sim"
)

// ShiftPattern decomposes origin into a Cartesian coordinate vector over
// sides and adds shift to it componentwise (mod sides), recomposing the
// result into a destination index. Used by the literal scenarios in spec §8
// to pin exact source/destination pairs deterministically (no randomness).
type ShiftPattern struct {
	sides []int
	shift []int
}

func NewShiftPattern(sides, shift []int) (*ShiftPattern, error) {
	if len(sides) != len(shift) {
		return nil, fmt.Errorf("%w: shift pattern sides/shift length mismatch (%d vs %d)", sim.ErrConfigMismatch, len(sides), len(shift))
	}
	return &ShiftPattern{sides: sides, shift: shift}, nil
}

func (p *ShiftPattern) Initialize(sourceSize, targetSize int, topology sim.Topology, rng sim.Random) error {
	total := 1
	for _, s := range p.sides {
		total *= s
	}
	if total != sourceSize || total != targetSize {
		return fmt.Errorf("%w: shift pattern sides product %d doesn't match source/target size %d/%d", sim.ErrConfigMismatch, total, sourceSize, targetSize)
	}
	return nil
}

func (p *ShiftPattern) Destination(origin int, rng sim.Random) int {
	coords := make([]int, len(p.sides))
	for d := len(p.sides) - 1; d >= 0; d-- {
		coords[d] = origin % p.sides[d]
		origin /= p.sides[d]
	}
	for d := range coords {
		coords[d] = (coords[d] + p.shift[d]) % p.sides[d]
	}
	dest := 0
	for d := 0; d < len(p.sides); d++ {
		dest = dest*p.sides[d] + coords[d]
	}
	return dest
}

// RegisterPattern installs the "Shift" pattern builder.
func RegisterPattern(plugs *sim.Plugs) {
	plugs.RegisterPattern("Shift", func(cv sim.ConfigurationValue) (sim.Pattern, error) {
		sides, err := intArrayField(cv, "sides")
		if err != nil {
			return nil, err
		}
		shift, err := intArrayField(cv, "shift")
		if err != nil {
			return nil, err
		}
		return NewShiftPattern(sides, shift)
	})
}

func intArrayField(cv sim.ConfigurationValue, key string) ([]int, error) {
	v, ok := cv.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q", sim.ErrConfigMismatch, key)
	}
	arr, err := v.AsArray()
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	out := make([]int, len(arr))
	for i, item := range arr {
		n, err := item.AsInt()
		if err != nil {
			return nil, fmt.Errorf("field %q[%d]: %w", key, i, err)
		}
		out[i] = n
	}
	return out, nil
}
