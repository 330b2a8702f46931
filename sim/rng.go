package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemTraffic is the RNG subsystem used by the driver to generate
	// new messages (the traffic pattern's should_generate/generate_message
	// hooks). Uses the master seed directly for backward compatibility.
	SubsystemTraffic = "traffic"

	// SubsystemCore is the single RNG stream handed by reference into every
	// routing, virtual-channel-policy and allocator hook invoked during a
	// cycle. The core is exclusive to the driver: components never hold
	// their own source, they only borrow this one for the duration of a call.
	SubsystemCore = "core"
)

// SubsystemRouterInstance returns the subsystem name for an isolated
// per-router RNG stream. Only used when a topology explicitly asks for
// router-local isolation, so that two runs differing in a single router's
// local randomness don't perturb every other router's draws.
func SubsystemRouterInstance(id int) string {
	return fmt.Sprintf("router_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemTraffic: uses masterSeed directly (backward compatibility)
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. The event-queue driver is a single
// cooperative loop, so PartitionedRNG is never touched concurrently.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	var derivedSeed int64
	if name == SubsystemTraffic {
		// Backward compatibility: traffic uses master seed directly.
		// This ensures existing --seed behavior produces identical output.
		derivedSeed = int64(p.key)
	} else {
		// All other subsystems: XOR with hash for isolation.
		derivedSeed = int64(p.key) ^ fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// Random is the PRNG surface handed by reference into routing, virtual
// channel policy and allocator hooks. *rand.Rand satisfies it through
// AsRandom; nothing downstream is allowed to construct its own source.
type Random interface {
	Intn(n int) int
	Float64() float64
	// GenRange returns a value drawn uniformly from [a, b).
	GenRange(a, b int) int
	Shuffle(n int, swap func(i, j int))
	// GenBool returns true with probability p.
	GenBool(p float64) bool
	// NormFloat64 and ExpFloat64 back the workload package's Gaussian and
	// exponential message-size samplers.
	NormFloat64() float64
	ExpFloat64() float64
}

type randAdapter struct {
	*rand.Rand
}

func (r randAdapter) GenRange(a, b int) int {
	if b <= a {
		panic(fmt.Sprintf("GenRange: empty range [%d,%d)", a, b))
	}
	return a + r.Rand.Intn(b-a)
}

func (r randAdapter) GenBool(p float64) bool {
	return r.Rand.Float64() < p
}

// AsRandom adapts a *rand.Rand stream to the Random interface.
func AsRandom(r *rand.Rand) Random {
	return randAdapter{r}
}
