// Package allocator holds the concrete Allocator implementations needed to
// exercise the core, grounded on caminos-lib's allocator/mod.rs.
package allocator

import (
	"sort"

	"github.com/flitsim/flitsim/sim"
)

// Random grants requests in a random order, greedily skipping any request
// whose client or resource is already claimed this round. Ignores priority.
type Random struct {
	pending []sim.Request
}

func NewRandom() *Random { return &Random{} }

func (a *Random) AddRequest(r sim.Request) { a.pending = append(a.pending, r) }

func (a *Random) PerformAllocation(rng sim.Random) sim.GrantedRequests {
	order := rng2order(len(a.pending), rng)
	granted := greedyGrant(a.pending, order)
	a.pending = nil
	return granted
}

func (a *Random) SupportsIntransitPriority() bool { return false }

// RandomWithPriority grants lower-priority-value requests first (ties
// broken randomly within each priority group); requests with no priority
// are treated as lowest priority and granted last. Supports the
// intransit_priority convention (priority 0 forced onto router-to-router
// requests).
type RandomWithPriority struct {
	pending []sim.Request
}

func NewRandomWithPriority() *RandomWithPriority { return &RandomWithPriority{} }

func (a *RandomWithPriority) AddRequest(r sim.Request) { a.pending = append(a.pending, r) }

func (a *RandomWithPriority) PerformAllocation(rng sim.Random) sim.GrantedRequests {
	indices := make([]int, len(a.pending))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool {
		return priorityRank(a.pending[indices[i]]) < priorityRank(a.pending[indices[j]])
	})

	// Shuffle within each contiguous same-priority run so ties don't always
	// resolve in request-arrival order.
	start := 0
	for start < len(indices) {
		end := start + 1
		for end < len(indices) && priorityRank(a.pending[indices[end]]) == priorityRank(a.pending[indices[start]]) {
			end++
		}
		run := indices[start:end]
		rng.Shuffle(len(run), func(i, j int) { run[i], run[j] = run[j], run[i] })
		start = end
	}

	granted := greedyGrant(a.pending, indices)
	a.pending = nil
	return granted
}

func (a *RandomWithPriority) SupportsIntransitPriority() bool { return true }

func priorityRank(r sim.Request) int {
	if r.Priority == nil {
		return int(^uint(0) >> 1) // treat "no priority" as lowest
	}
	return *r.Priority
}

func rng2order(n int, rng sim.Random) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

// greedyGrant walks requests in the given order, granting the first request
// seen for each not-yet-claimed (client, resource) pair — enforcing spec
// §8's "at most one grant per resource, at most one grant per client".
func greedyGrant(requests []sim.Request, order []int) sim.GrantedRequests {
	clientTaken := make(map[int]bool)
	resourceTaken := make(map[int]bool)
	var granted sim.GrantedRequests
	for _, i := range order {
		r := requests[i]
		if clientTaken[r.Client] || resourceTaken[r.Resource] {
			continue
		}
		clientTaken[r.Client] = true
		resourceTaken[r.Resource] = true
		granted.Requests = append(granted.Requests, r)
	}
	return granted
}

// Register installs the "Random" and "RandomWithPriority" builders.
func Register(plugs *sim.Plugs) {
	plugs.RegisterAllocator("Random", func(sim.ConfigurationValue) (sim.Allocator, error) {
		return NewRandom(), nil
	})
	plugs.RegisterAllocator("RandomWithPriority", func(sim.ConfigurationValue) (sim.Allocator, error) {
		return NewRandomWithPriority(), nil
	})
}
