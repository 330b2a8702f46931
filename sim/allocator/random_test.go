package allocator_test

import (
	"math/rand"
	"testing"

	"github.com/flitsim/flitsim/sim"
	"github.com/flitsim/flitsim/sim/allocator"
)

func intPtr(n int) *int { return &n }

func TestRandom_GrantsAtMostOnePerClientAndResource(t *testing.T) {
	a := allocator.NewRandom()
	a.AddRequest(sim.Request{Client: 0, Resource: 0})
	a.AddRequest(sim.Request{Client: 0, Resource: 1})
	a.AddRequest(sim.Request{Client: 1, Resource: 0})
	a.AddRequest(sim.Request{Client: 2, Resource: 2})

	rng := sim.AsRandom(rand.New(rand.NewSource(1)))
	granted := a.PerformAllocation(rng)

	clients := make(map[int]int)
	resources := make(map[int]int)
	for _, r := range granted.Requests {
		clients[r.Client]++
		resources[r.Resource]++
	}
	for c, n := range clients {
		if n > 1 {
			t.Errorf("client %d granted %d times, want at most 1", c, n)
		}
	}
	for res, n := range resources {
		if n > 1 {
			t.Errorf("resource %d granted %d times, want at most 1", res, n)
		}
	}
	if len(granted.Requests) > 3 {
		t.Errorf("granted %d requests from 3 clients and 3 resources; want at most 3", len(granted.Requests))
	}
}

func TestRandom_ClearsPendingAfterAllocation(t *testing.T) {
	a := allocator.NewRandom()
	a.AddRequest(sim.Request{Client: 0, Resource: 0})
	rng := sim.AsRandom(rand.New(rand.NewSource(1)))
	a.PerformAllocation(rng)
	second := a.PerformAllocation(rng)
	if len(second.Requests) != 0 {
		t.Errorf("second allocation round granted %d requests, want 0 (pending should be cleared)", len(second.Requests))
	}
}

func TestRandomWithPriority_GrantsLowerPriorityValueFirst(t *testing.T) {
	a := allocator.NewRandomWithPriority()
	// Same resource, two clients competing: client 1 has priority 0 (higher
	// priority), client 0 has priority 5. Only one can win the resource.
	a.AddRequest(sim.Request{Client: 0, Resource: 0, Priority: intPtr(5)})
	a.AddRequest(sim.Request{Client: 1, Resource: 0, Priority: intPtr(0)})

	rng := sim.AsRandom(rand.New(rand.NewSource(1)))
	granted := a.PerformAllocation(rng)

	if len(granted.Requests) != 1 {
		t.Fatalf("granted %d requests, want 1 (single contested resource)", len(granted.Requests))
	}
	if granted.Requests[0].Client != 1 {
		t.Errorf("winner = client %d, want client 1 (lower priority value)", granted.Requests[0].Client)
	}
}

func TestRandomWithPriority_NilPriorityTreatedAsLowest(t *testing.T) {
	a := allocator.NewRandomWithPriority()
	a.AddRequest(sim.Request{Client: 0, Resource: 0, Priority: nil})
	a.AddRequest(sim.Request{Client: 1, Resource: 0, Priority: intPtr(0)})

	rng := sim.AsRandom(rand.New(rand.NewSource(1)))
	granted := a.PerformAllocation(rng)

	if len(granted.Requests) != 1 || granted.Requests[0].Client != 1 {
		t.Errorf("expected client 1 (explicit priority 0) to win over nil-priority client 0")
	}
}

func TestRandomWithPriority_SupportsIntransitPriority(t *testing.T) {
	a := allocator.NewRandomWithPriority()
	if !a.SupportsIntransitPriority() {
		t.Error("RandomWithPriority should support intransit priority")
	}
	plain := allocator.NewRandom()
	if plain.SupportsIntransitPriority() {
		t.Error("Random should not support intransit priority")
	}
}

func TestAllocatorRegister_InstallsBothBuilders(t *testing.T) {
	plugs := sim.NewPlugs()
	allocator.Register(plugs)

	named := func(name string) sim.ConfigurationValue {
		return sim.ObjectValue([]sim.ObjectEntry{{Key: "name", Value: sim.LiteralValue(name)}})
	}
	for _, name := range []string{"Random", "RandomWithPriority"} {
		built, err := plugs.BuildAllocator(named(name))
		if err != nil {
			t.Fatalf("BuildAllocator(%q): %v", name, err)
		}
		if built == nil {
			t.Fatalf("BuildAllocator(%q) returned nil", name)
		}
	}
}
