package routing_test

import (
	"testing"

	"github.com/flitsim/flitsim/sim"
	"github.com/flitsim/flitsim/sim/routing"
	"github.com/flitsim/flitsim/sim/topology"
)

func linkClasses() []sim.LinkClass {
	return []sim.LinkClass{{Delay: 1, FrequencyDivisor: 1}, {Delay: 1, FrequencyDivisor: 1}}
}

func TestShortest_SameRouter_RoutesToServerPort(t *testing.T) {
	top, err := topology.NewHamming([]int{1}, 2, linkClasses())
	if err != nil {
		t.Fatal(err)
	}
	r := routing.NewShortest()
	target := 1
	candidates, err := r.Next(sim.NewRoutingInfo(), top, 0, 0, &target, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if candidates.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (one per VC)", candidates.Len())
	}
	for _, c := range candidates.Candidates {
		loc, _ := top.Neighbour(0, c.Port)
		if loc.Kind != sim.LocationServerPort || loc.Server != target {
			t.Errorf("candidate port %d does not lead to target server %d", c.Port, target)
		}
	}
	if !candidates.Idempotent {
		t.Error("Shortest candidates should be idempotent")
	}
}

func TestShortest_SameRouter_NoTargetServer_Unroutable(t *testing.T) {
	top, err := topology.NewHamming([]int{1}, 2, linkClasses())
	if err != nil {
		t.Fatal(err)
	}
	r := routing.NewShortest()
	_, err = r.Next(sim.NewRoutingInfo(), top, 0, 0, nil, 1, nil)
	if err == nil {
		t.Fatal("expected ErrUnroutable when currentRouter == targetRouter with no target server")
	}
}

func TestShortest_AdjacentRouters_PicksDistanceDecreasingPort(t *testing.T) {
	top, err := topology.NewHamming([]int{2}, 1, linkClasses())
	if err != nil {
		t.Fatal(err)
	}
	r := routing.NewShortest()
	candidates, err := r.Next(sim.NewRoutingInfo(), top, 0, 1, nil, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if candidates.Len() == 0 {
		t.Fatal("expected at least one candidate toward an adjacent router")
	}
	for _, c := range candidates.Candidates {
		loc, _ := top.Neighbour(0, c.Port)
		if loc.Kind != sim.LocationRouterPort {
			t.Errorf("candidate port %d is not a router port", c.Port)
		}
		if top.Distance(loc.RouterIdx, 1) != top.Distance(0, 1)-1 {
			t.Errorf("candidate port %d does not strictly decrease distance to target", c.Port)
		}
	}
}

func namedObject(name string) sim.ConfigurationValue {
	return sim.ObjectValue([]sim.ObjectEntry{{Key: "name", Value: sim.LiteralValue(name)}})
}

func TestShortest_Register_InstallsShortestAndDOR(t *testing.T) {
	plugs := sim.NewPlugs()
	routing.Register(plugs)

	for _, name := range []string{"Shortest", "DOR"} {
		built, err := plugs.BuildRouting(namedObject(name))
		if err != nil {
			t.Fatalf("BuildRouting(%q): %v", name, err)
		}
		if built == nil {
			t.Fatalf("BuildRouting(%q) returned nil", name)
		}
	}
}
