package routing_test

import (
	"testing"

	"github.com/flitsim/flitsim/sim"
	"github.com/flitsim/flitsim/sim/routing"
	"github.com/flitsim/flitsim/sim/topology"
)

func TestWeighedShortest_MatchesTopologyDistance(t *testing.T) {
	top, err := topology.NewHamming([]int{2, 2}, 1, linkClasses())
	if err != nil {
		t.Fatal(err)
	}
	w := routing.NewWeighedShortest()
	w.Initialize(top, nil)

	for a := 0; a < top.NumRouters(); a++ {
		for b := 0; b < top.NumRouters(); b++ {
			candidates, err := w.Next(sim.NewRoutingInfo(), top, a, b, nil, 1, nil)
			if a == b {
				continue
			}
			if err != nil {
				t.Fatalf("Next(%d, %d): %v", a, b, err)
			}
			if candidates.Len() == 0 {
				t.Fatalf("Next(%d, %d): no candidates", a, b)
			}
			for _, c := range candidates.Candidates {
				loc, _ := top.Neighbour(a, c.Port)
				if top.Distance(loc.RouterIdx, b) != top.Distance(a, b)-1 {
					t.Errorf("Next(%d, %d): candidate port %d does not strictly decrease topological distance", a, b, c.Port)
				}
			}
		}
	}
}

func TestWeighedShortest_Register_Installs(t *testing.T) {
	plugs := sim.NewPlugs()
	routing.Register(plugs)

	built, err := plugs.BuildRouting(namedObject("WeighedShortest"))
	if err != nil {
		t.Fatal(err)
	}
	if built == nil {
		t.Fatal("BuildRouting(WeighedShortest) returned nil")
	}
}
