package topology

import (
	"testing"

	"github.com/flitsim/flitsim/sim"
)

func testLinkClasses() []sim.LinkClass {
	return []sim.LinkClass{{Delay: 1, FrequencyDivisor: 1}, {Delay: 1, FrequencyDivisor: 1}}
}

func TestHamming_SingleRouterTwoServers(t *testing.T) {
	h, err := NewHamming([]int{1}, 2, testLinkClasses())
	if err != nil {
		t.Fatal(err)
	}
	if h.NumRouters() != 1 {
		t.Errorf("NumRouters = %d, want 1", h.NumRouters())
	}
	if h.NumServers() != 2 {
		t.Errorf("NumServers = %d, want 2", h.NumServers())
	}
	if h.Distance(0, 0) != 0 {
		t.Errorf("Distance(0,0) = %d, want 0", h.Distance(0, 0))
	}
}

func TestHamming_TwoRoutersOneHop(t *testing.T) {
	h, err := NewHamming([]int{2}, 1, testLinkClasses())
	if err != nil {
		t.Fatal(err)
	}
	if h.NumRouters() != 2 {
		t.Errorf("NumRouters = %d, want 2", h.NumRouters())
	}
	if h.Distance(0, 1) != 1 {
		t.Errorf("Distance(0,1) = %d, want 1", h.Distance(0, 1))
	}
	loc, _ := h.Neighbour(0, 0)
	if loc.RouterIdx != 1 {
		t.Errorf("Neighbour(0,0) router = %d, want 1", loc.RouterIdx)
	}
}

func TestHamming_DiagonalTwoDimensions(t *testing.T) {
	h, err := NewHamming([]int{2, 2}, 1, testLinkClasses())
	if err != nil {
		t.Fatal(err)
	}
	if h.NumRouters() != 4 {
		t.Errorf("NumRouters = %d, want 4", h.NumRouters())
	}
	// router 0 = coords (0,0); router 3 = coords (1,1): Hamming distance 2.
	if d := h.Distance(0, 3); d != 2 {
		t.Errorf("Distance(0,3) = %d, want 2", d)
	}
	if d := h.Distance(0, 1); d != 1 {
		t.Errorf("Distance(0,1) = %d, want 1", d)
	}
}

func TestHamming_NeighboursAreSymmetric(t *testing.T) {
	h, err := NewHamming([]int{2, 2}, 1, testLinkClasses())
	if err != nil {
		t.Fatal(err)
	}
	for router := 0; router < h.NumRouters(); router++ {
		for port := 0; port < h.degree; port++ {
			loc, _ := h.Neighbour(router, port)
			backLoc, _ := h.Neighbour(loc.RouterIdx, loc.RouterPort)
			if backLoc.RouterIdx != router {
				t.Errorf("neighbour link from router %d port %d is not symmetric: got back to %d", router, port, backLoc.RouterIdx)
			}
		}
	}
}
