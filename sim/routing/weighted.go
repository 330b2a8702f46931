package routing

import (
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/flitsim/flitsim/sim"
)

// WeighedShortest behaves like Shortest but sources its router-to-router
// distances from a one-time Dijkstra precomputation over the topology's
// router-port adjacency (gonum's graph/simple + graph/path), rather than
// repeatedly calling Topology.Distance. Grounded on the Rust original's
// WeighedShortest routing and spec §9's "precompute distance matrices"
// design note; see DESIGN.md for why this is the concrete home for the
// teacher's gonum dependency.
type WeighedShortest struct {
	sim.BaseRouting
	dist [][]int
}

func NewWeighedShortest() *WeighedShortest { return &WeighedShortest{} }

// Initialize builds the router adjacency as a gonum weighted directed graph
// (unit weight per router-router link, absent edges at +Inf) and runs
// Dijkstra from every router once, caching the resulting distance matrix.
func (w *WeighedShortest) Initialize(topology sim.Topology, rng sim.Random) {
	n := topology.NumRouters()
	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for r := 0; r < n; r++ {
		g.AddNode(simple.Node(r))
	}
	for r := 0; r < n; r++ {
		for port := 0; port < topology.Ports(r); port++ {
			loc, _ := topology.Neighbour(r, port)
			if loc.Kind == sim.LocationRouterPort {
				g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(r), T: simple.Node(loc.RouterIdx), W: 1})
			}
		}
	}

	w.dist = make([][]int, n)
	for r := 0; r < n; r++ {
		shortest := path.DijkstraFrom(simple.Node(r), g)
		w.dist[r] = make([]int, n)
		for t := 0; t < n; t++ {
			_, weight := shortest.To(int64(t))
			if math.IsInf(weight, 1) {
				w.dist[r][t] = -1
			} else {
				w.dist[r][t] = int(weight)
			}
		}
	}
}

func (w *WeighedShortest) distance(a, b int) int {
	if w.dist == nil {
		// Initialize wasn't called (e.g. a unit test exercising Next in
		// isolation); 0 distance for a==b, -1 (unreachable) otherwise is a
		// safe degenerate default that never offers a bogus port.
		if a == b {
			return 0
		}
		return -1
	}
	return w.dist[a][b]
}

func (w *WeighedShortest) Next(routingInfo *sim.RoutingInfo, topology sim.Topology, currentRouter, targetRouter int, targetServer *int, numVC int, rng sim.Random) (sim.RoutingNextCandidates, error) {
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

	currentDistance := w.distance(currentRouter, targetRouter)
	var candidates []sim.CandidateEgress
	for port := 0; port < topology.Ports(currentRouter); port++ {
		loc, _ := topology.Neighbour(currentRouter, port)
		if loc.Kind != sim.LocationRouterPort {
			continue
		}
		if w.distance(loc.RouterIdx, targetRouter) != currentDistance-1 {
			continue
		}
		for vc := 0; vc < numVC; vc++ {
			candidates = append(candidates, sim.NewCandidateEgress(port, vc))
		}
	}
	return sim.RoutingNextCandidates{Candidates: candidates, Idempotent: true}, nil
}

// RegisterWeighedShortest installs the "WeighedShortest" builder.
func RegisterWeighedShortest(plugs *sim.Plugs) {
	plugs.RegisterRouting("WeighedShortest", func(sim.ConfigurationValue, *sim.Plugs) (sim.Routing, error) {
		return NewWeighedShortest(), nil
	})
}
