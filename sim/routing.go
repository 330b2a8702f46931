package sim

// Routing selects candidate next hops for a packet in flight. A Routing
// does not see buffer/credit state — that's the VirtualChannelPolicy
// chain's job — only topology and the packet's own RoutingInfo.
type Routing interface {
	// Next computes the list of allowed exits from currentRouter toward
	// targetRouter (and, if known, targetServer). If currentRouter ==
	// targetRouter, the result must contain exactly one port (the one
	// toward targetServer) times every VC.
	Next(routingInfo *RoutingInfo, topology Topology, currentRouter, targetRouter int, targetServer *int, numVC int, rng Random) (RoutingNextCandidates, error)

	// InitializeRoutingInfo runs when a packet's first phit leaves its
	// source server and enters a router.
	InitializeRoutingInfo(routingInfo *RoutingInfo, topology Topology, currentRouter, targetRouter int, targetServer *int, rng Random)

	// UpdateRoutingInfo runs when a packet's first phit leaves a router and
	// enters another, after Hops has been incremented. currentRouter and
	// currentPort describe the router being entered and the port it was
	// entered through.
	UpdateRoutingInfo(routingInfo *RoutingInfo, topology Topology, currentRouter, currentPort, targetRouter int, targetServer *int, rng Random)

	// Initialize runs once globally, e.g. to precompute distance matrices
	// or path tables.
	Initialize(topology Topology, rng Random)

	// PerformedRequest runs when the router actually selects one
	// candidate, letting the routing remember the choice (Stubborn,
	// source-routed path consumption).
	PerformedRequest(requested CandidateEgress, routingInfo *RoutingInfo, topology Topology, currentRouter, targetRouter int, targetServer *int, numVC int, rng Random)
}

// BaseRouting provides no-op defaults for the optional Routing hooks so
// concrete routings only need to implement Next (and override whichever
// hooks they actually use), mirroring the Rust trait's default method
// bodies.
type BaseRouting struct{}

func (BaseRouting) InitializeRoutingInfo(*RoutingInfo, Topology, int, int, *int, Random) {}
func (BaseRouting) UpdateRoutingInfo(*RoutingInfo, Topology, int, int, int, *int, Random)  {}
func (BaseRouting) Initialize(Topology, Random)                                           {}
func (BaseRouting) PerformedRequest(CandidateEgress, *RoutingInfo, Topology, int, int, *int, int, Random) {
}
