// Package trace records router decision traces for offline analysis. It has
// no dependency on sim/ beyond plain data types, so enabling it never
// perturbs the simulation itself.
package trace

// RoutingRecord captures one call into a Routing implementation: the
// candidates it returned before virtual-channel-policy filtering.
type RoutingRecord struct {
	Cycle         int64
	PacketID      int
	CurrentRouter int
	TargetRouter  int
	Candidates    int  // number of candidates returned
	Idempotent    bool // RoutingNextCandidates.Idempotent
}

// AllocationRecord captures one allocator decision: how many requests
// competed for virtual channels at a router this cycle, and how many were
// granted.
type AllocationRecord struct {
	Cycle     int64
	RouterIdx int
	Requested int
	Granted   int
}
