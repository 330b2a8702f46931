package sim

// RequestInfo exposes read-only context a VirtualChannelPolicy may consult
// while filtering candidates. ServerPorts, PortAverageNeighbourQueueLength
// and PortLastTransmission are nil unless some policy in the active chain
// declared it needs that measure; the output-space slices are always
// filled by Router.Process.
type RequestInfo struct {
	TargetRouterIndex int
	EntryPort         int
	EntryVirtualChannel int
	PerformedHops     int

	ServerPorts                          []int
	PortAverageNeighbourQueueLength      []float32
	PortLastTransmission                 []Time
	PortOccupiedOutputSpace              []int
	PortAvailableOutputSpace             []int
	VirtualChannelOccupiedOutputSpace    [][]int
	VirtualChannelAvailableOutputSpace   [][]int

	TimeAtFront  *int
	CurrentCycle Time
	Phit         *Phit
}

// RouterView is the subset of a Router's state a VirtualChannelPolicy may
// read (credits, occupancy) without being able to mutate router internals.
type RouterView interface {
	NumVirtualChannels() int
	BufferSize() int
	// KnownAvailableSpace reports credit known at port/vc from this
	// router's perspective as an emisor.
	KnownAvailableSpace(port, vc int) int
}

// VirtualChannelPolicy filters and/or relabels a candidate list. Policies
// are chained left to right; the chain must include some form of
// EnforceFlowControl so the final list only contains candidates the router
// can presently satisfy.
type VirtualChannelPolicy interface {
	Filter(candidates []CandidateEgress, router RouterView, info RequestInfo, topology Topology, rng Random) []CandidateEgress
	NeedServerPorts() bool
	NeedPortAverageQueueLength() bool
	NeedPortLastTransmission() bool
}

// Chain composes policies in sequence, short-circuiting once the candidate
// list is empty (no need to check further policies).
type Chain struct {
	Policies []VirtualChannelPolicy
}

func NewChain(policies ...VirtualChannelPolicy) *Chain {
	return &Chain{Policies: policies}
}

func (c *Chain) Filter(candidates []CandidateEgress, router RouterView, info RequestInfo, topology Topology, rng Random) []CandidateEgress {
	for _, p := range c.Policies {
		candidates = p.Filter(candidates, router, info, topology, rng)
		if len(candidates) == 0 {
			break
		}
	}
	return candidates
}

func (c *Chain) NeedServerPorts() bool {
	for _, p := range c.Policies {
		if p.NeedServerPorts() {
			return true
		}
	}
	return false
}

func (c *Chain) NeedPortAverageQueueLength() bool {
	for _, p := range c.Policies {
		if p.NeedPortAverageQueueLength() {
			return true
		}
	}
	return false
}

func (c *Chain) NeedPortLastTransmission() bool {
	for _, p := range c.Policies {
		if p.NeedPortLastTransmission() {
			return true
		}
	}
	return false
}
