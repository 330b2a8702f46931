package sim

// VCARequest is a crossbar allocation request in router coordinates: a
// phit in (entry_port, entry_vc) asks to move to (requested_port,
// requested_vc). Label is the routing's priority label, or 0 once that
// information has been lost (e.g. after a round-trip through a plain
// Request with no priority).
type VCARequest struct {
	EntryPort    int
	EntryVC      int
	RequestedPort int
	RequestedVC  int
	Label        int32
}

// ToRequest converts a router-coordinate VCARequest into the Allocator's
// flat client/resource coordinate space.
func (r VCARequest) ToRequest(numVC int) Request {
	var priority *int
	if r.Label >= 0 {
		p := int(r.Label)
		priority = &p
	}
	return Request{
		Client:   r.EntryPort*numVC + r.EntryVC,
		Resource: r.RequestedPort*numVC + r.RequestedVC,
		Priority: priority,
	}
}

// ToVCARequest converts a granted flat Request back to router coordinates.
func (r Request) ToVCARequest(numVC int) VCARequest {
	label := int32(0)
	if r.Priority != nil {
		label = int32(*r.Priority)
	}
	return VCARequest{
		EntryPort:     r.Client / numVC,
		EntryVC:       r.Client % numVC,
		RequestedPort: r.Resource / numVC,
		RequestedVC:   r.Resource % numVC,
		Label:         label,
	}
}

// Request is a client (crossbar input) wanting a resource (crossbar
// output) with an optional priority. Lower priority values are granted
// earlier; priority 0 marks an intransit request under the
// intransit_priority convention.
type Request struct {
	Client   int
	Resource int
	Priority *int
}

// GrantedRequests is the result of one allocation round.
type GrantedRequests struct {
	Requests []Request
}

func (g *GrantedRequests) add(r Request) {
	g.Requests = append(g.Requests, r)
}

// Allocator matches a buffered set of (client, resource) requests to a set
// of grants: one winner per resource, one winner per client, per cycle
// (spec §4.5 / §8 universal invariant).
type Allocator interface {
	AddRequest(r Request)
	// PerformAllocation computes a matching and clears the buffered
	// requests.
	PerformAllocation(rng Random) GrantedRequests
	// SupportsIntransitPriority declares whether this allocator honors the
	// convention that router-to-router requests receive priority 0 when
	// the router's intransit_priority option is set.
	SupportsIntransitPriority() bool
}
