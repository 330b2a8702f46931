// Package vcpolicy holds the concrete VirtualChannelPolicy implementations
// needed to exercise the core, grounded on caminos-lib's policies.rs.
package vcpolicy

import "github.com/flitsim/flitsim/sim"

// base gives every policy here the default "doesn't need anything"
// precompute declarations; policies that do need a measure override the
// relevant method.
type base struct{}

func (base) NeedServerPorts() bool             { return false }
func (base) NeedPortAverageQueueLength() bool  { return false }
func (base) NeedPortLastTransmission() bool    { return false }

// Identity passes every candidate through unchanged.
type Identity struct{ base }

func (Identity) Filter(c []sim.CandidateEgress, _ sim.RouterView, _ sim.RequestInfo, _ sim.Topology, _ sim.Random) []sim.CandidateEgress {
	return c
}

// Random shuffles the candidate list so a later truncating policy (or the
// allocator) picks among equals without positional bias.
type Random struct{ base }

func (Random) Filter(c []sim.CandidateEgress, _ sim.RouterView, _ sim.RequestInfo, _ sim.Topology, rng sim.Random) []sim.CandidateEgress {
	rng.Shuffle(len(c), func(i, j int) { c[i], c[j] = c[j], c[i] })
	return c
}

// EnforceFlowControl drops every candidate the router has already marked
// disallowed (RouterAllows == false); candidates the router hasn't yet
// evaluated (nil) pass through unfiltered. Grounded on the Rust original's
// eponymous policy — spec §8's universal invariant "every granted request
// has router_allows != Some(false)" requires some chain to include this.
type EnforceFlowControl struct{ base }

func (EnforceFlowControl) Filter(c []sim.CandidateEgress, _ sim.RouterView, _ sim.RequestInfo, _ sim.Topology, _ sim.Random) []sim.CandidateEgress {
	out := c[:0]
	for _, cand := range c {
		if cand.RouterAllows == nil || *cand.RouterAllows {
			out = append(out, cand)
		}
	}
	return out
}

// Hops keeps only candidates whose virtual channel equals the packet's
// performed-hop count, except for candidates that exit onto a server port
// (every VC is acceptable on the final hop).
type Hops struct{ base }

func (Hops) NeedServerPorts() bool { return true }

func (h Hops) Filter(c []sim.CandidateEgress, _ sim.RouterView, info sim.RequestInfo, _ sim.Topology, _ sim.Random) []sim.CandidateEgress {
	out := c[:0]
	for _, cand := range c {
		if isServerPort(info.ServerPorts, cand.Port) || cand.VirtualChannel == info.PerformedHops {
			out = append(out, cand)
		}
	}
	return out
}

func isServerPort(serverPorts []int, port int) bool {
	for _, p := range serverPorts {
		if p == port {
			return true
		}
	}
	return false
}

// LowestLabel keeps only the candidates sharing the minimum label.
type LowestLabel struct{ base }

func (LowestLabel) Filter(c []sim.CandidateEgress, _ sim.RouterView, _ sim.RequestInfo, _ sim.Topology, _ sim.Random) []sim.CandidateEgress {
	if len(c) == 0 {
		return c
	}
	min := c[0].Label
	for _, cand := range c[1:] {
		if cand.Label < min {
			min = cand.Label
		}
	}
	out := c[:0]
	for _, cand := range c {
		if cand.Label == min {
			out = append(out, cand)
		}
	}
	return out
}

// Register installs the Identity/Random/EnforceFlowControl/Hops/LowestLabel
// builders.
func Register(plugs *sim.Plugs) {
	plugs.RegisterPolicy("Identity", func(sim.ConfigurationValue, *sim.Plugs) (sim.VirtualChannelPolicy, error) {
		return Identity{}, nil
	})
	plugs.RegisterPolicy("Random", func(sim.ConfigurationValue, *sim.Plugs) (sim.VirtualChannelPolicy, error) {
		return Random{}, nil
	})
	plugs.RegisterPolicy("EnforceFlowControl", func(sim.ConfigurationValue, *sim.Plugs) (sim.VirtualChannelPolicy, error) {
		return EnforceFlowControl{}, nil
	})
	plugs.RegisterPolicy("Hops", func(sim.ConfigurationValue, *sim.Plugs) (sim.VirtualChannelPolicy, error) {
		return Hops{}, nil
	})
	plugs.RegisterPolicy("LowestLabel", func(sim.ConfigurationValue, *sim.Plugs) (sim.VirtualChannelPolicy, error) {
		return LowestLabel{}, nil
	})
}
