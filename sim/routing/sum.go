package routing

import (
	"fmt"

	"github.com/flitsim/flitsim/sim"
)

// Sum offers the union of two sub-routings' candidates, each confined to
// its own disjoint virtual-channel range and shifted by its own extra
// label — grounded on the Rust original's SumRouting under the TryBoth
// policy (routing/extra.rs). Other SumRoutingPolicy variants (Random,
// Stubborn, SecondWhenFirstEmpty, EscapeToSecond) aren't implemented: they
// need persistent per-packet sub-routing selection state the spec's literal
// scenarios never exercise (see DESIGN.md).
type Sum struct {
	sim.BaseRouting
	sub       [2]sim.Routing
	vcs       [2][]int
	extraLabel [2]int32
}

func NewSum(first, second sim.Routing, firstVCs, secondVCs []int, firstExtraLabel, secondExtraLabel int32) *Sum {
	return &Sum{
		sub:        [2]sim.Routing{first, second},
		vcs:        [2][]int{firstVCs, secondVCs},
		extraLabel: [2]int32{firstExtraLabel, secondExtraLabel},
	}
}

func (s *Sum) subMeta(ri *sim.RoutingInfo, i int) *sim.RoutingInfo {
	if len(ri.Meta) != 2 {
		panic("Sum: routing info not initialized")
	}
	return ri.Meta[i]
}

func (s *Sum) Next(routingInfo *sim.RoutingInfo, topology sim.Topology, currentRouter, targetRouter int, targetServer *int, numVC int, rng sim.Random) (sim.RoutingNextCandidates, error) {
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

	idempotent := true
	var all []sim.CandidateEgress
	for i := 0; i < 2; i++ {
		sub, err := s.sub[i].Next(s.subMeta(routingInfo, i), topology, currentRouter, targetRouter, targetServer, len(s.vcs[i]), rng)
		if err != nil {
			return sim.RoutingNextCandidates{}, err
		}
		idempotent = idempotent && sub.Idempotent
		for _, c := range sub.Candidates {
			c.VirtualChannel = s.vcs[i][c.VirtualChannel]
			c.Label += s.extraLabel[i]
			c.Annotation = &sim.RoutingAnnotation{Values: []int32{int32(i)}, Meta: []*sim.RoutingAnnotation{c.Annotation}}
			all = append(all, c)
		}
	}
	return sim.RoutingNextCandidates{Candidates: all, Idempotent: idempotent}, nil
}

func (s *Sum) InitializeRoutingInfo(routingInfo *sim.RoutingInfo, topology sim.Topology, currentRouter, targetRouter int, targetServer *int, rng sim.Random) {
	routingInfo.Meta = []*sim.RoutingInfo{sim.NewRoutingInfo(), sim.NewRoutingInfo()}
	for i := 0; i < 2; i++ {
		s.sub[i].InitializeRoutingInfo(routingInfo.Meta[i], topology, currentRouter, targetRouter, targetServer, rng)
	}
}

func (s *Sum) UpdateRoutingInfo(routingInfo *sim.RoutingInfo, topology sim.Topology, currentRouter, currentPort, targetRouter int, targetServer *int, rng sim.Random) {
	for i := 0; i < 2; i++ {
		meta := s.subMeta(routingInfo, i)
		meta.Hops++
		s.sub[i].UpdateRoutingInfo(meta, topology, currentRouter, currentPort, targetRouter, targetServer, rng)
	}
}

func (s *Sum) Initialize(topology sim.Topology, rng sim.Random) {
	s.sub[0].Initialize(topology, rng)
	s.sub[1].Initialize(topology, rng)
}

func (s *Sum) PerformedRequest(requested sim.CandidateEgress, routingInfo *sim.RoutingInfo, topology sim.Topology, currentRouter, targetRouter int, targetServer *int, numVC int, rng sim.Random) {
	if requested.Annotation == nil || len(requested.Annotation.Values) == 0 {
		return
	}
	i := int(requested.Annotation.Values[0])
	subVC := -1
	for j, vc := range s.vcs[i] {
		if vc == requested.VirtualChannel {
			subVC = j
			break
		}
	}
	if subVC == -1 {
		return
	}
	sub := requested
	sub.VirtualChannel = subVC
	sub.Label -= s.extraLabel[i]
	sub.Annotation = requested.Annotation.Meta[0]
	s.sub[i].PerformedRequest(sub, s.subMeta(routingInfo, i), topology, currentRouter, targetRouter, targetServer, len(s.vcs[i]), rng)
}

// RegisterSum installs the "Sum" builder, resolving its "first"/"second"
// sub-routings and VC/label fields from the configuration object.
func RegisterSum(plugs *sim.Plugs) {
	plugs.RegisterRouting("Sum", func(cv sim.ConfigurationValue, p *sim.Plugs) (sim.Routing, error) {
		firstCV, ok := cv.Get("first")
		if !ok {
			return nil, fmt.Errorf("%w: Sum missing \"first\"", sim.ErrConfigMismatch)
		}
		secondCV, ok := cv.Get("second")
		if !ok {
			return nil, fmt.Errorf("%w: Sum missing \"second\"", sim.ErrConfigMismatch)
		}
		first, err := p.BuildRouting(firstCV)
		if err != nil {
			return nil, err
		}
		second, err := p.BuildRouting(secondCV)
		if err != nil {
			return nil, err
		}
		firstVCs, err := intArray(cv, "first_vcs")
		if err != nil {
			return nil, err
		}
		secondVCs, err := intArray(cv, "second_vcs")
		if err != nil {
			return nil, err
		}
		var firstExtra, secondExtra int32
		if extras, ok := cv.Get("extras"); ok {
			if v, ok := extras.Get("first"); ok {
				n, err := v.AsInt()
				if err != nil {
					return nil, err
				}
				firstExtra = int32(n)
			}
			if v, ok := extras.Get("second"); ok {
				n, err := v.AsInt()
				if err != nil {
					return nil, err
				}
				secondExtra = int32(n)
			}
		}
		return NewSum(first, second, firstVCs, secondVCs, firstExtra, secondExtra), nil
	})
}

func intArray(cv sim.ConfigurationValue, key string) ([]int, error) {
	v, ok := cv.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q", sim.ErrConfigMismatch, key)
	}
	arr, err := v.AsArray()
	if err != nil {
		return nil, err
	}
	out := make([]int, len(arr))
	for i, item := range arr {
		n, err := item.AsInt()
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
