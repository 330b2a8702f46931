package sim

import "fmt"

// Builder functions construct a component from its scoped configuration
// subtree plus whatever already-built context the component type needs to
// resolve cross-references (e.g. a Routing that wraps another Routing).
type (
	TopologyBuilder func(cv ConfigurationValue) (Topology, error)
	RoutingBuilder  func(cv ConfigurationValue, plugs *Plugs) (Routing, error)
	TrafficBuilder  func(cv ConfigurationValue, topology Topology, plugs *Plugs) (Traffic, error)
	AllocatorBuilder func(cv ConfigurationValue) (Allocator, error)
	PolicyBuilder   func(cv ConfigurationValue, plugs *Plugs) (VirtualChannelPolicy, error)
	PatternBuilder  func(cv ConfigurationValue) (Pattern, error)
)

// Plugs is a registry mapping configuration object names ("name" field of a
// ConfigurationValue object) to builder functions, so a host program can
// register its own Topology/Routing/Traffic/Allocator/VirtualChannelPolicy
// implementations without modifying this package (spec §6 "Polymorphism").
// Mirrors the Rust original's `Plugs` struct and the teacher's package-level
// factory-variable + init() registration convention.
type Plugs struct {
	topologies map[string]TopologyBuilder
	routings   map[string]RoutingBuilder
	traffics   map[string]TrafficBuilder
	allocators map[string]AllocatorBuilder
	policies   map[string]PolicyBuilder
	patterns   map[string]PatternBuilder
}

// NewPlugs returns an empty registry. Callers populate it with RegisterX
// before resolving any configuration, typically by calling each
// subpackage's Register function (sim/routing, sim/vcpolicy, sim/allocator,
// sim/topology, sim/traffic), as cmd/root.go does.
func NewPlugs() *Plugs {
	return &Plugs{
		topologies: make(map[string]TopologyBuilder),
		routings:   make(map[string]RoutingBuilder),
		traffics:   make(map[string]TrafficBuilder),
		allocators: make(map[string]AllocatorBuilder),
		policies:   make(map[string]PolicyBuilder),
		patterns:   make(map[string]PatternBuilder),
	}
}

func (p *Plugs) RegisterTopology(name string, b TopologyBuilder) { p.topologies[name] = b }
func (p *Plugs) RegisterRouting(name string, b RoutingBuilder)   { p.routings[name] = b }
func (p *Plugs) RegisterTraffic(name string, b TrafficBuilder)   { p.traffics[name] = b }
func (p *Plugs) RegisterAllocator(name string, b AllocatorBuilder) { p.allocators[name] = b }
func (p *Plugs) RegisterPolicy(name string, b PolicyBuilder)     { p.policies[name] = b }
func (p *Plugs) RegisterPattern(name string, b PatternBuilder)   { p.patterns[name] = b }

func (p *Plugs) BuildPattern(cv ConfigurationValue) (Pattern, error) {
	name, b, err := lookup(cv, p.patterns, "pattern")
	if err != nil {
		return nil, err
	}
	pat, err := b(cv)
	if err != nil {
		return nil, fmt.Errorf("building pattern %q: %w", name, err)
	}
	return pat, nil
}

func (p *Plugs) BuildTopology(cv ConfigurationValue) (Topology, error) {
	name, b, err := lookup(cv, p.topologies, "topology")
	if err != nil {
		return nil, err
	}
	t, err := b(cv)
	if err != nil {
		return nil, fmt.Errorf("building topology %q: %w", name, err)
	}
	return t, nil
}

func (p *Plugs) BuildRouting(cv ConfigurationValue) (Routing, error) {
	name, b, err := lookup(cv, p.routings, "routing")
	if err != nil {
		return nil, err
	}
	r, err := b(cv, p)
	if err != nil {
		return nil, fmt.Errorf("building routing %q: %w", name, err)
	}
	return r, nil
}

func (p *Plugs) BuildTraffic(cv ConfigurationValue, topology Topology) (Traffic, error) {
	name, b, err := lookup(cv, p.traffics, "traffic")
	if err != nil {
		return nil, err
	}
	t, err := b(cv, topology, p)
	if err != nil {
		return nil, fmt.Errorf("building traffic %q: %w", name, err)
	}
	return t, nil
}

func (p *Plugs) BuildAllocator(cv ConfigurationValue) (Allocator, error) {
	name, b, err := lookup(cv, p.allocators, "allocator")
	if err != nil {
		return nil, err
	}
	a, err := b(cv)
	if err != nil {
		return nil, fmt.Errorf("building allocator %q: %w", name, err)
	}
	return a, nil
}

func (p *Plugs) BuildPolicy(cv ConfigurationValue) (VirtualChannelPolicy, error) {
	name, b, err := lookup(cv, p.policies, "virtual channel policy")
	if err != nil {
		return nil, err
	}
	vp, err := b(cv, p)
	if err != nil {
		return nil, fmt.Errorf("building %s %q: %w", "virtual channel policy", name, err)
	}
	return vp, nil
}

// BuildPolicyChain resolves an array-valued configuration field into an
// ordered Chain, the shape sim/config.go's router option parsing expects for
// a router's virtual_channel_policies field.
func (p *Plugs) BuildPolicyChain(cv ConfigurationValue) (*Chain, error) {
	items, err := cv.AsArray()
	if err != nil {
		return nil, err
	}
	policies := make([]VirtualChannelPolicy, 0, len(items))
	for i, item := range items {
		vp, err := p.BuildPolicy(item)
		if err != nil {
			return nil, fmt.Errorf("policy chain entry %d: %w", i, err)
		}
		policies = append(policies, vp)
	}
	return NewChain(policies...), nil
}

func lookup[B any](cv ConfigurationValue, registry map[string]B, kind string) (string, B, error) {
	var zero B
	name, err := cv.ObjectName()
	if err != nil {
		return "", zero, fmt.Errorf("%s: %w", kind, err)
	}
	b, ok := registry[name]
	if !ok {
		return "", zero, fmt.Errorf("%w: unknown %s variant %q", ErrConfigMismatch, kind, name)
	}
	return name, b, nil
}
