package sim_test

import (
	"math"
	"testing"

	"github.com/flitsim/flitsim/sim"
	"github.com/flitsim/flitsim/sim/allocator"
	"github.com/flitsim/flitsim/sim/routing"
	"github.com/flitsim/flitsim/sim/topology"
	"github.com/flitsim/flitsim/sim/traffic"
	"github.com/flitsim/flitsim/sim/vcpolicy"
)

func basicLinkClasses() []sim.LinkClass {
	return []sim.LinkClass{{Delay: 1, FrequencyDivisor: 1}, {Delay: 1, FrequencyDivisor: 1}}
}

func basicRouterConfig(index, buffer, flitSize int, allowBusyPort bool) sim.RouterConfig {
	return basicRouterConfigWithDivisor(index, buffer, flitSize, allowBusyPort, 1)
}

func basicRouterConfigWithDivisor(index, buffer, flitSize int, allowBusyPort bool, crossbarDivisor int) sim.RouterConfig {
	return sim.RouterConfig{
		RouterIndex:            index,
		NumVirtualChannels:     1,
		BufferSize:             buffer,
		OutputBufferSize:       buffer,
		FlitSize:               flitSize,
		CrossbarFrequencyDivisor: sim.Time(crossbarDivisor),
		MaximumPacketSize:      flitSize,
		AllowRequestBusyPort:   allowBusyPort,
		VirtualChannelPolicies: []sim.VirtualChannelPolicy{&vcpolicy.EnforceFlowControl{}},
		Allocator:              allocator.NewRandomWithPriority(),
	}
}

func linkClassesWithDivisor(divisor int) []sim.LinkClass {
	return []sim.LinkClass{
		{Delay: 1, FrequencyDivisor: sim.Time(divisor)},
		{Delay: 1, FrequencyDivisor: sim.Time(divisor)},
	}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// Scenario 1 (spec §8): local burst, two servers on one router.
func TestSimulator_LocalBurstTwoServersOneRouter(t *testing.T) {
	top, err := topology.NewHamming([]int{1}, 2, basicLinkClasses())
	if err != nil {
		t.Fatal(err)
	}
	pattern, err := traffic.NewShiftPattern([]int{1, 2}, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := pattern.Initialize(2, 2, top, nil); err != nil {
		t.Fatal(err)
	}
	tr := traffic.NewBurst(pattern, []int{0, 1}, 1, 16, nil)
	routingImpl := routing.NewShortest()

	network := sim.NewNetwork(top, func(idx, ports int) sim.RouterConfig {
		return basicRouterConfig(idx, 64, 16, true)
	}, 16)

	s := sim.NewSimulator(top, routingImpl, tr, network, 1, 256, 0, 18)
	s.Run()

	if s.Cycle != 18 {
		t.Errorf("cycle = %d, want 18", s.Cycle)
	}
	injected := s.Stats.InjectedLoad(18)
	wantInjected := 16.0 / 18.0
	if !almostEqual(injected, wantInjected) {
		t.Errorf("injected_load = %v, want %v", injected, wantInjected)
	}
	accepted := s.Stats.AcceptedLoad(18)
	if !almostEqual(accepted, injected) {
		t.Errorf("accepted_load = %v, want == injected_load (%v)", accepted, injected)
	}
	if hops := s.Stats.AveragePacketHops(); hops != 0 {
		t.Errorf("average_packet_hops = %v, want 0", hops)
	}
}

// Scenario 2 (spec §8): two routers, single hop.
func TestSimulator_TwoRoutersSingleHop(t *testing.T) {
	top, err := topology.NewHamming([]int{2}, 1, basicLinkClasses())
	if err != nil {
		t.Fatal(err)
	}
	pattern, err := traffic.NewShiftPattern([]int{2}, []int{1})
	if err != nil {
		t.Fatal(err)
	}
	if err := pattern.Initialize(2, 2, top, nil); err != nil {
		t.Fatal(err)
	}
	tr := traffic.NewBurst(pattern, []int{0, 1}, 1, 16, nil)
	routingImpl := routing.NewShortest()

	network := sim.NewNetwork(top, func(idx, ports int) sim.RouterConfig {
		return basicRouterConfig(idx, 64, 16, true)
	}, 16)

	s := sim.NewSimulator(top, routingImpl, tr, network, 1, 256, 0, 19)
	s.Run()

	if s.Cycle != 19 {
		t.Errorf("cycle = %d, want 19", s.Cycle)
	}
	injected := s.Stats.InjectedLoad(19)
	wantInjected := 16.0 / 19.0
	if !almostEqual(injected, wantInjected) {
		t.Errorf("injected_load = %v, want %v", injected, wantInjected)
	}
	accepted := s.Stats.AcceptedLoad(19)
	if !almostEqual(accepted, injected) {
		t.Errorf("accepted_load = %v, want == injected_load (%v)", accepted, injected)
	}
	if hops := s.Stats.AveragePacketHops(); hops != 1 {
		t.Errorf("average_packet_hops = %v, want 1", hops)
	}
}

// Scenario 3 (spec §8): frequency divisor 2 on a basic router, two routers.
func TestSimulator_FrequencyDivisorTwoRoutersSingleHop(t *testing.T) {
	top, err := topology.NewHamming([]int{2}, 1, linkClassesWithDivisor(2))
	if err != nil {
		t.Fatal(err)
	}
	pattern, err := traffic.NewShiftPattern([]int{2}, []int{1})
	if err != nil {
		t.Fatal(err)
	}
	if err := pattern.Initialize(2, 2, top, nil); err != nil {
		t.Fatal(err)
	}
	tr := traffic.NewBurst(pattern, []int{0, 1}, 1, 16, nil)
	routingImpl := routing.NewShortest()

	network := sim.NewNetwork(top, func(idx, ports int) sim.RouterConfig {
		return basicRouterConfigWithDivisor(idx, 64, 16, true, 2)
	}, 16)

	measured := sim.Time(35)
	s := sim.NewSimulator(top, routingImpl, tr, network, 1, 256, 0, measured)
	s.Run()

	accepted := s.Stats.AcceptedLoad(measured)
	wantAccepted := 16.0 / 35.0
	if !almostEqual(accepted, wantAccepted) {
		t.Errorf("accepted_load = %v, want %v", accepted, wantAccepted)
	}
	if hops := s.Stats.AveragePacketHops(); hops != 1 {
		t.Errorf("average_packet_hops = %v, want 1", hops)
	}
}
