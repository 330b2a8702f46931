package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/flitsim/flitsim/sim/trace"
)

// Simulator drives the single-threaded, cooperative discrete-event loop
// described in spec §5: per cycle, all begin events, then all end events,
// then the server injection step, then event_queue.advance() and cycle++.
type Simulator struct {
	Cycle Time

	Queue    *EventQueue
	Topology Topology
	Routing  Routing
	Traffic  Traffic
	Network  *Network
	Stats    *Statistics

	// Trace records routing/allocation decisions when non-nil and its
	// Config.Level is trace.LevelDecisions; nil disables tracing entirely
	// (zero overhead, no allocation).
	Trace *trace.SimulationTrace

	rng *PartitionedRNG

	WarmupCycles   Time
	MeasuredCycles Time
}

// NewSimulator builds a driver ready to Run. queueCapacity must exceed the
// largest delay ever requested by any link or frequency divisor in the
// network (spec §9).
func NewSimulator(topology Topology, routing Routing, traffic Traffic, network *Network, seed int64, queueCapacity int, warmup, measured Time) *Simulator {
	s := &Simulator{
		Queue:          NewEventQueue(queueCapacity),
		Topology:       topology,
		Routing:        routing,
		Traffic:        traffic,
		Network:        network,
		Stats:          &Statistics{numServers: len(network.Servers)},
		rng:            NewPartitionedRNG(NewSimulationKey(seed)),
		WarmupCycles:   warmup,
		MeasuredCycles: measured,
	}
	routing.Initialize(topology, s.CoreRNG())
	return s
}

// CoreRNG is the single stream handed by reference into every routing,
// policy and allocator hook invoked this cycle (spec §5: "the global RNG is
// exclusive to the driver and handed to components' hooks by reference").
func (s *Simulator) CoreRNG() Random { return AsRandom(s.rng.ForSubsystem(SubsystemCore)) }

// TrafficRNG is the stream handed to Traffic's hooks; kept separate so
// drawing traffic doesn't perturb routing/allocator determinism, and vice
// versa.
func (s *Simulator) TrafficRNG() Random { return AsRandom(s.rng.ForSubsystem(SubsystemTraffic)) }

// Run advances the simulation for WarmupCycles+MeasuredCycles cycles,
// resetting statistics exactly once when the measured phase begins. Once
// the run completes, the driver-level Statistics counters are cross-checked
// against each Server's own bookkeeping; a mismatch means the two have
// diverged and is a bug in the driver, not a recoverable runtime condition.
func (s *Simulator) Run() {
	total := s.WarmupCycles + s.MeasuredCycles
	for s.Cycle = 0; s.Cycle < total; s.Cycle++ {
		if s.Cycle == s.WarmupCycles {
			s.Stats.WarmupReset(s.Cycle)
		}
		s.runOneCycle()
	}
	if err := s.Stats.CrossCheckServers(s.Network.Servers); err != nil {
		panic(err)
	}
}

func (s *Simulator) runOneCycle() {
	// --- 1. All begin events, in arrival order; processing may append
	// further begin events to this same slot, so we keep re-reading by
	// index rather than snapshotting.
	for i := 0; ; i++ {
		ev, ok := s.Queue.AccessBegin(i)
		if !ok {
			break
		}
		s.dispatchBegin(ev)
	}

	// --- 2. All end events, in arrival order. ---
	for i := 0; ; i++ {
		ev, ok := s.Queue.AccessEnd(i)
		if !ok {
			break
		}
		s.dispatchGeneric(ev)
	}

	// --- 3. Server injection step. ---
	for _, server := range s.Network.Servers {
		if phits, injected := s.injectIfWanted(server); injected {
			s.Stats.recordInjection(phits)
		}
		for _, eg := range server.injectionStep(s) {
			s.Queue.Enqueue(eg)
		}
	}

	// --- 4. Advance. ---
	s.Queue.Advance()
}

func (s *Simulator) dispatchBegin(ev Event) {
	switch {
	case ev.PhitToLocation != nil:
		s.handlePhitToLocation(ev.PhitToLocation)
	case ev.Acknowledge != nil:
		s.handleAcknowledge(ev.Acknowledge)
	case ev.Generic != nil:
		s.dispatchGeneric(ev)
	}
}

func (s *Simulator) dispatchGeneric(ev Event) {
	if ev.Generic == nil {
		return
	}
	for _, eg := range ev.Generic.Process(s) {
		s.Queue.Enqueue(eg)
	}
}

func (s *Simulator) handlePhitToLocation(ev *PhitToLocationEvent) {
	switch ev.New.Kind {
	case LocationRouterPort:
		router := s.Network.Routers[ev.New.RouterIdx]
		if ev.Phit.IsBegin() && ev.Previous.Kind == LocationRouterPort {
			ev.Phit.Packet.RoutingInfo.Hops++
			target := ev.Phit.Packet.Message.Destination
			targetLoc, _ := s.Topology.ServerNeighbour(target)
			s.Routing.UpdateRoutingInfo(ev.Phit.Packet.RoutingInfo, s.Topology, ev.New.RouterIdx, ev.New.RouterPort, targetLoc.RouterIdx, &target, s.CoreRNG())
		}
		for _, eg := range router.Insert(s.Cycle, ev.Phit, ev.New.RouterPort, vcForArrival(ev)) {
			s.Queue.Enqueue(eg)
		}
	case LocationServerPort:
		server := s.Network.Servers[ev.New.Server]
		s.Stats.recordConsumedPhit()
		if m, done := server.consume(ev.Phit); done {
			s.Stats.recordCompletedPacket(ev.Phit.Packet.RoutingInfo.Hops)
			if !s.Traffic.Consume(ev.New.Server, m, s.Cycle, s.Topology, s.TrafficRNG()) {
				logrus.Warnf("traffic.Consume returned false for server %d", ev.New.Server)
			}
		}
	}
}

// vcForArrival reports which VC a just-arrived begin phit should occupy at
// its new router. A begin phit keeps whatever VC the upstream side already
// assigned it at send time (the emisor picks once and the phit carries it
// across the link); continuations inherit the same VC, already stored on
// the phit.
func vcForArrival(ev *PhitToLocationEvent) int {
	vc, _ := ev.Phit.VC()
	return vc
}

func (s *Simulator) handleAcknowledge(ev *AcknowledgeEvent) {
	switch ev.Location.Kind {
	case LocationRouterPort:
		router := s.Network.Routers[ev.Location.RouterIdx]
		for _, eg := range router.Acknowledge(s.Cycle, ev.Location.RouterPort, ev.Message) {
			s.Queue.Enqueue(eg)
		}
	case LocationServerPort:
		s.Network.Servers[ev.Location.Server].Acknowledge(ev.Message)
	}
}

// injectIfWanted asks Traffic whether server should generate this cycle and,
// if so and its queue has room, enqueues the new message. Returns the
// message's phit count and true iff a message was actually injected (used to
// drive the injected_load stat, which counts phits like accepted_load does).
func (s *Simulator) injectIfWanted(server *Server) (int, bool) {
	if !s.Traffic.ShouldGenerate(server.Index, s.Cycle, s.TrafficRNG()) {
		return 0, false
	}
	msg, err := s.Traffic.GenerateMessage(server.Index, s.Cycle, s.Topology, s.TrafficRNG())
	if err != nil {
		// TrafficError (origin outside traffic, self-message) is silently
		// dropped per §7; anything else is a construction-time bug
		// surfacing too late to recover from mid-run.
		var te *TrafficError
		if asTrafficError(err, &te) {
			return 0, false
		}
		panic(err)
	}
	if !server.EnqueueMessage(msg) {
		s.Stats.recordMissedGeneration()
		return 0, false
	}
	return msg.Size, true
}

func asTrafficError(err error, target **TrafficError) bool {
	te, ok := err.(*TrafficError)
	if ok {
		*target = te
	}
	return ok
}
