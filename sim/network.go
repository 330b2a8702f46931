package sim

// Server is one network endpoint: it generates messages via Traffic,
// segments them into packets and phits, and injects phits onto its
// attached router port (spec §4.7).
type Server struct {
	Index              int
	AttachedRouter     int
	AttachedRouterPort int

	maxPacketSize int
	injectionLC   int // link class of the server<->router link

	messages []*Message
	packets  []*Packet
	phits    []*Phit

	currentVC    int
	hasCurrentVC bool

	status *StatusAtEmissor // this server's view of the router's input credit

	// missedGenerations, injectedPhits, consumedPhits and consumedMessages
	// are this server's own lifetime bookkeeping, folded into Statistics'
	// matching lifetime counters via recordInjection/recordMissedGeneration/
	// recordConsumedPhit/recordCompletedPacket and cross-checked against
	// them by Statistics.CrossCheckServers.
	missedGenerations int
	injectedPhits     int
	consumedPhits     int
	consumedMessages  int
}

// NewServer builds a Server attached to (router, port) with queue capacity
// bound only by Go's slice growth (the injection queue itself isn't
// capacity-limited in this core; "server overflow" in spec §7 refers to the
// message queue, guarded by maxQueuedMessages below).
func NewServer(index, router, port, numVC, routerBufferSize, maxPacketSize, injectionLinkClass int) *Server {
	return &Server{
		Index:              index,
		AttachedRouter:     router,
		AttachedRouterPort: port,
		maxPacketSize:      maxPacketSize,
		injectionLC:        injectionLinkClass,
		status:             NewStatusAtEmissor(numVC, routerBufferSize),
	}
}

const maxQueuedMessages = 64

// EnqueueMessage attempts to admit a newly generated message. Returns false
// (counted as a missed-generation statistic, not an error) if the queue is
// full.
func (s *Server) EnqueueMessage(m *Message) bool {
	if len(s.messages) >= maxQueuedMessages {
		s.missedGenerations++
		return false
	}
	s.messages = append(s.messages, m)
	return true
}

// Acknowledge applies credit returned from the attached router.
func (s *Server) Acknowledge(msg AcknowledgeMessage) {
	s.status.Acknowledge(msg)
}

// injectionStep performs one cycle of spec §4.7's server-side state
// machine: segment the next message into packets if none are queued,
// expand the next packet into phits if none are queued, then attempt to
// emit one phit onto the link.
func (s *Server) injectionStep(sim *Simulator) []EventGeneration {
	if len(s.packets) == 0 && len(s.messages) > 0 {
		m := s.messages[0]
		s.messages = s.messages[1:]
		s.packets = append(s.packets, segmentMessage(m, s.maxPacketSize, sim.Cycle)...)
	}
	if len(s.phits) == 0 && len(s.packets) > 0 {
		p := s.packets[0]
		s.packets = s.packets[1:]
		target := p.Message.Destination
		targetLoc, _ := sim.Topology.ServerNeighbour(target)
		sim.Routing.InitializeRoutingInfo(p.RoutingInfo, sim.Topology, s.AttachedRouter, targetLoc.RouterIdx, &target, sim.CoreRNG())
		s.phits = append(s.phits, expandPhits(p)...)
	}
	if len(s.phits) == 0 {
		return nil
	}

	head := s.phits[0]
	if !s.hasCurrentVC {
		if !head.IsBegin() {
			return nil // shouldn't happen; defensive.
		}
		vc, ok := s.pickVC()
		if !ok {
			return nil
		}
		s.currentVC = vc
		s.hasCurrentVC = true
	}

	lc := sim.Topology.LinkClasses()[s.injectionLC]
	if sim.Cycle%lc.FrequencyDivisor != 0 {
		return nil
	}
	if s.status.KnownAvailableSpace(s.currentVC) <= 0 {
		return nil
	}

	s.phits = s.phits[1:]
	s.status.Notify(s.currentVC, sim.Cycle)
	s.injectedPhits++
	head.AssignVC(s.currentVC)

	loc, _ := sim.Topology.ServerNeighbour(s.Index)
	events := []EventGeneration{{
		Delay:    lc.Delay,
		Position: Begin,
		Event: Event{PhitToLocation: &PhitToLocationEvent{
			Phit:     head,
			Previous: ServerLocation(s.Index),
			New:      loc,
		}},
	}}

	if head.IsEnd() {
		s.hasCurrentVC = false
	}
	return events
}

// pickVC scans VCs at the attached router port and picks the first with
// credit.
func (s *Server) pickVC() (int, bool) {
	for vc := 0; vc < s.status.NumVirtualChannels(); vc++ {
		if s.status.KnownAvailableSpace(vc) > 0 {
			return vc, true
		}
	}
	return 0, false
}

// consume records a phit's arrival at this server. When the last phit of a
// message arrives, it reports the message as consumed and returns it (and
// true) so the driver can invoke Traffic.Consume.
func (s *Server) consume(phit *Phit) (*Message, bool) {
	s.consumedPhits++
	m := phit.Packet.Message
	m.consumed++
	if phit.IsEnd() {
		// packet released implicitly: Go's GC reclaims it once nothing
		// references it further.
	}
	if m.consumed == m.Size {
		s.consumedMessages++
		return m, true
	}
	return nil, false
}

// Network is the collection of routers, an adjacency (Topology) and the
// per-server injection/consumption endpoints (spec component 9).
type Network struct {
	Topology Topology
	Routers  []*Router
	Servers  []*Server
}

// NewNetwork builds routers and servers over topology using the given
// per-router RouterConfig template (router index and port count are filled
// in per router).
func NewNetwork(topology Topology, routerCfg func(routerIndex, numPorts int) RouterConfig, maxPacketSize int) *Network {
	n := &Network{Topology: topology}
	n.Routers = make([]*Router, topology.NumRouters())
	for r := 0; r < topology.NumRouters(); r++ {
		numPorts := topology.Ports(r)
		n.Routers[r] = NewRouter(routerCfg(r, numPorts), numPorts)
	}
	n.Servers = make([]*Server, topology.NumServers())
	for s := 0; s < topology.NumServers(); s++ {
		loc, lc := topology.ServerNeighbour(s)
		if loc.Kind != LocationRouterPort {
			panic("server not attached to a router")
		}
		numVC := n.Routers[loc.RouterIdx].NumVirtualChannels()
		n.Servers[s] = NewServer(s, loc.RouterIdx, loc.RouterPort, numVC, n.Routers[loc.RouterIdx].BufferSize(), maxPacketSize, lc)
	}
	return n
}
