package sim

// Message is the application-level unit provided by a traffic generator.
// A Message is shared by all the Packets it is segmented into; it is
// released once the destination server has consumed every phit belonging
// to it.
type Message struct {
	Source      int
	Destination int
	Size        int // total phits across all packets
	Created     Time

	packets  []*Packet
	consumed int // phits consumed so far at the destination
}

// NumPackets reports how many packets this message was segmented into.
// Valid only after the server's injection step has segmented it
// (segmentMessage).
func (m *Message) NumPackets() int { return len(m.packets) }

// Packet is the unit of routing: segmented from a Message on injection,
// released once its tail phit is consumed.
type Packet struct {
	Message     *Message
	Index       int // position of this packet within its message
	Size        int // phits in this packet, <= max packet size
	EntryCycle  Time
	RoutingInfo *RoutingInfo

	phits []*Phit
}

// RoutingInfo is the mutable per-packet scratchpad a Routing reads and
// writes across hops. Initialized at injection via Routing.InitializeRoutingInfo
// and updated at each successful hop via Routing.UpdateRoutingInfo.
type RoutingInfo struct {
	// Hops is the number of router-to-router edges already traversed.
	Hops int

	// RoutingRecord holds a per-dimension coordinate delta from origin to
	// destination, used by DOR-style routings.
	RoutingRecord []int32
	// SelectedPath holds a full sequence of router indices for
	// source-routed algorithms.
	SelectedPath []int
	// Selections holds routing-specific scratch choices (e.g. Valiant's
	// chosen intermediate, Sum's chosen sub-routing).
	Selections []int32
	// VisitedRouters records every router index already traversed, used by
	// Mindless and misrouting-avoidance schemes.
	VisitedRouters []int

	// Meta nests sub-RoutingInfo for meta-routings (Sum, ChannelMap,
	// Valiant's two phases). Never forms a cycle: each entry is owned
	// exclusively by this RoutingInfo.
	Meta []*RoutingInfo

	// Auxiliar is routing-owned scratch state whose shape the core never
	// inspects (PacketExtraInfo, §3 ADDED).
	Auxiliar any

	// SourceServer is the originating server, set at injection.
	SourceServer int
	hasSource    bool
}

// NewRoutingInfo returns a zeroed RoutingInfo ready for a routing's
// InitializeRoutingInfo hook.
func NewRoutingInfo() *RoutingInfo {
	return &RoutingInfo{}
}

// Source returns the recorded source server and whether one was set.
func (ri *RoutingInfo) Source() (int, bool) {
	return ri.SourceServer, ri.hasSource
}

// SetSource records the originating server.
func (ri *RoutingInfo) SetSource(server int) {
	ri.SourceServer = server
	ri.hasSource = true
}

// Phit is the smallest flow-control unit: it carries a back-reference to
// its packet, its index within the packet, and the virtual channel it was
// last assigned. A phit's VC is immutable from the moment it leaves its
// input buffer until it leaves the corresponding output buffer (§3
// invariant).
type Phit struct {
	Packet        *Packet
	Index         int // position within the packet
	VirtualChannel int
	hasVC         bool
}

// IsBegin reports whether this is the first phit of its packet.
func (p *Phit) IsBegin() bool { return p.Index == 0 }

// IsEnd reports whether this is the last phit of its packet.
func (p *Phit) IsEnd() bool { return p.Index == p.Packet.Size-1 }

// AssignVC records the virtual channel this phit currently occupies.
func (p *Phit) AssignVC(vc int) {
	p.VirtualChannel = vc
	p.hasVC = true
}

// VC returns the currently assigned virtual channel and whether one has
// been assigned yet (it hasn't, for a phit still sitting in a server's
// pre-injection queue).
func (p *Phit) VC() (int, bool) {
	return p.VirtualChannel, p.hasVC
}

// segmentMessage splits a message into packets of at most maxPacketSize
// phits each, in order. Grounded in spec §4.2: "the source server breaks
// the message into packets of size <= max-packet-size (in order)".
func segmentMessage(m *Message, maxPacketSize int, entryCycle Time) []*Packet {
	if maxPacketSize <= 0 {
		panic("max packet size must be positive")
	}
	remaining := m.Size
	index := 0
	packets := make([]*Packet, 0, (m.Size+maxPacketSize-1)/maxPacketSize)
	for remaining > 0 {
		size := maxPacketSize
		if remaining < size {
			size = remaining
		}
		p := &Packet{
			Message:     m,
			Index:       index,
			Size:        size,
			EntryCycle:  entryCycle,
			RoutingInfo: NewRoutingInfo(),
		}
		p.RoutingInfo.SetSource(m.Source)
		packets = append(packets, p)
		m.packets = append(m.packets, p)
		remaining -= size
		index++
	}
	return packets
}

// expandPhits enumerates a packet's phits in order. Phit 0 is begin; the
// last phit is end; these coincide for a size-1 packet.
func expandPhits(p *Packet) []*Phit {
	phits := make([]*Phit, p.Size)
	for i := range phits {
		phits[i] = &Phit{Packet: p, Index: i}
	}
	p.phits = phits
	return phits
}

// CandidateEgress is a proposed next hop returned by a Routing, possibly
// filtered and relabeled by the virtual-channel policy chain before being
// submitted to the allocator.
type CandidateEgress struct {
	Port           int
	VirtualChannel int
	// Label indicates priority; routings should use low values for higher
	// priority.
	Label int32
	// EstimatedRemainingHops, if known, includes the hop being requested.
	EstimatedRemainingHops *int
	// RouterAllows is nil until the router evaluates flow control for this
	// candidate; routings must leave it nil.
	RouterAllows *bool
	// Annotation lets a routing recognize, on a later call, which candidate
	// the router is referring to. Policies must preserve it.
	Annotation *RoutingAnnotation
}

// NewCandidateEgress returns a CandidateEgress with zero label and no
// estimate, ready for a routing to fill in further fields.
func NewCandidateEgress(port, vc int) CandidateEgress {
	return CandidateEgress{Port: port, VirtualChannel: vc}
}

// RoutingAnnotation lets a routing tag a candidate with opaque scratch
// values so it recognizes it across the policy chain and performedRequest.
type RoutingAnnotation struct {
	Values []int32
	Meta   []*RoutingAnnotation
}

// RoutingNextCandidates is the return type of Routing.Next.
type RoutingNextCandidates struct {
	Candidates []CandidateEgress
	// Idempotent means successive calls at the same router with unchanged
	// state return the exact same candidate set; the router may then cache
	// results and skip redundant calls. An empty, idempotent result means
	// "unroutable now and forever" (fatal); empty and non-idempotent means
	// "nothing right now, try again next cycle".
	Idempotent bool
}

// Len reports the number of candidates.
func (r RoutingNextCandidates) Len() int { return len(r.Candidates) }
