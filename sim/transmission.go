package sim

// AcknowledgeMessage carries credit back to an upstream emisor when a phit
// leaves a buffer it occupied. SetAvailableSize, when present, lets an
// emisor that runs behind (e.g. after a coalescing delay) set its known
// credit directly rather than incrementing by one; VirtualChannel
// identifies which VC the credit applies to.
type AcknowledgeMessage struct {
	VirtualChannel   int
	SetAvailableSize *int
}

// StatusAtEmissor is the per-output-port, per-VC bookkeeping an emisor
// (router output or server injection port) keeps about the downstream
// receptor: a conservative lower bound of its free space, kept monotonic
// by Acknowledge messages, plus the last cycle a phit was transmitted.
type StatusAtEmissor struct {
	bufferSize       int
	knownAvailable   []int // per VC
	lastTransmission Time
	hasTransmitted   bool
}

// NewStatusAtEmissor returns a status for a downstream buffer of the given
// size, with numVC virtual channels each initially believed fully free.
func NewStatusAtEmissor(numVC, bufferSize int) *StatusAtEmissor {
	available := make([]int, numVC)
	for i := range available {
		available[i] = bufferSize
	}
	return &StatusAtEmissor{bufferSize: bufferSize, knownAvailable: available}
}

// NumVirtualChannels reports the number of VCs tracked.
func (s *StatusAtEmissor) NumVirtualChannels() int { return len(s.knownAvailable) }

// KnownAvailableSpace returns the known credit for vc. Per §3's invariant,
// this never exceeds bufferSize.
func (s *StatusAtEmissor) KnownAvailableSpace(vc int) int {
	return s.knownAvailable[vc]
}

// Notify must be called exactly once whenever this emisor sends a phit on
// vc: it decrements known credit and records the transmission cycle.
func (s *StatusAtEmissor) Notify(vc int, cycle Time) {
	if s.knownAvailable[vc] <= 0 {
		flowControlViolation("transmitted on vc %d with zero known credit", vc)
	}
	s.knownAvailable[vc]--
	s.lastTransmission = cycle
	s.hasTransmitted = true
}

// Acknowledge applies returned credit from a downstream AcknowledgeMessage.
// Panics on an unknown VC, per §7.
func (s *StatusAtEmissor) Acknowledge(msg AcknowledgeMessage) {
	if msg.VirtualChannel < 0 || msg.VirtualChannel >= len(s.knownAvailable) {
		flowControlViolation("acknowledge with unknown vc %d", msg.VirtualChannel)
	}
	if msg.SetAvailableSize != nil {
		s.knownAvailable[msg.VirtualChannel] = *msg.SetAvailableSize
		return
	}
	if s.knownAvailable[msg.VirtualChannel] >= s.bufferSize {
		flowControlViolation("credit exceeds buffer size on vc %d", msg.VirtualChannel)
	}
	s.knownAvailable[msg.VirtualChannel]++
}

// LastTransmission returns the last cycle a phit was sent through this
// emisor, and whether one ever was.
func (s *StatusAtEmissor) LastTransmission() (Time, bool) {
	return s.lastTransmission, s.hasTransmitted
}

// SpaceAtReceptor is the per-VC occupancy bookkeeping a router's input
// reception keeps about its own buffers.
type SpaceAtReceptor struct {
	buffers []*Buffer
}

// NewSpaceAtReceptor returns reception space for numVC virtual channels,
// each with the given per-VC buffer capacity.
func NewSpaceAtReceptor(numVC, bufferSize int) *SpaceAtReceptor {
	buffers := make([]*Buffer, numVC)
	for i := range buffers {
		buffers[i] = NewBuffer(bufferSize)
	}
	return &SpaceAtReceptor{buffers: buffers}
}

// OccupiedDedicatedSpace reports the occupancy of vc, or false if vc is out
// of range.
func (s *SpaceAtReceptor) OccupiedDedicatedSpace(vc int) (int, bool) {
	if vc < 0 || vc >= len(s.buffers) {
		return 0, false
	}
	return s.buffers[vc].Len(), true
}

// FrontVirtualChannel returns the head phit of vc's buffer, or nil.
func (s *SpaceAtReceptor) FrontVirtualChannel(vc int) *Phit {
	return s.buffers[vc].Front()
}

// Insert pushes an incoming phit into the VC already assigned to it. The
// injection VC is chosen once at the packet's begin phit (§4.2) and
// inherited by the rest of the packet's phits.
func (s *SpaceAtReceptor) Insert(p *Phit, vc int) {
	p.AssignVC(vc)
	s.buffers[vc].Push(p)
}

// Extract pops the head phit of vc and returns an AcknowledgeMessage to
// return its credit upstream.
func (s *SpaceAtReceptor) Extract(vc int) (*Phit, AcknowledgeMessage) {
	p := s.buffers[vc].Pop()
	return p, AcknowledgeMessage{VirtualChannel: vc}
}

// FrontIter iterates every VC that currently has a head phit, invoking fn
// with the phit.
func (s *SpaceAtReceptor) FrontIter(fn func(vc int, phit *Phit)) {
	for vc, buf := range s.buffers {
		if p := buf.Front(); p != nil {
			fn(vc, p)
		}
	}
}

// NumVirtualChannels reports how many VCs this reception space tracks.
func (s *SpaceAtReceptor) NumVirtualChannels() int { return len(s.buffers) }
