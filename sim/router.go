package sim

import (
	"fmt"

	"github.com/flitsim/flitsim/sim/trace"
)

// portVC identifies a (port, virtual channel) pair.
type portVC struct {
	Port int
	VC   int
}

// outputArbiterToken implements the link-emission tie-break: prefer
// continuations of in-flight packets; among equally eligible new heads,
// round-robin via a per-output-port token. Grounded in the Rust original's
// `OutputArbiter::Token` (input_output.rs).
type outputArbiterToken struct {
	token int
}

func (a *outputArbiterToken) advance(n int) {
	if n == 0 {
		return
	}
	a.token = (a.token + 1) % n
}

// RouterConfig groups the construction-time parameters of an InputOutput
// router (spec §4.6).
type RouterConfig struct {
	RouterIndex              int
	NumVirtualChannels       int
	BufferSize               int
	OutputBufferSize         int
	FlitSize                 int
	CrossbarDelay            Time
	CrossbarFrequencyDivisor Time
	Bubble                   bool
	MaximumPacketSize        int
	IntransitPriority        bool
	AllowRequestBusyPort     bool
	NeglectBusyOutput        bool
	VirtualChannelPolicies   []VirtualChannelPolicy
	Allocator                Allocator
}

// Router is the per-cycle Input-Output pipeline of spec §4.6: crossbar
// arbitration, virtual-channel flow control and allocator invocation for
// one router in the network.
type Router struct {
	cfg RouterConfig

	policies *Chain

	numPorts int
	// reception[port] holds the per-VC input buffers for that port.
	reception []*SpaceAtReceptor
	// transmissionStatus[port] is this router's view of the downstream
	// neighbour's credit on that port.
	transmissionStatus []*StatusAtEmissor
	// outputBuffers[port][vc] holds phits waiting to be sent on the link.
	outputBuffers [][]*AugmentedBuffer

	// selectedInput[port][vc] = the (entry_port, entry_vc) currently bound
	// to this output slot, if any.
	selectedInput [][]*portVC
	// selectedOutput[port][vc] = the (exit_port, exit_vc) an input slot is
	// currently bound to, if any.
	selectedOutput [][]*portVC

	timeAtInputHead [][]int
	outputToken     []outputArbiterToken

	lastProcessAtCycle *Time

	statsBeginCycle                  Time
	statsOutputBufferOccupationPerVC []float64
	statsReceptionSpaceOccupationPerVC []float64

	nextScheduledCycle *Time
}

// Schedule requests this router be ticked at the nearest crossbar slot at
// or after currentCycle+delay. Mirrors the Rust original's stack-tracked
// self-scheduling, simplified to a single pending target: a later call
// requesting an earlier target than the already-pending one still wins (we
// keep the earliest), and a call requesting a later or equal target is a
// no-op, avoiding duplicate Generic events for the same slot.
func (r *Router) Schedule(currentCycle, delay Time) *EventGeneration {
	target := RoundToMultiple(currentCycle+delay, r.cfg.CrossbarFrequencyDivisor)
	if r.nextScheduledCycle != nil && target >= *r.nextScheduledCycle {
		return nil
	}
	t := target
	r.nextScheduledCycle = &t
	return &EventGeneration{Delay: target - currentCycle, Position: End, Event: Event{Generic: r}}
}

// NewRouter builds a Router. numPorts is the router's degree in the
// topology (including server-attached ports).
func NewRouter(cfg RouterConfig, numPorts int) *Router {
	r := &Router{cfg: cfg, numPorts: numPorts}
	r.policies = NewChain(cfg.VirtualChannelPolicies...)

	r.reception = make([]*SpaceAtReceptor, numPorts)
	r.transmissionStatus = make([]*StatusAtEmissor, numPorts)
	r.outputBuffers = make([][]*AugmentedBuffer, numPorts)
	r.selectedInput = make([][]*portVC, numPorts)
	r.selectedOutput = make([][]*portVC, numPorts)
	r.timeAtInputHead = make([][]int, numPorts)
	r.outputToken = make([]outputArbiterToken, numPorts)

	for p := 0; p < numPorts; p++ {
		r.reception[p] = NewSpaceAtReceptor(cfg.NumVirtualChannels, cfg.BufferSize)
		r.transmissionStatus[p] = NewStatusAtEmissor(cfg.NumVirtualChannels, cfg.OutputBufferSize)
		r.outputBuffers[p] = make([]*AugmentedBuffer, cfg.NumVirtualChannels)
		r.selectedInput[p] = make([]*portVC, cfg.NumVirtualChannels)
		r.selectedOutput[p] = make([]*portVC, cfg.NumVirtualChannels)
		r.timeAtInputHead[p] = make([]int, cfg.NumVirtualChannels)
		for vc := 0; vc < cfg.NumVirtualChannels; vc++ {
			r.outputBuffers[p][vc] = NewAugmentedBuffer(cfg.OutputBufferSize)
		}
	}

	r.statsOutputBufferOccupationPerVC = make([]float64, cfg.NumVirtualChannels)
	r.statsReceptionSpaceOccupationPerVC = make([]float64, cfg.NumVirtualChannels)
	return r
}

func (r *Router) NumVirtualChannels() int { return r.cfg.NumVirtualChannels }
func (r *Router) BufferSize() int         { return r.cfg.BufferSize }

// KnownAvailableSpace implements RouterView: the downstream credit this
// router believes is free on (port, vc).
func (r *Router) KnownAvailableSpace(port, vc int) int {
	return r.transmissionStatus[port].KnownAvailableSpace(vc)
}

// Insert delivers an arriving phit into port's reception space, in the VC
// the upstream side assigned it (begin phits choose a VC; continuations
// inherit it). Called from a PhitToLocation begin-event handler; schedules
// this router's next Generic tick so the just-arrived phit gets considered
// this same cycle.
func (r *Router) Insert(currentCycle Time, phit *Phit, port, vc int) []EventGeneration {
	r.reception[port].Insert(phit, vc)
	if eg := r.Schedule(currentCycle, 0); eg != nil {
		return []EventGeneration{*eg}
	}
	return nil
}

// Acknowledge applies returned credit arriving on port and reschedules this
// router so a link emission blocked on that credit gets retried.
func (r *Router) Acknowledge(currentCycle Time, port int, msg AcknowledgeMessage) []EventGeneration {
	r.transmissionStatus[port].Acknowledge(msg)
	if eg := r.Schedule(currentCycle, 0); eg != nil {
		return []EventGeneration{*eg}
	}
	return nil
}

// canPhitAdvance reports whether a phit may move into (port, vc) given
// known downstream credit and, if bubbleInUse, the bubble flow-control
// reservation for a new packet crossing a direction change.
func (r *Router) canPhitAdvance(phit *Phit, port, vc int, bubbleInUse bool) bool {
	credits := r.transmissionStatus[port].KnownAvailableSpace(vc)
	if bubbleInUse {
		needed := phit.Packet.Size + r.cfg.MaximumPacketSize
		return credits >= needed
	}
	return credits > 0
}

// Process runs one cycle of the 8-step Input-Output pipeline (spec §4.6).
// It is invoked as a Generic End event at cycles that are multiples of
// CrossbarFrequencyDivisor.
func (r *Router) Process(sim *Simulator) []EventGeneration {
	cycle := sim.Cycle
	if cycle%r.cfg.CrossbarFrequencyDivisor != 0 {
		panic(fmt.Sprintf("router %d processed at cycle %d not a multiple of its crossbar frequency divisor %d", r.cfg.RouterIndex, cycle, r.cfg.CrossbarFrequencyDivisor))
	}
	cyclesSpan := Time(1)
	if r.lastProcessAtCycle != nil {
		if *r.lastProcessAtCycle >= cycle {
			panic(fmt.Sprintf("router %d processed twice at cycle %d", r.cfg.RouterIndex, cycle))
		}
		cyclesSpan = cycle - *r.lastProcessAtCycle
	}
	last := cycle
	r.lastProcessAtCycle = &last
	r.nextScheduledCycle = nil // the event that led here has now been served.

	topology := sim.Topology
	numVC := r.cfg.NumVirtualChannels

	// --- 1. Statistics tick ---
	for vc := 0; vc < numVC; vc++ {
		sum := 0
		for _, recSpace := range r.reception {
			occ, _ := recSpace.OccupiedDedicatedSpace(vc)
			sum += occ
		}
		r.statsReceptionSpaceOccupationPerVC[vc] += float64(sum*int(cyclesSpan)) / float64(len(r.reception))

		outSum := 0
		for port := 0; port < r.numPorts; port++ {
			outSum += r.outputBuffers[port][vc].Len()
		}
		r.statsOutputBufferOccupationPerVC[vc] += float64(outSum*int(cyclesSpan)) / float64(r.numPorts)
	}

	// --- 2. Precompute policy inputs (only what the chain needs) ---
	var serverPorts []int
	if r.policies.NeedServerPorts() {
		for p := 0; p < r.numPorts; p++ {
			if loc, _ := topology.Neighbour(r.cfg.RouterIndex, p); loc.Kind == LocationServerPort {
				serverPorts = append(serverPorts, p)
			}
		}
	}

	busyPorts := make([]bool, r.numPorts)
	for port := 0; port < r.numPorts; port++ {
		for vc := 0; vc < numVC; vc++ {
			sel := r.selectedInput[port][vc]
			if sel == nil {
				continue
			}
			if phit := r.reception[sel.Port].FrontVirtualChannel(sel.VC); phit != nil {
				if r.canPhitAdvance(phit, port, vc, false) {
					busyPorts[port] = true
					break
				}
			}
		}
	}

	var portLastTransmission []Time
	if r.policies.NeedPortLastTransmission() {
		portLastTransmission = make([]Time, r.numPorts)
		for p, status := range r.transmissionStatus {
			last, _ := status.LastTransmission()
			portLastTransmission[p] = last
		}
	}

	var portAverageNeighbourQueueLength []float32
	if r.policies.NeedPortAverageQueueLength() {
		portAverageNeighbourQueueLength = make([]float32, r.numPorts)
		for p, status := range r.transmissionStatus {
			total := 0
			for vc := 0; vc < numVC; vc++ {
				available := status.KnownAvailableSpace(vc)
				if available <= r.cfg.BufferSize {
					total += r.cfg.BufferSize - available
				}
			}
			portAverageNeighbourQueueLength[p] = float32(total) / float32(numVC)
		}
	}

	portOccupiedOutputSpace := make([]int, r.numPorts)
	portAvailableOutputSpace := make([]int, r.numPorts)
	vcOccupiedOutputSpace := make([][]int, r.numPorts)
	vcAvailableOutputSpace := make([][]int, r.numPorts)
	for p := 0; p < r.numPorts; p++ {
		vcOccupiedOutputSpace[p] = make([]int, numVC)
		vcAvailableOutputSpace[p] = make([]int, numVC)
		for vc := 0; vc < numVC; vc++ {
			occ := r.outputBuffers[p][vc].Len()
			portOccupiedOutputSpace[p] += occ
			portAvailableOutputSpace[p] += r.cfg.OutputBufferSize - occ
			vcOccupiedOutputSpace[p][vc] = occ
			vcAvailableOutputSpace[p][vc] = r.cfg.OutputBufferSize - occ
		}
	}

	// --- 3/4/5. Request gathering, priority override, allocation ---
	var requests []VCARequest
	undecidedChannels := 0
	movedInputPhits := 0

	for entryPort := 0; entryPort < r.numPorts; entryPort++ {
		r.reception[entryPort].FrontIter(func(entryVC int, phit *Phit) {
			if r.selectedOutput[entryPort][entryVC] != nil {
				r.timeAtInputHead[entryPort][entryVC]++
				return // bound to a prior output; mid-packet.
			}
			undecidedChannels++

			target := phit.Packet.Message.Destination
			targetLoc, _ := topology.ServerNeighbour(target)
			if targetLoc.Kind != LocationRouterPort {
				panic("server is not attached to a router")
			}
			targetRouter := targetLoc.RouterIdx

			nextCandidates, err := sim.Routing.Next(phit.Packet.RoutingInfo, topology, r.cfg.RouterIndex, targetRouter, &target, numVC, sim.CoreRNG())
			if err != nil {
				panic(fmt.Sprintf("routing error for packet entry_port=%d entry_vc=%d at router %d toward server %d: %v", entryPort, entryVC, r.cfg.RouterIndex, target, err))
			}
			if sim.Trace != nil {
				sim.Trace.RecordRouting(trace.RoutingRecord{
					Cycle:         int64(cycle),
					CurrentRouter: r.cfg.RouterIndex,
					TargetRouter:  targetRouter,
					Candidates:    nextCandidates.Len(),
					Idempotent:    nextCandidates.Idempotent,
				})
			}
			if nextCandidates.Len() == 0 {
				if nextCandidates.Idempotent {
					panic(fmt.Sprintf("no route for packet entry_port=%d entry_vc=%d at router %d toward server %d", entryPort, entryVC, r.cfg.RouterIndex, target))
				}
				return
			}

			goodPorts := make([]CandidateEgress, 0, len(nextCandidates.Candidates))
			for _, candidate := range nextCandidates.Candidates {
				fPort, fVC := candidate.Port, candidate.VirtualChannel
				if r.selectedInput[fPort][fVC] != nil {
					if r.cfg.NeglectBusyOutput {
						continue
					}
					deny := false
					candidate.RouterAllows = &deny
					goodPorts = append(goodPorts, candidate)
					continue
				}
				bubbleInUse := r.cfg.Bubble && phit.IsBegin() && topology.IsDirectionChange(r.cfg.RouterIndex, entryPort, fPort)
				allowed := r.canPhitAdvance(phit, fPort, fVC, bubbleInUse)
				if allowed && !r.cfg.AllowRequestBusyPort {
					allowed = !busyPorts[fPort]
				}
				a := allowed
				candidate.RouterAllows = &a
				goodPorts = append(goodPorts, candidate)
			}

			performedHops := phit.Packet.RoutingInfo.Hops
			info := RequestInfo{
				TargetRouterIndex:                  targetRouter,
				EntryPort:                          entryPort,
				EntryVirtualChannel:                entryVC,
				PerformedHops:                      performedHops,
				ServerPorts:                        serverPorts,
				PortAverageNeighbourQueueLength:    portAverageNeighbourQueueLength,
				PortLastTransmission:               portLastTransmission,
				PortOccupiedOutputSpace:            portOccupiedOutputSpace,
				PortAvailableOutputSpace:           portAvailableOutputSpace,
				VirtualChannelOccupiedOutputSpace:  vcOccupiedOutputSpace,
				VirtualChannelAvailableOutputSpace: vcAvailableOutputSpace,
				TimeAtFront:                        intPtr(r.timeAtInputHead[entryPort][entryVC]),
				CurrentCycle:                       cycle,
				Phit:                               phit,
			}

			goodPorts = r.policies.Filter(goodPorts, r, info, topology, sim.CoreRNG())
			if len(goodPorts) == 0 {
				r.timeAtInputHead[entryPort][entryVC]++
				return
			}

			for _, candidate := range goodPorts {
				sim.Routing.PerformedRequest(candidate, phit.Packet.RoutingInfo, topology, r.cfg.RouterIndex, targetRouter, &target, numVC, sim.CoreRNG())
				requests = append(requests, VCARequest{
					EntryPort:     entryPort,
					EntryVC:       entryVC,
					RequestedPort: candidate.Port,
					RequestedVC:   candidate.VirtualChannel,
					Label:         candidate.Label,
				})
			}
			r.timeAtInputHead[entryPort][entryVC]++
		})
	}

	if r.cfg.IntransitPriority {
		if !r.cfg.Allocator.SupportsIntransitPriority() {
			panic("current crossbar allocator does not support intransit priority option")
		}
		for i := range requests {
			if loc, _ := topology.Neighbour(r.cfg.RouterIndex, requests[i].EntryPort); loc.Kind == LocationRouterPort {
				requests[i].Label = 0
			}
		}
	}

	for _, req := range requests {
		r.cfg.Allocator.AddRequest(req.ToRequest(numVC))
	}
	granted := r.cfg.Allocator.PerformAllocation(sim.CoreRNG())
	if sim.Trace != nil {
		sim.Trace.RecordAllocation(trace.AllocationRecord{
			Cycle:     int64(cycle),
			RouterIdx: r.cfg.RouterIndex,
			Requested: len(requests),
			Granted:   len(granted.Requests),
		})
	}
	for _, g := range granted.Requests {
		vcaReq := g.ToVCARequest(numVC)
		r.selectedInput[vcaReq.RequestedPort][vcaReq.RequestedVC] = &portVC{Port: vcaReq.EntryPort, VC: vcaReq.EntryVC}
		r.selectedOutput[vcaReq.EntryPort][vcaReq.EntryVC] = &portVC{Port: vcaReq.RequestedPort, VC: vcaReq.RequestedVC}
	}

	// --- 6. Crossbar traversal ---
	var events []EventGeneration
	for exitPort := 0; exitPort < r.numPorts; exitPort++ {
		for exitVC := 0; exitVC < numVC; exitVC++ {
			sel := r.selectedInput[exitPort][exitVC]
			if sel == nil {
				continue
			}
			entryPort, entryVC := sel.Port, sel.VC
			phit := r.reception[entryPort].FrontVirtualChannel(entryVC)
			if phit == nil {
				continue
			}
			poppedPhit, ack := r.reception[entryPort].Extract(entryVC)
			if r.outputBuffers[exitPort][exitVC].Full() {
				panic("trying to move into a full output buffer")
			}
			movedInputPhits++
			r.timeAtInputHead[entryPort][entryVC] = 0
			poppedPhit.AssignVC(exitVC)

			prevLoc, prevLinkClass := topology.Neighbour(r.cfg.RouterIndex, entryPort)
			events = append(events, EventGeneration{
				Delay:    topology.LinkClasses()[prevLinkClass].Delay,
				Position: Begin,
				Event:    Event{Acknowledge: &AcknowledgeEvent{Location: prevLoc, Message: ack}},
			})

			if poppedPhit.IsEnd() {
				r.selectedInput[exitPort][exitVC] = nil
				r.selectedOutput[entryPort][entryVC] = nil
			} else {
				r.selectedOutput[entryPort][entryVC] = &portVC{Port: exitPort, VC: exitVC}
			}

			if r.cfg.CrossbarDelay == 0 {
				r.outputBuffers[exitPort][exitVC].Push(poppedPhit, entryPort, entryVC)
			} else {
				// Deferred crossbar traversal: schedule the phit's entry
				// into the output buffer after CrossbarDelay cycles.
				ep, ev := entryPort, entryVC
				op, ov := exitPort, exitVC
				ph := poppedPhit
				events = append(events, EventGeneration{
					Delay:    r.cfg.CrossbarDelay,
					Position: Begin,
					Event: Event{Generic: genericFunc(func(sim *Simulator) []EventGeneration {
						r.outputBuffers[op][ov].Push(ph, ep, ev)
						if eg := r.Schedule(sim.Cycle, 0); eg != nil {
							return []EventGeneration{*eg}
						}
						return nil
					})},
				})
			}
		}
	}

	// --- 7. Link emission ---
	for exitPort := 0; exitPort < r.numPorts; exitPort++ {
		events = append(events, r.TryEmitLink(sim, exitPort)...)
	}

	// --- 8. Reschedule ---
	recheck := undecidedChannels > 0 || movedInputPhits > 0 || len(requests) > 0
	if recheck {
		if eg := r.Schedule(cycle, 1); eg != nil {
			events = append(events, *eg)
		}
	}
	return events
}

func intPtr(v int) *int { return &v }

// genericFunc adapts a plain function to the Eventful interface, used for
// the internal crossbar-delay and link-traversal micro-events that don't
// warrant their own named type.
type genericFunc func(sim *Simulator) []EventGeneration

func (f genericFunc) Process(sim *Simulator) []EventGeneration { return f(sim) }

// TryEmitLink runs the per-output-port link-emission arbiter (spec §4.6
// step 7): at most one phit crosses the physical link per call. Preference
// order: continuations of an in-flight packet, then round-robin among
// eligible new heads via the port's token. Called once per output port at
// the link's own frequency.
func (r *Router) TryEmitLink(sim *Simulator, exitPort int) []EventGeneration {
	numVC := r.cfg.NumVirtualChannels
	loc, linkClass := sim.Topology.Neighbour(r.cfg.RouterIndex, exitPort)
	lc := sim.Topology.LinkClasses()[linkClass]
	if sim.Cycle%lc.FrequencyDivisor != 0 {
		return nil
	}

	// Build the candidate set of VCs whose head phit can actually cross the
	// link (credit/bubble check) before applying any preference: a VC that
	// the round-robin token would otherwise favor but that lacks credit
	// must not block emission of a different, transmittable VC this cycle.
	var transmittable []int
	for i := 0; i < numVC; i++ {
		vc := (r.outputToken[exitPort].token + i) % numVC
		buf := r.outputBuffers[exitPort][vc]
		entry, ok := buf.Front()
		if !ok {
			continue
		}
		if !r.canEmitOnLink(entry.Phit, exitPort, vc) {
			continue
		}
		transmittable = append(transmittable, vc)
	}
	if len(transmittable) == 0 {
		return nil
	}

	chosen := -1
	chosenIsContinuation := false
	for _, vc := range transmittable {
		entry, _ := r.outputBuffers[exitPort][vc].Front()
		isContinuation := !entry.Phit.IsBegin()
		if chosen == -1 || (isContinuation && !chosenIsContinuation) {
			chosen = vc
			chosenIsContinuation = isContinuation
			if isContinuation {
				break
			}
		}
	}

	entry, _ := r.outputBuffers[exitPort][chosen].Front()
	r.outputBuffers[exitPort][chosen].Pop()
	r.transmissionStatus[exitPort].Notify(chosen, sim.Cycle)
	if !chosenIsContinuation {
		r.outputToken[exitPort].advance(numVC)
	}

	events := []EventGeneration{{
		Delay:    lc.Delay,
		Position: Begin,
		Event: Event{PhitToLocation: &PhitToLocationEvent{
			Phit:     entry.Phit,
			Previous: RouterLocation(r.cfg.RouterIndex, exitPort),
			New:      loc,
		}},
	}}
	return events
}

// canEmitOnLink reports whether the neighbour has credit for this phit;
// for a begin phit this is the downstream buffer's raw availability (the
// caller/insertion side already enforced bubble reservation when the VC
// was selected).
func (r *Router) canEmitOnLink(phit *Phit, port, vc int) bool {
	return r.transmissionStatus[port].KnownAvailableSpace(vc) > 0
}
