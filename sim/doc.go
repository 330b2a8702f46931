// Package sim is the cycle-accurate discrete-event core of flitsim: a
// simulator for interconnection networks built from routers, links and
// virtual channels.
//
// # Reading guide
//
// Start with these to understand the simulation kernel:
//   - event.go: the ring-buffer event queue and its begin/end cycle slots
//   - simulator.go: the per-cycle driver loop (spec §5's exact ordering)
//   - router.go: the Input-Output router pipeline (statistics, request
//     gathering, allocation, crossbar traversal, link emission)
//   - network.go: servers (message generation/consumption) and the network
//     of routers they attach to
//
// # Architecture
//
// This package defines interfaces and the mechanism that drives them;
// concrete implementations live in sub-packages, each registering its
// builders into a *Plugs registry rather than being imported directly by
// the core:
//   - sim/topology/: Topology implementations (Hamming)
//   - sim/routing/: Routing implementations (Shortest, Sum)
//   - sim/vcpolicy/: VirtualChannelPolicy implementations (Identity, Random,
//     EnforceFlowControl, Hops, LowestLabel)
//   - sim/allocator/: Allocator implementations (Random, RandomWithPriority)
//   - sim/traffic/: Traffic and Pattern implementations (Burst,
//     PeriodicBurst, Shift)
//
// A host program (cmd/root.go) registers every sub-package's builders into
// one *Plugs, then resolves a ConfigurationValue tree into a runnable
// Simulator.
//
// # Key interfaces
//
//   - Topology: router/server adjacency, distances, link classes
//   - Routing: candidate next-hop selection given a packet's routing state
//   - VirtualChannelPolicy: filters/relabels a routing's candidates against
//     buffer and credit state
//   - Allocator: resolves VC-allocation requests into a conflict-free grant
//     set
//   - Traffic: message generation and consumption at servers
//   - Pattern: destination selection used by a Traffic
package sim
