// Package topology holds the test-fixture-grade Topology implementations
// needed to exercise the core: the Hamming graph (a product of complete
// graphs, one per dimension) and its plugs registration.
package topology

import (
	"fmt"

	"github.com/flitsim/flitsim/sim"
)

// Hamming is the product-of-complete-graphs topology: two routers are
// directly connected whenever their coordinate vectors differ in exactly
// one dimension. sides=[2] gives two routers joined by a single edge;
// sides=[2,2] gives four routers each of degree 2 (distance 2 between
// diagonal routers).
type Hamming struct {
	sides            []int
	serversPerRouter int
	numRouters       int
	degree           int
	linkClasses      []sim.LinkClass

	// portDim[port] is the dimension a router-facing port belongs to, or -1
	// for a server port. Identical for every router by symmetry.
	portDim []int
}

// NewHamming builds a Hamming topology. Router-router links use class 0 of
// linkClasses and server links use its last class (per spec §6).
func NewHamming(sides []int, serversPerRouter int, linkClasses []sim.LinkClass) (*Hamming, error) {
	if len(sides) == 0 {
		return nil, fmt.Errorf("%w: hamming topology needs at least one dimension", sim.ErrConfigMismatch)
	}
	numRouters := 1
	degree := 0
	for _, s := range sides {
		if s <= 0 {
			return nil, fmt.Errorf("%w: hamming side must be positive, got %d", sim.ErrConfigMismatch, s)
		}
		numRouters *= s
		degree += s - 1
	}
	h := &Hamming{
		sides:            sides,
		serversPerRouter: serversPerRouter,
		numRouters:       numRouters,
		degree:           degree,
		linkClasses:      linkClasses,
	}
	h.portDim = make([]int, 0, degree+serversPerRouter)
	for d, s := range sides {
		for v := 0; v < s-1; v++ {
			_ = v
			h.portDim = append(h.portDim, d)
		}
	}
	for i := 0; i < serversPerRouter; i++ {
		h.portDim = append(h.portDim, -1)
	}
	return h, nil
}

func (h *Hamming) coords(router int) []int {
	c := make([]int, len(h.sides))
	for d := len(h.sides) - 1; d >= 0; d-- {
		c[d] = router % h.sides[d]
		router /= h.sides[d]
	}
	return c
}

func (h *Hamming) routerFromCoords(c []int) int {
	r := 0
	for d := 0; d < len(h.sides); d++ {
		r = r*h.sides[d] + c[d]
	}
	return r
}

func (h *Hamming) NumRouters() int { return h.numRouters }
func (h *Hamming) NumServers() int { return h.numRouters * h.serversPerRouter }
func (h *Hamming) Ports(int) int   { return h.degree + h.serversPerRouter }
func (h *Hamming) Degree(int) int  { return h.degree }

// Neighbour maps a port index to its dimension-ordered neighbour or, for the
// trailing serversPerRouter ports, the attached server.
func (h *Hamming) Neighbour(router, port int) (sim.Location, int) {
	if port < 0 || port >= len(h.portDim) {
		panic(fmt.Sprintf("hamming: port %d out of range", port))
	}
	dim := h.portDim[port]
	if dim == -1 {
		serverSlot := port - h.degree
		return sim.ServerLocation(router*h.serversPerRouter + serverSlot), len(h.linkClasses) - 1
	}

	// Find this port's ordinal among dim's ports to recover which of the
	// dim's other values it targets.
	ordinal := 0
	for p := 0; p < port; p++ {
		if h.portDim[p] == dim {
			ordinal++
		}
	}
	c := h.coords(router)
	target := 0
	for v := 0; v < h.sides[dim]; v++ {
		if v == c[dim] {
			continue
		}
		if target == ordinal {
			c[dim] = v
			return sim.RouterLocation(h.routerFromCoords(c), h.reciprocalPort(dim, router, v)), 0
		}
		target++
	}
	panic("hamming: neighbour ordinal not found")
}

// reciprocalPort finds the port at the neighbour router (reached by setting
// dimension dim to value v) that leads back to router, so links are
// symmetric.
func (h *Hamming) reciprocalPort(dim, router, v int) int {
	c := h.coords(router)
	selfValue := c[dim]
	base := 0
	for d := 0; d < dim; d++ {
		base += h.sides[d] - 1
	}
	ordinal := 0
	for val := 0; val < h.sides[dim]; val++ {
		if val == v {
			continue
		}
		if val == selfValue {
			return base + ordinal
		}
		ordinal++
	}
	panic("hamming: reciprocal port not found")
}

func (h *Hamming) ServerNeighbour(server int) (sim.Location, int) {
	router := server / h.serversPerRouter
	slot := server % h.serversPerRouter
	return sim.RouterLocation(router, h.degree+slot), len(h.linkClasses) - 1
}

// Distance is the Hamming distance between coordinate vectors: each
// differing dimension costs exactly one hop since that dimension is a
// complete graph.
func (h *Hamming) Distance(a, b int) int {
	ca, cb := h.coords(a), h.coords(b)
	d := 0
	for i := range ca {
		if ca[i] != cb[i] {
			d++
		}
	}
	return d
}

func (h *Hamming) Diameter() int {
	d := 0
	for _, s := range h.sides {
		if s > 1 {
			d++
		}
	}
	return d
}

func (h *Hamming) MaximumDegree() int { return h.degree }

// IsDirectionChange reports whether crossing from inPort to outPort changes
// dimension; ports on the server side never trigger bubble flow control.
func (h *Hamming) IsDirectionChange(_ int, inPort, outPort int) bool {
	di, do := h.portDim[inPort], h.portDim[outPort]
	if di == -1 || do == -1 {
		return false
	}
	return di != do
}

func (h *Hamming) LinkClasses() []sim.LinkClass { return h.linkClasses }

// Register installs the "Hamming" builder into plugs, reading "sides"
// (array of numbers) and "servers_per_router" from the configuration object.
// The link-class table is not read from the configuration: the caller
// passes it in at registration time (cmd/root.go passes its
// defaultLinkClasses table).
func Register(plugs *sim.Plugs, linkClasses []sim.LinkClass) {
	plugs.RegisterTopology("Hamming", func(cv sim.ConfigurationValue) (sim.Topology, error) {
		sidesCV, ok := cv.Get("sides")
		if !ok {
			return nil, fmt.Errorf("%w: Hamming missing \"sides\"", sim.ErrConfigMismatch)
		}
		sidesArr, err := sidesCV.AsArray()
		if err != nil {
			return nil, err
		}
		sides := make([]int, len(sidesArr))
		for i, sv := range sidesArr {
			n, err := sv.AsInt()
			if err != nil {
				return nil, fmt.Errorf("sides[%d]: %w", i, err)
			}
			sides[i] = n
		}
		servers := 1
		if spv, ok := cv.Get("servers_per_router"); ok {
			n, err := spv.AsInt()
			if err != nil {
				return nil, err
			}
			servers = n
		}
		return NewHamming(sides, servers, linkClasses)
	})
}
