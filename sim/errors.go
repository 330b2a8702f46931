package sim

import (
	"errors"
	"fmt"
)

// Error taxonomy (§7). Configuration and topology errors are returned during
// construction; routing failures surface as ErrUnroutable from Routing.Next
// and are panicked on by the router's tick, since a mid-cycle routing
// failure cannot be recovered from.
var (
	// ErrUnroutable means a routing returned no candidates with
	// idempotent=true at a non-destination router, or a source-routed
	// algorithm exhausted all of its recorded paths.
	ErrUnroutable = errors.New("no route to destination and none will appear")

	// ErrConfigMismatch covers missing required fields, wrong config
	// variants, and out-of-range integers. Fatal at construction.
	ErrConfigMismatch = errors.New("configuration mismatch")

	// ErrTopologyInconsistent covers non-symmetric adjacency and
	// out-of-range ports. Fatal after construction, during the adjacency
	// self-check.
	ErrTopologyInconsistent = errors.New("topology inconsistent")

	// ErrOriginOutsideTraffic and ErrSelfMessage are traffic-recoverable:
	// the driver silently drops the would-be message and queues nothing.
	ErrOriginOutsideTraffic = errors.New("message origin outside traffic's task set")
	ErrSelfMessage          = errors.New("message source equals destination")
)

// flowControlViolation panics with a consistent prefix for the fatal
// invariant breaches enumerated in §7: pushing into a full output buffer,
// advancing a crossbar twice in one cycle, acknowledging an unknown VC, or
// an enqueue delay exceeding queue capacity. These indicate a design bug in
// a component, not a recoverable runtime condition.
func flowControlViolation(format string, args ...any) {
	panic("flow-control violation: " + fmt.Sprintf(format, args...))
}
