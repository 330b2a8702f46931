package trace

// Level controls the verbosity of decision tracing.
type Level string

const (
	// LevelNone disables tracing (zero overhead).
	LevelNone Level = "none"
	// LevelDecisions captures every routing and allocation decision.
	LevelDecisions Level = "decisions"
)

var validLevels = map[Level]bool{
	LevelNone:      true,
	LevelDecisions: true,
	"":             true, // empty defaults to none
}

// IsValidLevel returns true if the given level string is a recognized trace level.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// Config controls trace collection behavior.
type Config struct {
	Level Level
}

// SimulationTrace collects decision records during a run.
type SimulationTrace struct {
	Config   Config
	Routings []RoutingRecord
	Allocs   []AllocationRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config Config) *SimulationTrace {
	return &SimulationTrace{
		Routings: make([]RoutingRecord, 0),
		Allocs:   make([]AllocationRecord, 0),
		Config:   config,
	}
}

// RecordRouting appends a routing decision record. No-op at LevelNone.
func (st *SimulationTrace) RecordRouting(record RoutingRecord) {
	if st.Config.Level != LevelDecisions {
		return
	}
	st.Routings = append(st.Routings, record)
}

// RecordAllocation appends an allocation decision record. No-op at LevelNone.
func (st *SimulationTrace) RecordAllocation(record AllocationRecord) {
	if st.Config.Level != LevelDecisions {
		return
	}
	st.Allocs = append(st.Allocs, record)
}
