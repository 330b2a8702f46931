package trace

import "testing"

func TestSimulationTrace_RecordRouting_AppendsRecord(t *testing.T) {
	st := NewSimulationTrace(Config{Level: LevelDecisions})

	st.RecordRouting(RoutingRecord{
		Cycle:         1000,
		PacketID:      1,
		CurrentRouter: 0,
		TargetRouter:  3,
		Candidates:    2,
		Idempotent:    true,
	})

	if len(st.Routings) != 1 {
		t.Fatalf("expected 1 routing record, got %d", len(st.Routings))
	}
	if st.Routings[0].TargetRouter != 3 {
		t.Errorf("expected target router 3, got %d", st.Routings[0].TargetRouter)
	}
	if !st.Routings[0].Idempotent {
		t.Error("expected idempotent=true")
	}
}

func TestSimulationTrace_RecordAllocation_AppendsRecord(t *testing.T) {
	st := NewSimulationTrace(Config{Level: LevelDecisions})

	st.RecordAllocation(AllocationRecord{Cycle: 2000, RouterIdx: 2, Requested: 4, Granted: 3})

	if len(st.Allocs) != 1 {
		t.Fatalf("expected 1 allocation record, got %d", len(st.Allocs))
	}
	if st.Allocs[0].Granted != 3 {
		t.Errorf("expected granted 3, got %d", st.Allocs[0].Granted)
	}
}

func TestSimulationTrace_LevelNone_RecordsNothing(t *testing.T) {
	st := NewSimulationTrace(Config{Level: LevelNone})

	st.RecordRouting(RoutingRecord{Cycle: 1, TargetRouter: 1, Candidates: 1})
	st.RecordAllocation(AllocationRecord{Cycle: 1, Requested: 1, Granted: 1})

	if len(st.Routings) != 0 || len(st.Allocs) != 0 {
		t.Error("expected no records at LevelNone")
	}
}

func TestSimulationTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	st := NewSimulationTrace(Config{Level: LevelDecisions})

	st.RecordRouting(RoutingRecord{Cycle: 100, PacketID: 1, Candidates: 1})
	st.RecordRouting(RoutingRecord{Cycle: 200, PacketID: 2, Candidates: 2})

	if len(st.Routings) != 2 {
		t.Fatalf("expected 2 routing records, got %d", len(st.Routings))
	}
	if st.Routings[0].PacketID != 1 || st.Routings[1].PacketID != 2 {
		t.Error("routing record order not preserved")
	}
}

func TestIsValidLevel_ValidLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"decisions", true},
		{"", true}, // empty defaults to none
		{"detailed", false},
		{"foobar", false},
		{"NONE", false}, // case-sensitive
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := IsValidLevel(tt.level); got != tt.valid {
				t.Errorf("IsValidLevel(%q) = %v, want %v", tt.level, got, tt.valid)
			}
		})
	}
}
