package traffic_test

import (
	"testing"

	"github.com/flitsim/flitsim/sim"
	"github.com/flitsim/flitsim/sim/traffic"
)

func shiftPattern(t *testing.T, sides, shift []int, size int) sim.Pattern {
	t.Helper()
	p, err := traffic.NewShiftPattern(sides, shift)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Initialize(size, size, nil, nil); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestBurst_GeneratesExactlyMessagesPerServer(t *testing.T) {
	pattern := shiftPattern(t, []int{2}, []int{1}, 2)
	b := traffic.NewBurst(pattern, []int{0, 1}, 1, 16, nil)

	if !b.ShouldGenerate(0, 0, nil) {
		t.Fatal("server 0 should be eligible to generate its first message")
	}
	msg, err := b.GenerateMessage(0, 0, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Source != 0 || msg.Destination != 1 || msg.Size != 16 {
		t.Errorf("message = %+v, want Source=0 Destination=1 Size=16", msg)
	}
	if b.ShouldGenerate(0, 0, nil) {
		t.Error("server 0 should not generate a second message (messagesPerServer=1)")
	}
}

func TestBurst_NonTaskServer_NeverGenerates(t *testing.T) {
	pattern := shiftPattern(t, []int{2}, []int{1}, 2)
	b := traffic.NewBurst(pattern, []int{0}, 1, 16, nil)
	if b.ShouldGenerate(1, 0, nil) {
		t.Error("server 1 is not in the task list and should never generate")
	}
}

func TestBurst_IsFinished_AfterAllConsumed(t *testing.T) {
	pattern := shiftPattern(t, []int{2}, []int{1}, 2)
	b := traffic.NewBurst(pattern, []int{0, 1}, 1, 16, nil)
	if b.IsFinished() {
		t.Fatal("should not be finished before any message is consumed")
	}
	msg, err := b.GenerateMessage(0, 0, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	b.Consume(1, msg, 0, nil, nil)
	if b.IsFinished() {
		t.Error("should not be finished until every task's message is consumed")
	}
	msg2, err := b.GenerateMessage(1, 0, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	b.Consume(0, msg2, 0, nil, nil)
	if !b.IsFinished() {
		t.Error("should be finished once both tasks' messages are consumed")
	}
}

func TestPeriodicBurst_GeneratesOnlyFromFirstTask(t *testing.T) {
	pattern := shiftPattern(t, []int{2}, []int{1}, 2)
	p := traffic.NewPeriodicBurst(pattern, []int{0, 1}, 10, 50, 1000, 2, nil)

	if p.ShouldGenerate(1, 50, nil) {
		t.Error("only the first declared task (server 0) should generate, per spec §8 scenario 6")
	}
	if !p.ShouldGenerate(0, 50, nil) {
		t.Error("server 0 should generate at cycle 50 (the offset)")
	}
}

func TestPeriodicBurst_RespectsOffsetPeriodAndFinish(t *testing.T) {
	pattern := shiftPattern(t, []int{2}, []int{1}, 2)
	p := traffic.NewPeriodicBurst(pattern, []int{0}, 10, 50, 1000, 2, nil)

	if p.ShouldGenerate(0, 49, nil) {
		t.Error("should not generate before offset")
	}
	if !p.ShouldGenerate(0, 50, nil) {
		t.Error("should generate exactly at offset")
	}
	if p.ShouldGenerate(0, 55, nil) {
		t.Error("should not generate off-period")
	}
	if !p.ShouldGenerate(0, 60, nil) {
		t.Error("should generate one period later")
	}
	if !p.ShouldGenerate(0, 1000, nil) {
		t.Error("should generate exactly at finish (inclusive)")
	}
	if p.ShouldGenerate(0, 1010, nil) {
		t.Error("should not generate past finish")
	}
}

func TestPeriodicBurst_ScenarioSixGenerationCount(t *testing.T) {
	// spec §8 scenario 6: period=10, offset=50, finish=1000 => (1000-50)/10+1 = 96
	// generation events from the single source task.
	pattern := shiftPattern(t, []int{2}, []int{1}, 2)
	p := traffic.NewPeriodicBurst(pattern, []int{0, 1}, 10, 50, 1000, 2, nil)

	count := 0
	for cycle := sim.Time(0); cycle <= 1007; cycle++ {
		if p.ShouldGenerate(0, cycle, nil) {
			count++
		}
	}
	if count != 96 {
		t.Errorf("generation count = %d, want 96", count)
	}
}

func TestBurst_Register_BuildsFromConfig(t *testing.T) {
	plugs := sim.NewPlugs()
	traffic.Register(plugs)

	var top sim.Topology
	cv := sim.ObjectValue([]sim.ObjectEntry{
		{Key: "name", Value: sim.LiteralValue("Burst")},
		{Key: "pattern", Value: sim.ObjectValue([]sim.ObjectEntry{
			{Key: "name", Value: sim.LiteralValue("Shift")},
			{Key: "sides", Value: sim.ArrayValue([]sim.ConfigurationValue{sim.NumberValue(2)})},
			{Key: "shift", Value: sim.ArrayValue([]sim.ConfigurationValue{sim.NumberValue(1)})},
		})},
		{Key: "servers", Value: sim.NumberValue(2)},
		{Key: "messages_per_server", Value: sim.NumberValue(1)},
		{Key: "message_size", Value: sim.NumberValue(16)},
	})
	tr, err := plugs.BuildTraffic(cv, top)
	if err != nil {
		t.Fatal(err)
	}
	if tr == nil {
		t.Fatal("BuildTraffic(Burst) returned nil")
	}
}
