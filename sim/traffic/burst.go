package traffic

import (
	"fmt"

	"github.com/flitsim/flitsim/sim"
	"github.com/flitsim/flitsim/sim/workload"
)

// Burst traffic hands each of its tasks exactly messagesPerServer messages
// of messageSize phits, generated as soon as the server is asked (so, for
// messagesPerServer==1, exactly once at cycle 0 — the literal scenarios in
// spec §8 only ever use messagesPerServer==1). IsFinished once every
// generated message has been consumed.
type Burst struct {
	pattern           sim.Pattern
	tasks             []int
	messagesPerServer int
	messageSize       int
	sizeSampler       workload.SizeSampler

	generated map[int]int
	consumed  int
}

func NewBurst(pattern sim.Pattern, tasks []int, messagesPerServer, messageSize int, sizeSampler workload.SizeSampler) *Burst {
	return &Burst{
		pattern:           pattern,
		tasks:             tasks,
		messagesPerServer: messagesPerServer,
		messageSize:       messageSize,
		sizeSampler:       sizeSampler,
		generated:         make(map[int]int),
	}
}

// size returns a per-message phit count: the sampled distribution when one
// was configured, otherwise the fixed messageSize.
func (b *Burst) size(rng sim.Random) int {
	if b.sizeSampler != nil {
		return b.sizeSampler.Sample(rng)
	}
	return b.messageSize
}

func (b *Burst) isTask(server int) bool {
	for _, t := range b.tasks {
		if t == server {
			return true
		}
	}
	return false
}

func (b *Burst) ShouldGenerate(server int, cycle sim.Time, rng sim.Random) bool {
	return b.isTask(server) && b.generated[server] < b.messagesPerServer
}

func (b *Burst) GenerateMessage(server int, cycle sim.Time, topology sim.Topology, rng sim.Random) (*sim.Message, error) {
	dest := b.pattern.Destination(server, rng)
	if dest == server {
		return nil, sim.NewSelfMessageError()
	}
	b.generated[server]++
	return &sim.Message{Source: server, Destination: dest, Size: b.size(rng), Created: cycle}, nil
}

func (b *Burst) Consume(server int, message *sim.Message, cycle sim.Time, topology sim.Topology, rng sim.Random) bool {
	b.consumed++
	return true
}

func (b *Burst) NumberTasks() int { return len(b.tasks) }

func (b *Burst) IsFinished() bool {
	return b.consumed >= len(b.tasks)*b.messagesPerServer
}

// PeriodicBurst generates one messageSize-phit message every period cycles,
// from offset through finish inclusive, sourced from the first of its
// tasks (the literal scenario in spec §8 pins exactly one generation
// stream regardless of task-list length; see DESIGN.md).
type PeriodicBurst struct {
	pattern     sim.Pattern
	tasks       []int
	period      sim.Time
	offset      sim.Time
	finish      sim.Time
	messageSize int
	sizeSampler workload.SizeSampler

	generated int
	consumed  int
}

func NewPeriodicBurst(pattern sim.Pattern, tasks []int, period, offset, finish sim.Time, messageSize int, sizeSampler workload.SizeSampler) *PeriodicBurst {
	return &PeriodicBurst{pattern: pattern, tasks: tasks, period: period, offset: offset, finish: finish, messageSize: messageSize, sizeSampler: sizeSampler}
}

func (p *PeriodicBurst) size(rng sim.Random) int {
	if p.sizeSampler != nil {
		return p.sizeSampler.Sample(rng)
	}
	return p.messageSize
}

func (p *PeriodicBurst) source() int {
	if len(p.tasks) == 0 {
		return 0
	}
	return p.tasks[0]
}

func (p *PeriodicBurst) ShouldGenerate(server int, cycle sim.Time, rng sim.Random) bool {
	if server != p.source() || cycle < p.offset || cycle > p.finish {
		return false
	}
	return (cycle-p.offset)%p.period == 0
}

func (p *PeriodicBurst) GenerateMessage(server int, cycle sim.Time, topology sim.Topology, rng sim.Random) (*sim.Message, error) {
	dest := p.pattern.Destination(server, rng)
	if dest == server {
		return nil, sim.NewSelfMessageError()
	}
	p.generated++
	return &sim.Message{Source: server, Destination: dest, Size: p.size(rng), Created: cycle}, nil
}

func (p *PeriodicBurst) Consume(server int, message *sim.Message, cycle sim.Time, topology sim.Topology, rng sim.Random) bool {
	p.consumed++
	return true
}

func (p *PeriodicBurst) NumberTasks() int { return len(p.tasks) }

func (p *PeriodicBurst) IsFinished() bool { return p.consumed >= p.generated && p.generated > 0 }

// Register installs the "Burst" and "PeriodicBurst" traffic builders plus
// the "Shift" pattern builder they nest.
func Register(plugs *sim.Plugs) {
	RegisterPattern(plugs)

	plugs.RegisterTraffic("Burst", func(cv sim.ConfigurationValue, topology sim.Topology, p *sim.Plugs) (sim.Traffic, error) {
		patternCV, ok := cv.Get("pattern")
		if !ok {
			return nil, fmt.Errorf("%w: Burst missing \"pattern\"", sim.ErrConfigMismatch)
		}
		pattern, err := p.BuildPattern(patternCV)
		if err != nil {
			return nil, err
		}
		servers, err := intField(cv, "servers")
		if err != nil {
			return nil, err
		}
		messagesPerServer, err := intField(cv, "messages_per_server")
		if err != nil {
			return nil, err
		}
		messageSize, sampler, err := sizeFields(cv)
		if err != nil {
			return nil, err
		}
		tasks := make([]int, servers)
		for i := range tasks {
			tasks[i] = i
		}
		if err := pattern.Initialize(servers, servers, topology, nil); err != nil {
			return nil, err
		}
		return NewBurst(pattern, tasks, messagesPerServer, messageSize, sampler), nil
	})

	plugs.RegisterTraffic("PeriodicBurst", func(cv sim.ConfigurationValue, topology sim.Topology, p *sim.Plugs) (sim.Traffic, error) {
		patternCV, ok := cv.Get("pattern")
		if !ok {
			return nil, fmt.Errorf("%w: PeriodicBurst missing \"pattern\"", sim.ErrConfigMismatch)
		}
		pattern, err := p.BuildPattern(patternCV)
		if err != nil {
			return nil, err
		}
		tasksN, err := intField(cv, "tasks")
		if err != nil {
			return nil, err
		}
		period, err := intField(cv, "period")
		if err != nil {
			return nil, err
		}
		offset, err := intField(cv, "offset")
		if err != nil {
			return nil, err
		}
		finish, err := intField(cv, "finish")
		if err != nil {
			return nil, err
		}
		messageSize, sampler, err := sizeFields(cv)
		if err != nil {
			return nil, err
		}
		tasks := make([]int, tasksN)
		for i := range tasks {
			tasks[i] = i
		}
		if err := pattern.Initialize(tasksN, tasksN, topology, nil); err != nil {
			return nil, err
		}
		return NewPeriodicBurst(pattern, tasks, sim.Time(period), sim.Time(offset), sim.Time(finish), messageSize, sampler), nil
	})
}

// sizeFields resolves a traffic config's message sizing: either a fixed
// "message_size" or a nested "message_size_distribution" object consumed by
// sim/workload. At least one is required; when both are present the
// distribution is used and "message_size" is ignored.
func sizeFields(cv sim.ConfigurationValue) (int, workload.SizeSampler, error) {
	if distCV, ok := cv.Get("message_size_distribution"); ok {
		spec, err := workload.SpecFromConfig(distCV)
		if err != nil {
			return 0, nil, err
		}
		sampler, err := workload.NewSizeSampler(spec)
		if err != nil {
			return 0, nil, err
		}
		return 0, sampler, nil
	}
	size, err := intField(cv, "message_size")
	if err != nil {
		return 0, nil, err
	}
	return size, nil, nil
}

func intField(cv sim.ConfigurationValue, key string) (int, error) {
	v, ok := cv.Get(key)
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", sim.ErrConfigMismatch, key)
	}
	return v.AsInt()
}
