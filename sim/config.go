package sim

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ConfigurationValue is the tagged value tree spec §6 defines as the core's
// consumed configuration interface: "used only to construct components; the
// core does not re-parse at runtime." Experiment-expansion (cross-product of
// Experiments/NamedExperiments into a run matrix) is an explicit non-goal —
// Plugs builders see a single already-selected variant per field.
type ConfigurationValue struct {
	kind configKind

	literal string
	number  float64
	boolean bool
	array   []ConfigurationValue
	object  []ObjectEntry

	// experiments/namedExperiments hold the raw alternatives unexpanded;
	// the As* accessors reject these variants with ErrConfigMismatch.
	experiments      []ConfigurationValue
	namedExperiments []ObjectEntry
	expression       string
}

type configKind int

const (
	configLiteral configKind = iota
	configNumber
	configBool
	configArray
	configObject
	configExperiments
	configNamedExperiments
	configExpression
)

// ObjectEntry is one ordered key-value pair of a configuration object.
type ObjectEntry struct {
	Key   string
	Value ConfigurationValue
}

func LiteralValue(s string) ConfigurationValue  { return ConfigurationValue{kind: configLiteral, literal: s} }
func NumberValue(n float64) ConfigurationValue  { return ConfigurationValue{kind: configNumber, number: n} }
func BoolValue(b bool) ConfigurationValue       { return ConfigurationValue{kind: configBool, boolean: b} }
func ArrayValue(v []ConfigurationValue) ConfigurationValue {
	return ConfigurationValue{kind: configArray, array: v}
}
func ObjectValue(entries []ObjectEntry) ConfigurationValue {
	return ConfigurationValue{kind: configObject, object: entries}
}

// AsLiteral, AsNumber, AsInt, AsBool, AsArray and Get (object field lookup)
// are the narrow accessor surface Plugs builders use. The As* accessors
// return an ErrConfigMismatch-wrapped error rather than panicking, since
// construction-time configuration errors are returned per spec §7; Get
// reports a missing field through its ok result.
func (v ConfigurationValue) AsLiteral() (string, error) {
	if v.kind != configLiteral {
		return "", fmt.Errorf("%w: expected literal, got variant %d", ErrConfigMismatch, v.kind)
	}
	return v.literal, nil
}

func (v ConfigurationValue) AsNumber() (float64, error) {
	if v.kind != configNumber {
		return 0, fmt.Errorf("%w: expected number, got variant %d", ErrConfigMismatch, v.kind)
	}
	return v.number, nil
}

func (v ConfigurationValue) AsInt() (int, error) {
	n, err := v.AsNumber()
	if err != nil {
		return 0, err
	}
	if n != float64(int(n)) {
		return 0, fmt.Errorf("%w: expected integer, got %v", ErrConfigMismatch, n)
	}
	return int(n), nil
}

func (v ConfigurationValue) AsBool() (bool, error) {
	if v.kind != configBool {
		return false, fmt.Errorf("%w: expected boolean, got variant %d", ErrConfigMismatch, v.kind)
	}
	return v.boolean, nil
}

func (v ConfigurationValue) AsArray() ([]ConfigurationValue, error) {
	if v.kind != configArray {
		return nil, fmt.Errorf("%w: expected array, got variant %d", ErrConfigMismatch, v.kind)
	}
	return v.array, nil
}

// Get looks up a named field of an object variant. ok is false both when v
// isn't an object and when the key is absent — callers needing to
// distinguish "wrong shape" from "missing optional field" should check
// v.kind themselves first.
func (v ConfigurationValue) Get(key string) (ConfigurationValue, bool) {
	for _, e := range v.object {
		if e.Key == key {
			return e.Value, true
		}
	}
	return ConfigurationValue{}, false
}

// ObjectName is the conventional first field ("name") Plugs dispatch on to
// select a builder (e.g. `name: "Shortest"`), mirroring the Rust original's
// `Object(name, _)` variant discriminant.
func (v ConfigurationValue) ObjectName() (string, error) {
	name, ok := v.Get("name")
	if !ok {
		return "", fmt.Errorf("%w: object missing required \"name\" field", ErrConfigMismatch)
	}
	return name.AsLiteral()
}

// FromYAMLNode converts a parsed yaml.v3 document node into a
// ConfigurationValue, preserving object key order (yaml.v3 exposes mapping
// nodes as flat Content slices of alternating key/value nodes).
func FromYAMLNode(node *yaml.Node) (ConfigurationValue, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) != 1 {
			return ConfigurationValue{}, fmt.Errorf("%w: empty document", ErrConfigMismatch)
		}
		return FromYAMLNode(node.Content[0])
	case yaml.ScalarNode:
		return scalarFromYAML(node)
	case yaml.SequenceNode:
		items := make([]ConfigurationValue, 0, len(node.Content))
		for _, c := range node.Content {
			v, err := FromYAMLNode(c)
			if err != nil {
				return ConfigurationValue{}, err
			}
			items = append(items, v)
		}
		return ArrayValue(items), nil
	case yaml.MappingNode:
		entries := make([]ObjectEntry, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, err := scalarFromYAML(node.Content[i])
			if err != nil {
				return ConfigurationValue{}, err
			}
			val, err := FromYAMLNode(node.Content[i+1])
			if err != nil {
				return ConfigurationValue{}, err
			}
			entries = append(entries, ObjectEntry{Key: key.literal, Value: val})
		}
		return ObjectValue(entries), nil
	default:
		return ConfigurationValue{}, fmt.Errorf("%w: unsupported yaml node kind %d", ErrConfigMismatch, node.Kind)
	}
}

func scalarFromYAML(node *yaml.Node) (ConfigurationValue, error) {
	var s string
	if err := node.Decode(&s); err == nil && node.Tag == "!!str" {
		return LiteralValue(s), nil
	}
	switch node.Tag {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return ConfigurationValue{}, fmt.Errorf("%w: %v", ErrConfigMismatch, err)
		}
		return BoolValue(b), nil
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return ConfigurationValue{}, fmt.Errorf("%w: %v", ErrConfigMismatch, err)
		}
		return NumberValue(f), nil
	default:
		return LiteralValue(node.Value), nil
	}
}

// LoadConfiguration parses yaml document bytes into a ConfigurationValue
// tree, the entry point cmd/root.go calls for `flitsim run --config`.
func LoadConfiguration(data []byte) (ConfigurationValue, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return ConfigurationValue{}, fmt.Errorf("%w: %v", ErrConfigMismatch, err)
	}
	return FromYAMLNode(&node)
}

// RunOptions groups the top-level fields every run needs, read out of the
// root configuration object by cmd/root.go before handing component-scoped
// subtrees to Plugs builders.
type RunOptions struct {
	Seed           int64
	WarmupCycles   Time
	MeasuredCycles Time
	QueueCapacity  int
	MaxPacketSize  int
	// GeneralFrequencyDivisor is the default link and crossbar frequency
	// divisor applied wherever a component doesn't specify its own.
	GeneralFrequencyDivisor Time
	// TraceLevel is "none" or "decisions" (sim/trace.Level); defaults to "none".
	TraceLevel string

	Topology ConfigurationValue
	Routing  ConfigurationValue
	Traffic  ConfigurationValue
	Router   ConfigurationValue
}

// ParseRunOptions extracts RunOptions from a root ConfigurationValue object.
func ParseRunOptions(root ConfigurationValue) (RunOptions, error) {
	var opts RunOptions
	var err error
	if opts.Seed, err = getInt64(root, "seed", 0); err != nil {
		return opts, err
	}
	if warm, err := getInt64(root, "warmup_cycles", 0); err != nil {
		return opts, err
	} else {
		opts.WarmupCycles = Time(warm)
	}
	if measured, err := getInt64(root, "measured_cycles", 0); err != nil {
		return opts, err
	} else {
		opts.MeasuredCycles = Time(measured)
	}
	if qc, err := getInt64(root, "queue_capacity", 64); err != nil {
		return opts, err
	} else {
		opts.QueueCapacity = int(qc)
	}
	if mps, err := getInt64(root, "max_packet_size", 16); err != nil {
		return opts, err
	} else {
		opts.MaxPacketSize = int(mps)
	}
	if gfd, err := getInt64(root, "general_frequency_divisor", 1); err != nil {
		return opts, err
	} else {
		opts.GeneralFrequencyDivisor = Time(gfd)
	}
	opts.TraceLevel = "none"
	if v, ok := root.Get("trace_level"); ok {
		lvl, err := v.AsLiteral()
		if err != nil {
			return opts, err
		}
		opts.TraceLevel = lvl
	}

	required := map[string]*ConfigurationValue{
		"topology": &opts.Topology,
		"routing":  &opts.Routing,
		"traffic":  &opts.Traffic,
		"router":   &opts.Router,
	}
	for key, dst := range required {
		v, ok := root.Get(key)
		if !ok {
			return opts, fmt.Errorf("%w: root configuration missing required field %q", ErrConfigMismatch, key)
		}
		*dst = v
	}
	return opts, nil
}

// ParseRouterConfig builds a RouterConfig from a router configuration
// object, resolving its nested virtual_channel_policies chain and
// allocator through plugs.
func ParseRouterConfig(cv ConfigurationValue, plugs *Plugs, generalFrequencyDivisor Time) (RouterConfig, error) {
	var cfg RouterConfig
	get := func(key string, def int) (int, error) {
		v, ok := cv.Get(key)
		if !ok {
			return def, nil
		}
		return v.AsInt()
	}
	getBool := func(key string, def bool) (bool, error) {
		v, ok := cv.Get(key)
		if !ok {
			return def, nil
		}
		return v.AsBool()
	}

	var err error
	if cfg.NumVirtualChannels, err = get("virtual_channels", 1); err != nil {
		return cfg, err
	}
	if cfg.BufferSize, err = get("buffer_size", 64); err != nil {
		return cfg, err
	}
	if cfg.OutputBufferSize, err = get("output_buffer_size", cfg.BufferSize); err != nil {
		return cfg, err
	}
	if cfg.FlitSize, err = get("flit_size", 16); err != nil {
		return cfg, err
	}
	crossbarDelay, err := get("crossbar_delay", 0)
	if err != nil {
		return cfg, err
	}
	cfg.CrossbarDelay = Time(crossbarDelay)
	divisor, err := get("crossbar_frequency_divisor", int(generalFrequencyDivisor))
	if err != nil {
		return cfg, err
	}
	cfg.CrossbarFrequencyDivisor = Time(divisor)
	if cfg.MaximumPacketSize, err = get("maximum_packet_size", cfg.FlitSize); err != nil {
		return cfg, err
	}
	if cfg.Bubble, err = getBool("bubble", false); err != nil {
		return cfg, err
	}
	if cfg.IntransitPriority, err = getBool("intransit_priority", false); err != nil {
		return cfg, err
	}
	if cfg.AllowRequestBusyPort, err = getBool("allow_request_busy_port", false); err != nil {
		return cfg, err
	}
	if cfg.NeglectBusyOutput, err = getBool("neglect_busy_output", false); err != nil {
		return cfg, err
	}

	if vcpCV, ok := cv.Get("virtual_channel_policies"); ok {
		chain, err := plugs.BuildPolicyChain(vcpCV)
		if err != nil {
			return cfg, err
		}
		cfg.VirtualChannelPolicies = chain.Policies
	}
	allocCV, ok := cv.Get("allocator")
	if !ok {
		return cfg, fmt.Errorf("%w: router missing required \"allocator\" field", ErrConfigMismatch)
	}
	if cfg.Allocator, err = plugs.BuildAllocator(allocCV); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getInt64(root ConfigurationValue, key string, def int64) (int64, error) {
	v, ok := root.Get(key)
	if !ok {
		return def, nil
	}
	n, err := v.AsNumber()
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return int64(n), nil
}
