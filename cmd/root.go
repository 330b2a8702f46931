// cmd/root.go
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flitsim/flitsim/sim"
	"github.com/flitsim/flitsim/sim/allocator"
	"github.com/flitsim/flitsim/sim/routing"
	"github.com/flitsim/flitsim/sim/topology"
	"github.com/flitsim/flitsim/sim/trace"
	"github.com/flitsim/flitsim/sim/traffic"
	"github.com/flitsim/flitsim/sim/vcpolicy"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "flitsim",
	Short: "Cycle-accurate discrete-event simulator for interconnection networks",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation from a YAML configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		data, err := os.ReadFile(configPath)
		if err != nil {
			logrus.Fatalf("reading configuration %s: %v", configPath, err)
		}
		root, err := sim.LoadConfiguration(data)
		if err != nil {
			logrus.Fatalf("parsing configuration: %v", err)
		}
		opts, err := sim.ParseRunOptions(root)
		if err != nil {
			logrus.Fatalf("configuration: %v", err)
		}

		plugs := sim.NewPlugs()
		topology.Register(plugs, defaultLinkClasses(opts.GeneralFrequencyDivisor))
		routing.Register(plugs)
		traffic.Register(plugs)
		vcpolicy.Register(plugs)
		allocator.Register(plugs)

		network, top, routingImpl, trafficImpl, err := buildNetwork(plugs, opts)
		if err != nil {
			logrus.Fatalf("building network: %v", err)
		}

		if !trace.IsValidLevel(opts.TraceLevel) {
			logrus.Fatalf("invalid trace_level: %s", opts.TraceLevel)
		}

		logrus.Infof("starting simulation: seed=%d warmup=%d measured=%d", opts.Seed, opts.WarmupCycles, opts.MeasuredCycles)
		s := sim.NewSimulator(top, routingImpl, trafficImpl, network, opts.Seed, opts.QueueCapacity, opts.WarmupCycles, opts.MeasuredCycles)
		if trace.Level(opts.TraceLevel) == trace.LevelDecisions {
			s.Trace = trace.NewSimulationTrace(trace.Config{Level: trace.LevelDecisions})
		}
		s.Run()

		measured := opts.MeasuredCycles
		logrus.Infof("cycle=%d injected_load=%.6f accepted_load=%.6f average_packet_hops=%.6f missed_generations=%d",
			s.Cycle, s.Stats.InjectedLoad(measured), s.Stats.AcceptedLoad(measured), s.Stats.AveragePacketHops(), s.Stats.MissedGenerations())

		if trace.Level(opts.TraceLevel) == trace.LevelDecisions {
			summary := trace.Summarize(s.Trace)
			logrus.Infof("trace: routing_calls=%d idempotent=%d mean_candidates=%.2f requested=%d granted=%d",
				summary.TotalRoutingCalls, summary.IdempotentCalls, summary.MeanCandidates, summary.TotalRequested, summary.TotalGranted)
		}
	},
}

// defaultLinkClasses is the two-class table every scenario in spec §8 uses:
// class 0 for router-router links, class 1 (the last class) reserved for
// server links, per spec §6.
func defaultLinkClasses(generalFrequencyDivisor sim.Time) []sim.LinkClass {
	return []sim.LinkClass{
		{Delay: 1, FrequencyDivisor: generalFrequencyDivisor},
		{Delay: 1, FrequencyDivisor: generalFrequencyDivisor},
	}
}

func buildNetwork(plugs *sim.Plugs, opts sim.RunOptions) (*sim.Network, sim.Topology, sim.Routing, sim.Traffic, error) {
	top, err := plugs.BuildTopology(opts.Topology)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	routingImpl, err := plugs.BuildRouting(opts.Routing)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	trafficImpl, err := plugs.BuildTraffic(opts.Traffic, top)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	routerCfg, err := sim.ParseRouterConfig(opts.Router, plugs, opts.GeneralFrequencyDivisor)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	network := sim.NewNetwork(top, func(routerIndex, numPorts int) sim.RouterConfig {
		cfg := routerCfg
		cfg.RouterIndex = routerIndex
		return cfg
	}, opts.MaxPacketSize)
	return network, top, routingImpl, trafficImpl, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML simulation configuration")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "log level (debug, info, warn, error)")
	runCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(runCmd)
}
