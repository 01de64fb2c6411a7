package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/internal/simulation"
	"github.com/ajitpratap0/spawnpool/pkg/config"
	"github.com/ajitpratap0/spawnpool/pkg/logger"
	"github.com/ajitpratap0/spawnpool/pkg/metrics"
	"github.com/ajitpratap0/spawnpool/pkg/observability"
	"github.com/ajitpratap0/spawnpool/pkg/registry"
	"github.com/ajitpratap0/spawnpool/pkg/scene"
)

var version = "0.1.0"

// envPrefix namespaces environment overrides, e.g. SPAWNPOOL_SEED.
const envPrefix = "SPAWNPOOL"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "spawnpool",
		Short: "spawnpool - recycle pool simulator",
		Long: `spawnpool drives recycle pools against an in-memory scene, spawning and
despawning instances at configured rates while idle instances are destroyed
behind the pools' backs, and reports how well the pools recycled.`,
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "spawnpool v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var v *viper.Viper

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		Long: `Run a simulation described by a YAML file. Flags and SPAWNPOOL_* environment
variables override values from the file.

Example:
  spawnpool run --config sim.yaml --seed 42 --report out.json.zst`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSimulation(ctx, cfg, cmd.OutOrStdout())
		},
	}

	flags := runCmd.Flags()
	flags.StringP("config", "c", "", "Path to simulation YAML file (defaults are used when empty)")
	flags.Uint64("seed", 0, "Random seed")
	flags.Int("ticks", 0, "Number of ticks to simulate")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flags.String("report", "", "Write the JSON report to this path; .zst, .lz4, .gz, .sz or .s2 compresses it")
	flags.String("events", "", "Write every pool event as a JSON line to this path")
	flags.Bool("release-guard", false, "Reject invalid releases instead of trusting callers")

	v = bindConfig(flags)
	return runCmd
}

// bindConfig returns a viper instance reading flags first and SPAWNPOOL_*
// environment variables second.
func bindConfig(flags *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(flags)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads the configuration file, if any, and applies flag and
// environment overrides on top.
func loadConfig(v *viper.Viper) (*config.SimulationConfig, error) {
	cfg := config.Default()
	if path := v.GetString("config"); path != "" {
		loaded, err := config.LoadSimulation(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v.IsSet("seed") {
		cfg.Seed = v.GetUint64("seed")
	}
	if v.IsSet("ticks") {
		cfg.Ticks = v.GetInt("ticks")
	}
	if v.IsSet("log-level") {
		cfg.Logging.Level = v.GetString("log-level")
	}
	if v.IsSet("metrics-addr") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = v.GetString("metrics-addr")
	}
	if v.IsSet("report") {
		cfg.Report.Output = v.GetString("report")
	}
	if v.IsSet("events") {
		cfg.Report.Events = v.GetString("events")
	}
	if v.IsSet("release-guard") {
		cfg.Pool.ReleaseGuard = v.GetBool("release-guard")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(ctx context.Context, cfg *config.SimulationConfig, out io.Writer) error {
	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx = logger.ContextWithRunID(ctx, uuid.NewString())
	log := logger.WithContext(ctx)

	shutdownTracing, err := observability.Init(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	poolMetrics := metrics.NewPoolMetrics(reg)
	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Addr, reg, log)
		if err := srv.Activate(); err != nil {
			return fmt.Errorf("metrics endpoint: %w", err)
		}
		defer func() { _ = srv.Deactivate(context.Background()) }()
	}

	world := registry.NewLazy("scene",
		func() (*scene.Scene, error) {
			return scene.New(cfg.Name,
				scene.WithMaxNodes(cfg.Scene.MaxNodes),
				scene.WithLogger(log)), nil
		},
		func(s *scene.Scene) error { return s.Close() },
		registry.WithLogger(log),
	)
	defer func() { _ = world.Close() }()

	s, err := world.Get()
	if err != nil {
		return err
	}
	simOpts := []simulation.Option{
		simulation.WithLogger(log),
		simulation.WithMetrics(poolMetrics),
	}
	if cfg.Report.Events != "" {
		eventLog, err := simulation.WriteEventLog(cfg.Report.Events)
		if err != nil {
			return err
		}
		defer func() { _ = eventLog.Close() }()
		simOpts = append(simOpts, simulation.WithEventLog(eventLog))
	}

	sim, err := simulation.New(cfg, s, simOpts...)
	if err != nil {
		return err
	}
	defer sim.Shutdown()

	report, err := sim.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.Report.Output != "" {
		if err := simulation.WriteReport(cfg.Report.Output, report); err != nil {
			return err
		}
		log.Info("report written", zap.String("path", cfg.Report.Output))
	}

	printSummary(out, report)
	return nil
}

func printSummary(out io.Writer, r *simulation.Report) {
	fmt.Fprintf(out, "Simulation %q finished in %s (%d ticks, seed %d)\n", r.Name, r.Duration.Round(time.Millisecond), r.Ticks, r.Seed)
	fmt.Fprintf(out, "  spawned=%d despawned=%d external_destroys=%d capacity_rejections=%d\n",
		r.Counters.Spawned, r.Counters.Despawned, r.Counters.ExternalDestroys, r.Counters.CapacityRejections)
	fmt.Fprintf(out, "  live=%d idle=%d peak=%d reuse=%.1f%%\n", r.LiveNodes, r.IdleNodes, r.PeakLive, r.ReuseRatio()*100)

	names := make([]string, 0, len(r.Pools))
	for name := range r.Pools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := r.Pools[name]
		fmt.Fprintf(out, "  pool %-12s created=%d reused=%d released=%d stale=%d idle=%d\n",
			name, st.Created, st.Reused, st.Released, st.StaleDiscarded, st.Idle)
	}
}
