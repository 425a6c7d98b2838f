package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chazu/trayforge/pkg/config"
	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/event"
	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/kernel/bsp"
	"github.com/chazu/trayforge/pkg/kernel/manifold"
	"github.com/chazu/trayforge/pkg/kernel/sdfx"
	"github.com/chazu/trayforge/pkg/metrics"
	"github.com/chazu/trayforge/pkg/parts"
)

var rootCmd = &cobra.Command{
	Use:   "trayforge",
	Short: "Trayforge builds printable cable-tray parts from parameters",
	Long: `Trayforge composes cable trays, rail frames, ducts and brackets from
primitive solids with mesh booleans, checks every result for
watertightness and writes STL files ready for slicing.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("trayforge failed")
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "YAML parameter file layered over the defaults")
	pf.StringArray("set", nil, "override one parameter, e.g. --set tray.length=250 (repeatable)")
	pf.String("kernel", "bsp", "boolean kernel: bsp, sdfx or manifold")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.Bool("log-json", false, "log JSON lines instead of console output")
	pf.String("metrics-file", "", "write Prometheus counters to this file on exit")
}

// env is the state shared by every command, built once before the
// command runs.
var env struct {
	cfg       parts.Config
	kernel    kernel.Kernel
	sink      event.Sink
	registry  *prometheus.Registry
	metricsTo string
}

func setup(cmd *cobra.Command, args []string) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	sets, _ := cmd.Flags().GetStringArray("set")
	if err := config.ApplyOverrides(&cfg, sets); err != nil {
		return err
	}
	env.cfg = cfg

	name, _ := cmd.Flags().GetString("kernel")
	if env.kernel, err = newKernel(name); err != nil {
		return err
	}

	env.registry = prometheus.NewRegistry()
	collector, err := metrics.New(env.registry)
	if err != nil {
		return err
	}
	env.sink = event.Multi(event.Logger(log.Logger), collector)
	env.metricsTo, _ = cmd.Flags().GetString("metrics-file")

	log.Debug().Str("kernel", env.kernel.Name()).Str("config", path).Strs("set", sets).Msg("configured")
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if env.metricsTo == "" {
		return nil
	}
	if err := metrics.WriteFile(env.metricsTo, env.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	log.Debug().Str("path", env.metricsTo).Msg("metrics written")
	return nil
}

func setupLogging(cmd *cobra.Command) error {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(strings.ToLower(levelName))
	if err != nil {
		return fmt.Errorf("bad --log-level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	if asJSON, _ := cmd.Flags().GetBool("log-json"); asJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return nil
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return nil
}

func newKernel(name string) (kernel.Kernel, error) {
	switch strings.ToLower(name) {
	case "bsp":
		return bsp.New(), nil
	case "sdfx":
		return sdfx.New(), nil
	case "manifold":
		return manifold.New()
	default:
		return nil, fmt.Errorf("%w: unknown kernel %q", kernel.ErrInvalidParameter, name)
	}
}

func newCompositor() *csg.Compositor {
	return csg.New(env.kernel, csg.WithSink(env.sink))
}
