package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/clusterbus/internal/adapters/catalogfile"
	"github.com/bft-labs/clusterbus/internal/adapters/codec"
	logAdapter "github.com/bft-labs/clusterbus/internal/adapters/log"
	"github.com/bft-labs/clusterbus/internal/adapters/transport"
	"github.com/bft-labs/clusterbus/internal/app"
	"github.com/bft-labs/clusterbus/internal/cliconfig"
	"github.com/bft-labs/clusterbus/internal/configwatch"
	"github.com/bft-labs/clusterbus/internal/console"
	"github.com/bft-labs/clusterbus/internal/domain"
)

const longHelp = `Drive instrument-cluster signals onto a CAN bus.

Every frame of the catalog that has an active signal is transmitted
periodically by its own worker. Signals run in auto mode (ramping from
their minimum to their maximum) or at a fixed value, and are switched
on and off from an interactive console.

Configure via file ($HOME/.clusterbus/config.toml), CLUSTERBUS_*
environment variables, or flags, in increasing order of precedence.`

var exampleUsage = strings.TrimSpace(`
  clusterbus signals --catalog cluster.dbc
  clusterbus run --catalog cluster.dbc --interface socketcan --channel can0
  clusterbus run --catalog cluster.yaml --signal EngineSpeed=A --signal FuelLevel=40 --console=false
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "clusterbus",
		Short:   "Periodic CAN signal transmitter for instrument-cluster testing",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.clusterbus/config.toml)")
	root.PersistentFlags().StringVar(&cfg.Catalog, "catalog", cfg.Catalog, "signal catalog (.dbc, .yaml or .yml)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(&cfg, &cfgPath), newSignalsCmd(&cfg, &cfgPath))

	if err := root.Execute(); err != nil {
		log := cliconfig.Logger(cfg.LogLevel)
		log.Error().Err(err).Msg("clusterbus")
		os.Exit(1)
	}
}

// loadConfig applies the config file and environment beneath the flags
// the user set explicitly. It returns the config file path in use, or ""
// when there is none.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (string, error) {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile == "" || !cliconfig.FileExists(cfgFile) {
		if cfgPath != "" {
			return "", fmt.Errorf("config file %s not found", cfgPath)
		}
		cfgFile = ""
	} else {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", err
		}
		if !changed["catalog"] && fc.Catalog != "" {
			cfg.Catalog = cliconfig.ResolveCatalogPath(fc.Catalog, cfgFile)
		}
	}

	// Apply environment variables (CLUSTERBUS_*)
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return "", err
	}
	return cfgFile, nil
}

func newSignalsCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signals",
		Short: "List the signals of a catalog with their physical limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, cfg, *cfgPath); err != nil {
				return err
			}
			if cfg.Catalog == "" {
				return fmt.Errorf("%w: catalog is required", domain.ErrInvalidConfig)
			}
			cat, err := catalogfile.Load(cfg.Catalog)
			if err != nil {
				return err
			}
			return console.WriteSignalTable(cmd.OutOrStdout(), cat, nil)
		},
	}
}

func newRunCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	interactive := true

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the bus and transmit active signals until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := loadConfig(cmd, cfg, *cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := cliconfig.Logger(cfg.LogLevel)
			log.Info().Interface("config", cfg).Msg("configuration")

			return run(cmd.Context(), *cfg, cfgFile, interactive, log, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cfg.Interface, "interface", cfg.Interface, fmt.Sprintf("bus interface (%s)", strings.Join(transport.Names(), ", ")))
	cmd.Flags().StringVar(&cfg.Channel, "channel", cfg.Channel, "interface channel, e.g. can0 or vcan0")
	cmd.Flags().IntVar(&cfg.Bitrate, "bitrate", cfg.Bitrate, "nominal bitrate in bit/s (125000, 250000, 500000, 1000000)")
	cmd.Flags().DurationVar(&cfg.CycleTime, "cycle-time", cfg.CycleTime, "transmission interval shared by all frames")
	cmd.Flags().DurationVar(&cfg.GraceTimeout, "grace-timeout", cfg.GraceTimeout, "how long a stop waits for a worker to finish")
	cmd.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload cycle_time when the config file changes")
	cmd.Flags().StringArrayVar(&cfg.Signals, "signal", cfg.Signals, "activate NAME=A or NAME=<value> at startup (repeatable)")
	cmd.Flags().BoolVar(&interactive, "console", interactive, "read operator commands from stdin")

	return cmd
}

func run(ctx context.Context, cfg cliconfig.Config, cfgFile string, interactive bool, log zerolog.Logger, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := logAdapter.NewZerologAdapterWithLogger(log)

	cat, err := catalogfile.Load(cfg.Catalog)
	if err != nil {
		return err
	}
	log.Info().Str("catalog", cfg.Catalog).Int("frames", len(cat.Frames())).Int("signals", len(cat.SignalNames())).Msg("catalog loaded")

	bus, err := transport.Open(cfg.Interface, cfg.Channel, cfg.Bitrate)
	if err != nil {
		return err
	}
	defer bus.Close()
	log.Info().Str("interface", cfg.Interface).Str("channel", cfg.Channel).Int("bitrate", cfg.Bitrate).Msg("bus opened")

	if vb, ok := bus.(*transport.VirtualBus); ok {
		frames, detach := vb.Subscribe(256)
		defer detach()
		go traceFrames(log, frames)
	}

	engine, err := app.New(cat, bus, codec.NewEncoder(),
		app.WithLogger(logger),
		app.WithEventHandler(&workerEvents{out: out}),
		app.WithCycleTime(cfg.CycleTime),
		app.WithGraceTimeout(cfg.GraceTimeout),
	)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	for _, s := range cfg.Signals {
		req, err := cliconfig.ParseSignalRequest(s)
		if err != nil {
			return err
		}
		if err := engine.Activate(req.Name, req.Mode); err != nil {
			_ = engine.Shutdown()
			return err
		}
	}

	if cfg.Watch && cfgFile != "" {
		w := configwatch.New(cfgFile, engine, logger, configwatch.DefaultConfig())
		if err := w.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("config watcher disabled")
		} else {
			defer w.Stop()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	doneCh := make(chan struct{})
	if interactive {
		go func() {
			defer close(doneCh)
			c := console.New(engine, out).WithPrompt("clusterbus> ")
			if err := c.Run(ctx, in); err != nil {
				log.Error().Err(err).Msg("console")
			}
		}()
	}

	select {
	case <-sigCh:
		log.Info().Msg("received signal, stopping...")
	case <-doneCh:
	case <-ctx.Done():
	}

	// Graceful shutdown
	if err := engine.Shutdown(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func traceFrames(log zerolog.Logger, frames <-chan transport.Frame) {
	for f := range frames {
		log.Debug().
			Str("frame_id", fmt.Sprintf("0x%X", f.ID)).
			Bool("extended", f.Extended).
			Hex("data", f.Data).
			Msg("virtual bus frame")
	}
}

// workerEvents tells the operator when a frame stops on its own.
type workerEvents struct {
	out io.Writer
}

func (w *workerEvents) OnWorkerStateChange(frameID uint32, previous, current domain.WorkerState, reason string) {
}

func (w *workerEvents) OnWorkerError(frameID uint32, err error) {
	fmt.Fprintf(w.out, "\nframe 0x%X stopped: %v\n", frameID, err)
}
