package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/homecast/homecast/internal/config"
	"github.com/homecast/homecast/internal/metrics"
	"github.com/homecast/homecast/internal/registry"
	"github.com/homecast/homecast/internal/store"
	"github.com/homecast/homecast/internal/weights"
)

// tickInterval is how often the run loop polls the allocation timer.
const tickInterval = time.Minute

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Registry string
}

// registrySnapshot is the YAML shape of a fixed registry file: the
// wiring point where a chain client would plug in.
type registrySnapshot struct {
	Hotkeys []string           `yaml:"hotkeys"`
	Stakes  map[string]float64 `yaml:"stakes"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the validator allocation loop",
		Long: `Start the validator weight allocation loop.

The engine opens the SQLite database (creating it if it doesn't exist)
and periodically converts accumulated miner performance into a weight
vector submitted to the registry.

Example:
  homecast run --config validator.yaml --registry registry.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidator(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Registry, "registry", "", "path to YAML registry snapshot (required)")
	_ = cmd.MarkFlagRequired("registry")

	return cmd
}

func runValidator(opts *RunOptions, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	reg, err := loadRegistrySnapshot(opts.Registry)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load registry snapshot", err)
	}

	slog.Info("opening database", "path", cfg.DatabasePath)
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database ready")

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		go func() {
			slog.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	allocator := weights.New(st, reg, m, cfg)

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("validator started",
		"db", cfg.DatabasePath,
		"allocation_interval", cfg.AllocationInterval)
	fmt.Fprintln(cmd.OutOrStdout(), "Validator started. Press Ctrl-C to stop.")

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("validator stopped gracefully")
			return nil
		case <-ticker.C:
			if allocator.IsTimeToAllocate() {
				allocator.Allocate(ctx)
			}
		}
	}
}

// loadRegistrySnapshot reads a fixed registry from a YAML file.
func loadRegistrySnapshot(path string) (*registry.Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry snapshot: %w", err)
	}
	var snapshot registrySnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parse registry snapshot: %w", err)
	}
	if len(snapshot.Hotkeys) == 0 {
		return nil, fmt.Errorf("registry snapshot %q lists no hotkeys", path)
	}
	return registry.NewStatic(snapshot.Hotkeys, snapshot.Stakes), nil
}
