// Package cli implements the courier command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tjfontaine/courier/internal/config"
	"github.com/tjfontaine/courier/internal/runtime"
	"github.com/tjfontaine/courier/internal/telemetry"
)

type rootOptions struct {
	configPath string
	debug      bool
}

// NewRootCommand builds the courier command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "courier",
		Short:         "Run configured HTTP calls through the courier pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is courier.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newServeCommand(opts),
		newCallCommand(opts),
		newEndpointsCommand(opts),
		newExchangesCommand(opts),
	)
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

// app is the per-command runtime: config, logger, optional tracer and the
// configured client.
type app struct {
	cfg            *config.Config
	logger         *slog.Logger
	client         *runtime.Client
	shutdownTracer func(context.Context) error
}

func (o *rootOptions) open(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if o.debug {
		level = "debug"
	}
	// Logs go to stderr so call output can be piped.
	logger := telemetry.NewLogger(cmd.ErrOrStderr(), level, cfg.Log.Format)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}

	if cfg.Telemetry.Tracing {
		shutdown, err := telemetry.InitTracer("courier", cmd.ErrOrStderr(), logger)
		if err != nil {
			return nil, fmt.Errorf("initialize tracer: %w", err)
		}
		a.shutdownTracer = shutdown
	}

	client, err := runtime.New(cfg, runtime.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create client: %w", err)
	}
	a.client = client
	return a, nil
}

func (a *app) Close() {
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Error("failed to close client", slog.String("error", err.Error()))
		}
	}
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(context.Background()); err != nil {
			a.logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}
}
