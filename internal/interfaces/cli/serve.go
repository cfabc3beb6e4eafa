package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clinsignal/clinsignal/internal/config"
	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	httpserver "github.com/clinsignal/clinsignal/internal/interfaces/http"
	"github.com/clinsignal/clinsignal/internal/interfaces/http/handlers"
	"github.com/clinsignal/clinsignal/internal/interfaces/http/middleware"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the clinsignal HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			return RunServer(cmd.Context(), cliCtx.Config, cliCtx.Logger)
		},
	}
}

// RunServer wires the full service graph, mounts the router and blocks
// until the context is cancelled or a termination signal arrives.
func RunServer(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcs, err := BuildServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if svcs.Cache != nil {
		defer svcs.Cache.Close()
	}

	checkers := []handlers.HealthChecker{
		handlers.HealthCheckerFunc{ComponentName: "oracle", Fn: svcs.Oracle.Healthz},
	}
	if svcs.Cache != nil {
		checkers = append(checkers, handlers.HealthCheckerFunc{ComponentName: "cache", Fn: svcs.Cache.Ping})
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		NoteHandler:       handlers.NewNoteHandler(svcs.Notes, logger),
		SearchHandler:     handlers.NewSearchHandler(svcs.Search, logger),
		RiskHandler:       handlers.NewRiskHandler(svcs.Risk, logger),
		CohortHandler:     handlers.NewCohortHandler(svcs.Cohort, logger),
		HealthHandler:     handlers.NewHealthHandler(Version, checkers...),
		LoggingMiddleware: middleware.NewLoggingMiddleware(logger, middleware.DefaultLoggingConfig()),
		MetricsRegistry:   svcs.Registry,
	})

	srv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return srv.Stop(context.Background())
}
