package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/handlers"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/middleware"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/services"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve page list evaluation over HTTP",
		Long: `Start the HTTP service.

Routes:
  GET  /health                       database reachability
  GET  /ping                         version and environment
  POST /api/pagelist/evaluate        evaluate one request
  GET  /api/pagelist/parameters      option catalog
  GET  /api/pagelist/parameters/{name}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

func runServe(ctx context.Context, rootOpts *RootOptions) error {
	cfg, logger, err := loadConfig(rootOpts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database_type", cfg.Database.Type),
		zap.String("table_prefix", cfg.Database.TablePrefix),
		zap.Int("max_category_count", cfg.PageList.MaxCategoryCount),
		zap.Int("max_result_count", cfg.PageList.MaxResultCount))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exec, err := openExecutor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer exec.Close()

	svc, err := services.NewPageListService(exec, cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create page list service", err)
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           newRouter(cfg, exec, svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.PageList.QueryTimeout() + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-pagelist",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "graceful shutdown failed", err)
	}
	return nil
}

// newRouter assembles the middleware chain and routes.
func newRouter(cfg *config.Config, db datasource.ConnectionTester, svc services.PageListService, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer(logger))

	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(r)
	handlers.NewPageListHandler(svc, logger).RegisterRoutes(r)
	return r
}
