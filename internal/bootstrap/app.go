package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yanqian/smart-summary/internal/infra/config"
)

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server
// fails. In-flight summary streams get ShutdownTimeout to drain.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting",
			"address", a.server.Addr,
			"provider", a.cfg.LLM.Provider,
			"model", a.cfg.LLM.Model,
			"cors_origins", a.cfg.CORS.Origins(),
		)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.logger.Info("shutdown signal received", "timeout", a.cfg.HTTP.ShutdownTimeout.String())
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("graceful shutdown incomplete, closing connections", "error", err)
			_ = a.server.Close()
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
