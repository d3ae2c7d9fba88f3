package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pcmon/internal/monitor"
)

const shutdownTimeout = 5 * time.Second

// Run serves the handler on addr until ctx is cancelled, then shuts down
// gracefully, draining in-flight requests for up to shutdownTimeout.
func Run(ctx context.Context, addr string, handler http.Handler, logger monitor.Logger) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
