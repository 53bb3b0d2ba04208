package soti

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// NewHTTPHandler serves /metrics and, when feed is not nil, /ws.
func NewHTTPHandler(metrics *Metrics, feed *LiveFeed) http.Handler {
	var mux = http.NewServeMux()

	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	if feed != nil {
		mux.Handle("/ws", feed)
	}

	return mux
}

// RunHTTP serves handler on addr until ctx is done.
func RunHTTP(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	var server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		var shutdownCtx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("HTTP server listening", "addr", addr)

	var err = server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return fmt.Errorf("HTTP server on %s: %w", addr, err)
}
