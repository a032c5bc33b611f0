// Package server exposes the cron engine over HTTP for browser tools.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	DefaultCount    = 5
	DefaultMaxCount = 100
	shutdownTimeout = 5 * time.Second
)

type Options struct {
	// MaxCount caps the count parameter of /api/next.
	MaxCount int
	// Now supplies the default starting point for /api/next.
	Now func() time.Time
}

type api struct {
	maxCount int
	now      func() time.Time
}

// NewRouter returns the HTTP handler with every route and middleware wired.
func NewRouter(opts Options) http.Handler {
	a := &api{maxCount: opts.MaxCount, now: opts.Now}
	if a.maxCount <= 0 {
		a.maxCount = DefaultMaxCount
	}
	if a.now == nil {
		a.now = time.Now
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLog)
	r.Use(Prometheus)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/describe", a.describe)
		r.Get("/next", a.next)
		r.Get("/parse", a.parse)
		r.Post("/field/format", a.fieldFormat)
		r.Get("/field/parse", a.fieldParse)
	})

	return r
}

// ListenAndServe serves h on addr until ctx is canceled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
