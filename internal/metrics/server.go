package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuehook/cuehook/internal/snapshot"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig configures the metrics HTTP server. Per spec §6 this listens
// on the same port as the RTP ingest, but that is a UDP socket and this is
// TCP, so the two never conflict sharing a port number.
type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// Server is the "metrics thread": a tiny HTTP server exposing Prometheus
// metrics and the latest-frame snapshot.
type Server struct {
	cfg        ServerConfig
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds a metrics Server. snap is served at GET /latest_frame.
func NewServer(cfg ServerConfig, m *Metrics, snap *snapshot.Cell, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)

	router.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	router.Get("/latest_frame", latestFrameHandler(snap))

	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler: router,
		},
		logger: logger,
	}
}

func latestFrameHandler(snap *snapshot.Cell) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, ok := snap.Get()
		if !ok {
			http.Error(w, "no frame produced yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(frame)
	}
}

// ListenAndServe starts the server and blocks until ctx is cancelled, at
// which point it shuts the server down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("metrics server starting", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down metrics server: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
