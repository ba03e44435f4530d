package ops

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/pkg/bus"
	"github.com/peter-kozarec/botplatform/pkg/common"
)

const (
	componentName   = "ops.server"
	shutdownTimeout = 5 * time.Second
)

// PositionSource is the read side of an exchange backend.
type PositionSource interface {
	GetPositions(ctx context.Context, symbols ...string) (map[string]common.PositionSnapshot, error)
}

// StatisticsSource reports bus statistics.
type StatisticsSource interface {
	Statistics() bus.Statistics
}

// Server exposes health, prometheus metrics, positions and bus statistics over HTTP.
type Server struct {
	logger *zap.Logger
	srv    *http.Server
}

func NewServer(logger *zap.Logger, addr string, positions PositionSource, stats StatisticsSource, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		logger: logger.Named(componentName),
	}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      NewRouter(s.logger, positions, stats, gatherer),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func NewRouter(logger *zap.Logger, positions PositionSource, stats StatisticsSource, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(logger, w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/positions", func(w http.ResponseWriter, r *http.Request) {
		p, err := positions.GetPositions(r.Context())
		if err != nil {
			logger.Warn("unable to get positions", zap.Error(err))
			writeJSON(logger, w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(logger, w, http.StatusOK, p)
	})

	r.Get("/positions/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		symbol := chi.URLParam(r, "symbol")
		p, err := positions.GetPositions(r.Context(), symbol)
		if err != nil {
			logger.Warn("unable to get position", zap.String("symbol", symbol), zap.Error(err))
			writeJSON(logger, w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		pos, ok := p[symbol]
		if !ok {
			pos = common.NewFlatPosition(symbol)
		}
		writeJSON(logger, w, http.StatusOK, pos)
	})

	r.Get("/bus", func(w http.ResponseWriter, _ *http.Request) {
		st := stats.Statistics()
		writeJSON(logger, w, http.StatusOK, map[string]any{
			"run_time":       st.RunTime.String(),
			"publish_count":  st.PublishCount,
			"dispatch_count": st.DispatchCount,
			"dispatch_fails": st.DispatchFails,
			"dropped_count":  st.DroppedCount,
			"throughput":     st.Throughput,
		})
	})

	return r
}

// Run serves until ctx is done, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ops server listening", zap.String("addr", ln.Addr().String()))
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shut down ops server: %w", err)
	}
	s.logger.Info("ops server stopped")
	return nil
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("unable to write response", zap.Error(err))
	}
}
