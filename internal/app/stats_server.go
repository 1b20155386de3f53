package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"polyhawk/config"
	"time"

	"go.uber.org/zap"
)

// StatsServer serves health checks and JSON counters over HTTP.
type StatsServer struct {
	logger *zap.Logger
	cfg    config.HealthServerConfig
	runner *Runner
	server *http.Server
}

func NewStatsServer(logger *zap.Logger, cfg config.HealthServerConfig, runner *Runner) *StatsServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StatsServer{
		logger: logger,
		cfg:    cfg,
		runner: runner,
	}
}

// Handler builds the HTTP routes. Split out so tests can drive the mux
// without binding a port.
func (s *StatsServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.runner.Stats())
	})

	mux.HandleFunc("/wallet", func(w http.ResponseWriter, req *http.Request) {
		address := req.URL.Query().Get("address")
		if address == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "address is required"})
			return
		}

		perf, err := s.runner.analyzer.Analyze(req.Context(), address)
		if err != nil {
			s.logger.Warn("wallet analysis failed", zap.String("wallet", shortID(address)), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "analysis failed"})
			return
		}
		writeJSON(w, http.StatusOK, perf)
	})

	mux.HandleFunc("/portfolio", func(w http.ResponseWriter, req *http.Request) {
		address := req.URL.Query().Get("address")
		if address == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "address is required"})
			return
		}

		summary, err := s.runner.walletMonitor.Portfolio(req.Context(), address)
		if err != nil {
			s.logger.Warn("portfolio fetch failed", zap.String("wallet", shortID(address)), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "portfolio fetch failed"})
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})

	return mux
}

// Start begins serving in the background.
func (s *StatsServer) Start(ctx context.Context) {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.Handler(),
	}

	go func() {
		s.logger.Info("stats server listening", zap.Int("port", s.cfg.Port))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("stats server error", zap.Error(err))
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *StatsServer) Stop() {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
