package web

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fuelops/correlator/internal/correlation"
	"github.com/fuelops/correlator/internal/report"
	"github.com/fuelops/correlator/internal/web/handlers"
	"github.com/fuelops/correlator/internal/web/middleware"
)

// Server is the HTTP surface over the correlation engine
type Server struct {
	config     *Config
	httpServer *http.Server
	router     *mux.Router
	log        *logrus.Logger
}

// NewServer wires the routes over an already-constructed service
func NewServer(cfg *Config, svc *correlation.Service, db *sql.DB, log *logrus.Logger) *Server {
	s := &Server{config: cfg, log: log}
	s.setupRoutes(svc, db)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes(svc *correlation.Service, db *sql.DB) {
	s.router = mux.NewRouter()

	correlationsHandler := &handlers.CorrelationsHandler{
		Service:            svc,
		AdminDeleteEnabled: s.config.Features.AdminDeleteEnabled,
	}
	resolveHandler := &handlers.ResolveHandler{Service: svc}
	statsHandler := &handlers.StatsHandler{Reporter: report.NewReporter(db)}

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/resolve", resolveHandler.Resolve).Methods("GET")

	api.HandleFunc("/correlations/evaluate", correlationsHandler.Evaluate).Methods("POST")
	api.HandleFunc("/correlations/candidates", correlationsHandler.Candidates).Methods("POST")
	api.HandleFunc("/correlations", correlationsHandler.List).Methods("GET")
	api.HandleFunc("/correlations/{id}", correlationsHandler.Get).Methods("GET")
	api.HandleFunc("/correlations/{id}/verify", correlationsHandler.Verify).Methods("POST")
	api.HandleFunc("/correlations/{id}/reject", correlationsHandler.Reject).Methods("POST")
	api.HandleFunc("/correlations/{id}", correlationsHandler.Delete).Methods("DELETE")
	api.HandleFunc("/correlations/{id}/audit", correlationsHandler.AuditTrail).Methods("GET")

	api.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")

	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogging(s.log))
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		s.log.WithField("addr", s.httpServer.Addr).Info("server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("server error")
		}
	}()

	<-stop
	s.log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("server stopped")
	return nil
}
