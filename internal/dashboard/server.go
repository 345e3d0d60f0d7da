package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"resxwatch/internal/metrics"
)

// NewRouter wires the dashboard endpoints.
func NewRouter(hub *Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// the websocket route stays outside the metrics wrapper, which does
	// not implement http.Hijacker
	r.Get("/ws", hub.HandleWS)

	r.Group(func(r chi.Router) {
		r.Use(metrics.Middleware)

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"status":"ok","service":"resxwatch","clients":%d}`, hub.Count())
		})
		r.Handle("/metrics", metrics.Handler())
		r.Get("/api/portfolio", func(w http.ResponseWriter, _ *http.Request) {
			data, ok := hub.Latest()
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"detail":"no data yet"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)
		})
	})
	return r
}

// Server is the dashboard HTTP server.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(addr string, hub *Hub, logger *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:        addr,
			Handler:     NewRouter(hub),
			ReadTimeout: 10 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("dashboard server error", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
