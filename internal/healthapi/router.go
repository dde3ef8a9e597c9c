// Package healthapi is the minimal chi-routed HTTP surface that runs
// alongside the bot poller: a liveness/readiness endpoint an operator
// (or orchestrator) can probe. It carries no domain logic — the teacher
// always ships an HTTP surface next to its core logic, so the ambient
// stack keeps that shape even though the bot's real interface is the
// Telegram long-poll connection, not HTTP.
package healthapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Server holds the dependencies the health surface needs.
type Server struct {
	DB *pgxpool.Pool
}

// Routes builds the chi mux.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/healthz", s.handleHealth)

	return r
}

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", DB: "ok"}
	status := http.StatusOK

	if err := s.DB.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.DB = "unreachable"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
