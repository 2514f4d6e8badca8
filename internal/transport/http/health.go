package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Checker verifies that a storage backend is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a ping function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	checks map[string]Checker
	logger *slog.Logger
}

func NewHealthHandler(logger *slog.Logger, checks map[string]Checker) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

type checkResult struct {
	Status string `json:"status"`
}

func (h *HealthHandler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	results := make(map[string]checkResult, len(h.checks))
	status := http.StatusOK

	for name, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.logger.Error("health check failed", "name", name, "error", err)
			results[name] = checkResult{Status: "error"}
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = checkResult{Status: "ok"}
	}

	writeJSON(w, status, results)
}
