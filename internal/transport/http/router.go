// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services; no business logic lives here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veridoc/internal/document/store"
	"veridoc/internal/platform/middleware"
	platformredis "veridoc/internal/platform/redis"
	"veridoc/internal/registry/circuit"
	"veridoc/internal/registry/failover"
	"veridoc/internal/transport/http/shared"
)

// RouterConfig wires the handlers and middleware for the public router.
type RouterConfig struct {
	Logger    *slog.Logger
	Documents *DocumentsHandler
	Verify    *VerifyHandler
	Validator middleware.TokenValidator

	// Health check dependencies. Redis may be nil when caching is disabled.
	Store    store.Store
	Redis    *platformredis.Client
	Failover *failover.Orchestrator
	Breakers map[string]*circuit.Breaker
}

// NewRouter assembles the full route table. Issuing-office routes sit behind
// bearer auth; verification and health stay public.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(cfg.Validator, cfg.Logger))
		cfg.Documents.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		cfg.Verify.Register(r)
	})

	r.Get("/healthz", handleHealth(cfg))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type registryHealth struct {
	Registry            string     `json:"registry"`
	Endpoints           int        `json:"endpoints"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	Circuit             string     `json:"circuit,omitempty"`
	RetryAt             *time.Time `json:"retryAt,omitempty"`
}

type healthResponse struct {
	Status     string            `json:"status"`
	Checks     map[string]string `json:"checks"`
	Registries []registryHealth  `json:"registries,omitempty"`
}

func handleHealth(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}

		if err := cfg.Store.Health(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks["store"] = err.Error()
		} else {
			resp.Checks["store"] = "ok"
		}

		if cfg.Redis != nil {
			if err := cfg.Redis.Health(ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks["redis"] = err.Error()
			} else {
				resp.Checks["redis"] = "ok"
			}
		}

		if cfg.Failover != nil {
			for _, h := range cfg.Failover.HealthSnapshot() {
				rh := registryHealth{
					Registry:            h.Registry,
					Endpoints:           h.Endpoints,
					ConsecutiveFailures: h.ConsecutiveFailures,
				}
				if b, ok := cfg.Breakers[h.Registry]; ok {
					rh.Circuit = string(b.State())
					if next := b.NextAttempt(); !next.IsZero() {
						rh.RetryAt = &next
					}
				}
				resp.Registries = append(resp.Registries, rh)
			}
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		shared.WriteJSON(w, status, resp)
	}
}
