package httpx

import (
	"encoding/json"
	"net/http"

	"funnelpay/internal/config"
	"funnelpay/internal/core/reconcile"
	"funnelpay/internal/gateway"
	"funnelpay/internal/http/handlers"
	middlewarex "funnelpay/internal/http/middleware"
	"funnelpay/internal/store/repositories"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// RouterDependencies holds everything the HTTP surface needs
type RouterDependencies struct {
	Config     config.Cfg
	Reconciler *reconcile.Reconciler
	Leads      repositories.LeadStore
	Confirm    repositories.ConfirmationStore
	Admin      repositories.AdminStore
	Gateway    *gateway.Client
	Redis      *redis.Client
}

func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Funnel-facing API: called by the landing page's JS from plan
	// clicks, step timers and the checkout step.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarex.RateLimit(deps.Redis, deps.Config.Sec.RateLimitPerMin))

		r.Post("/leads", handlers.CaptureLead(deps.Leads))
		r.Post("/pending/sync", handlers.SyncPending(deps.Reconciler))
		r.Patch("/pending", handlers.PatchPending(deps.Reconciler))
		if deps.Gateway != nil {
			r.Post("/pending/charge", handlers.CreateCharge(deps.Reconciler, deps.Gateway))
		}
	})

	// Gateway confirmation callback
	r.Route("/webhooks", func(r chi.Router) {
		r.Use(middlewarex.WebhookAuth(deps.Config))
		r.Post("/gateway", handlers.GatewayWebhook(deps.Confirm))
	})

	// Admin surface
	r.Route("/admin", func(r chi.Router) {
		r.Use(middlewarex.AdminAuth(deps.Config))
		r.Get("/pending", handlers.ListPending(deps.Admin))
	})

	return r
}
