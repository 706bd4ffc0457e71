package api

import (
	"github.com/adboardhq/adboard/internal/logging"
	"github.com/adboardhq/adboard/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

// NewRouter wires every endpoint. db may be nil when the insights
// warehouse is not configured; the insight routes then 404.
func NewRouter(svc *service.Service, db *gorm.DB) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(logging.Middleware)

	// OAuth flow
	r.Route("/auth/{provider}", func(r chi.Router) {
		r.Post("/oauth-url", OAuthURLHandler(svc))
		r.Post("/callback", CallbackHandler(svc))
		r.Get("/status/{userId}", StatusHandler(svc))
		r.Post("/disconnect", DisconnectHandler(svc))
	})

	// Campaign reporting
	r.Get("/campaigns/{provider}/{integrationId}", CampaignsHandler(svc))

	// Integration management + warehouse reads
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", HealthHandler())

		// {id} is a user id for the listing and an integration id for the
		// rest; chi requires one wildcard name per position.
		r.Get("/integrations/{id}", IntegrationsHandler(svc))
		r.Delete("/integrations/{id}", IntegrationDeleteHandler(svc))
		r.Post("/integrations/{id}/ad-account", SetAdAccountHandler(svc))
		r.Get("/integrations/{id}/ad-accounts", AdAccountsHandler(svc))

		if db != nil {
			r.Get("/insights", InsightsHandler(db))
			r.Get("/insights/{campaignName}", InsightForCampaignHandler(db))
		}
	})

	return r
}
