package gate

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/lunaria/entitlement/pkg/billing"
	"github.com/lunaria/entitlement/pkg/entitlement"
)

// RouterOptions configures the gate module router. Service is required;
// Syncer is optional and controls whether the billing webhook endpoint is
// mounted.
type RouterOptions struct {
	Service entitlement.Service
	Syncer  *billing.Syncer
	Logger  *slog.Logger
}

// Router builds the HTTP surface of the entitlement engine.
//
//	r := chi.NewRouter()
//	r.Mount("/v1", gate.Router(gate.RouterOptions{
//	    Service: svc,
//	    Syncer:  syncer,
//	}))
func Router(opts RouterOptions) chi.Router {
	if opts.Service == nil {
		panic("gate: entitlement.Service is required")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	h := &handler{svc: opts.Service, syncer: opts.Syncer, log: log}

	r := chi.NewRouter()

	r.Route("/users/{userID}", func(u chi.Router) {
		u.Get("/entitlement", h.getEntitlement)
		u.Route("/features/{feature}", func(f chi.Router) {
			f.Post("/check", h.checkAccess)
			f.Post("/use", h.useFeature)
		})
	})

	if opts.Syncer != nil {
		r.Post("/billing/webhook", h.billingWebhook)
	}

	return r
}
