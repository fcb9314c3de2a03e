package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/complycore/compliance-api/app"
	"github.com/complycore/compliance-api/handlers"
	"github.com/complycore/compliance-api/services/authz"
)

// SetupRoutes configures all application routes and middleware.
//
// The security chain is ordered so that every request, including ones that are
// later rejected, is observed: panic recovery first, then header injection and
// identity resolution (correlation id, client id), then the audit trail, then
// rate limiting, then payload validation. Authentication and authorization are
// applied per route group.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(deps.Recover.Handler)
	r.Use(deps.SecurityHeaders.Handler)
	r.Use(deps.AuditMW.Handler)
	r.Use(deps.RateLimitMW.Handler)
	r.Use(deps.Validator.Handler)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Correlation-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/healthz", handlers.HealthCheck)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", deps.AuthHandler.HandleLogin)
			r.Post("/refresh", deps.AuthHandler.HandleRefresh)
			r.Post("/password/reset", deps.AuthHandler.HandleInitiateReset)
			r.Post("/password/reset/confirm", deps.AuthHandler.HandleConfirmReset)

			// Authenticated account endpoints
			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMW.RequireAuth)
				r.Get("/me", deps.AuthHandler.HandleMe)
				r.Post("/password/change", deps.AuthHandler.HandleChangePassword)
			})
		})

		// Compliance policies (read path)
		r.Route("/policies", func(r chi.Router) {
			r.Use(deps.AuthMW.RequireAuth)
			r.Use(deps.AuthMW.RequirePermission(authz.PermPoliciesRead))
			r.Get("/", deps.ResourceHandler.HandleListPolicies)
		})

		// Audit trail inspection
		r.Route("/audit", func(r chi.Router) {
			r.Use(deps.AuthMW.RequireAuth)
			r.Use(deps.AuthMW.RequirePermission(authz.PermAuditRead))
			r.Get("/records", deps.ResourceHandler.HandleListAuditRecords)
		})
	})

	return r
}
