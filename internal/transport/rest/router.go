package rest

import (
	"database/sql"
	"log/slog"

	"github.com/frahmantamala/asset-attestation/internal/asset"
	"github.com/frahmantamala/asset-attestation/internal/attestation"
	"github.com/frahmantamala/asset-attestation/internal/auth"
	"github.com/frahmantamala/asset-attestation/internal/company"
	"github.com/frahmantamala/asset-attestation/internal/transport/middleware"
	"github.com/frahmantamala/asset-attestation/internal/transport/swagger"
	"github.com/frahmantamala/asset-attestation/internal/user"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

type Handlers struct {
	Auth        *auth.Handler
	RBAC        *auth.RBACAuthorization
	User        *user.Handler
	Company     *company.Handler
	Asset       *asset.Handler
	Attestation *attestation.Handler
}

type Options struct {
	AllowedOrigins string
	// OpenAPI is served at /openapi.json and backs the swagger UI when set.
	OpenAPI *openapi3.T
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, opts Options, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)
	rbac := h.RBAC

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	if opts.OpenAPI != nil {
		router.Handle(swagger.SpecURL, swagger.SpecHandler(opts.OpenAPI))
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/register", h.User.Register)
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		// unauthenticated: the registration page resolves the invite link
		r.Get("/invites/{token}", h.Attestation.InviteByToken)

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			pr.Use(middleware.ActorContext)

			pr.Route("/users", func(ur chi.Router) {
				ur.Get("/me", h.User.GetCurrentUser)
				ur.Patch("/me", h.User.UpdateCurrentUser)

				ur.Group(func(ar chi.Router) {
					ar.Use(rbac.RequireAdmin())
					ar.Get("/", h.User.ListUsers)
					ar.Patch("/{id}/role", h.User.ChangeRole)
				})
			})

			pr.Route("/companies", func(cr chi.Router) {
				cr.Get("/", h.Company.ListCompanies)
				cr.Get("/{id}", h.Company.GetCompany)

				cr.Group(func(ar chi.Router) {
					ar.Use(rbac.RequireAdmin())
					ar.Post("/", h.Company.CreateCompany)
					ar.Put("/{id}", h.Company.UpdateCompany)
					ar.Delete("/{id}", h.Company.DeleteCompany)
				})
			})

			pr.Route("/assets", func(ar chi.Router) {
				ar.Get("/", h.Asset.ListAssets)
				ar.Get("/{id}", h.Asset.GetAsset)
				ar.Patch("/{id}/status", h.Asset.UpdateAssetStatus)

				ar.Group(func(mr chi.Router) {
					mr.Use(rbac.RequireAssetManager())
					mr.Post("/", h.Asset.CreateAsset)
					mr.Put("/{id}", h.Asset.UpdateAsset)
					mr.Delete("/{id}", h.Asset.DeleteAsset)
				})
			})

			pr.Route("/campaigns", func(cr chi.Router) {
				cr.Use(rbac.RequireAdmin())
				cr.Post("/", h.Attestation.CreateCampaign)
				cr.Get("/", h.Attestation.ListCampaigns)
				cr.Get("/{id}", h.Attestation.GetCampaign)
				cr.Put("/{id}", h.Attestation.UpdateCampaign)
				cr.Delete("/{id}", h.Attestation.DeleteCampaign)
				cr.Post("/{id}/launch", h.Attestation.LaunchCampaign)
				cr.Post("/{id}/cancel", h.Attestation.CancelCampaign)
				cr.Post("/{id}/complete", h.Attestation.CompleteCampaign)
				cr.Get("/{id}/dashboard", h.Attestation.Dashboard)
				cr.Get("/{id}/records", h.Attestation.CampaignRecords)
				cr.Get("/{id}/invites", h.Attestation.CampaignInvites)
			})

			pr.Route("/attestations", func(er chi.Router) {
				er.Get("/", h.Attestation.MyAttestations)
				er.Get("/{id}", h.Attestation.GetMyRecord)
				er.Post("/{id}/start", h.Attestation.StartRecord)
				er.Post("/{id}/new-assets", h.Attestation.AddNewAsset)
				er.Patch("/{id}/assets/{assetID}/status", h.Attestation.UpdateAssetStatus)
				er.Post("/{id}/complete", h.Attestation.CompleteRecord)
			})
		})
	})
}
