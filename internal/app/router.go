package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/assetverse/assetverse/internal/accessgate"
	"github.com/assetverse/assetverse/internal/accounts"
	"github.com/assetverse/assetverse/internal/assets"
	"github.com/assetverse/assetverse/internal/auth"
	"github.com/assetverse/assetverse/internal/dashboard"
	"github.com/assetverse/assetverse/internal/employees"
	"github.com/assetverse/assetverse/internal/observability"
	"github.com/assetverse/assetverse/internal/payments"
	"github.com/assetverse/assetverse/internal/requests"
	"github.com/assetverse/assetverse/internal/session"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Sessions         *session.Manager
	Gate             accessgate.Gate
	AuthHandler      *auth.Handler
	AssetsHandler    *assets.Handler
	DashboardHandler *dashboard.Handler
	RequestsHandler  *requests.Handler
	EmployeesHandler *employees.Handler
	PaymentsHandler  *payments.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with AssetVerse defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Sessions: params.Sessions,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		// Browse and sign-in surface, no session required.
		params.AuthHandler.MountPublicRoutes(api)
		params.AssetsHandler.MountPublicRoutes(api)
		params.PaymentsHandler.MountPublicRoutes(api)

		// Any live session, role not yet relevant.
		api.Group(func(g chi.Router) {
			g.Use(params.Gate.RequireSession)
			params.AuthHandler.MountSessionRoutes(g)
		})

		// Role-gated trees. The gate re-resolves the role per request.
		api.Route("/hr", func(hr chi.Router) {
			hr.Use(params.Gate.Require(accounts.RoleHR))
			params.DashboardHandler.MountHRRoutes(hr)
			params.AssetsHandler.MountHRRoutes(hr)
			params.RequestsHandler.MountHRRoutes(hr)
			params.EmployeesHandler.MountHRRoutes(hr)
			params.PaymentsHandler.MountHRRoutes(hr)
		})
		api.Route("/employee", func(emp chi.Router) {
			emp.Use(params.Gate.Require(accounts.RoleEmployee))
			params.DashboardHandler.MountEmployeeRoutes(emp)
			params.RequestsHandler.MountEmployeeRoutes(emp)
			params.EmployeesHandler.MountEmployeeRoutes(emp)
		})
	})

	return r
}
