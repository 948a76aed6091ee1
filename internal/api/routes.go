// Package api wires the chi router of the crmops HTTP surface.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/crmops/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/crmops/internal/api/middleware"
	"github.com/matiasleandrokruk/crmops/internal/mcpserver"
)

// Registry is what the router needs from the operation registry.
type Registry interface {
	handlers.OperationRunner
	mcpserver.Runner
}

// Deps are the collaborators of NewRouter. When Auth is nil, protected
// routes run as DefaultWorkspaceID with an anonymous user.
type Deps struct {
	Registry           Registry
	Invocations        handlers.InvocationLister
	Auth               apmiddleware.TokenParser
	DefaultWorkspaceID string
	Logger             *zap.Logger
}

// NewRouter creates and configures a new chi router with all routes.
// Public: /health. Protected: /api/v1/* and /mcp.
func NewRouter(deps Deps) *chi.Mux {
	lggr := deps.Logger
	if lggr == nil {
		lggr = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apmiddleware.Correlation)

	// Health check, unauthenticated, used by load balancers and probes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	identify := apmiddleware.DefaultWorkspace(deps.DefaultWorkspaceID)
	if deps.Auth != nil {
		identify = apmiddleware.AuthMiddleware(deps.Auth)
	}

	operationHandler := handlers.NewOperationHandler(deps.Registry, lggr.Named("operation"))
	invocationHandler := handlers.NewInvocationHandler(deps.Invocations)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(identify)

		r.Route("/operations", func(r chi.Router) {
			r.Get("/", operationHandler.ListOperations)          // GET /api/v1/operations
			r.Post("/{name}", operationHandler.ExecuteOperation) // POST /api/v1/operations/{name}
		})
		r.Get("/invocations", invocationHandler.ListInvocations) // GET /api/v1/invocations
	})

	r.With(identify).Handle("/mcp", mcpserver.NewHTTPHandler(deps.Registry, lggr.Named("mcp")))

	return r
}
