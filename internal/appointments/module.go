// Package appointments provides the appointments domain module.
package appointments

import (
	"visitor_backend/internal/appointments/handler"
	"visitor_backend/internal/appointments/repository"
	"visitor_backend/internal/appointments/service"
	"visitor_backend/internal/approval"
	"visitor_backend/internal/events"
	apphttp "visitor_backend/internal/http"
	"visitor_backend/platform/logger"
	"visitor_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the appointments domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// Dependencies are the collaborators owned by other modules.
type Dependencies struct {
	Approvals *approval.Registry
	Intents   service.IntentWriter
	Employees service.EmployeeDirectory
	Visitors  service.VisitorDirectory
	EventBus  events.Bus
}

// NewModule creates a new appointments module with all dependencies wired.
// The service becomes the decider behind the approval registry.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, deps Dependencies, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(pool, repo, deps.Approvals, deps.Intents, deps.Employees, deps.Visitors, deps.EventBus, log)
	deps.Approvals.SetDecider(svc)

	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "appointments"
}

// RegisterRoutes registers /api/v1/appointments and the public booking route.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/appointments"))
	m.handler.RegisterPublicRoutes(ctx.Public.Group("/public"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
