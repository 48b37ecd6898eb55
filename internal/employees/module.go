package employees

import (
	apphttp "visitor_backend/internal/http"
	"visitor_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the employee directory.
type Module struct {
	Repository *Repository
	Service    *Service
	handler    *Handler
}

// NewModule creates the employee directory module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo)
	return &Module{Repository: repo, Service: svc, handler: NewHandler(svc, val)}
}

func (m *Module) Name() string {
	return "employees"
}

// RegisterRoutes mounts /api/v1/employees for admins.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/employees"))
}

var _ apphttp.Module = (*Module)(nil)
