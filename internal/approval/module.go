package approval

import (
	apphttp "visitor_backend/internal/http"
	"visitor_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module exposes the approval link registry and its public endpoints.
type Module struct {
	Registry *Registry
	handler  *Handler
}

// NewModule creates the approval module. baseURL is the frontend origin links point at.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, baseURL string) *Module {
	registry := NewRegistry(NewRepository(pool), pool, baseURL)
	return &Module{Registry: registry, handler: NewHandler(registry, val)}
}

func (m *Module) Name() string {
	return "approval"
}

// RegisterRoutes mounts /api/v1/verify on the public group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Public.Group("/verify"))
}

var _ apphttp.Module = (*Module)(nil)
