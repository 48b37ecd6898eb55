package visitors

import (
	apphttp "visitor_backend/internal/http"
	"visitor_backend/platform/logger"
	"visitor_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the visitor register.
type Module struct {
	Repository *Repository
	Service    *Service
	handler    *Handler
}

// NewModule creates the visitor module. photos may be nil.
func NewModule(pool *pgxpool.Pool, photos PhotoStorage, bucket string, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, photos, bucket, log)
	return &Module{Repository: repo, Service: svc, handler: NewHandler(svc, val)}
}

func (m *Module) Name() string {
	return "visitors"
}

// RegisterRoutes mounts /api/v1/visitors for admins and employees.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/visitors"))
}

var _ apphttp.Module = (*Module)(nil)
