package settings

import (
	"time"

	apphttp "visitor_backend/internal/http"
	"visitor_backend/platform/logger"
	"visitor_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires tenant settings. Provider is consumed by the notification dispatcher.
type Module struct {
	Provider *Provider
	handler  *Handler
}

// NewModule creates the settings module. cipher may be nil.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, cipher *Cipher, cacheTTL time.Duration, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	provider := NewProvider(repo, cipher, cacheTTL, log)
	return &Module{
		Provider: provider,
		handler:  NewHandler(NewService(repo, cipher, provider), val),
	}
}

func (m *Module) Name() string {
	return "settings"
}

// RegisterRoutes mounts /api/v1/settings for admins.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/settings"))
}

var _ apphttp.Module = (*Module)(nil)
