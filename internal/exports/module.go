package exports

import (
	"time"

	apphttp "visitor_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the exports bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the exports module.
func NewModule(pool *pgxpool.Pool, loc *time.Location) *Module {
	return &Module{handler: NewHandler(NewRepository(pool), loc)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "exports"
}

// RegisterRoutes mounts the admin-only visitor log export.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/exports/visitor-log.csv", m.handler.ExportVisitsCSV)
}

var _ apphttp.Module = (*Module)(nil)
