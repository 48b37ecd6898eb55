package handler

import (
	"context"
	"net/http"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/internal/appointments/transport"
	"visitor_backend/platform/httpkit"
	"visitor_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid appointment id"
)

// Lifecycle is the appointment service as seen by HTTP.
type Lifecycle interface {
	Create(ctx context.Context, caller domain.Caller, req transport.CreateAppointmentRequest) (*transport.CreateAppointmentResponse, error)
	CreatePublic(ctx context.Context, tenantID uuid.UUID, req transport.PublicBookingRequest) (*transport.PublicBookingResponse, error)
	Get(ctx context.Context, caller domain.Caller, id uuid.UUID, includeDeleted bool) (*transport.AppointmentResponse, error)
	List(ctx context.Context, caller domain.Caller, req transport.ListAppointmentsRequest) (*transport.AppointmentListResponse, error)
	Calendar(ctx context.Context, caller domain.Caller, req transport.CalendarRequest) ([]transport.CalendarDay, error)
	Stats(ctx context.Context, caller domain.Caller, req transport.StatsRequest) (*transport.StatsResponse, error)
	Update(ctx context.Context, caller domain.Caller, id uuid.UUID, req transport.UpdateAppointmentRequest) (*transport.AppointmentResponse, error)
	SoftDelete(ctx context.Context, caller domain.Caller, id uuid.UUID) error
	Restore(ctx context.Context, caller domain.Caller, id uuid.UUID) error
	Approve(ctx context.Context, caller domain.Caller, id uuid.UUID) (*transport.AppointmentResponse, error)
	Reject(ctx context.Context, caller domain.Caller, id uuid.UUID) (*transport.AppointmentResponse, error)
	Cancel(ctx context.Context, caller domain.Caller, id uuid.UUID) (*transport.AppointmentResponse, error)
	CheckIn(ctx context.Context, caller domain.Caller, req transport.CheckInRequest) (*transport.AppointmentResponse, error)
	CheckOut(ctx context.Context, caller domain.Caller, req transport.CheckOutRequest) (*transport.AppointmentResponse, error)
	BulkUpdate(ctx context.Context, caller domain.Caller, req transport.BulkUpdateRequest) (*transport.BulkUpdateResponse, error)
	IssueApprovalLink(ctx context.Context, caller domain.Caller, id uuid.UUID) (*transport.ApprovalLinkResponse, error)
}

// Handler handles HTTP requests for appointments
type Handler struct {
	svc Lifecycle
	val *validator.Validator
}

// New creates a new appointments handler
func New(svc Lifecycle, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the authenticated appointment routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/search", h.Search)
	rg.GET("/stats", h.Stats)
	rg.GET("/calendar", h.Calendar)
	rg.POST("/check-in", h.CheckIn)
	rg.POST("/check-out", h.CheckOut)
	rg.PUT("/bulk-update", h.BulkUpdate)

	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.PUT("/:id/restore", h.Restore)
	rg.PUT("/:id/approve", h.Approve)
	rg.PUT("/:id/reject", h.Reject)
	rg.PUT("/:id/cancel", h.Cancel)
	rg.POST("/:id/approval-link", h.IssueApprovalLink)
}

// RegisterPublicRoutes registers the visitor self-booking route
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/tenants/:tenantId/appointments", h.CreatePublic)
}

// callerFrom builds the lifecycle caller from the authenticated identity.
// It aborts the request and returns false when the token carries no tenant.
func callerFrom(c *gin.Context) (domain.Caller, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return domain.Caller{}, false
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return domain.Caller{}, false
	}

	accountID := identity.UserID()
	actor := domain.ActorEmployee
	if identity.HasRole(httpkit.RoleAdmin) {
		actor = domain.ActorAdmin
	}
	return domain.Caller{Actor: actor, AccountID: &accountID, TenantID: tenantID}, true
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes and validates a request body, writing the error response itself.
func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func (h *Handler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

// List handles GET /api/v1/appointments
func (h *Handler) List(c *gin.Context) {
	var req transport.ListAppointmentsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	h.list(c, req)
}

// Search handles POST /api/v1/appointments/search
func (h *Handler) Search(c *gin.Context) {
	var req transport.ListAppointmentsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.list(c, req)
}

func (h *Handler) list(c *gin.Context, req transport.ListAppointmentsRequest) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), caller, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, "Appointments retrieved", result)
}

// Create handles POST /api/v1/appointments
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateAppointmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), caller, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, "Appointment created", result)
}

// CreatePublic handles POST /api/v1/public/tenants/:tenantId/appointments.
// The approval link is for the host only and is never returned to the visitor.
func (h *Handler) CreatePublic(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid tenant id", nil)
		return
	}
	var req transport.PublicBookingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.CreatePublic(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, "Appointment requested", result)
}

// GetByID handles GET /api/v1/appointments/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	includeDeleted := c.Query("includeDeleted") == "true"
	result, err := h.svc.Get(c.Request.Context(), caller, id, includeDeleted)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, "Appointment retrieved", result)
}

// Update handles PUT /api/v1/appointments/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.UpdateAppointmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.Update(c.Request.Context(), caller, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, "Appointment updated", result)
}

// Delete handles DELETE /api/v1/appointments/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	if err := h.svc.SoftDelete(c.Request.Context(), caller, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, "Appointment deleted", nil)
}

// Restore handles PUT /api/v1/appointments/:id/restore
func (h *Handler) Restore(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	if err := h.svc.Restore(c.Request.Context(), caller, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, "Appointment restored", nil)
}

type decisionFunc func(ctx context.Context, caller domain.Caller, id uuid.UUID) (*transport.AppointmentResponse, error)

func (h *Handler) decide(c *gin.Context, op decisionFunc, message string) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	result, err := op(c.Request.Context(), caller, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, message, result)
}

// Approve handles PUT /api/v1/appointments/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	h.decide(c, h.svc.Approve, "Appointment approved")
}

// Reject handles PUT /api/v1/appointments/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	h.decide(c, h.svc.Reject, "Appointment rejected")
}

// Cancel handles PUT /api/v1/appointments/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	h.decide(c, h.svc.Cancel, "Appointment cancelled")
}

// CheckIn handles POST /api/v1/appointments/check-in
func (h *Handler) CheckIn(c *gin.Context) {
	var req transport.CheckInRequest
	if !h.bindJSON(c, &req) {
		return
	}
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.CheckIn(c.Request.Context(), caller, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, "Visitor checked in", result)
}

// CheckOut handles POST /api/v1/appointments/check-out
func (h *Handler) CheckOut(c *gin.Context) {
	var req transport.CheckOutRequest
	if !h.bindJSON(c, &req) {
		return
	}
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.CheckOut(c.Request.Context(), caller, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, "Visitor checked out", result)
}

// BulkUpdate handles PUT /api/v1/appointments/bulk-update
func (h *Handler) BulkUpdate(c *gin.Context) {
	var req transport.BulkUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.BulkUpdate(c.Request.Context(), caller, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, "Bulk update processed", result)
}

// Calendar handles GET /api/v1/appointments/calendar
func (h *Handler) Calendar(c *gin.Context) {
	var req transport.CalendarRequest
	if !h.bindQuery(c, &req) {
		return
	}
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.Calendar(c.Request.Context(), caller, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, "Calendar retrieved", result)
}

// Stats handles GET /api/v1/appointments/stats
func (h *Handler) Stats(c *gin.Context) {
	var req transport.StatsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.Stats(c.Request.Context(), caller, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, "Statistics retrieved", result)
}

// IssueApprovalLink handles POST /api/v1/appointments/:id/approval-link
func (h *Handler) IssueApprovalLink(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.IssueApprovalLink(c.Request.Context(), caller, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, "Approval link issued", result)
}
