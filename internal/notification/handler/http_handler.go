package handler

import (
	"net/http"
	"strconv"

	"visitor_backend/internal/notification/inapp"
	"visitor_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type HTTPHandler struct {
	svc *inapp.Service
}

func NewHTTPHandler(svc *inapp.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread-count", h.CountUnread)
	rg.PATCH("/read-all", h.MarkAllRead)
	rg.PATCH("/:id/read", h.MarkRead)
}

func (h *HTTPHandler) List(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.svc.List(c.Request.Context(), tenantID, identity.UserID(), page, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, "Notifications retrieved", result)
}

func (h *HTTPHandler) CountUnread(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)

	count, err := h.svc.CountUnread(c.Request.Context(), tenantID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, "Unread count retrieved", gin.H{"count": count})
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), tenantID, identity.UserID(), id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, "Notification marked as read", nil)
}

func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)

	updated, err := h.svc.MarkAllRead(c.Request.Context(), tenantID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, "Notifications marked as read", gin.H{"updated": updated})
}
