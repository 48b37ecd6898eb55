package approval

import (
	"net/http"

	"visitor_backend/platform/apperr"
	"visitor_backend/platform/httpkit"
	"visitor_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// Handler serves the public approval link endpoints.
type Handler struct {
	registry *Registry
	val      *validator.Validator
}

// NewHandler creates the public approval link handler.
func NewHandler(registry *Registry, val *validator.Validator) *Handler {
	return &Handler{registry: registry, val: val}
}

// ConsumeRequest is the body of POST /verify/:token.
type ConsumeRequest struct {
	Decision Decision `json:"decision" validate:"required,oneof=approved rejected"`
}

// RegisterRoutes mounts GET/POST /verify/:token and GET /verify/:token/qr.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:token", h.Resolve)
	rg.POST("/:token", h.Consume)
	rg.GET("/:token/qr", h.QRCode)
}

// Resolve handles GET /verify/:token
func (h *Handler) Resolve(c *gin.Context) {
	res, err := h.registry.Resolve(c.Request.Context(), c.Param("token"))
	if httpkit.HandleError(c, err) {
		return
	}
	if !res.IsValid {
		httpkit.Error(c, http.StatusNotFound, msgLinkNotFound, nil)
		return
	}
	httpkit.OK(c, "Approval link resolved", res)
}

// Consume handles POST /verify/:token
func (h *Handler) Consume(c *gin.Context) {
	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.FieldErrors(err))
		return
	}

	if err := h.registry.Consume(c.Request.Context(), c.Param("token"), req.Decision); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, "Appointment "+string(req.Decision), gin.H{"status": req.Decision})
}

// QRCode handles GET /verify/:token/qr and renders the link as a PNG.
func (h *Handler) QRCode(c *gin.Context) {
	token := c.Param("token")
	res, err := h.registry.Resolve(c.Request.Context(), token)
	if httpkit.HandleError(c, err) {
		return
	}
	if !res.IsValid {
		httpkit.HandleError(c, apperr.NotFound(msgLinkNotFound))
		return
	}

	png, err := qrcode.Encode(h.registry.LinkFor(token), qrcode.Medium, qrSize)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
