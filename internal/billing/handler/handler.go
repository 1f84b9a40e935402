package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"plombipro_backend/internal/billing/service"
	"plombipro_backend/internal/billing/transport"
	"plombipro_backend/platform/httpkit"
	"plombipro_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/subscription", h.GetSubscription)
	rg.POST("/checkout-session", h.CreateCheckoutSession)
	rg.POST("/portal-session", h.CreatePortalSession)
}

// RegisterWebhookRoutes mounts the Stripe webhook outside the versioned API,
// before auth and rate limiting. Signature verification is the access control.
func (h *Handler) RegisterWebhookRoutes(engine *gin.Engine) {
	engine.POST("/api/webhooks/stripe", h.Webhook)
}

func (h *Handler) GetSubscription(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	sub, err := h.svc.GetSubscription(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSubscriptionResponse(sub))
}

func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req transport.CreateCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	url, err := h.svc.CreateCheckoutSession(c.Request.Context(), identity.UserID(), req.Plan)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.SessionResponse{URL: url})
}

func (h *Handler) CreatePortalSession(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	url, err := h.svc.CreatePortalSession(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.SessionResponse{URL: url})
}

func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "unreadable payload", nil)
		return
	}

	err = h.svc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"received": true})
}
