package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plombipro_backend/internal/quotes/service"
	"plombipro_backend/internal/quotes/transport"
	"plombipro_backend/platform/httpkit"
	"plombipro_backend/platform/validator"
)

// PublicHandler serves the client signature link.
type PublicHandler struct {
	svc *service.Service
	val *validator.Validator
}

func NewPublic(svc *service.Service, val *validator.Validator) *PublicHandler {
	return &PublicHandler{svc: svc, val: val}
}

func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/quotes/:token", h.GetByToken)
	rg.POST("/quotes/:token/sign", h.Sign)
	rg.POST("/quotes/:token/refuse", h.Refuse)
}

func (h *PublicHandler) GetByToken(c *gin.Context) {
	quote, lines, err := h.svc.GetBySignatureToken(c.Request.Context(), c.Param("token"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPublicQuoteResponse(quote, lines))
}

func (h *PublicHandler) Sign(c *gin.Context) {
	var req transport.SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	quote, err := h.svc.Sign(c.Request.Context(), c.Param("token"), req.SignatureName)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPublicQuoteResponse(quote, nil))
}

func (h *PublicHandler) Refuse(c *gin.Context) {
	var req transport.RefuseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	quote, err := h.svc.Refuse(c.Request.Context(), c.Param("token"), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPublicQuoteResponse(quote, nil))
}
