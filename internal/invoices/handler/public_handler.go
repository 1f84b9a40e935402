package handler

import (
	"github.com/gin-gonic/gin"

	"plombipro_backend/internal/invoices/service"
	"plombipro_backend/internal/invoices/transport"
	"plombipro_backend/platform/httpkit"
)

// PublicHandler serves the client invoice view link.
type PublicHandler struct {
	svc *service.Service
}

func NewPublic(svc *service.Service) *PublicHandler {
	return &PublicHandler{svc: svc}
}

func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/invoices/:token", h.GetByToken)
}

func (h *PublicHandler) GetByToken(c *gin.Context) {
	invoice, lines, err := h.svc.GetByViewToken(c.Request.Context(), c.Param("token"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPublicInvoiceResponse(invoice, lines))
}
