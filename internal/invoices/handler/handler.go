package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"plombipro_backend/internal/invoices/service"
	"plombipro_backend/internal/invoices/transport"
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
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/send", h.Send)
	rg.POST("/:id/mark-paid", h.MarkPaid)
	rg.DELETE("/:id", h.Delete)
}

// RegisterDossierRoutes mounts the per-dossier invoice listing.
func (h *Handler) RegisterDossierRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/invoices", h.ListByDossier)
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func toLineInputs(lines []transport.LineRequest) []service.LineInput {
	inputs := make([]service.LineInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, service.LineInput{
			Label:     line.Label,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			VatRate:   line.VatRate,
			Discount:  line.Discount,
		})
	}
	return inputs
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateInvoiceRequest
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

	invoice, lines, err := h.svc.Create(c.Request.Context(), identity.UserID(), service.CreateParams{
		DossierID:   req.DossierID,
		FromQuoteID: req.FromQuoteID,
		Lines:       toLineInputs(req.Lines),
		DueDate:     req.DueDate,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToInvoiceResponse(invoice, lines))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	invoice, lines, err := h.svc.Get(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToInvoiceResponse(invoice, lines))
}

func (h *Handler) ListByDossier(c *gin.Context) {
	dossierID, ok := parseIDParam(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	invoices, err := h.svc.ListByDossier(c.Request.Context(), dossierID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToInvoiceResponses(invoices))
}

func (h *Handler) Send(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	invoice, err := h.svc.Send(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToInvoiceResponse(invoice, nil))
}

func (h *Handler) MarkPaid(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	invoice, err := h.svc.MarkPaid(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToInvoiceResponse(invoice, nil))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, identity.UserID()); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
