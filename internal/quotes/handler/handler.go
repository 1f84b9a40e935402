package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"plombipro_backend/internal/quotes/service"
	"plombipro_backend/internal/quotes/transport"
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
	rg.PUT("/:id/lines", h.UpdateLines)
	rg.POST("/:id/send", h.Send)
	rg.POST("/:id/signed-pdf", h.AttachSignedPDF)
	rg.POST("/:id/signed-pdf/upload-url", h.SignedPDFUploadURL)
	rg.GET("/:id/signed-pdf/download-url", h.SignedPDFDownloadURL)
	rg.DELETE("/:id", h.Delete)
}

// RegisterDossierRoutes mounts the per-dossier quote listing.
func (h *Handler) RegisterDossierRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/quotes", h.ListByDossier)
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
	var req transport.CreateQuoteRequest
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

	quote, lines, err := h.svc.Create(c.Request.Context(), identity.UserID(), req.DossierID, toLineInputs(req.Lines))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToQuoteResponse(quote, lines))
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

	quote, lines, err := h.svc.Get(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToQuoteResponse(quote, lines))
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

	quotes, err := h.svc.ListByDossier(c.Request.Context(), dossierID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToQuoteResponses(quotes))
}

func (h *Handler) UpdateLines(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req transport.UpdateLinesRequest
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

	quote, lines, err := h.svc.UpdateLines(c.Request.Context(), id, identity.UserID(), toLineInputs(req.Lines))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToQuoteResponse(quote, lines))
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

	quote, err := h.svc.Send(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToQuoteResponse(quote, nil))
}

func (h *Handler) SignedPDFUploadURL(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req struct {
		SizeBytes int64 `json:"sizeBytes" validate:"required,min=1"`
	}
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

	url, err := h.svc.SignedPDFUploadURL(c.Request.Context(), id, identity.UserID(), req.SizeBytes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, url)
}

func (h *Handler) SignedPDFDownloadURL(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	url, err := h.svc.SignedPDFDownloadURL(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, url)
}

func (h *Handler) AttachSignedPDF(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req struct {
		ObjectKey string `json:"objectKey" validate:"required,max=500"`
	}
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

	if err := h.svc.AttachSignedPDF(c.Request.Context(), id, identity.UserID(), req.ObjectKey); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
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
