package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"plombipro_backend/internal/dossiers/service"
	"plombipro_backend/internal/dossiers/transport"
	"plombipro_backend/platform/httpkit"
	"plombipro_backend/platform/validator"
)

// PublicHandler serves the unauthenticated client-link routes. They sit
// behind the public rate limiter and authenticate by token only.
type PublicHandler struct {
	svc *service.Service
	val *validator.Validator
}

func NewPublic(svc *service.Service, val *validator.Validator) *PublicHandler {
	return &PublicHandler{svc: svc, val: val}
}

func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/intake/:artisanId", h.Intake)
	rg.GET("/dossiers/:token", h.GetByToken)
	rg.POST("/dossiers/:token/select-slot", h.SelectSlot)
}

// Intake creates a dossier from the artisan's shared request form. The
// :artisanId segment is the only thing tying the submission to an account.
func (h *PublicHandler) Intake(c *gin.Context) {
	artisanID, err := uuid.Parse(c.Param("artisanId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.PublicIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	d, suiviToken, err := h.svc.CreateFromIntake(c.Request.Context(), artisanID, service.CreateParams{
		ClientFirstName: req.ClientFirstName,
		ClientLastName:  req.ClientLastName,
		ClientPhone:     req.ClientPhone,
		ClientEmail:     req.ClientEmail,
		AddressStreet:   req.AddressStreet,
		AddressZipCode:  req.AddressZipCode,
		AddressCity:     req.AddressCity,
		ProblemCategory: req.ProblemCategory,
		UrgencyLevel:    req.UrgencyLevel,
		Description:     req.Description,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.PublicIntakeResponse{
		DossierID:  d.ID,
		SuiviToken: suiviToken,
	})
}

func (h *PublicHandler) GetByToken(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	d, slots, err := h.svc.GetByToken(c.Request.Context(), token)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPublicDossierResponse(d, slots))
}

func (h *PublicHandler) SelectSlot(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.SelectSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	slot, err := h.svc.SelectSlotByToken(c.Request.Context(), token, req.SlotID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSlotResponse(slot))
}
