package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"plombipro_backend/internal/dossiers/domain"
	"plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/dossiers/service"
	"plombipro_backend/internal/dossiers/transport"
	"plombipro_backend/platform/httpkit"
	"plombipro_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles the artisan-facing dossier routes.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/counters", h.Counters)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/transition", h.Transition)
	rg.POST("/:id/appointment", h.TransitionAppointment)
	rg.GET("/:id/historique", h.Historique)
	rg.GET("/:id/slots", h.ListSlots)
	rg.POST("/:id/slots", h.ProposeSlots)
	rg.POST("/:id/confirm-rdv", h.ConfirmAppointment)
	rg.POST("/:id/client-link", h.RegenerateClientLink)
	rg.POST("/:id/relance", h.SendRelance)
	rg.PATCH("/:id/relance-enabled", h.SetRelanceEnabled)
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid dossier id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListDossiersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.svc.List(c.Request.Context(), repository.ListParams{
		UserID: identity.UserID(),
		Status: domain.Status(req.Status),
		Search: req.Search,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDossierResponses(items))
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateDossierRequest
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

	d, err := h.svc.Create(c.Request.Context(), identity.UserID(), service.CreateParams{
		ClientFirstName: req.ClientFirstName,
		ClientLastName:  req.ClientLastName,
		ClientPhone:     req.ClientPhone,
		ClientEmail:     req.ClientEmail,
		AddressStreet:   req.AddressStreet,
		AddressZipCode:  req.AddressZipCode,
		AddressCity:     req.AddressCity,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		ProblemCategory: req.ProblemCategory,
		UrgencyLevel:    req.UrgencyLevel,
		Description:     req.Description,
		Source:          "manual",
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToDossierResponse(d))
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

	d, err := h.svc.Get(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDossierResponse(d))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req transport.UpdateDossierRequest
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

	d, err := h.svc.Update(c.Request.Context(), id, identity.UserID(), repository.UpdateDossierParams{
		ClientFirstName: req.ClientFirstName,
		ClientLastName:  req.ClientLastName,
		ClientPhone:     req.ClientPhone,
		ClientEmail:     req.ClientEmail,
		AddressStreet:   req.AddressStreet,
		AddressZipCode:  req.AddressZipCode,
		AddressCity:     req.AddressCity,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		ProblemCategory: req.ProblemCategory,
		UrgencyLevel:    req.UrgencyLevel,
		Description:     req.Description,
	}, service.ArtisanActor(""))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDossierResponse(d))
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

	err := h.svc.Delete(c.Request.Context(), id, identity.UserID(), service.ArtisanActor(""))
	if httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Counters(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	counters, err := h.svc.DashboardCounters(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, counters)
}

func (h *Handler) Transition(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req transport.TransitionRequest
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

	d, err := h.svc.Transition(c.Request.Context(), id, identity.UserID(), domain.Action(req.Action), service.ArtisanActor(""), req.Detail)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDossierResponse(d))
}

func (h *Handler) TransitionAppointment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req transport.AppointmentTransitionRequest
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

	d, err := h.svc.TransitionAppointment(c.Request.Context(), id, identity.UserID(), domain.AppointmentAction(req.Action), service.ArtisanActor(""), req.Detail)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDossierResponse(d))
}

func (h *Handler) Historique(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	entries, err := h.svc.Historique(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToHistoriqueResponses(entries))
}

func (h *Handler) ListSlots(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	slots, err := h.svc.ListSlots(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSlotResponses(slots))
}

func (h *Handler) ProposeSlots(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req transport.ProposeSlotsRequest
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

	inputs := make([]service.SlotInput, 0, len(req.Slots))
	for _, slot := range req.Slots {
		date, err := time.Parse("2006-01-02", slot.Date)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid slot date", nil)
			return
		}
		inputs = append(inputs, service.SlotInput{Date: date, StartTime: slot.StartTime, EndTime: slot.EndTime})
	}

	slots, err := h.svc.ProposeSlots(c.Request.Context(), id, identity.UserID(), inputs, service.ArtisanActor(""))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToSlotResponses(slots))
}

func (h *Handler) ConfirmAppointment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	d, err := h.svc.ConfirmAppointment(c.Request.Context(), id, identity.UserID(), service.ArtisanActor(""))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDossierResponse(d))
}

func (h *Handler) RegenerateClientLink(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	token, expiresAt, err := h.svc.RegenerateClientLink(c.Request.Context(), id, identity.UserID(), service.ArtisanActor(""))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ClientLinkResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *Handler) SendRelance(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	count, err := h.svc.SendRelance(c.Request.Context(), id, identity.UserID(), service.ArtisanActor(""))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.RelanceResponse{RelanceCount: count})
}

func (h *Handler) SetRelanceEnabled(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.SetRelanceEnabled(c.Request.Context(), id, identity.UserID(), req.Enabled); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
