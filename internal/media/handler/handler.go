package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"plombipro_backend/internal/media/service"
	"plombipro_backend/internal/media/transport"
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
	rg.POST("/upload-url", h.RequestUpload)
	rg.POST("", h.ConfirmUpload)
	rg.GET("/:id/download-url", h.DownloadURL)
	rg.DELETE("/:id", h.Delete)
}

// RegisterDossierRoutes mounts the per-dossier media listing.
func (h *Handler) RegisterDossierRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/medias", h.ListByDossier)
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *Handler) RequestUpload(c *gin.Context) {
	var req transport.RequestUploadRequest
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

	presigned, err := h.svc.RequestUpload(c.Request.Context(), identity.UserID(), req.DossierID, req.Category, req.FileName, req.ContentType, req.SizeBytes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPresignedURLResponse(presigned))
}

func (h *Handler) ConfirmUpload(c *gin.Context) {
	var req transport.ConfirmUploadRequest
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

	media, err := h.svc.ConfirmUpload(c.Request.Context(), identity.UserID(), service.ConfirmUploadParams{
		DossierID:       req.DossierID,
		Category:        req.Category,
		FileName:        req.FileName,
		ContentType:     req.ContentType,
		ObjectKey:       req.ObjectKey,
		SizeBytes:       req.SizeBytes,
		DurationSeconds: req.DurationSeconds,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToMediaResponse(media))
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

	medias, err := h.svc.ListByDossier(c.Request.Context(), dossierID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToMediaResponses(medias))
}

func (h *Handler) DownloadURL(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	presigned, err := h.svc.DownloadURL(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPresignedURLResponse(presigned))
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
