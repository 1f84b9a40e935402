package transport

import (
	"time"

	"github.com/google/uuid"

	"plombipro_backend/internal/media/repository"
	"plombipro_backend/internal/storage"
)

type RequestUploadRequest struct {
	DossierID   uuid.UUID `json:"dossierId" validate:"required"`
	Category    string    `json:"category" validate:"required,oneof=photo video audio plan note"`
	FileName    string    `json:"fileName" validate:"required,max=255"`
	ContentType string    `json:"contentType" validate:"required,max=100"`
	SizeBytes   int64     `json:"sizeBytes" validate:"required,min=1"`
}

type ConfirmUploadRequest struct {
	DossierID       uuid.UUID `json:"dossierId" validate:"required"`
	Category        string    `json:"category" validate:"required,oneof=photo video audio plan note"`
	FileName        string    `json:"fileName" validate:"required,max=255"`
	ContentType     string    `json:"contentType" validate:"required,max=100"`
	ObjectKey       string    `json:"objectKey" validate:"required,max=500"`
	SizeBytes       int64     `json:"sizeBytes" validate:"required,min=1"`
	DurationSeconds *int      `json:"durationSeconds,omitempty" validate:"omitempty,min=0,max=86400"`
}

type PresignedURLResponse struct {
	URL       string    `json:"url"`
	ObjectKey string    `json:"objectKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type MediaResponse struct {
	ID              uuid.UUID `json:"id"`
	DossierID       uuid.UUID `json:"dossierId"`
	Category        string    `json:"category"`
	FileName        string    `json:"fileName"`
	ContentType     string    `json:"contentType"`
	SizeBytes       int64     `json:"sizeBytes"`
	DurationSeconds *int      `json:"durationSeconds,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func ToPresignedURLResponse(p *storage.PresignedURL) PresignedURLResponse {
	return PresignedURLResponse{
		URL:       p.URL,
		ObjectKey: p.ObjectKey,
		ExpiresAt: p.ExpiresAt,
	}
}

func ToMediaResponse(m repository.Media) MediaResponse {
	return MediaResponse{
		ID:              m.ID,
		DossierID:       m.DossierID,
		Category:        m.Category,
		FileName:        m.FileName,
		ContentType:     m.ContentType,
		SizeBytes:       m.SizeBytes,
		DurationSeconds: m.DurationSeconds,
		CreatedAt:       m.CreatedAt,
	}
}

func ToMediaResponses(medias []repository.Media) []MediaResponse {
	out := make([]MediaResponse, 0, len(medias))
	for _, m := range medias {
		out = append(out, ToMediaResponse(m))
	}
	return out
}
