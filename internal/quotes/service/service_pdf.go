package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"plombipro_backend/internal/storage"
	"plombipro_backend/platform/apperr"
)

// SignedPDFUploadURL presigns an upload slot for the countersigned quote
// document. The caller confirms with AttachSignedPDF once the upload is done.
func (s *Service) SignedPDFUploadURL(ctx context.Context, id uuid.UUID, userID uuid.UUID, sizeBytes int64) (*storage.PresignedURL, error) {
	if s.store == nil {
		return nil, apperr.Conflict("le stockage de documents n'est pas configuré")
	}
	quote, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if err := s.store.ValidateFileSize(sizeBytes); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	folder := fmt.Sprintf("%s/%s", userID, quote.ID)
	url, err := s.store.GenerateUploadURL(ctx, s.pdfBucket, folder, quote.QuoteNumber+".pdf", "application/pdf", sizeBytes)
	if err != nil {
		return nil, err
	}
	return url, nil
}

// SignedPDFDownloadURL presigns a download for the stored countersigned PDF.
func (s *Service) SignedPDFDownloadURL(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*storage.PresignedURL, error) {
	if s.store == nil {
		return nil, apperr.Conflict("le stockage de documents n'est pas configuré")
	}
	quote, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if quote.SignedPDFKey == nil || *quote.SignedPDFKey == "" {
		return nil, apperr.NotFound("aucun document signé pour ce devis")
	}
	return s.store.GenerateDownloadURL(ctx, s.pdfBucket, *quote.SignedPDFKey)
}
