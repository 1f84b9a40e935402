package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	dossierrepo "plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/media/repository"
	"plombipro_backend/internal/storage"
	"plombipro_backend/platform/apperr"
	"plombipro_backend/platform/logger"
)

// DossierReader resolves the owning dossier; satisfied by the dossiers
// repository.
type DossierReader interface {
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (dossierrepo.Dossier, error)
}

// HistoriqueWriter appends media activity to the dossier's audit trail.
type HistoriqueWriter interface {
	CreateHistoriqueEntry(ctx context.Context, params dossierrepo.CreateHistoriqueParams) (dossierrepo.HistoriqueEntry, error)
}

// Repo is the media persistence surface; satisfied by *repository.Repository.
type Repo interface {
	Create(ctx context.Context, m repository.Media) (repository.Media, error)
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (repository.Media, error)
	ListByDossier(ctx context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]repository.Media, error)
	Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) (repository.Media, error)
}

type Service struct {
	repo       Repo
	dossiers   DossierReader
	historique HistoriqueWriter
	store      storage.ObjectStore
	bucket     string
	log        *logger.Logger
}

func New(repo Repo, dossiers DossierReader, historique HistoriqueWriter, store storage.ObjectStore, bucket string, log *logger.Logger) *Service {
	return &Service{repo: repo, dossiers: dossiers, historique: historique, store: store, bucket: bucket, log: log}
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("média introuvable")
	case errors.Is(err, dossierrepo.ErrNotFound):
		return apperr.NotFound("dossier introuvable")
	default:
		return err
	}
}

var validCategories = map[string]bool{
	repository.CategoryPhoto: true,
	repository.CategoryVideo: true,
	repository.CategoryAudio: true,
	repository.CategoryPlan:  true,
	repository.CategoryNote:  true,
}

// categoryMatches rejects uploads whose MIME type contradicts the declared
// category. Plans and notes accept documents alongside images.
func categoryMatches(category, contentType string) bool {
	switch category {
	case repository.CategoryPhoto:
		return storage.IsImageContentType(contentType)
	case repository.CategoryVideo:
		return storage.IsVideoContentType(contentType)
	case repository.CategoryAudio:
		return storage.IsAudioContentType(contentType)
	case repository.CategoryPlan, repository.CategoryNote:
		return true
	default:
		return false
	}
}

// RequestUpload validates the file and returns a presigned PUT URL. The
// media row is only written once the client confirms the upload.
func (s *Service) RequestUpload(ctx context.Context, userID uuid.UUID, dossierID uuid.UUID, category, fileName, contentType string, sizeBytes int64) (*storage.PresignedURL, error) {
	if !validCategories[category] {
		return nil, apperr.Validation("catégorie de média invalide")
	}
	if !categoryMatches(category, contentType) {
		return nil, apperr.Validation(fmt.Sprintf("type %s incompatible avec la catégorie %s", contentType, category))
	}
	if _, err := s.dossiers.GetByID(ctx, dossierID, userID); err != nil {
		return nil, mapRepoErr(err)
	}

	folder := fmt.Sprintf("%s/%s/%s", userID, dossierID, category)
	presigned, err := s.store.GenerateUploadURL(ctx, s.bucket, folder, fileName, contentType, sizeBytes)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	return presigned, nil
}

// ConfirmUploadParams records an upload the client completed against its
// presigned URL.
type ConfirmUploadParams struct {
	DossierID       uuid.UUID
	Category        string
	FileName        string
	ContentType     string
	ObjectKey       string
	SizeBytes       int64
	DurationSeconds *int
}

func (s *Service) ConfirmUpload(ctx context.Context, userID uuid.UUID, params ConfirmUploadParams) (repository.Media, error) {
	if !validCategories[params.Category] {
		return repository.Media{}, apperr.Validation("catégorie de média invalide")
	}
	if _, err := s.dossiers.GetByID(ctx, params.DossierID, userID); err != nil {
		return repository.Media{}, mapRepoErr(err)
	}

	media, err := s.repo.Create(ctx, repository.Media{
		DossierID:       params.DossierID,
		UserID:          userID,
		Category:        params.Category,
		FileName:        params.FileName,
		ContentType:     params.ContentType,
		ObjectKey:       params.ObjectKey,
		SizeBytes:       params.SizeBytes,
		DurationSeconds: params.DurationSeconds,
	})
	if err != nil {
		return repository.Media{}, err
	}

	if _, err := s.historique.CreateHistoriqueEntry(ctx, dossierrepo.CreateHistoriqueParams{
		DossierID: params.DossierID,
		UserID:    userID,
		ActorType: dossierrepo.ActorArtisan,
		Action:    dossierrepo.ActionMediaAdded,
		Detail:    dossierrepo.TruncateDetail(fmt.Sprintf("Média ajouté (%s) : %s", params.Category, params.FileName), dossierrepo.HistoriqueDetailMaxLen),
	}); err != nil {
		return repository.Media{}, err
	}

	return media, nil
}

func (s *Service) ListByDossier(ctx context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]repository.Media, error) {
	if _, err := s.dossiers.GetByID(ctx, dossierID, userID); err != nil {
		return nil, mapRepoErr(err)
	}
	return s.repo.ListByDossier(ctx, dossierID, userID)
}

// DownloadURL returns a short-lived presigned GET link for a stored media.
func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*storage.PresignedURL, error) {
	media, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return s.store.GenerateDownloadURL(ctx, s.bucket, media.ObjectKey)
}

// Delete removes the media row, then the stored object. A failed object
// delete is logged, not surfaced: the row is already gone.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	media, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return mapRepoErr(err)
	}
	if err := s.store.DeleteObject(ctx, s.bucket, media.ObjectKey); err != nil {
		s.log.Warn("failed to delete stored object", "object_key", media.ObjectKey, "error", err)
	}
	return nil
}
