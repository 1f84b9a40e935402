package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	dossierrepo "plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/media/repository"
	"plombipro_backend/internal/storage"
	"plombipro_backend/platform/apperr"
	"plombipro_backend/platform/logger"
)

type fakeMediaRepo struct {
	medias map[uuid.UUID]*repository.Media
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{medias: make(map[uuid.UUID]*repository.Media)}
}

func (f *fakeMediaRepo) Create(_ context.Context, m repository.Media) (repository.Media, error) {
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	f.medias[m.ID] = &m
	return m, nil
}

func (f *fakeMediaRepo) GetByID(_ context.Context, id uuid.UUID, userID uuid.UUID) (repository.Media, error) {
	m, ok := f.medias[id]
	if !ok || m.UserID != userID {
		return repository.Media{}, repository.ErrNotFound
	}
	return *m, nil
}

func (f *fakeMediaRepo) ListByDossier(_ context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]repository.Media, error) {
	items := make([]repository.Media, 0)
	for _, m := range f.medias {
		if m.DossierID == dossierID && m.UserID == userID {
			items = append(items, *m)
		}
	}
	return items, nil
}

func (f *fakeMediaRepo) Delete(_ context.Context, id uuid.UUID, userID uuid.UUID) (repository.Media, error) {
	m, ok := f.medias[id]
	if !ok || m.UserID != userID {
		return repository.Media{}, repository.ErrNotFound
	}
	delete(f.medias, id)
	return *m, nil
}

type fakeStore struct {
	deleted []string
}

func (f *fakeStore) GenerateUploadURL(_ context.Context, _, folder, fileName, _ string, _ int64) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{
		URL:       "https://minio.example.com/upload",
		ObjectKey: folder + "/" + fileName,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (f *fakeStore) GenerateDownloadURL(_ context.Context, _, objectKey string) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{
		URL:       "https://minio.example.com/download/" + objectKey,
		ObjectKey: objectKey,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (f *fakeStore) DownloadObject(_ context.Context, _, _ string) (io.ReadCloser, error) {
	return nil, nil
}

func (f *fakeStore) UploadObject(_ context.Context, _, folder, fileName, _ string, _ io.Reader, _ int64) (string, error) {
	return folder + "/" + fileName, nil
}

func (f *fakeStore) DeleteObject(_ context.Context, _, objectKey string) error {
	f.deleted = append(f.deleted, objectKey)
	return nil
}

func (f *fakeStore) EnsureBucketExists(_ context.Context, _ string) error { return nil }
func (f *fakeStore) ValidateContentType(_ string) error                   { return nil }
func (f *fakeStore) ValidateFileSize(_ int64) error                       { return nil }
func (f *fakeStore) MaxFileSize() int64                                   { return 100 << 20 }

type fakeDossiers struct {
	dossier dossierrepo.Dossier
}

func (f *fakeDossiers) GetByID(_ context.Context, id uuid.UUID, userID uuid.UUID) (dossierrepo.Dossier, error) {
	if f.dossier.ID != id || f.dossier.UserID != userID {
		return dossierrepo.Dossier{}, dossierrepo.ErrNotFound
	}
	return f.dossier, nil
}

type fakeHistorique struct {
	entries []dossierrepo.CreateHistoriqueParams
}

func (f *fakeHistorique) CreateHistoriqueEntry(_ context.Context, params dossierrepo.CreateHistoriqueParams) (dossierrepo.HistoriqueEntry, error) {
	f.entries = append(f.entries, params)
	return dossierrepo.HistoriqueEntry{ID: uuid.New()}, nil
}

type fixture struct {
	repo    *fakeMediaRepo
	store   *fakeStore
	svc     *Service
	userID  uuid.UUID
	dossier dossierrepo.Dossier
	hist    *fakeHistorique
}

func newFixture() *fixture {
	repo := newFakeMediaRepo()
	store := &fakeStore{}
	userID := uuid.New()
	dossier := dossierrepo.Dossier{ID: uuid.New(), UserID: userID}
	hist := &fakeHistorique{}
	svc := New(repo, &fakeDossiers{dossier: dossier}, hist, store, "dossier-medias", logger.New("dev"))
	return &fixture{repo: repo, store: store, svc: svc, userID: userID, dossier: dossier, hist: hist}
}

func TestRequestUploadRejectsCategoryMismatch(t *testing.T) {
	fx := newFixture()

	tests := []struct {
		name        string
		category    string
		contentType string
		wantErr     bool
	}{
		{"photo jpeg", "photo", "image/jpeg", false},
		{"photo with video type", "photo", "video/mp4", true},
		{"audio note", "audio", "audio/ogg", false},
		{"audio with image type", "audio", "image/png", true},
		{"plan pdf", "plan", "application/pdf", false},
		{"unknown category", "document", "application/pdf", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.RequestUpload(context.Background(), fx.userID, fx.dossier.ID, tt.category, "fuite.jpg", tt.contentType, 1024)
			if tt.wantErr && apperr.GetKind(err) != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfirmUploadWritesHistorique(t *testing.T) {
	fx := newFixture()

	duration := 42
	media, err := fx.svc.ConfirmUpload(context.Background(), fx.userID, ConfirmUploadParams{
		DossierID:       fx.dossier.ID,
		Category:        repository.CategoryAudio,
		FileName:        "note-vocale.ogg",
		ContentType:     "audio/ogg",
		ObjectKey:       "u/d/audio/note-vocale_abc123.ogg",
		SizeBytes:       2048,
		DurationSeconds: &duration,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if media.DurationSeconds == nil || *media.DurationSeconds != 42 {
		t.Fatalf("duration = %v, want 42", media.DurationSeconds)
	}
	if len(fx.hist.entries) != 1 || fx.hist.entries[0].Action != dossierrepo.ActionMediaAdded {
		t.Fatalf("expected one media_added historique entry, got %+v", fx.hist.entries)
	}
}

func TestDeleteRemovesStoredObject(t *testing.T) {
	fx := newFixture()

	media, err := fx.svc.ConfirmUpload(context.Background(), fx.userID, ConfirmUploadParams{
		DossierID:   fx.dossier.ID,
		Category:    repository.CategoryPhoto,
		FileName:    "fuite.jpg",
		ContentType: "image/jpeg",
		ObjectKey:   "u/d/photo/fuite_abc123.jpg",
		SizeBytes:   1024,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := fx.svc.Delete(context.Background(), media.ID, fx.userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fx.store.deleted) != 1 || fx.store.deleted[0] != media.ObjectKey {
		t.Fatalf("stored object not deleted: %v", fx.store.deleted)
	}
	if _, err := fx.svc.DownloadURL(context.Background(), media.ID, fx.userID); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
