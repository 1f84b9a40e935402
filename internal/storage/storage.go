// Package storage provides an S3-compatible object store adapter used for
// dossier media and signed quote PDFs.
package storage

import (
	"context"
	"io"
	"time"
)

// PresignedURL carries a time-limited upload or download URL and the object
// key it refers to.
type PresignedURL struct {
	URL       string    `json:"url"`
	ObjectKey string    `json:"objectKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectStore is the storage surface the media and quote modules depend on.
type ObjectStore interface {
	GenerateUploadURL(ctx context.Context, bucket, folder, fileName, contentType string, sizeBytes int64) (*PresignedURL, error)
	GenerateDownloadURL(ctx context.Context, bucket, objectKey string) (*PresignedURL, error)
	DownloadObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)
	UploadObject(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)
	DeleteObject(ctx context.Context, bucket, objectKey string) error
	EnsureBucketExists(ctx context.Context, bucket string) error
	ValidateContentType(contentType string) error
	ValidateFileSize(sizeBytes int64) error
	MaxFileSize() int64
}

// Config is the configuration surface the adapter needs; satisfied by
// *config.Config.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	IsMinIOEnabled() bool
}
