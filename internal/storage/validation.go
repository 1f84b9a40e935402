package storage

import (
	"fmt"
	"strings"
)

// AllowedContentTypes lists the MIME types accepted for dossier media and
// quote documents: photos, videos, voice notes, and PDF plans.
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,

	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,

	"audio/mpeg":  true,
	"audio/mp4":   true,
	"audio/ogg":   true,
	"audio/webm":  true,
	"audio/x-wav": true,

	"application/pdf": true,
}

func (s *MinIOStore) ValidateContentType(contentType string) error {
	normalized := strings.Split(contentType, ";")[0]
	normalized = strings.TrimSpace(strings.ToLower(normalized))

	if !AllowedContentTypes[normalized] {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

func (s *MinIOStore) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be greater than 0")
	}
	if sizeBytes > s.maxFileSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, s.maxFileSize)
	}
	return nil
}

// IsImageContentType reports whether the content type is an image.
func IsImageContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "image/")
}

// IsVideoContentType reports whether the content type is a video.
func IsVideoContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "video/")
}

// IsAudioContentType reports whether the content type is an audio recording.
func IsAudioContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "audio/")
}
