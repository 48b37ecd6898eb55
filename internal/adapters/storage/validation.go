package storage

import (
	"strings"

	"visitor_backend/platform/apperr"
)

// AllowedContentTypes defines the allowed MIME types for uploads.
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	// Parameters like charset are ignored.
	normalized := strings.Split(contentType, ";")[0]
	normalized = strings.TrimSpace(strings.ToLower(normalized))

	if !AllowedContentTypes[normalized] {
		return apperr.BadRequest("content type " + contentType + " is not allowed")
	}
	return nil
}

// ValidateFileSize checks if the file size is within limits.
func ValidateFileSize(sizeBytes, maxFileSize int64) error {
	if sizeBytes <= 0 {
		return apperr.BadRequest("file size must be greater than 0")
	}
	if sizeBytes > maxFileSize {
		return apperr.BadRequest("file is larger than the maximum allowed size")
	}
	return nil
}
