package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// mimeExtensions maps MIME types to the canonical lowercase extension.
// MIME takes precedence over the filename suffix because browsers are more
// reliable about content types than users are about file names.
var mimeExtensions = map[string]string{
	"image/jpeg":         "jpg",
	"image/jpg":          "jpg",
	"image/png":          "png",
	"image/gif":          "gif",
	"image/webp":         "webp",
	"audio/mpeg":         "mp3",
	"audio/mp3":          "mp3",
	"audio/wav":          "wav",
	"audio/x-wav":        "wav",
	"audio/ogg":          "ogg",
	"audio/flac":         "flac",
	"audio/mp4":          "m4a",
	"video/mp4":          "mp4",
	"video/webm":         "webm",
	"video/quicktime":    "mov",
	"application/pdf":    "pdf",
	"text/plain":         "txt",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
}

// ResolveExtension determines the file type from the MIME type, falling
// back to the filename suffix when the MIME type is absent or generic.
func ResolveExtension(mimeType, originalName string) string {
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if ext, ok := mimeExtensions[mime]; ok {
		return ext
	}
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
}

// ValidateUpload enforces the category policy on an in-memory buffer.
// It runs before any transform or network call; a rejection here costs no
// bandwidth and no transform CPU.
func ValidateUpload(buffer []byte, originalName, mimeType string, policy UploadPolicy) error {
	if len(buffer) == 0 {
		return &ValidationError{
			Reason: ReasonEmptyBuffer,
			Detail: "uploaded file is empty",
		}
	}

	ext := ResolveExtension(mimeType, originalName)
	if !extensionAllowed(ext, policy.AllowedExtensions) {
		return &ValidationError{
			Reason: ReasonInvalidExtension,
			Detail: fmt.Sprintf("file type %q is not allowed (allowed: %s)", ext, strings.Join(policy.AllowedExtensions, ", ")),
		}
	}

	if int64(len(buffer)) > policy.MaxSizeBytes {
		return &ValidationError{
			Reason: ReasonFileTooLarge,
			Detail: fmt.Sprintf("file size %d exceeds maximum of %d bytes", len(buffer), policy.MaxSizeBytes),
		}
	}

	return nil
}

func extensionAllowed(ext string, allowed []string) bool {
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

// IsTransformableType reports whether the content can go through the image
// transform stage. Animated/container formats (gif, webp) are excluded so
// animation survives untouched.
func IsTransformableType(ext string) bool {
	return ext == "jpg" || ext == "jpeg" || ext == "png"
}
