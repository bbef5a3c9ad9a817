package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/studiahub/studiahub/internal/domain"
	errpkg "github.com/studiahub/studiahub/internal/errors"
)

var validate *validator.Validate

// allowedTypes lists the document content types accepted for upload.
var allowedTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
	"text/markdown":   true,
	"text/csv":        true,
	"text/html":       true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/png":  true,
	"image/jpeg": true,
}

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("upload_type", validateUploadType)
}

func validateUploadType(fl validator.FieldLevel) bool {
	return IsAllowedType(fl.Field().String())
}

// IsAllowedType reports whether a content type may be uploaded. Parameters
// such as "; charset=utf-8" are ignored.
func IsAllowedType(contentType string) bool {
	base := strings.TrimSpace(strings.ToLower(contentType))
	if i := strings.Index(base, ";"); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	return allowedTypes[base]
}

// ValidateUpload checks a presign request against structural constraints,
// the content-type allowlist, and the per-file size cap.
func ValidateUpload(req *domain.PresignRequest, maxFileSize int64) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid upload request: %w", err)
	}

	if !IsAllowedType(req.ContentType) {
		return fmt.Errorf("%w: %s", errpkg.ErrUnsupportedType, req.ContentType)
	}

	if req.FileSize > maxFileSize {
		return fmt.Errorf("%w: %d bytes (max %d)", errpkg.ErrFileTooLarge, req.FileSize, maxFileSize)
	}

	return nil
}

// Struct validates any DTO carrying validate tags.
func Struct(v interface{}) error {
	return validate.Struct(v)
}
