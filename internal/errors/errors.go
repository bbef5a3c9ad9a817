package errors

import "errors"

var (
	ErrFileNotFound       = errors.New("file not found")
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrSlotNotFound       = errors.New("upload slot not found or expired")
	ErrNotReceived        = errors.New("file bytes have not been transferred")
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrUnsupportedType    = errors.New("unsupported content type")
	ErrUsageLimitExceeded = errors.New("usage limit exceeded")
	ErrNoReadyDocuments   = errors.New("no processed documents available")
	ErrProviderDisabled   = errors.New("AI provider is not configured")
)
