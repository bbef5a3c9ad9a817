package studiahub

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMessage_JSONBody(t *testing.T) {
	err := errors.New(`request failed with status 429: {"message": "usage limit exceeded for this period"}`)
	assert.Equal(t, "usage limit exceeded for this period", ExtractMessage(err))
}

func TestExtractMessage_WrappedJSONBody(t *testing.T) {
	inner := &APIError{StatusCode: 413, Body: `{"message": "file exceeds maximum allowed size"}`}
	err := fmt.Errorf("failed to confirm upload: %w", inner)
	assert.Equal(t, "file exceeds maximum allowed size", ExtractMessage(err))
}

func TestExtractMessage_NestedJSONMessage(t *testing.T) {
	// Message field itself carries another JSON error body.
	err := errors.New(`failed to start quiz generation: {"message": "{\"message\": \"no documents ready\"}"}`)
	assert.Equal(t, "no documents ready", ExtractMessage(err))
}

func TestExtractMessage_ErrorField(t *testing.T) {
	err := errors.New(`{"error": "something broke"}`)
	assert.Equal(t, "something broke", ExtractMessage(err))
}

func TestExtractMessage_PlainText(t *testing.T) {
	err := errors.New("connection refused")
	assert.Equal(t, "connection refused", ExtractMessage(err))
	assert.Equal(t, "", ExtractMessage(nil))
}

func TestExtractMessage_MalformedJSONFallsBack(t *testing.T) {
	raw := `failed to transfer file: {"message": broken`
	assert.Equal(t, raw, ExtractMessage(errors.New(raw)))
}

func TestErrorClassifiers(t *testing.T) {
	tooMany := fmt.Errorf("failed to confirm upload: %w", &APIError{StatusCode: 429, Body: "{}"})
	assert.True(t, IsUsageLimit(tooMany))
	assert.False(t, IsFileTooLarge(tooMany))

	tooBig := &APIError{StatusCode: 413, Body: "{}"}
	assert.True(t, IsFileTooLarge(tooBig))
	assert.False(t, IsUsageLimit(tooBig))

	byMessage := errors.New(`{"message": "usage limit exceeded"}`)
	assert.True(t, IsUsageLimit(byMessage))

	missing := &APIError{StatusCode: 404, Body: ""}
	assert.True(t, IsNotFound(missing))
	assert.False(t, IsNotFound(errors.New("nope")))
}
