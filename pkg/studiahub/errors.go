package studiahub

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// knownWrappers are client-side error prefixes whose remainder may carry an
// embedded JSON error body from the server.
var knownWrappers = []string{
	"failed to confirm upload: ",
	"failed to request upload slot: ",
	"failed to transfer file: ",
	"failed to start quiz generation: ",
}

// ExtractMessage turns any error from this package into a displayable
// string. It tries, in order: a JSON body with a "message" (or "error")
// field anywhere in the error text, the same after stripping one known
// wrapper prefix, one more unwrap of a JSON-encoded message, and finally
// the raw error text verbatim. It never panics and always returns a
// non-empty string for a non-nil error.
func ExtractMessage(err error) string {
	if err == nil {
		return ""
	}
	raw := err.Error()

	if msg, ok := embeddedMessage(raw); ok {
		return msg
	}

	for _, prefix := range knownWrappers {
		rest, found := strings.CutPrefix(raw, prefix)
		if !found {
			continue
		}
		if msg, ok := embeddedMessage(rest); ok {
			return msg
		}
	}

	return raw
}

// embeddedMessage extracts a human-readable message from the first JSON
// object found in s, unwrapping one layer of nested JSON-in-message.
func embeddedMessage(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal([]byte(s[start:end+1]), &payload) != nil {
		return "", false
	}

	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}
	if msg == "" {
		return "", false
	}

	// The message itself may be another JSON-encoded error body.
	if inner, ok := embeddedMessage(msg); ok {
		return inner, true
	}
	return msg, true
}

// IsUsageLimit reports whether an error is a usage-limit rejection.
func IsUsageLimit(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(strings.ToLower(ExtractMessage(err)), "usage limit")
}

// IsFileTooLarge reports whether an error is a size rejection.
func IsFileTooLarge(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusRequestEntityTooLarge {
		return true
	}
	msg := strings.ToLower(ExtractMessage(err))
	return strings.Contains(msg, "maximum allowed size") || strings.Contains(msg, "too large")
}

// IsNotFound reports whether an error is a missing-resource response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
