package adminapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is returned for any response with a 4xx/5xx status.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.Status, msg)
}

// Temporary reports whether retrying the same request later may succeed.
func (e *APIError) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests || e.Status == http.StatusRequestTimeout
}

// IsStatus reports whether err wraps an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Message extracts a short human-readable message from err, preferring the
// server-provided detail when err wraps an APIError.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	return &APIError{
		Method:  method,
		Path:    path,
		Status:  status,
		Message: detailFromBody(body),
	}
}

// detailFromBody reads FastAPI's {"detail": ...} shape, falling back to the
// trimmed body text.
func detailFromBody(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Detail) > 0 {
			var s string
			if json.Unmarshal(payload.Detail, &s) == nil {
				return s
			}
			// validation errors arrive as a list of objects
			var items []struct {
				Msg string `json:"msg"`
			}
			if json.Unmarshal(payload.Detail, &items) == nil && len(items) > 0 {
				return items[0].Msg
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
