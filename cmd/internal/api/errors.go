package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable marks transport/availability faults: network-level
	// failure, an HTML error page from a misrouted proxy, or a non-JSON
	// success body. These are never retried automatically.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrTokenExpired marks the backend's invalid/expired access token
	// rejection. It is the only failure class the pipeline retries.
	ErrTokenExpired = errors.New("invalid or expired token")
)

// tokenExpiredMarker is the backend's 401 message for a stale bearer token.
const tokenExpiredMarker = "Invalid or expired token"

// Error is the normalized failure returned by every client call.
//
// Error() returns the extracted backend message verbatim so callers can
// show it to the user unchanged; Op and Status carry the diagnostics.
type Error struct {
	Op      string
	Status  int
	Message string

	kind error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.kind }

// IsUnavailable reports whether err is a transport/availability fault.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// IsTokenExpired reports whether err is the backend's expired-token rejection.
func IsTokenExpired(err error) bool { return errors.Is(err, ErrTokenExpired) }

// classifyFailure turns a non-2xx response body into an *Error.
//
// Precedence: a JSON "message" field wins; otherwise an HTML document marks
// the backend as unreachable or misrouted; otherwise a non-empty text body
// is surfaced verbatim; otherwise a generic HTTP error with the status.
func classifyFailure(op string, status int, body []byte) *Error {
	if msg, ok := extractMessage(body); ok {
		e := &Error{Op: op, Status: status, Message: msg}
		if strings.Contains(msg, tokenExpiredMarker) {
			e.kind = ErrTokenExpired
		}
		return e
	}

	text := strings.TrimSpace(string(body))
	if looksLikeHTML(text) {
		return &Error{
			Op:      op,
			Status:  status,
			Message: "backend unreachable or misrouted",
			kind:    ErrUnavailable,
		}
	}
	if text != "" {
		return &Error{Op: op, Status: status, Message: text}
	}
	return &Error{Op: op, Status: status, Message: fmt.Sprintf("HTTP error %d", status)}
}

// extractMessage pulls the human-readable message out of a JSON error body.
// The backend returns either a string or, for validation failures, an array
// of strings.
func extractMessage(body []byte) (string, bool) {
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Message) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(envelope.Message, &s); err == nil && s != "" {
		return s, true
	}

	var list []string
	if err := json.Unmarshal(envelope.Message, &list); err == nil && len(list) > 0 {
		return strings.Join(list, "; "), true
	}
	return "", false
}

func looksLikeHTML(text string) bool {
	lower := strings.ToLower(text)
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}
