package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrKind classifies an attempt-level failure. The dispatcher keys its
// cooldown and retry policy off this value alone.
type ErrKind int

const (
	// ErrNetwork is a transport failure: DNS, connection reset, TLS.
	ErrNetwork ErrKind = iota
	// ErrTransient is a server-side error (5xx) that may clear on its own.
	ErrTransient
	// ErrRateLimited is a 429 or a quota-exhaustion response.
	ErrRateLimited
	// ErrAuthFailed is a 401/403; the credential is bad for this run.
	ErrAuthFailed
	// ErrBadRequest is a malformed or over-long request; retrying the same
	// input anywhere is pointless.
	ErrBadRequest
	// ErrEmptyResult is a 2xx whose parsed translation is empty or unusable.
	ErrEmptyResult
	// ErrTimeout is a per-attempt deadline expiry.
	ErrTimeout
)

// String returns the wire name of the kind, used in telemetry events.
func (k ErrKind) String() string {
	switch k {
	case ErrNetwork:
		return "network"
	case ErrTransient:
		return "transient"
	case ErrRateLimited:
		return "rate_limited"
	case ErrAuthFailed:
		return "auth_failed"
	case ErrBadRequest:
		return "bad_request"
	case ErrEmptyResult:
		return "empty_result"
	case ErrTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the classified failure an adapter surfaces to the dispatcher.
type Error struct {
	Kind    ErrKind
	Status  int // HTTP status when applicable, else 0
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("provider: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the ErrKind from err. Unclassified errors report
// ErrNetwork, the most conservative retryable kind.
func KindOf(err error) ErrKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrNetwork
}

// classifyTransport maps a round-trip error (no HTTP response received)
// to a classified Error.
func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrTimeout, Message: "attempt deadline exceeded", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: ErrTimeout, Message: "attempt cancelled", Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: ErrTimeout, Message: "network timeout", Err: err}
	}
	return &Error{Kind: ErrNetwork, Message: err.Error(), Err: err}
}

// classifyStatus maps a non-2xx HTTP response to a classified Error.
// Some providers return rate-limit errors with a 400-level status and a
// telltale body, so the body is inspected for quota language.
func classifyStatus(status int, body []byte) *Error {
	msg := truncate(string(body), 512)

	switch {
	case status == http.StatusTooManyRequests:
		return &Error{Kind: ErrRateLimited, Status: status, Message: msg}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: ErrAuthFailed, Status: status, Message: msg}
	case status >= 500:
		return &Error{Kind: ErrTransient, Status: status, Message: msg}
	case status >= 400:
		if looksRateLimited(msg) {
			return &Error{Kind: ErrRateLimited, Status: status, Message: msg}
		}
		return &Error{Kind: ErrBadRequest, Status: status, Message: msg}
	default:
		return &Error{Kind: ErrTransient, Status: status, Message: msg}
	}
}

// looksRateLimited reports whether an error body describes a rate or quota
// limit despite a non-429 status.
func looksRateLimited(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range []string{"rate limit", "rate_limit", "quota", "too many requests"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
