package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/modelmux/modelmux/internal/utils"
)

// StatusClientClosedRequest is the non-standard status (nginx convention)
// proxies use when the caller abandoned the request. Responses with this
// status are a quiet abort, not a failure: operations return an empty result
// and streams end without error.
const StatusClientClosedRequest = 499

var (
	// ErrUnsupportedOperation is wrapped by every "this provider cannot do
	// that" error, so callers can branch with errors.Is regardless of which
	// provider or operation produced it.
	ErrUnsupportedOperation = errors.New("operation not supported")

	// ErrUnsupportedProvider is reported by registries for unknown provider
	// identifiers.
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// UnsupportedOperationError reports that a provider cannot honor one of the
// canonical client operations.
type UnsupportedOperationError struct {
	Provider  string
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Operation, ErrUnsupportedOperation)
}

func (e *UnsupportedOperationError) Unwrap() error {
	return ErrUnsupportedOperation
}

// Unsupported builds the standard error for an operation a provider does not
// implement.
func Unsupported(provider, operation string) error {
	return &UnsupportedOperationError{Provider: provider, Operation: operation}
}

// ValidationError reports a defect in the request or configuration detected
// before any network traffic.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// TransportError reports a network-level failure: DNS, connection refused,
// TLS handshake, timeout, or cancellation during request setup. The provider
// was never (successfully) reached, so retrying may make sense. That call
// is the caller's, never this package's.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline or network timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// UpstreamError reports a failure on the provider's side: a non-2xx answer,
// or an error event delivered in-band on an open stream (StatusCode is 0 in
// that case). Message is the human-readable explanation extracted from the
// error body.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: upstream error: %s", e.Provider, e.Message)
}

// RateLimited reports whether the upstream rejected the request for quota or
// throughput reasons.
func (e *UpstreamError) RateLimited() bool {
	return e.StatusCode == 429
}

// ProtocolError reports a stream that violated its own framing: an argument
// delta with no open tool block, a required event that failed to parse, or a
// terminal event without usage. These indicate a provider bug or a wire
// format change, never caller error.
type ProtocolError struct {
	Provider string
	Reason   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: protocol error: %s", e.Provider, e.Reason)
}

// ClassifyHTTPError maps a failure from the HTTP helpers into the taxonomy:
// non-2xx statuses become [*UpstreamError], everything else (dial, TLS,
// deadline, setup-time cancellation) becomes [*TransportError]. Callers
// check [AbortedError] first; the client-closed sentinel is not a failure.
func ClassifyHTTPError(provider string, err error) error {
	var statusErr *utils.HTTPStatusError
	if errors.As(err, &statusErr) {
		return UpstreamErrorFrom(provider, statusErr.StatusCode, statusErr.ContentType, statusErr.Body)
	}
	return &TransportError{Provider: provider, Err: err}
}

// AbortedError reports whether err represents the client-closed sentinel
// status, meaning the caller superseded or abandoned the request and the
// result should be quietly empty.
func AbortedError(err error) bool {
	var statusErr *utils.HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == StatusClientClosedRequest
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.StatusCode == StatusClientClosedRequest
	}
	return false
}

// UpstreamErrorFrom builds an [*UpstreamError] from a non-2xx response.
// JSON error envelopes are unwrapped to their message, HTML error pages
// (returned by some gateways) are converted to readable text, and anything
// else is passed through truncated.
func UpstreamErrorFrom(provider string, statusCode int, contentType string, body []byte) *UpstreamError {
	return &UpstreamError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    upstreamMessage(contentType, body),
	}
}

func upstreamMessage(contentType string, body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty error body"
	}

	// Known JSON envelopes: {"error":{"message":...,"type":...}},
	// {"error":"..."}, {"message":"..."}.
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			}
			if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
				if nested.Type != "" {
					return fmt.Sprintf("%s (%s)", nested.Message, nested.Type)
				}
				return nested.Message
			}
			var plain string
			if err := json.Unmarshal(envelope.Error, &plain); err == nil && plain != "" {
				return plain
			}
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}

	// Gateways and proxies answer with HTML error pages; convert them so the
	// message stays readable in logs and error chains.
	if strings.Contains(contentType, "text/html") || strings.HasPrefix(text, "<!DOCTYPE") || strings.HasPrefix(text, "<html") {
		if markdown, err := htmltomarkdown.ConvertString(text); err == nil && strings.TrimSpace(markdown) != "" {
			return utils.TruncateString(strings.TrimSpace(markdown), 300)
		}
	}

	return utils.TruncateString(text, 300)
}
