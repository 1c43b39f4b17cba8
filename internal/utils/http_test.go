package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type echoResponse struct {
	Greeting string `json:"greeting"`
}

// TestDoPostSyncDecodesResponse verifies the happy path: JSON request out,
// typed JSON response in, default headers applied.
func TestDoPostSyncDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if got := request.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type: got %q, want %q", got, "application/json")
		}
		if got := request.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization: got %q, want %q", got, "Bearer secret")
		}
		fmt.Fprint(writer, `{"greeting":"hello"}`)
	}))
	defer server.Close()

	_, parsed, err := DoPostSync[echoResponse](context.Background(), server.Client(), server.URL, "secret", map[string]string{"name": "world"})
	if err != nil {
		t.Fatalf("DoPostSync returned unexpected error: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected parsed response, got nil")
	}
	if parsed.Greeting != "hello" {
		t.Errorf("Greeting: got %q, want %q", parsed.Greeting, "hello")
	}
}

// TestDoPostSyncHeaderOptionsOverride verifies that caller-supplied header
// options are applied after the defaults and can replace Authorization.
func TestDoPostSyncHeaderOptionsOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if got := request.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization should be absent, got %q", got)
		}
		if got := request.Header.Get("x-api-key"); got != "vendor-key" {
			t.Errorf("x-api-key: got %q, want %q", got, "vendor-key")
		}
		fmt.Fprint(writer, `{}`)
	}))
	defer server.Close()

	// Empty apiKey suppresses the Bearer default; the option adds the vendor header.
	_, _, err := DoPostSync[echoResponse](context.Background(), server.Client(), server.URL, "", nil,
		HeaderOption{Key: "x-api-key", Value: "vendor-key"})
	if err != nil {
		t.Fatalf("DoPostSync returned unexpected error: %v", err)
	}
}

// TestDoPostSyncNon2xx verifies that a failing status surfaces as a typed
// *HTTPStatusError with the body preserved for classification.
func TestDoPostSyncNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(writer, `{"error":{"message":"bad model"}}`)
	}))
	defer server.Close()

	_, _, err := DoPostSync[echoResponse](context.Background(), server.Client(), server.URL, "", nil)
	if err == nil {
		t.Fatal("expected error for non-2xx response, got nil")
	}

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *HTTPStatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode: got %d, want %d", statusErr.StatusCode, http.StatusBadRequest)
	}
}

// TestDoGetSyncDecodesResponse verifies the GET helper round-trip.
func TestDoGetSyncDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodGet {
			t.Errorf("method: got %q, want GET", request.Method)
		}
		fmt.Fprint(writer, `{"greeting":"listed"}`)
	}))
	defer server.Close()

	_, parsed, err := DoGetSync[echoResponse](context.Background(), server.Client(), server.URL, "secret")
	if err != nil {
		t.Fatalf("DoGetSync returned unexpected error: %v", err)
	}
	if parsed.Greeting != "listed" {
		t.Errorf("Greeting: got %q, want %q", parsed.Greeting, "listed")
	}
}
