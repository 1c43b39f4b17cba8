package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HeaderOption is a single HTTP header applied to an outgoing request.
// Options are applied after the default headers, so providers can override
// Content-Type or Authorization when their wire format requires it.
type HeaderOption struct {
	Key   string
	Value string
}

// HTTPStatusError is returned by the HTTP helpers when the server answers
// with a non-2xx status. It preserves the status code, the Content-Type
// header, and the (capped) response body so callers can classify the failure
// with provider-specific knowledge instead of string-matching error text.
type HTTPStatusError struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, TruncateString(string(e.Body), DefaultMaxStringLength))
}

// CloseWithLog closes closer and logs a warning through the context logger
// when the close fails. Close errors never override the primary error of the
// surrounding operation.
func CloseWithLog(ctx context.Context, closer io.Closer) {
	if err := closer.Close(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close response body")
	}
}

// DoPostSync performs a synchronous HTTP POST with a JSON body and parses the
// JSON response into OutputStruct.
//
// Error handling strategy:
//   - Context errors (timeout, cancellation) surface through the transport error
//   - Non-2xx responses return a [*HTTPStatusError] carrying status and body
//   - Response body close errors are logged but don't override primary errors
//   - JSON parsing errors include a response preview for debugging
//
// The response body is always closed before returning.
func DoPostSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, *OutputStruct, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}

	applyHeaders(req, apiKey, headers)

	requestStart := time.Now()
	res, err := httpClient.Do(req)
	if err != nil {
		return res, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer CloseWithLog(ctx, res.Body)

	respBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBodySize))
	if err != nil {
		return res, nil, fmt.Errorf("error reading response body: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("url", url).
		Int("status", res.StatusCode).
		Int("request_bytes", len(jsonBody)).
		Int("response_bytes", len(respBody)).
		Dur("duration", time.Since(requestStart)).
		Msg("http round-trip complete")

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, nil, &HTTPStatusError{
			StatusCode:  res.StatusCode,
			ContentType: res.Header.Get("Content-Type"),
			Body:        respBody,
		}
	}

	var resStruct OutputStruct
	if err = json.Unmarshal(respBody, &resStruct); err != nil {
		return res, nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s", res.StatusCode, err, TruncateString(string(respBody), DefaultMaxStringLength))
	}

	return res, &resStruct, nil
}

// DoGetSync performs a synchronous HTTP GET and parses the JSON response into
// OutputStruct. It follows the same error handling contract as [DoPostSync].
func DoGetSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, headers ...HeaderOption) (*http.Response, *OutputStruct, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}

	applyHeaders(req, apiKey, headers)

	res, err := httpClient.Do(req)
	if err != nil {
		return res, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer CloseWithLog(ctx, res.Body)

	respBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBodySize))
	if err != nil {
		return res, nil, fmt.Errorf("error reading response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, nil, &HTTPStatusError{
			StatusCode:  res.StatusCode,
			ContentType: res.Header.Get("Content-Type"),
			Body:        respBody,
		}
	}

	var resStruct OutputStruct
	if err = json.Unmarshal(respBody, &resStruct); err != nil {
		return res, nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s", res.StatusCode, err, TruncateString(string(respBody), DefaultMaxStringLength))
	}

	return res, &resStruct, nil
}

// applyHeaders sets the default JSON headers, the optional Bearer credential,
// and any caller-supplied header options (in that order, so options win).
func applyHeaders(req *http.Request, apiKey string, headers []HeaderOption) {
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}
}
