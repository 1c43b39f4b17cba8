package utils

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// maxSSELineSize is the maximum size of a single SSE line (1 MB).
// The default bufio.Scanner limit is 64 KiB, which is too small for large SSE
// events such as tool-call arguments or long completions. If a line exceeds
// this limit the scanner returns a wrapped bufio.ErrTooLong via Next().
const maxSSELineSize = 1 * 1024 * 1024

// maxResponseBodySize is the maximum response body size (10 MB). Enforced via
// io.LimitReader to prevent unbounded memory allocation from rogue responses.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// DoPostStream performs an HTTP POST request and returns the raw response
// with the body left open for SSE reading. The caller owns the body and must
// close it when done (typically via [CloseWithLog] inside the stream
// iterator). On error paths the body is fully consumed and closed before
// returning.
func DoPostStream(ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	applyHeaders(req, apiKey, headers)
	req.Header.Set("Accept", "text/event-stream")

	response, err := httpClient.Do(req)
	if err != nil {
		return response, fmt.Errorf("error sending stream request: %w", err)
	}

	// Non-2xx: drain the capped body so the failure can be classified, then
	// close it; there is nothing to stream.
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(ctx, response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
		if readErr != nil {
			return response, fmt.Errorf("non-2xx status %d (failed to read body: %v)", response.StatusCode, readErr)
		}
		return response, &HTTPStatusError{
			StatusCode:  response.StatusCode,
			ContentType: response.Header.Get("Content-Type"),
			Body:        errorBody,
		}
	}

	zerolog.Ctx(ctx).Debug().
		Str("url", url).
		Int("status", response.StatusCode).
		Msg("sse stream opened")

	return response, nil
}

// SSEScanner reads Server-Sent Events from an io.Reader. It joins multi-line
// data fields, skips comments and empty lines, and detects the [DONE]
// sentinel used by OpenAI-compatible APIs. Event name lines ("event:") are
// ignored: every provider wire format handled here repeats the discriminator
// inside the JSON data payload, so the payload alone is authoritative.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner creates an SSEScanner reading from reader. Individual SSE
// lines up to maxSSELineSize (1 MB) are supported; longer lines cause Next()
// to return an error wrapping bufio.ErrTooLong.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next SSE data payload. Consecutive "data:" lines belonging
// to one event are joined with newlines into a single payload string.
// It returns io.EOF when the stream ends or the [DONE] sentinel is seen.
func (sseScanner *SSEScanner) Next() (string, error) {
	var dataLines []string

	for sseScanner.scanner.Scan() {
		line := sseScanner.scanner.Text()

		// Blank line terminates the current event.
		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		// SSE comment.
		if strings.HasPrefix(line, ":") {
			continue
		}

		if data, found := strings.CutPrefix(line, "data:"); found {
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				return "", io.EOF
			}
			dataLines = append(dataLines, data)
			continue
		}

		// Other SSE fields (event:, id:, retry:) are intentionally skipped.
	}

	if err := sseScanner.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE scanner error: %w", err)
	}

	// A final event without a trailing blank line still counts.
	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}

	return "", io.EOF
}
