// Package utils provides shared low-level helpers used throughout the
// modelmux internals. It covers HTTP request helpers for both synchronous
// and streaming (SSE) communication with provider APIs, plus generic pointer
// and string utilities.
//
// Key entry points: [DoPostSync] and [DoGetSync] for synchronous JSON
// round-trips, [DoPostStream] together with [SSEScanner] for Server-Sent
// Events streaming, [ParseStringAs] for lenient JSON decoding, and [Ptr] for
// converting values to pointers.
package utils
