// Package anthropic implements the [ai.Client] contract for Anthropic's
// Messages API.
//
// It translates the canonical [ai.ChatRequest] into the Messages wire format
// (system prompt extraction, tool-result turn merging, tool declarations),
// applies the configured prompt-caching strategy, decodes the SSE event
// stream into canonical chunks, and maps responses and errors back to the
// shared model.
//
// The entry point is [New]. Anthropic exposes no completion, fill-in-the-
// middle, embedding, or rerank endpoints; those operations report
// [ai.ErrUnsupportedOperation].
package anthropic
