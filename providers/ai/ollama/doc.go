// Package ollama adapts a local (or proxied) ollama daemon to the canonical
// [ai.Client] surface, speaking the daemon's native API through the official
// SDK rather than the OpenAI compatibility layer, which hides tool calls and
// token metrics.
//
// Construct clients with [New]. No API key is required for a local daemon;
// when one is configured it is sent as a Bearer credential for
// authenticating proxies. Chat, completion, fill-in-the-middle, embeddings
// and model listing are supported; reranking is not and reports
// [ai.ErrUnsupportedOperation].
package ollama
