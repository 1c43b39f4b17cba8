// Package ai defines the canonical chat-completion contract shared by every
// provider adapter: the request/response model, the streaming chunk sequence,
// tool-call accumulation, the error taxonomy, provider configuration, and the
// client registry.
//
// Vendor packages (anthropic, openai, ollama) translate between this model
// and their wire formats. Callers construct clients through a [Registry] (or
// the root modelmux package) and speak only these types, so switching
// providers never changes calling code.
//
// Key entry points: [Client] for the operation surface, [ChatRequest] and
// [ChatResponse] for the synchronous model, [ChatStream] and [Chunk] for
// streaming, [ProviderConfig] for construction, and [Registry] for the
// id-to-constructor mapping.
package ai
