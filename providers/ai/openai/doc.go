// Package openai implements the [ai.Client] contract for OpenAI's API and
// for the many providers that speak the same wire format.
//
// One adapter serves them all: [New] targets api.openai.com, while
// [NewCompatible] binds the same code to any compatible endpoint (OpenRouter,
// Groq, DeepSeek, DeepInfra, Mistral, Together, Cerebras, Gemini's
// compatibility surface, Voyage). Only the provider identifier and the
// default base URL differ; translation, streaming, and error handling are
// shared.
//
// The full operation surface is available here: chat completions (sync and
// streaming), legacy completions, fill-in-the-middle, embeddings, rerank,
// and model listing. Individual endpoints may still reject an operation the
// upstream vendor does not host, which surfaces as an [ai.UpstreamError].
package openai
