// Package modelmux builds configured [ai.Client] values for named providers.
//
// Most hosted providers expose an OpenAI-compatible chat completions API and
// share one generic adapter, differing only in their default API base.
// Anthropic and Ollama speak their own protocols and have dedicated
// adapters. All clients normalize to the same canonical request, response,
// stream, and error types, so callers switch providers by changing the
// identifier passed to [New].
package modelmux

import (
	"github.com/modelmux/modelmux/providers/ai"
	"github.com/modelmux/modelmux/providers/ai/anthropic"
	"github.com/modelmux/modelmux/providers/ai/ollama"
	"github.com/modelmux/modelmux/providers/ai/openai"
)

// openAICompatibleBases lists the providers served by the generic
// OpenAI-compatible adapter and the API base each one defaults to.
var openAICompatibleBases = map[string]string{
	"openai":     "https://api.openai.com/v1",
	"openrouter": "https://openrouter.ai/api/v1",
	"groq":       "https://api.groq.com/openai/v1",
	"deepseek":   "https://api.deepseek.com/v1",
	"deepinfra":  "https://api.deepinfra.com/v1/openai",
	"mistral":    "https://api.mistral.ai/v1",
	"together":   "https://api.together.xyz/v1",
	"cerebras":   "https://api.cerebras.ai/v1",
	"gemini":     "https://generativelanguage.googleapis.com/v1beta/openai",
	"voyage":     "https://api.voyageai.com/v1",
}

var defaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *ai.Registry {
	registry := ai.NewRegistry()

	registry.Register("anthropic", func(config ai.ProviderConfig) (ai.Client, error) {
		return anthropic.New(config)
	})
	registry.Register("ollama", func(config ai.ProviderConfig) (ai.Client, error) {
		return ollama.New(config)
	})
	for providerID, defaultBase := range openAICompatibleBases {
		registry.Register(providerID, compatibleFactory(providerID, defaultBase))
	}

	return registry
}

// compatibleFactory captures the loop variables so every compatible provider
// gets its own identifier and default base.
func compatibleFactory(providerID, defaultBase string) ai.Factory {
	return func(config ai.ProviderConfig) (ai.Client, error) {
		return openai.NewCompatible(providerID, defaultBase, config)
	}
}

// New builds a client for the named provider. Unknown identifiers report an
// error satisfying errors.Is(err, [ai.ErrUnsupportedProvider]).
func New(providerID string, config ai.ProviderConfig) (ai.Client, error) {
	return defaultRegistry.New(providerID, config)
}

// Register adds or replaces the factory for a provider identifier in the
// default registry. It lets callers plug in providers this module does not
// ship, or swap a shipped one for a wrapped variant.
func Register(providerID string, factory ai.Factory) {
	defaultRegistry.Register(providerID, factory)
}

// Providers returns the registered provider identifiers, sorted.
func Providers() []string {
	return defaultRegistry.Providers()
}
