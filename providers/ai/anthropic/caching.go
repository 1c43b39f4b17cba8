package anthropic

// Prompt-caching strategy names accepted in ai.ProviderConfig.CachingStrategy.
// Unknown names fall back to [StrategySystemAndTools].
const (
	// StrategySystemAndTools marks the system prompt and the tool list as a
	// cache breakpoint. The stable request prefix is cached across calls;
	// this is the default.
	StrategySystemAndTools = "system-and-tools"

	// StrategyConversation additionally marks the last conversation turn, so
	// long multi-turn exchanges reuse the cached history on each call.
	StrategyConversation = "conversation"

	// StrategyNone disables cache markers entirely.
	StrategyNone = "none"
)

// applyCachingStrategy attaches cache_control markers to the translated
// request according to the named strategy. It runs after translation and
// before dispatch, on both the sync and streaming paths.
func applyCachingStrategy(strategy string, request *anthropicRequest) {
	switch strategy {
	case StrategyNone:
	case StrategyConversation:
		markSystemAndTools(request)
		markLastTurn(request)
	default:
		markSystemAndTools(request)
	}
}

// markSystemAndTools marks the last system block and the last tool
// definition. Anthropic caches everything up to and including a marked
// element, so marking only the final entry covers the whole prefix.
func markSystemAndTools(request *anthropicRequest) {
	if len(request.System) > 0 {
		request.System[len(request.System)-1].CacheControl = ephemeralCache()
	}
	if len(request.Tools) > 0 {
		request.Tools[len(request.Tools)-1].CacheControl = ephemeralCache()
	}
}

// markLastTurn marks the final content block of the final message.
func markLastTurn(request *anthropicRequest) {
	if len(request.Messages) == 0 {
		return
	}
	lastMessage := &request.Messages[len(request.Messages)-1]
	if len(lastMessage.Content) == 0 {
		return
	}
	lastMessage.Content[len(lastMessage.Content)-1].CacheControl = ephemeralCache()
}

func ephemeralCache() *anthropicCacheControl {
	return &anthropicCacheControl{Type: "ephemeral"}
}
