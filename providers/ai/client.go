package ai

import "context"

// Client is the canonical operation surface every provider adapter
// implements. Operations validate their input before touching the network
// and report failures through the package's error taxonomy.
//
// Not every provider supports every operation; unsupported ones return an
// error satisfying errors.Is(err, [ErrUnsupportedOperation]) and callers can
// branch on that without provider-specific knowledge.
//
// Streaming methods return a [ChatStream] that must be consumed (see its
// documentation); cancelling the context mid-stream ends the stream quietly
// with no trailing error.
type Client interface {
	// Name returns the provider identifier this client was built for.
	Name() string

	// ChatCompletion sends a conversation and returns the complete reply.
	ChatCompletion(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// ChatCompletionStream sends a conversation and returns the reply as a
	// lazy chunk sequence.
	ChatCompletionStream(ctx context.Context, request ChatRequest) (*ChatStream, error)

	// Completion performs a legacy single-prompt text completion.
	Completion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error)

	// CompletionStream is the streaming form of Completion; chunks carry the
	// completed text in Content.
	CompletionStream(ctx context.Context, request CompletionRequest) (*ChatStream, error)

	// FIMStream streams a fill-in-the-middle completion between the
	// request's prefix and suffix.
	FIMStream(ctx context.Context, request FIMRequest) (*ChatStream, error)

	// Embed returns embedding vectors for the request inputs.
	Embed(ctx context.Context, request EmbedRequest) (*EmbedResponse, error)

	// Rerank scores the request documents against the query.
	Rerank(ctx context.Context, request RerankRequest) (*RerankResponse, error)

	// ListModels returns the models the provider currently offers.
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
