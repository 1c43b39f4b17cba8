package ollama

import (
	"context"

	"github.com/ollama/ollama/api"

	"github.com/modelmux/modelmux/providers/ai"
)

// pushStream bridges an SDK call that pushes values into a callback to a
// channel the iterator can pull from. run executes in a goroutine; values
// arrive on the first channel, and after it closes the second carries run's
// final error. Cancelling via the returned function makes the callback
// error out, which unwinds run promptly even when nobody is receiving.
func pushStream[T any](ctx context.Context, run func(ctx context.Context, deliver func(T) error) error) (<-chan T, <-chan error, context.CancelFunc) {
	streamCtx, cancel := context.WithCancel(ctx)
	values := make(chan T)
	done := make(chan error, 1)

	go func() {
		err := run(streamCtx, func(value T) error {
			select {
			case values <- value:
				return nil
			case <-streamCtx.Done():
				return streamCtx.Err()
			}
		})
		close(values)
		done <- err
	}()

	return values, done, cancel
}

// ChatCompletionStream implements [ai.Client] on the daemon's streaming chat
// endpoint.
//
// The SDK pushes responses into a callback, so the call is started eagerly
// and the first response (or failure) is awaited here; that keeps HTTP-level
// errors synchronous, matching the HTTP-based adapters. Text arrives
// incrementally; tool calls arrive complete. The final done response carries
// the token metrics that become the terminal chunk. Cancelling ctx
// mid-stream ends iteration quietly.
func (c *Client) ChatCompletionStream(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if err := ai.ValidateChatRequest(request); err != nil {
		return nil, err
	}

	wireRequest, err := requestToOllamaChat(request, true)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Str("model", request.Model).Msg("opening ollama chat stream")

	responses, done, cancelStream := pushStream(ctx, func(streamCtx context.Context, deliver func(api.ChatResponse) error) error {
		return c.api.Chat(streamCtx, &wireRequest, deliver)
	})

	first, ok := <-responses
	if !ok {
		chatErr := <-done
		cancelStream()
		if chatErr == nil {
			// Stream ended before producing anything; still owes a terminal
			// chunk.
			return ai.NewSingleChunkStream(&ai.ChatResponse{Model: request.Model, FinishReason: "stop"}), nil
		}
		if abortedStatus(chatErr) {
			return ai.NewChatStream(func(yield func(ai.Chunk, error) bool) {}), nil
		}
		return nil, classifyError(providerID, chatErr)
	}

	iteratorFunc := func(yield func(ai.Chunk, error) bool) {
		defer cancelStream()

		model := request.Model
		promptTokens := 0
		completionTokens := 0
		doneReason := ""
		sawToolCalls := false
		toolIndex := -1

		emit := func(response api.ChatResponse) bool {
			if response.Model != "" {
				model = response.Model
			}

			if response.Message.Content != "" {
				if !yield(ai.Chunk{Model: model, Content: response.Message.Content}, nil) {
					return false
				}
			}

			if len(response.Message.ToolCalls) > 0 {
				sawToolCalls = true
				deltas := make([]ai.ToolCallDelta, 0, len(response.Message.ToolCalls))
				for _, wireCall := range response.Message.ToolCalls {
					toolIndex++
					deltas = append(deltas, ai.ToolCallDelta{
						Index:     toolIndex,
						Name:      wireCall.Function.Name,
						Arguments: marshalToolArguments(wireCall.Function.Arguments),
					})
				}
				if !yield(ai.Chunk{Model: model, ToolCalls: deltas}, nil) {
					return false
				}
			}

			if response.Done {
				promptTokens = response.Metrics.PromptEvalCount
				completionTokens = response.Metrics.EvalCount
				doneReason = response.DoneReason
			}
			return true
		}

		if !emit(first) {
			return
		}
		for response := range responses {
			if ctx.Err() != nil {
				return
			}
			if !emit(response) {
				return
			}
		}

		chatErr := <-done
		if ctx.Err() != nil {
			return
		}
		if chatErr != nil {
			yield(ai.Chunk{}, classifyError(providerID, chatErr))
			return
		}

		yield(ai.Chunk{
			Model:        model,
			FinishReason: chatFinishReason(sawToolCalls, doneReason),
			Usage:        ai.NewUsage(promptTokens, completionTokens, 0),
		}, nil)
	}

	return ai.NewChatStream(iteratorFunc), nil
}
