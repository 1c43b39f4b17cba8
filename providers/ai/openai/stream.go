package openai

import (
	"context"
	"fmt"
	"io"

	"github.com/modelmux/modelmux/internal/utils"
	"github.com/modelmux/modelmux/providers/ai"
)

// ChatCompletionStream implements [ai.Client] against the streaming
// /chat/completions endpoint.
//
// The request always sets stream_options.include_usage, so conforming
// providers send one final usage-bearing chunk before [DONE]; that chunk
// becomes the stream's terminal chunk. Providers that ignore the option and
// close without usage get a synthesized terminal chunk with zero counts, so
// consumers still see exactly one. Cancelling ctx mid-stream ends iteration
// quietly.
func (c *Client) ChatCompletionStream(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if err := ai.ValidateChatRequest(request); err != nil {
		return nil, err
	}
	if err := ai.RequireAPIKey(c.providerID, c.config.APIKey); err != nil {
		return nil, err
	}

	wireRequest := requestToChatCompletion(request)
	wireRequest.Stream = true
	wireRequest.StreamOptions = &streamOptions{IncludeUsage: true}

	return c.streamChatShaped(ctx, chatCompletionsEndpoint, wireRequest, request.Model)
}

// streamChatShaped opens an SSE stream on endpoint and decodes
// chat.completion.chunk payloads into canonical chunks. Chat completions and
// the dedicated FIM endpoint stream the same shape, so both route here.
func (c *Client) streamChatShaped(ctx context.Context, endpoint string, body any, fallbackModel string) (*ai.ChatStream, error) {
	ctx = c.logger.WithContext(ctx)
	httpResponse, err := utils.DoPostStream(
		ctx,
		c.httpClient,
		c.config.Endpoint(endpoint),
		c.config.APIKey,
		body,
		c.config.RequestOptions.HeaderOptions()...,
	)
	if err != nil {
		if ai.AbortedError(err) {
			return ai.NewChatStream(func(yield func(ai.Chunk, error) bool) {}), nil
		}
		return nil, ai.ClassifyHTTPError(c.providerID, err)
	}

	scanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.Chunk, error) bool) {
		defer utils.CloseWithLog(ctx, httpResponse.Body)

		model := fallbackModel
		finishReason := ""

		for {
			if ctx.Err() != nil {
				return
			}

			payload, err := scanner.Next()
			if err == io.EOF {
				// [DONE] without a usage chunk; the stream still owes its
				// terminal chunk.
				yield(ai.Chunk{
					Model:        model,
					FinishReason: normalizeFinishReason(finishReason),
					Usage:        ai.NewUsage(0, 0, 0),
				}, nil)
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				yield(ai.Chunk{}, &ai.TransportError{Provider: c.providerID, Err: err})
				return
			}

			chunk, parseErr := unmarshalStreamChunk(payload)
			if parseErr != nil {
				yield(ai.Chunk{}, &ai.ProtocolError{
					Provider: c.providerID,
					Reason:   fmt.Sprintf("unparseable stream chunk: %v", parseErr),
				})
				return
			}

			if chunk.Model != "" {
				model = chunk.Model
			}

			if len(chunk.Choices) > 0 {
				choice := chunk.Choices[0]

				if choice.Delta.Content != nil && *choice.Delta.Content != "" {
					if !yield(ai.Chunk{Model: model, Content: *choice.Delta.Content}, nil) {
						return
					}
				}

				if len(choice.Delta.ToolCalls) > 0 {
					deltas := make([]ai.ToolCallDelta, 0, len(choice.Delta.ToolCalls))
					for _, part := range choice.Delta.ToolCalls {
						deltas = append(deltas, ai.ToolCallDelta{
							Index:     part.Index,
							ID:        part.ID,
							Name:      part.Function.Name,
							Arguments: part.Function.Arguments,
						})
					}
					if !yield(ai.Chunk{Model: model, ToolCalls: deltas}, nil) {
						return
					}
				}

				if choice.FinishReason != nil && *choice.FinishReason != "" {
					finishReason = *choice.FinishReason
				}
			}

			// The usage chunk is the last data chunk; deltas riding on it
			// (some providers combine the two) were already yielded above.
			if chunk.Usage != nil {
				yield(ai.Chunk{
					Model:        model,
					FinishReason: normalizeFinishReason(finishReason),
					Usage:        usageToGeneric(chunk.Usage),
				}, nil)
				return
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}
