package anthropic

import (
	"context"
	"fmt"
	"io"

	"github.com/modelmux/modelmux/internal/utils"
	"github.com/modelmux/modelmux/providers/ai"
)

// decodeState tracks which kind of content block is currently open. The
// Messages API frames content as blocks bracketed by content_block_start and
// content_block_stop; deltas are only legal inside a matching block.
type decodeState int

const (
	stateIdle decodeState = iota
	stateTextBlock
	stateToolBlock
)

// ChatCompletionStream implements [ai.Client] against the streaming Messages
// API.
//
// Pre-stream failures (validation, missing key, non-2xx, network) are
// returned immediately. Once the stream is open, the iterator decodes SSE
// events into canonical chunks: text deltas become content chunks, tool_use
// blocks become tool-call delta chunks, and message_stop (or EOF) produces
// the single terminal chunk carrying the aggregated usage. Cancelling ctx
// mid-stream ends iteration quietly.
func (c *Client) ChatCompletionStream(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if err := ai.ValidateChatRequest(request); err != nil {
		return nil, err
	}
	if err := ai.RequireAPIKey(providerID, c.config.APIKey); err != nil {
		return nil, err
	}

	wireRequest, err := requestToAnthropic(request)
	if err != nil {
		return nil, err
	}
	applyCachingStrategy(c.config.CachingStrategy, &wireRequest)
	wireRequest.Stream = true

	ctx = c.logger.WithContext(ctx)
	httpResponse, err := utils.DoPostStream(
		ctx,
		c.httpClient,
		c.config.Endpoint(messagesEndpoint),
		"",
		wireRequest,
		c.buildHeaders()...,
	)
	if err != nil {
		if ai.AbortedError(err) {
			return ai.NewChatStream(func(yield func(ai.Chunk, error) bool) {}), nil
		}
		return nil, ai.ClassifyHTTPError(providerID, err)
	}

	scanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.Chunk, error) bool) {
		defer utils.CloseWithLog(ctx, httpResponse.Body)

		state := stateIdle

		// toolIndex numbers tool calls in response order. It is this
		// decoder's counter, not the wire's block index: text blocks advance
		// the block index without opening a tool call.
		toolIndex := -1

		model := request.Model
		promptTokens := 0
		completionTokens := 0
		cachedTokens := 0
		stopReason := ""

		for {
			if ctx.Err() != nil {
				return
			}

			payload, err := scanner.Next()
			if err == io.EOF {
				// Upstream closed without message_stop; synthesize the
				// terminal chunk from what was accumulated so every
				// successful stream ends with exactly one.
				yield(ai.Chunk{
					Model:        model,
					FinishReason: mapStopReason(stopReason),
					Usage:        ai.NewUsage(promptTokens, completionTokens, cachedTokens),
				}, nil)
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				yield(ai.Chunk{}, &ai.TransportError{Provider: providerID, Err: err})
				return
			}

			event, parseErr := unmarshalStreamEvent(payload)
			if parseErr != nil {
				yield(ai.Chunk{}, &ai.ProtocolError{
					Provider: providerID,
					Reason:   fmt.Sprintf("unparseable stream event: %v", parseErr),
				})
				return
			}

			switch event.Type {

			case "message_start":
				// Carries the prompt-side usage snapshot; output tokens are
				// always 0 here and arrive later in message_delta.
				if event.Message != nil {
					if event.Message.Model != "" {
						model = event.Message.Model
					}
					promptTokens = event.Message.Usage.InputTokens
					cachedTokens = event.Message.Usage.CacheCreationInputTokens +
						event.Message.Usage.CacheReadInputTokens
				}

			case "content_block_start":
				if event.ContentBlock == nil {
					continue
				}
				switch event.ContentBlock.Type {
				case "text":
					state = stateTextBlock
				case "tool_use":
					// ID and name appear only on this event, never on the
					// argument deltas, so the header chunk goes out now.
					state = stateToolBlock
					toolIndex++
					if !yield(ai.Chunk{
						Model: model,
						ToolCalls: []ai.ToolCallDelta{{
							Index: toolIndex,
							ID:    event.ContentBlock.ID,
							Name:  event.ContentBlock.Name,
						}},
					}, nil) {
						return
					}
				default:
					state = stateIdle
				}

			case "content_block_delta":
				if event.Delta == nil {
					continue
				}
				switch event.Delta.Type {
				case "text_delta":
					if state != stateTextBlock {
						yield(ai.Chunk{}, &ai.ProtocolError{
							Provider: providerID,
							Reason:   "text delta outside an open text block",
						})
						return
					}
					if event.Delta.Text == "" {
						continue
					}
					if !yield(ai.Chunk{Model: model, Content: event.Delta.Text}, nil) {
						return
					}

				case "input_json_delta":
					if state != stateToolBlock || toolIndex < 0 {
						yield(ai.Chunk{}, &ai.ProtocolError{
							Provider: providerID,
							Reason:   "argument delta with no open tool call",
						})
						return
					}
					if event.Delta.PartialJSON == "" {
						continue
					}
					if !yield(ai.Chunk{
						Model: model,
						ToolCalls: []ai.ToolCallDelta{{
							Index:     toolIndex,
							Arguments: event.Delta.PartialJSON,
						}},
					}, nil) {
						return
					}
				}

			case "content_block_stop":
				state = stateIdle

			case "message_delta":
				// Final output token count and stop reason; recorded here,
				// emitted with the terminal chunk on message_stop.
				if event.Usage != nil {
					completionTokens = event.Usage.OutputTokens
				}
				if event.Delta != nil && event.Delta.StopReason != "" {
					stopReason = event.Delta.StopReason
				}

			case "message_stop":
				yield(ai.Chunk{
					Model:        model,
					FinishReason: mapStopReason(stopReason),
					Usage:        ai.NewUsage(promptTokens, completionTokens, cachedTokens),
				}, nil)
				return

			case "error":
				message := "unknown stream error"
				if event.Error != nil {
					message = event.Error.Message
					if event.Error.Type != "" {
						message = fmt.Sprintf("%s (%s)", event.Error.Message, event.Error.Type)
					}
				}
				yield(ai.Chunk{}, &ai.UpstreamError{Provider: providerID, Message: message})
				return

			case "ping":
				// Keep-alive.

			default:
				// Unknown event types are skipped for forward compatibility.
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}
