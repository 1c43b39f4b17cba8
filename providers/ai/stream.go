package ai

import (
	"iter"
	"strings"
)

// ToolCallDelta is an incremental update to a tool call being streamed. The
// Index field identifies which call is being updated (a response may stream
// several). ID and Name are only present on the first fragment for a given
// index; later fragments carry only Arguments pieces, which concatenate in
// arrival order into the call's JSON argument document.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Chunk is one increment of a streaming response. Ordinary chunks carry a
// Content fragment or tool-call deltas. The terminal chunk, exactly one per
// stream and always the last element, carries the aggregated Usage and the
// finish reason, and no content.
type Chunk struct {
	Model        string          `json:"model,omitempty"`
	Content      string          `json:"content,omitempty"`
	ToolCalls    []ToolCallDelta `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
}

// Terminal reports whether this is the stream's terminal chunk.
func (c Chunk) Terminal() bool {
	return c.Usage != nil
}

// ChatStream is a lazy, single-consumer, forward-only chunk sequence.
// Nothing is decoded until the caller iterates; between chunks the stream is
// suspended on network I/O.
//
// Callers must consume the stream, either by ranging over [ChatStream.Iter]
// (breaking out early is fine) or by calling [ChatStream.Collect]. The
// producer holds an open HTTP response body that is only released when the
// iterator completes or is abandoned via a loop break; constructing a
// ChatStream and never iterating it leaks that connection.
//
// Cancelling the request context mid-stream ends iteration quietly: no
// further chunks, no error. Decode state lives inside the iterator and is
// discarded with it, so a ChatStream cannot be iterated twice.
type ChatStream struct {
	iterator iter.Seq2[Chunk, error]
}

// NewChatStream wraps a raw chunk iterator. The iterator yields chunks with
// a nil error for normal progress and may yield one non-nil error to signal
// a mid-stream failure, after which it must stop.
func NewChatStream(iterator iter.Seq2[Chunk, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewSingleChunkStream adapts a complete response into a stream: one chunk
// per payload kind followed by the terminal chunk. Used as a fallback when a
// provider has no streaming endpoint for an operation.
func NewSingleChunkStream(response *ChatResponse) *ChatStream {
	iteratorFunc := func(yield func(Chunk, error) bool) {
		if response.Content != "" {
			if !yield(Chunk{Model: response.Model, Content: response.Content}, nil) {
				return
			}
		}

		for toolIndex, toolCall := range response.ToolCalls {
			if !yield(Chunk{
				Model: response.Model,
				ToolCalls: []ToolCallDelta{{
					Index:     toolIndex,
					ID:        toolCall.ID,
					Name:      toolCall.Function.Name,
					Arguments: toolCall.Function.Arguments,
				}},
			}, nil) {
				return
			}
		}

		usage := response.Usage
		if usage == nil {
			usage = NewUsage(0, 0, 0)
		}
		yield(Chunk{Model: response.Model, FinishReason: response.FinishReason, Usage: usage}, nil)
	}

	return NewChatStream(iteratorFunc)
}

// Iter returns the underlying iterator for range-over-func loops.
//
// Example:
//
//	for chunk, err := range stream.Iter() {
//	    if err != nil { /* handle */ }
//	    fmt.Print(chunk.Content)
//	}
func (stream *ChatStream) Iter() iter.Seq2[Chunk, error] {
	return stream.iterator
}

// Collect consumes the entire stream and reassembles the complete response:
// content fragments are joined, tool-call deltas are accumulated into full
// calls with valid JSON arguments, and the terminal chunk supplies usage and
// finish reason. A mid-stream error terminates collection and returns the
// partial response alongside the error.
func (stream *ChatStream) Collect() (*ChatResponse, error) {
	accumulated := &ChatResponse{}
	accumulator := NewToolCallAccumulator()
	var content strings.Builder

	for chunk, err := range stream.iterator {
		if err != nil {
			accumulated.Content = content.String()
			return accumulated, err
		}

		if accumulated.Model == "" && chunk.Model != "" {
			accumulated.Model = chunk.Model
		}

		content.WriteString(chunk.Content)

		for _, delta := range chunk.ToolCalls {
			accumulator.Add(delta)
		}

		if chunk.FinishReason != "" {
			accumulated.FinishReason = chunk.FinishReason
		}
		if chunk.Usage != nil {
			accumulated.Usage = chunk.Usage
		}
	}

	accumulated.Content = content.String()

	toolCalls, err := accumulator.Finalize()
	if err != nil {
		return accumulated, err
	}
	accumulated.ToolCalls = toolCalls

	return accumulated, nil
}
