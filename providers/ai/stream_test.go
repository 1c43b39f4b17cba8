package ai

import (
	"encoding/json"
	"errors"
	"testing"
)

func chunkStream(chunks ...Chunk) *ChatStream {
	return NewChatStream(func(yield func(Chunk, error) bool) {
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
	})
}

func TestChatStreamCollect(t *testing.T) {
	stream := chunkStream(
		Chunk{Model: "test-model", Content: "Hello"},
		Chunk{Content: ", world"},
		Chunk{ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_1", Name: "get_weather", Arguments: `{"city":`}}},
		Chunk{ToolCalls: []ToolCallDelta{{Index: 0, Arguments: `"Paris"}`}}},
		Chunk{FinishReason: "tool_calls", Usage: NewUsage(12, 7, 0)},
	)

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if response.Model != "test-model" {
		t.Errorf("model = %q, want %q", response.Model, "test-model")
	}
	if response.Content != "Hello, world" {
		t.Errorf("content = %q, want %q", response.Content, "Hello, world")
	}
	if response.FinishReason != "tool_calls" {
		t.Errorf("finish reason = %q, want %q", response.FinishReason, "tool_calls")
	}
	if response.Usage == nil {
		t.Fatal("expected usage on collected response")
	}
	if response.Usage.TotalTokens != 19 {
		t.Errorf("total tokens = %d, want 19", response.Usage.TotalTokens)
	}

	if len(response.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(response.ToolCalls))
	}
	call := response.ToolCalls[0]
	if call.ID != "call_1" || call.Function.Name != "get_weather" {
		t.Errorf("unexpected tool call header: %+v", call)
	}
	if call.Function.Arguments != `{"city":"Paris"}` {
		t.Errorf("arguments = %q, want %q", call.Function.Arguments, `{"city":"Paris"}`)
	}
}

func TestChatStreamCollectMidStreamError(t *testing.T) {
	streamErr := errors.New("connection reset")
	stream := NewChatStream(func(yield func(Chunk, error) bool) {
		if !yield(Chunk{Content: "partial"}, nil) {
			return
		}
		yield(Chunk{}, streamErr)
	})

	response, err := stream.Collect()
	if !errors.Is(err, streamErr) {
		t.Fatalf("error = %v, want %v", err, streamErr)
	}
	if response.Content != "partial" {
		t.Errorf("partial content = %q, want %q", response.Content, "partial")
	}
}

func TestChatStreamEarlyBreak(t *testing.T) {
	yielded := 0
	stream := NewChatStream(func(yield func(Chunk, error) bool) {
		for {
			yielded++
			if !yield(Chunk{Content: "x"}, nil) {
				return
			}
		}
	})

	for range stream.Iter() {
		break
	}

	if yielded != 1 {
		t.Errorf("producer yielded %d chunks after break, want 1", yielded)
	}
}

func TestNewSingleChunkStream(t *testing.T) {
	response := &ChatResponse{
		Model:   "test-model",
		Content: "The answer",
		ToolCalls: []ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: ToolCallFunction{Name: "lookup", Arguments: `{"q":"x"}`},
		}},
		FinishReason: "stop",
		Usage:        NewUsage(5, 3, 0),
	}

	var chunks []Chunk
	for chunk, err := range NewSingleChunkStream(response).Iter() {
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[0].Content != "The answer" {
		t.Errorf("first chunk content = %q", chunks[0].Content)
	}
	if len(chunks[1].ToolCalls) != 1 || chunks[1].ToolCalls[0].Name != "lookup" {
		t.Errorf("second chunk tool calls = %+v", chunks[1].ToolCalls)
	}

	terminal := chunks[len(chunks)-1]
	if !terminal.Terminal() {
		t.Fatal("last chunk is not terminal")
	}
	if terminal.FinishReason != "stop" {
		t.Errorf("terminal finish reason = %q, want %q", terminal.FinishReason, "stop")
	}
	for _, chunk := range chunks[:len(chunks)-1] {
		if chunk.Terminal() {
			t.Error("non-final chunk reported as terminal")
		}
	}
}

func TestNewSingleChunkStreamMissingUsage(t *testing.T) {
	stream := NewSingleChunkStream(&ChatResponse{Model: "m", Content: "hi"})

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if response.Usage == nil {
		t.Fatal("terminal chunk must carry usage even when the source response had none")
	}
	if response.Usage.TotalTokens != 0 {
		t.Errorf("synthesized usage total = %d, want 0", response.Usage.TotalTokens)
	}
}

func TestChunkJSONOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(Chunk{Content: "hi"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"content":"hi"}` {
		t.Errorf("marshaled chunk = %s", data)
	}
}
