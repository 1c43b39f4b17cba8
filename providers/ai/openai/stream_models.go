package openai

import "encoding/json"

/*
	CHAT COMPLETIONS STREAMING - WIRE TYPES

	With stream=true the endpoint emits SSE chunks terminated by a [DONE]
	sentinel. When stream_options.include_usage is set, the last data chunk
	before [DONE] carries the usage block and (usually) an empty choices
	array.
*/

// chatCompletionStreamChunk is one SSE data payload from /chat/completions.
type chatCompletionStreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"` // "chat.completion.chunk"
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
	Usage   *chatUsage     `json:"usage,omitempty"`
}

// streamChoice mirrors chatChoice but carries a delta instead of a message.
type streamChoice struct {
	Index        int             `json:"index"`
	Delta        chatStreamDelta `json:"delta"`
	FinishReason *string         `json:"finish_reason"` // nil until this choice's final chunk
}

// chatStreamDelta is the incremental payload of one chunk. Every field is
// optional; Content is a pointer to distinguish "" from absent.
type chatStreamDelta struct {
	Role      string               `json:"role,omitempty"`
	Content   *string              `json:"content,omitempty"`
	ToolCalls []streamToolCallPart `json:"tool_calls,omitempty"`
}

// streamToolCallPart is an incremental tool-call delta. The first part for
// an index carries ID and function name; later parts carry argument
// fragments only.
type streamToolCallPart struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// unmarshalStreamChunk parses one SSE data payload.
func unmarshalStreamChunk(payload string) (*chatCompletionStreamChunk, error) {
	var chunk chatCompletionStreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}
