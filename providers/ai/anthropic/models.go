package anthropic

import (
	"encoding/json"
	"time"
)

/*
	ANTHROPIC MESSAGES API - REQUEST TYPES
*/

// anthropicRequest is the request body for the Messages API.
type anthropicRequest struct {
	Model         string                  `json:"model"`
	Messages      []anthropicMessage      `json:"messages"`
	System        []anthropicContentBlock `json:"system,omitempty"`
	MaxTokens     int                     `json:"max_tokens"` // Required by Anthropic on every request
	Temperature   *float64                `json:"temperature,omitempty"`
	TopP          *float64                `json:"top_p,omitempty"`
	TopK          *int                    `json:"top_k,omitempty"`
	StopSequences []string                `json:"stop_sequences,omitempty"`
	Tools         []anthropicTool         `json:"tools,omitempty"`
	ToolChoice    *anthropicToolChoice    `json:"tool_choice,omitempty"`
	Stream        bool                    `json:"stream,omitempty"`
}

// anthropicMessage is a single conversation turn. Anthropic accepts only
// "user" and "assistant" roles and requires them to alternate.
type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

// anthropicContentBlock is a discriminated union via the Type field:
//   - "text": Text + optional CacheControl
//   - "image": Source (base64 or url)
//   - "tool_use": ID, Name, Input
//   - "tool_result": ToolUseID, Content, IsError
type anthropicContentBlock struct {
	Type         string                 `json:"type"`
	Text         string                 `json:"text,omitempty"`
	Source       *anthropicSource       `json:"source,omitempty"`
	ID           string                 `json:"id,omitempty"`
	Name         string                 `json:"name,omitempty"`
	Input        json.RawMessage        `json:"input,omitempty"`
	ToolUseID    string                 `json:"tool_use_id,omitempty"`
	Content      json.RawMessage        `json:"content,omitempty"`
	IsError      bool                   `json:"is_error,omitempty"`
	CacheControl *anthropicCacheControl `json:"cache_control,omitempty"`
}

// anthropicSource is a media source, inline base64 or URL reference.
type anthropicSource struct {
	Type      string `json:"type"` // "base64" or "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// anthropicCacheControl marks a content block or tool definition as a prompt
// cache breakpoint.
type anthropicCacheControl struct {
	Type string `json:"type"` // "ephemeral"
}

// anthropicTool declares a tool available to the model.
type anthropicTool struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	InputSchema  json.RawMessage        `json:"input_schema"` // Required; JSON Schema of the arguments
	CacheControl *anthropicCacheControl `json:"cache_control,omitempty"`
}

// anthropicToolChoice constrains which tool the model may use.
type anthropicToolChoice struct {
	Type string `json:"type"`           // "auto", "any", "none", "tool"
	Name string `json:"name,omitempty"` // Only for type="tool"
}

/*
	ANTHROPIC MESSAGES API - RESPONSE TYPES
*/

// anthropicResponse is the non-streaming Messages API response. The same
// shape appears inside the message_start stream event.
type anthropicResponse struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"` // "message"
	Role         string                 `json:"role"` // "assistant"
	Content      []responseContentBlock `json:"content"`
	Model        string                 `json:"model"`
	StopReason   string                 `json:"stop_reason"`
	StopSequence string                 `json:"stop_sequence,omitempty"`
	Usage        anthropicUsage         `json:"usage"`
}

// responseContentBlock is a response content block, discriminated by Type.
// Unknown types are skipped during conversion for forward compatibility.
type responseContentBlock struct {
	Type  string          `json:"type"` // "text", "tool_use"
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// anthropicUsage reports token consumption. The cache counters are
// sub-counts of InputTokens, surfaced so the canonical CachedTokens field
// can carry them.
type anthropicUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

/*
	ANTHROPIC MODELS API
*/

// anthropicModelsPage is one page of the GET /models listing.
type anthropicModelsPage struct {
	Data    []anthropicModelEntry `json:"data"`
	HasMore bool                  `json:"has_more"`
	LastID  string                `json:"last_id"`
}

// anthropicModelEntry is one model in the listing.
type anthropicModelEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CreatedAt   string `json:"created_at"` // RFC 3339
}

// createdUnix parses the RFC 3339 creation timestamp, 0 when absent or
// unparseable.
func (e anthropicModelEntry) createdUnix() int64 {
	if e.CreatedAt == "" {
		return 0
	}
	created, err := time.Parse(time.RFC3339, e.CreatedAt)
	if err != nil {
		return 0
	}
	return created.Unix()
}
