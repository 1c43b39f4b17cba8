package ai

import (
	"github.com/modelmux/modelmux/internal/jsonschema"
)

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	// RoleSystem carries instructions that frame the whole conversation.
	// Only the first system message is honored; translators map it to the
	// vendor's dedicated system field when one exists.
	RoleSystem MessageRole = "system"
	// RoleUser is the human (or calling application) turn.
	RoleUser MessageRole = "user"
	// RoleAssistant is a model turn, possibly carrying tool calls.
	RoleAssistant MessageRole = "assistant"
	// RoleTool is a tool result answering a previous assistant tool call.
	RoleTool MessageRole = "tool"
)

// ContentType discriminates the variants of a ContentPart.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// ImageContent is an image attached to a message, either inline as base64
// data with its MIME type or as a URL reference.
type ImageContent struct {
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}

// ContentPart is one element of a multimodal message body.
type ContentPart struct {
	Type  ContentType   `json:"type"`
	Text  string        `json:"text,omitempty"`
	Image *ImageContent `json:"image,omitempty"`
}

// Message is a single conversation turn. Plain-text messages use Content;
// multimodal messages use ContentParts (which takes precedence when both are
// set). Assistant turns may carry ToolCalls; tool turns must reference the
// originating call via ToolCallID.
type Message struct {
	Role         MessageRole   `json:"role" validate:"required,oneof=system user assistant tool"`
	Content      string        `json:"content,omitempty"`
	ContentParts []ContentPart `json:"content_parts,omitempty"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID   string        `json:"tool_call_id,omitempty"`
}

// ToolCallFunction is the function invocation inside a ToolCall. Arguments is
// always a JSON text document; once a call has been fully assembled it is
// guaranteed to parse.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a completed model-issued tool invocation.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolDescription declares a tool the model may call. Parameters is the JSON
// Schema of the tool's arguments; nil means the tool takes none.
type ToolDescription struct {
	Name        string             `json:"name" validate:"required"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// ToolChoiceMode selects how the model may use the declared tools.
type ToolChoiceMode string

const (
	// ToolChoiceAuto lets the model decide whether to call a tool.
	ToolChoiceAuto ToolChoiceMode = "auto"
	// ToolChoiceAny forces the model to call some tool.
	ToolChoiceAny ToolChoiceMode = "any"
	// ToolChoiceNone forbids tool calls for this request.
	ToolChoiceNone ToolChoiceMode = "none"
	// ToolChoiceTool forces the model to call the tool named in Name.
	ToolChoiceTool ToolChoiceMode = "tool"
)

// ToolChoice constrains tool usage for one request. The zero value (empty
// Mode) behaves like ToolChoiceAuto.
type ToolChoice struct {
	Mode ToolChoiceMode `json:"mode" validate:"omitempty,oneof=auto any none tool"`
	Name string         `json:"name,omitempty"`
}

// GenerationConfig carries the optional sampling parameters. Zero values mean
// "not set": translators omit the field and the provider's default applies.
type GenerationConfig struct {
	Temperature      float64  `json:"temperature,omitempty"`
	TopP             float64  `json:"top_p,omitempty"`
	TopK             int      `json:"top_k,omitempty"`
	MaxTokens        int      `json:"max_tokens,omitempty" validate:"omitempty,gte=0"`
	FrequencyPenalty float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64  `json:"presence_penalty,omitempty"`
	Stop             []string `json:"stop,omitempty"`
}

// ChatRequest is the canonical chat-completion request. Translators convert
// it to the vendor wire format without retaining it, so callers may reuse or
// mutate a request after the call returns.
type ChatRequest struct {
	Model            string            `json:"model" validate:"required"`
	Messages         []Message         `json:"messages" validate:"required,min=1,dive"`
	Tools            []ToolDescription `json:"tools,omitempty" validate:"omitempty,dive"`
	ToolChoice       *ToolChoice       `json:"tool_choice,omitempty"`
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"`
}

// SystemPrompt returns the content of the first system message, or "" when
// the conversation has none. Later system messages are ignored.
func (r ChatRequest) SystemPrompt() string {
	for _, message := range r.Messages {
		if message.Role == RoleSystem {
			return message.Content
		}
	}
	return ""
}

// FilterStopSequences drops blank entries from a stop list. A configuration
// surface that leaves stop fields as empty strings must not produce a stop
// field on the wire, so translators call this before mapping; nil is
// returned when nothing remains.
func FilterStopSequences(stop []string) []string {
	var filtered []string
	for _, sequence := range stop {
		if sequence != "" {
			filtered = append(filtered, sequence)
		}
	}
	return filtered
}

// ChatResponse is the canonical non-streaming chat result.
type ChatResponse struct {
	ID           string     `json:"id"`
	Model        string     `json:"model"`
	Created      int64      `json:"created,omitempty"`
	Content      string     `json:"content,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *Usage     `json:"usage,omitempty"`
}

// Usage reports token consumption for one exchange. TotalTokens is always
// recomputed as PromptTokens + CompletionTokens; provider-reported totals
// are never trusted because vendors disagree on whether cached or reasoning
// tokens are included. CachedTokens is 0 for providers without prompt
// caching.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	CachedTokens     int `json:"cached_tokens,omitempty"`
}

// NewUsage builds a Usage with the canonical total.
func NewUsage(promptTokens, completionTokens, cachedTokens int) *Usage {
	return &Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		CachedTokens:     cachedTokens,
	}
}

// CompletionRequest is a legacy text-completion request (no conversation
// structure, a single prompt).
type CompletionRequest struct {
	Model            string            `json:"model" validate:"required"`
	Prompt           string            `json:"prompt" validate:"required"`
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"`
}

// CompletionResponse is the non-streaming legacy completion result.
type CompletionResponse struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	Created      int64  `json:"created,omitempty"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

// FIMRequest is a fill-in-the-middle completion request: the model completes
// the text between Prefix and Suffix. Used for code infill.
type FIMRequest struct {
	Model            string            `json:"model" validate:"required"`
	Prefix           string            `json:"prefix"`
	Suffix           string            `json:"suffix"`
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"`
}

// EmbedRequest asks for vector embeddings of one or more input texts.
type EmbedRequest struct {
	Model string   `json:"model" validate:"required"`
	Input []string `json:"input" validate:"required,min=1"`
}

// Embedding is one embedding vector, positioned by the index of its input.
type Embedding struct {
	Index  int       `json:"index"`
	Vector []float32 `json:"vector"`
}

// EmbedResponse carries the embedding vectors in input order.
type EmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings []Embedding `json:"embeddings"`
	Usage      *Usage      `json:"usage,omitempty"`
}

// RerankRequest scores documents by relevance to a query.
type RerankRequest struct {
	Model     string   `json:"model" validate:"required"`
	Query     string   `json:"query" validate:"required"`
	Documents []string `json:"documents" validate:"required,min=1"`
	TopK      int      `json:"top_k,omitempty"`
}

// RerankResult is one scored document; Index refers to the request's
// Documents slice.
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// RerankResponse lists results in descending relevance order.
type RerankResponse struct {
	Model   string         `json:"model"`
	Results []RerankResult `json:"results"`
	Usage   *Usage         `json:"usage,omitempty"`
}

// ModelInfo describes one model available from a provider.
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
	Created int64  `json:"created,omitempty"`
}
