package openai

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelmux/modelmux/internal/jsonschema"
	"github.com/modelmux/modelmux/providers/ai"
)

func TestRequestToChatCompletionKeepsFirstSystemMessage(t *testing.T) {
	request := ai.ChatRequest{
		Model: "gpt-4o",
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "You are terse."},
			{Role: ai.RoleUser, Content: "Hi"},
			{Role: ai.RoleSystem, Content: "Actually, be verbose."},
			{Role: ai.RoleUser, Content: "Go on"},
		},
	}

	wireRequest := requestToChatCompletion(request)

	if len(wireRequest.Messages) != 3 {
		t.Fatalf("got %d messages, want 3 (second system dropped)", len(wireRequest.Messages))
	}
	if wireRequest.Messages[0].Role != "system" {
		t.Errorf("first message role = %q, want system", wireRequest.Messages[0].Role)
	}
	if got := wireRequest.Messages[0].Content; got != "You are terse." {
		t.Errorf("system content = %v, want the first system message", got)
	}
	if wireRequest.Messages[2].Role != "user" || wireRequest.Messages[2].Content != "Go on" {
		t.Errorf("third message = %+v, want the trailing user turn", wireRequest.Messages[2])
	}
}

func TestRequestToChatCompletionSampling(t *testing.T) {
	request := ai.ChatRequest{
		Model:    "gpt-4o",
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "Hi"}},
		GenerationConfig: &ai.GenerationConfig{
			Temperature:     0.7,
			MaxTokens:       256,
			PresencePenalty: -0.5,
		},
	}

	wireRequest := requestToChatCompletion(request)

	if wireRequest.Temperature == nil || *wireRequest.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", wireRequest.Temperature)
	}
	if wireRequest.MaxTokens == nil || *wireRequest.MaxTokens != 256 {
		t.Errorf("max_tokens = %v, want 256", wireRequest.MaxTokens)
	}
	if wireRequest.PresencePenalty == nil || *wireRequest.PresencePenalty != -0.5 {
		t.Errorf("presence_penalty = %v, want -0.5 (negative values are meaningful)", wireRequest.PresencePenalty)
	}
	if wireRequest.TopP != nil {
		t.Errorf("top_p = %v, want omitted when unset", *wireRequest.TopP)
	}
	if wireRequest.FrequencyPenalty != nil {
		t.Errorf("frequency_penalty = %v, want omitted when unset", *wireRequest.FrequencyPenalty)
	}
}

func TestRequestToChatCompletionStopFiltering(t *testing.T) {
	request := ai.ChatRequest{
		Model:            "gpt-4o",
		Messages:         []ai.Message{{Role: ai.RoleUser, Content: "Hi"}},
		GenerationConfig: &ai.GenerationConfig{Stop: []string{"", "", ""}},
	}

	payload, err := json.Marshal(requestToChatCompletion(request))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, present := fields["stop"]; present {
		t.Error("all-blank stop list must not produce a stop field on the wire")
	}
}

func TestBuildChatMessagesToolFlow(t *testing.T) {
	messages := []ai.Message{
		{Role: ai.RoleUser, Content: "Weather in Paris?"},
		{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: ai.ToolCallFunction{Name: "get_weather", Arguments: `{"city":"Paris"}`},
		}}},
		{Role: ai.RoleTool, Content: `{"temp_c":18}`, ToolCallID: "call_1"},
	}

	wireMessages := buildChatMessages(messages)
	if len(wireMessages) != 3 {
		t.Fatalf("got %d messages, want 3", len(wireMessages))
	}

	assistant := wireMessages[1]
	if len(assistant.ToolCalls) != 1 {
		t.Fatalf("assistant carries %d tool calls, want 1", len(assistant.ToolCalls))
	}
	if assistant.ToolCalls[0].Function.Name != "get_weather" {
		t.Errorf("tool call name = %q, want get_weather", assistant.ToolCalls[0].Function.Name)
	}

	// A tool-call-only assistant turn must not put a content field on the
	// wire; some providers reject an empty string there.
	payload, err := json.Marshal(assistant)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, present := fields["content"]; present {
		t.Errorf("tool-call-only assistant turn carries content: %s", payload)
	}

	tool := wireMessages[2]
	if tool.Role != "tool" || tool.ToolCallID != "call_1" {
		t.Errorf("tool turn = %+v, want role=tool tool_call_id=call_1", tool)
	}
	if tool.Content != `{"temp_c":18}` {
		t.Errorf("tool content = %v, want the result document", tool.Content)
	}
}

func TestBuildContentParts(t *testing.T) {
	parts := []ai.ContentPart{
		{Type: ai.ContentTypeText, Text: "What is this?"},
		{Type: ai.ContentTypeImage, Image: &ai.ImageContent{URL: "https://example.com/cat.png"}},
		{Type: ai.ContentTypeImage, Image: &ai.ImageContent{MimeType: "image/png", Data: "aGVsbG8="}},
		{Type: ai.ContentTypeImage, Image: nil},
	}

	wireParts := buildContentParts(parts)
	if len(wireParts) != 3 {
		t.Fatalf("got %d parts, want 3 (nil image skipped)", len(wireParts))
	}
	if wireParts[0].Type != "text" || wireParts[0].Text != "What is this?" {
		t.Errorf("text part = %+v", wireParts[0])
	}
	if wireParts[1].ImageURL == nil || wireParts[1].ImageURL.URL != "https://example.com/cat.png" {
		t.Errorf("url image part = %+v", wireParts[1])
	}
	if wireParts[2].ImageURL == nil || wireParts[2].ImageURL.URL != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("inline image part = %+v, want a data URL", wireParts[2])
	}
}

func TestBuildChatToolChoice(t *testing.T) {
	tests := []struct {
		name   string
		choice *ai.ToolChoice
		want   any
	}{
		{"nil omits the field", nil, nil},
		{"zero mode omits the field", &ai.ToolChoice{}, nil},
		{"auto", &ai.ToolChoice{Mode: ai.ToolChoiceAuto}, "auto"},
		{"any maps to required", &ai.ToolChoice{Mode: ai.ToolChoiceAny}, "required"},
		{"none", &ai.ToolChoice{Mode: ai.ToolChoiceNone}, "none"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := buildChatToolChoice(test.choice); got != test.want {
				t.Errorf("buildChatToolChoice() = %v, want %v", got, test.want)
			}
		})
	}

	t.Run("forced tool uses the object form", func(t *testing.T) {
		choice := buildChatToolChoice(&ai.ToolChoice{Mode: ai.ToolChoiceTool, Name: "get_weather"})
		payload, err := json.Marshal(choice)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		want := `{"function":{"name":"get_weather"},"type":"function"}`
		if string(payload) != want {
			t.Errorf("forced tool choice = %s, want %s", payload, want)
		}
	})
}

func TestBuildChatTools(t *testing.T) {
	tools := buildChatTools([]ai.ToolDescription{{
		Name:        "get_weather",
		Description: "Current weather for a city",
		Parameters: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"city": {Type: "string"},
			},
			Required: []string{"city"},
		},
	}})

	if len(tools) != 1 {
		t.Fatalf("got %d tools, want 1", len(tools))
	}
	if tools[0].Type != "function" || tools[0].Function.Name != "get_weather" {
		t.Errorf("tool = %+v", tools[0])
	}

	payload, err := json.Marshal(tools[0])
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(payload), `"parameters"`) {
		t.Errorf("tool payload lacks parameters: %s", payload)
	}
}

func TestChatCompletionToGeneric(t *testing.T) {
	wireResponse := chatCompletionResponse{
		ID:      "chatcmpl-1",
		Object:  "chat.completion",
		Created: 1714000000,
		Model:   "gpt-4o-2024-08-06",
		Choices: []chatChoice{{
			Message: chatResponseMessage{
				Role:    "assistant",
				Content: "Hello!",
				ToolCalls: []chatToolCall{func() chatToolCall {
					call := chatToolCall{ID: "call_1", Type: "function"}
					call.Function.Name = "noop"
					return call
				}()},
			},
			FinishReason: "tool_calls",
		}},
		Usage: &chatUsage{
			PromptTokens:     100,
			CompletionTokens: 20,
			TotalTokens:      999, // wire total is never trusted
			PromptTokensDetails: &struct {
				CachedTokens int `json:"cached_tokens,omitempty"`
			}{CachedTokens: 60},
		},
	}

	response := chatCompletionToGeneric(wireResponse)

	if response.Content != "Hello!" {
		t.Errorf("content = %q", response.Content)
	}
	if response.FinishReason != "tool_calls" {
		t.Errorf("finish reason = %q, want tool_calls", response.FinishReason)
	}
	if response.Usage.TotalTokens != 120 {
		t.Errorf("total tokens = %d, want 120 recomputed", response.Usage.TotalTokens)
	}
	if response.Usage.CachedTokens != 60 {
		t.Errorf("cached tokens = %d, want 60", response.Usage.CachedTokens)
	}
	if len(response.ToolCalls) != 1 || response.ToolCalls[0].Function.Arguments != "{}" {
		t.Errorf("tool calls = %+v, want empty arguments replaced with {}", response.ToolCalls)
	}
}

func TestUsageToGenericMissingBlock(t *testing.T) {
	usage := usageToGeneric(nil)
	if usage == nil || usage.TotalTokens != 0 {
		t.Errorf("usage = %+v, want zero usage for missing block", usage)
	}
}

func TestNormalizeFinishReason(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"stop", "stop"},
		{"length", "length"},
		{"tool_calls", "tool_calls"},
		{"content_filter", "content_filter"},
		{"function_call", "tool_calls"},
		{"eos", "stop"},
		{"", "stop"},
	}
	for _, test := range tests {
		if got := normalizeFinishReason(test.raw); got != test.want {
			t.Errorf("normalizeFinishReason(%q) = %q, want %q", test.raw, got, test.want)
		}
	}
}

func TestBuildDataURL(t *testing.T) {
	if got := buildDataURL("image/jpeg", "Zm9v"); got != "data:image/jpeg;base64,Zm9v" {
		t.Errorf("buildDataURL = %q", got)
	}
	if got := buildDataURL("", "Zm9v"); got != "" {
		t.Errorf("buildDataURL without MIME type = %q, want empty", got)
	}
}
