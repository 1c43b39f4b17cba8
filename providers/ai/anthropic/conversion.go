package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelmux/modelmux/providers/ai"
)

// defaultMaxTokens is used when the caller sets no limit. Anthropic requires
// max_tokens on every request.
const defaultMaxTokens = 4096

// emptyObjectSchema is sent when a tool declares no parameters; Anthropic
// requires input_schema on every tool.
var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// requestToAnthropic converts a canonical chat request into the Messages
// wire format. The system prompt moves to the top-level system field; unset
// sampling parameters are omitted so Anthropic's defaults apply.
func requestToAnthropic(request ai.ChatRequest) (anthropicRequest, error) {
	wireRequest := anthropicRequest{
		Model:     request.Model,
		Messages:  buildMessages(request.Messages),
		MaxTokens: defaultMaxTokens,
	}

	// The system field uses the content-block array form so that the caching
	// layer can attach cache_control without re-encoding.
	if systemPrompt := request.SystemPrompt(); systemPrompt != "" {
		wireRequest.System = []anthropicContentBlock{{Type: "text", Text: systemPrompt}}
	}

	if config := request.GenerationConfig; config != nil {
		if config.Temperature > 0 {
			temperature := config.Temperature
			wireRequest.Temperature = &temperature
		}
		if config.TopP > 0 {
			topP := config.TopP
			wireRequest.TopP = &topP
		}
		if config.TopK > 0 {
			topK := config.TopK
			wireRequest.TopK = &topK
		}
		if config.MaxTokens > 0 {
			wireRequest.MaxTokens = config.MaxTokens
		}
		wireRequest.StopSequences = ai.FilterStopSequences(config.Stop)
	}

	if len(request.Tools) > 0 {
		tools, err := buildAnthropicTools(request.Tools)
		if err != nil {
			return anthropicRequest{}, err
		}
		wireRequest.Tools = tools
		wireRequest.ToolChoice = buildAnthropicToolChoice(request.ToolChoice)
	}

	return wireRequest, nil
}

// buildMessages converts canonical messages into Anthropic message objects.
//
// System messages are skipped here; the first one is carried in the
// top-level system field. Anthropic requires strictly alternating
// user/assistant turns, so consecutive tool results are merged into a single
// user message with multiple tool_result blocks, the only layout the API
// accepts.
func buildMessages(messages []ai.Message) []anthropicMessage {
	var result []anthropicMessage

	for _, message := range messages {
		switch message.Role {
		case ai.RoleSystem:
			// Carried in the system field.

		case ai.RoleUser:
			userMessage := anthropicMessage{Role: "user"}
			if len(message.ContentParts) > 0 {
				userMessage.Content = contentPartsToBlocks(message.ContentParts)
			} else {
				userMessage.Content = []anthropicContentBlock{{Type: "text", Text: message.Content}}
			}
			result = append(result, userMessage)

		case ai.RoleAssistant:
			assistantMessage := anthropicMessage{Role: "assistant"}

			for _, toolCall := range message.ToolCalls {
				input := json.RawMessage(toolCall.Function.Arguments)
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				assistantMessage.Content = append(assistantMessage.Content, anthropicContentBlock{
					Type:  "tool_use",
					ID:    toolCall.ID,
					Name:  toolCall.Function.Name,
					Input: input,
				})
			}

			if len(message.ContentParts) > 0 {
				assistantMessage.Content = append(assistantMessage.Content, contentPartsToBlocks(message.ContentParts)...)
			} else if message.Content != "" {
				assistantMessage.Content = append(assistantMessage.Content, anthropicContentBlock{
					Type: "text",
					Text: message.Content,
				})
			}

			if len(assistantMessage.Content) > 0 {
				result = append(result, assistantMessage)
			}

		case ai.RoleTool:
			// Encode the result as a JSON string so the content field always
			// holds a well-formed JSON value.
			resultContent, err := json.Marshal(message.Content)
			if err != nil {
				resultContent = []byte(`""`)
			}
			toolResultBlock := anthropicContentBlock{
				Type:      "tool_result",
				ToolUseID: message.ToolCallID,
				Content:   resultContent,
			}

			if len(result) > 0 && isAllToolResults(result[len(result)-1]) {
				result[len(result)-1].Content = append(result[len(result)-1].Content, toolResultBlock)
			} else {
				result = append(result, anthropicMessage{
					Role:    "user",
					Content: []anthropicContentBlock{toolResultBlock},
				})
			}
		}
	}

	return result
}

// isAllToolResults reports whether every block in the message is a
// tool_result, identifying a mergeable tool-result turn.
func isAllToolResults(message anthropicMessage) bool {
	if message.Role != "user" || len(message.Content) == 0 {
		return false
	}
	for _, block := range message.Content {
		if block.Type != "tool_result" {
			return false
		}
	}
	return true
}

// contentPartsToBlocks converts multimodal content parts into Anthropic
// content blocks. Unknown part types are skipped.
func contentPartsToBlocks(parts []ai.ContentPart) []anthropicContentBlock {
	var blocks []anthropicContentBlock

	for _, part := range parts {
		switch part.Type {
		case ai.ContentTypeText:
			blocks = append(blocks, anthropicContentBlock{Type: "text", Text: part.Text})

		case ai.ContentTypeImage:
			if part.Image == nil {
				continue
			}
			block := anthropicContentBlock{Type: "image"}
			if part.Image.URL != "" {
				block.Source = &anthropicSource{Type: "url", URL: part.Image.URL}
			} else {
				block.Source = &anthropicSource{
					Type:      "base64",
					MediaType: part.Image.MimeType,
					Data:      part.Image.Data,
				}
			}
			blocks = append(blocks, block)
		}
	}

	return blocks
}

// buildAnthropicTools converts tool declarations to the wire shape. Tools
// without parameters get the empty object schema Anthropic requires.
func buildAnthropicTools(tools []ai.ToolDescription) ([]anthropicTool, error) {
	result := make([]anthropicTool, 0, len(tools))

	for _, tool := range tools {
		entry := anthropicTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: emptyObjectSchema,
		}
		if tool.Parameters != nil {
			schemaBytes, err := json.Marshal(tool.Parameters)
			if err != nil {
				return nil, fmt.Errorf("failed to encode schema for tool %q: %w", tool.Name, err)
			}
			entry.InputSchema = schemaBytes
		}
		result = append(result, entry)
	}

	return result, nil
}

// buildAnthropicToolChoice maps the canonical tool choice to the wire form.
// Nil (or an empty mode) lets the API default to "auto".
func buildAnthropicToolChoice(choice *ai.ToolChoice) *anthropicToolChoice {
	if choice == nil {
		return nil
	}
	switch choice.Mode {
	case ai.ToolChoiceAuto:
		return &anthropicToolChoice{Type: "auto"}
	case ai.ToolChoiceAny:
		return &anthropicToolChoice{Type: "any"}
	case ai.ToolChoiceNone:
		return &anthropicToolChoice{Type: "none"}
	case ai.ToolChoiceTool:
		return &anthropicToolChoice{Type: "tool", Name: choice.Name}
	default:
		return nil
	}
}

// anthropicToGeneric converts a Messages API response to the canonical
// format. Multiple text blocks are joined with newlines; unknown block types
// are skipped for forward compatibility.
func anthropicToGeneric(response anthropicResponse) *ai.ChatResponse {
	result := &ai.ChatResponse{
		ID:      response.ID,
		Model:   response.Model,
		Created: time.Now().Unix(),
	}

	var textParts []string
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			textParts = append(textParts, block.Text)

		case "tool_use":
			arguments := string(block.Input)
			if arguments == "" {
				arguments = "{}"
			}
			result.ToolCalls = append(result.ToolCalls, ai.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: ai.ToolCallFunction{
					Name:      block.Name,
					Arguments: arguments,
				},
			})
		}
	}

	result.Content = strings.Join(textParts, "\n")
	result.FinishReason = mapStopReason(response.StopReason)
	result.Usage = ai.NewUsage(
		response.Usage.InputTokens,
		response.Usage.OutputTokens,
		response.Usage.CacheCreationInputTokens+response.Usage.CacheReadInputTokens,
	)

	return result
}

// mapStopReason converts an Anthropic stop_reason to the canonical finish
// reason vocabulary.
func mapStopReason(stopReason string) string {
	switch stopReason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "tool_use":
		return "tool_calls"
	case "max_tokens":
		return "length"
	default:
		return "stop"
	}
}
