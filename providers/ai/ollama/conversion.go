package ollama

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"

	"github.com/modelmux/modelmux/internal/jsonschema"
	"github.com/modelmux/modelmux/internal/utils"
	"github.com/modelmux/modelmux/providers/ai"
)

func requestToOllamaChat(request ai.ChatRequest, stream bool) (api.ChatRequest, error) {
	messages, err := buildOllamaMessages(request.Messages)
	if err != nil {
		return api.ChatRequest{}, err
	}

	wireRequest := api.ChatRequest{
		Model:    request.Model,
		Messages: messages,
		Stream:   utils.Ptr(stream),
		Options:  buildOllamaOptions(request.GenerationConfig),
	}

	// The daemon has no tool_choice knob. "none" is honored by withholding
	// the tools; the forcing modes cannot be expressed and the model
	// decides.
	toolsDisabled := request.ToolChoice != nil && request.ToolChoice.Mode == ai.ToolChoiceNone
	if len(request.Tools) > 0 && !toolsDisabled {
		tools, err := buildOllamaTools(request.Tools)
		if err != nil {
			return api.ChatRequest{}, err
		}
		wireRequest.Tools = tools
	}

	return wireRequest, nil
}

func buildOllamaMessages(messages []ai.Message) ([]api.Message, error) {
	result := make([]api.Message, 0, len(messages))

	for index, message := range messages {
		wireMessage := api.Message{Role: string(message.Role)}

		if len(message.ContentParts) > 0 {
			var text strings.Builder
			for _, part := range message.ContentParts {
				switch part.Type {
				case ai.ContentTypeText:
					text.WriteString(part.Text)
				case ai.ContentTypeImage:
					if part.Image == nil || part.Image.Data == "" {
						// The daemon only takes inline image bytes; a
						// URL-only image has nothing to send.
						continue
					}
					decoded, err := base64.StdEncoding.DecodeString(part.Image.Data)
					if err != nil {
						return nil, &ai.ValidationError{
							Field:  fmt.Sprintf("messages[%d].content_parts", index),
							Reason: fmt.Sprintf("invalid base64 image data: %v", err),
						}
					}
					wireMessage.Images = append(wireMessage.Images, api.ImageData(decoded))
				}
			}
			wireMessage.Content = text.String()
		} else {
			wireMessage.Content = message.Content
		}

		if len(message.ToolCalls) > 0 {
			wireCalls, err := buildOllamaToolCalls(message.ToolCalls)
			if err != nil {
				return nil, err
			}
			wireMessage.ToolCalls = wireCalls
		}

		result = append(result, wireMessage)
	}

	return result, nil
}

// buildOllamaToolCalls converts assistant tool calls through their JSON
// form. Round-tripping keeps this package off the SDK's argument types,
// which have changed shape between releases.
func buildOllamaToolCalls(toolCalls []ai.ToolCall) ([]api.ToolCall, error) {
	payload := make([]map[string]any, 0, len(toolCalls))
	for _, toolCall := range toolCalls {
		arguments := toolCall.Function.Arguments
		if arguments == "" {
			arguments = "{}"
		}
		payload = append(payload, map[string]any{
			"function": map[string]any{
				"name":      toolCall.Function.Name,
				"arguments": json.RawMessage(arguments),
			},
		})
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool calls: %w", err)
	}
	var wireCalls []api.ToolCall
	if err := json.Unmarshal(encoded, &wireCalls); err != nil {
		return nil, fmt.Errorf("failed to encode tool calls: %w", err)
	}
	return wireCalls, nil
}

// buildOllamaTools converts tool declarations the same way, keeping the
// schema JSON authoritative.
func buildOllamaTools(tools []ai.ToolDescription) (api.Tools, error) {
	payload := make([]map[string]any, 0, len(tools))
	for _, tool := range tools {
		parameters := tool.Parameters
		if parameters == nil {
			parameters = jsonschema.Object()
		}
		payload = append(payload, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters":  parameters,
			},
		})
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tools: %w", err)
	}
	var wireTools api.Tools
	if err := json.Unmarshal(encoded, &wireTools); err != nil {
		return nil, fmt.Errorf("failed to encode tools: %w", err)
	}
	return wireTools, nil
}

// buildOllamaOptions maps the sampling parameters onto the daemon's options
// map. Unset values are omitted so the modelfile defaults apply.
func buildOllamaOptions(config *ai.GenerationConfig) map[string]any {
	if config == nil {
		return nil
	}

	options := map[string]any{}
	if config.Temperature > 0 {
		options["temperature"] = config.Temperature
	}
	if config.TopP > 0 {
		options["top_p"] = config.TopP
	}
	if config.TopK > 0 {
		options["top_k"] = config.TopK
	}
	if config.MaxTokens > 0 {
		options["num_predict"] = config.MaxTokens
	}
	if config.FrequencyPenalty != 0 {
		options["frequency_penalty"] = config.FrequencyPenalty
	}
	if config.PresencePenalty != 0 {
		options["presence_penalty"] = config.PresencePenalty
	}
	if stop := ai.FilterStopSequences(config.Stop); len(stop) > 0 {
		options["stop"] = stop
	}

	if len(options) == 0 {
		return nil
	}
	return options
}

// toolCallsToGeneric converts daemon tool calls, which arrive complete with
// structured arguments and no call IDs; IDs are generated so downstream tool
// dispatch can correlate results.
func toolCallsToGeneric(wireCalls []api.ToolCall) []ai.ToolCall {
	if len(wireCalls) == 0 {
		return nil
	}

	result := make([]ai.ToolCall, 0, len(wireCalls))
	for _, wireCall := range wireCalls {
		result = append(result, ai.ToolCall{
			ID:   "call_" + uuid.NewString(),
			Type: "function",
			Function: ai.ToolCallFunction{
				Name:      wireCall.Function.Name,
				Arguments: marshalToolArguments(wireCall.Function.Arguments),
			},
		})
	}
	return result
}

func marshalToolArguments(arguments any) string {
	encoded, err := json.Marshal(arguments)
	if err != nil || string(encoded) == "null" {
		return "{}"
	}
	return string(encoded)
}

// mapDoneReason maps the daemon's done_reason onto the canonical finish
// vocabulary.
func mapDoneReason(doneReason string) string {
	switch doneReason {
	case "length":
		return "length"
	default:
		return "stop"
	}
}

func chatFinishReason(sawToolCalls bool, doneReason string) string {
	if sawToolCalls {
		return "tool_calls"
	}
	return mapDoneReason(doneReason)
}
