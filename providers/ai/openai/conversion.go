package openai

import (
	"github.com/modelmux/modelmux/providers/ai"
)

// buildDataURL formats base64 data into a data URL for image inputs.
func buildDataURL(mimeType, data string) string {
	if mimeType == "" || data == "" {
		return ""
	}
	return "data:" + mimeType + ";base64," + data
}

// requestToChatCompletion converts a canonical chat request to the
// /chat/completions wire format. System messages after the first are
// dropped so conversations behave the same across providers with and
// without a dedicated system field.
func requestToChatCompletion(request ai.ChatRequest) chatCompletionRequest {
	wireRequest := chatCompletionRequest{
		Model:    request.Model,
		Messages: buildChatMessages(request.Messages),
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
		if config.MaxTokens > 0 {
			maxTokens := config.MaxTokens
			wireRequest.MaxTokens = &maxTokens
		}
		if config.FrequencyPenalty != 0 {
			penalty := config.FrequencyPenalty
			wireRequest.FrequencyPenalty = &penalty
		}
		if config.PresencePenalty != 0 {
			penalty := config.PresencePenalty
			wireRequest.PresencePenalty = &penalty
		}
		wireRequest.Stop = ai.FilterStopSequences(config.Stop)
	}

	if len(request.Tools) > 0 {
		wireRequest.Tools = buildChatTools(request.Tools)
		wireRequest.ToolChoice = buildChatToolChoice(request.ToolChoice)
	}

	return wireRequest
}

func buildChatMessages(messages []ai.Message) []chatMessage {
	result := make([]chatMessage, 0, len(messages))
	seenSystem := false

	for _, message := range messages {
		if message.Role == ai.RoleSystem {
			if seenSystem {
				continue
			}
			seenSystem = true
		}

		wireMessage := chatMessage{
			Role:       string(message.Role),
			ToolCallID: message.ToolCallID,
		}

		if len(message.ContentParts) > 0 {
			wireMessage.Content = buildContentParts(message.ContentParts)
		} else if message.Content != "" || len(message.ToolCalls) == 0 {
			wireMessage.Content = message.Content
		}

		for _, toolCall := range message.ToolCalls {
			wireCall := chatToolCall{ID: toolCall.ID, Type: "function"}
			wireCall.Function.Name = toolCall.Function.Name
			wireCall.Function.Arguments = toolCall.Function.Arguments
			wireMessage.ToolCalls = append(wireMessage.ToolCalls, wireCall)
		}

		result = append(result, wireMessage)
	}

	return result
}

// buildContentParts converts multimodal parts. Inline images ride as data
// URLs because chat completions has no separate base64 field.
func buildContentParts(parts []ai.ContentPart) []contentPart {
	result := make([]contentPart, 0, len(parts))

	for _, part := range parts {
		switch part.Type {
		case ai.ContentTypeText:
			result = append(result, contentPart{Type: "text", Text: part.Text})

		case ai.ContentTypeImage:
			if part.Image == nil {
				continue
			}
			imageURL := part.Image.URL
			if imageURL == "" {
				imageURL = buildDataURL(part.Image.MimeType, part.Image.Data)
			}
			if imageURL == "" {
				continue
			}
			result = append(result, contentPart{Type: "image_url", ImageURL: &contentPartImage{URL: imageURL}})
		}
	}

	return result
}

func buildChatTools(tools []ai.ToolDescription) []chatTool {
	result := make([]chatTool, 0, len(tools))
	for _, tool := range tools {
		result = append(result, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return result
}

// buildChatToolChoice maps the canonical tool choice onto the wire's mixed
// string-or-object field. Nil (or an empty mode) omits the field so the API
// default applies.
func buildChatToolChoice(choice *ai.ToolChoice) any {
	if choice == nil {
		return nil
	}
	switch choice.Mode {
	case ai.ToolChoiceAuto:
		return "auto"
	case ai.ToolChoiceAny:
		return "required"
	case ai.ToolChoiceNone:
		return "none"
	case ai.ToolChoiceTool:
		return map[string]any{
			"type":     "function",
			"function": map[string]string{"name": choice.Name},
		}
	default:
		return nil
	}
}

// chatCompletionToGeneric converts a /chat/completions response. The caller
// has already verified the response carries at least one choice.
func chatCompletionToGeneric(response chatCompletionResponse) *ai.ChatResponse {
	choice := response.Choices[0]

	result := &ai.ChatResponse{
		ID:           response.ID,
		Model:        response.Model,
		Created:      response.Created,
		Content:      choice.Message.Content,
		FinishReason: normalizeFinishReason(choice.FinishReason),
		Usage:        usageToGeneric(response.Usage),
	}

	for _, wireCall := range choice.Message.ToolCalls {
		arguments := wireCall.Function.Arguments
		if arguments == "" {
			arguments = "{}"
		}
		result.ToolCalls = append(result.ToolCalls, ai.ToolCall{
			ID:   wireCall.ID,
			Type: "function",
			Function: ai.ToolCallFunction{
				Name:      wireCall.Function.Name,
				Arguments: arguments,
			},
		})
	}

	return result
}

// usageToGeneric maps the wire usage block, recomputing the total and
// folding the prompt-cache counter in. A missing block becomes zero usage
// so responses always carry one.
func usageToGeneric(usage *chatUsage) *ai.Usage {
	if usage == nil {
		return ai.NewUsage(0, 0, 0)
	}
	cachedTokens := 0
	if usage.PromptTokensDetails != nil {
		cachedTokens = usage.PromptTokensDetails.CachedTokens
	}
	return ai.NewUsage(usage.PromptTokens, usage.CompletionTokens, cachedTokens)
}

// normalizeFinishReason passes the already-canonical vocabulary through and
// defaults the rest to "stop".
func normalizeFinishReason(finishReason string) string {
	switch finishReason {
	case "stop", "length", "tool_calls", "content_filter":
		return finishReason
	case "function_call":
		return "tool_calls"
	default:
		return "stop"
	}
}
