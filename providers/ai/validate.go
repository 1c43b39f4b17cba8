package ai

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. Structural rules live on the
// model types' validate tags; the semantic checks below cover what tags
// cannot express. All violations surface as [*ValidationError] before any
// network traffic.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateChatRequest checks a chat request before translation.
func ValidateChatRequest(request ChatRequest) error {
	if err := validateStruct(request); err != nil {
		return err
	}

	// Tool-role messages must reference the call they answer.
	for i, message := range request.Messages {
		if message.Role == RoleTool && message.ToolCallID == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("messages[%d].tool_call_id", i),
				Reason: "tool message must reference the tool call it answers",
			}
		}
	}

	// A forced tool choice must name a declared tool. Catching this locally
	// avoids a round-trip the provider would reject anyway.
	if request.ToolChoice != nil && request.ToolChoice.Mode == ToolChoiceTool {
		if request.ToolChoice.Name == "" {
			return &ValidationError{
				Field:  "tool_choice.name",
				Reason: "forced tool choice requires a tool name",
			}
		}
		declared := false
		for _, tool := range request.Tools {
			if tool.Name == request.ToolChoice.Name {
				declared = true
				break
			}
		}
		if !declared {
			return &ValidationError{
				Field:  "tool_choice.name",
				Reason: fmt.Sprintf("tool %q is not declared in tools", request.ToolChoice.Name),
			}
		}
	}

	return nil
}

// ValidateCompletionRequest checks a legacy completion request.
func ValidateCompletionRequest(request CompletionRequest) error {
	return validateStruct(request)
}

// ValidateFIMRequest checks a fill-in-the-middle request. At least one of
// prefix and suffix must be present for the infill to mean anything.
func ValidateFIMRequest(request FIMRequest) error {
	if err := validateStruct(request); err != nil {
		return err
	}
	if request.Prefix == "" && request.Suffix == "" {
		return &ValidationError{
			Field:  "prefix",
			Reason: "fill-in-the-middle requires a prefix or a suffix",
		}
	}
	return nil
}

// ValidateEmbedRequest checks an embeddings request.
func ValidateEmbedRequest(request EmbedRequest) error {
	return validateStruct(request)
}

// ValidateRerankRequest checks a rerank request.
func ValidateRerankRequest(request RerankRequest) error {
	return validateStruct(request)
}

// RequireAPIKey is the shared credential guard adapters run before their
// first network call.
func RequireAPIKey(provider, apiKey string) error {
	if apiKey == "" {
		return &ValidationError{
			Field:  "api_key",
			Reason: fmt.Sprintf("%s requires an API key", provider),
		}
	}
	return nil
}

func validateStruct(value any) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		first := fieldErrors[0]
		return &ValidationError{
			Field:  first.Namespace(),
			Reason: fmt.Sprintf("failed %q constraint", first.Tag()),
		}
	}
	return &ValidationError{Reason: err.Error()}
}
