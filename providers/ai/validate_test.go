package ai

import (
	"errors"
	"strings"
	"testing"
)

func validChatRequest() ChatRequest {
	return ChatRequest{
		Model: "test-model",
		Messages: []Message{
			{Role: RoleUser, Content: "hello"},
		},
	}
}

func TestValidateChatRequest(t *testing.T) {
	if err := ValidateChatRequest(validChatRequest()); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
}

func TestValidateChatRequestMissingModel(t *testing.T) {
	request := validChatRequest()
	request.Model = ""

	var validationErr *ValidationError
	if err := ValidateChatRequest(request); !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want *ValidationError", err)
	}
	if !strings.Contains(validationErr.Field, "Model") {
		t.Errorf("field = %q, want it to name Model", validationErr.Field)
	}
}

func TestValidateChatRequestNoMessages(t *testing.T) {
	request := validChatRequest()
	request.Messages = nil

	var validationErr *ValidationError
	if err := ValidateChatRequest(request); !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want *ValidationError", err)
	}
}

func TestValidateChatRequestBadRole(t *testing.T) {
	request := validChatRequest()
	request.Messages[0].Role = "narrator"

	var validationErr *ValidationError
	if err := ValidateChatRequest(request); !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want *ValidationError", err)
	}
}

func TestValidateChatRequestToolMessageWithoutCallID(t *testing.T) {
	request := ChatRequest{
		Model: "test-model",
		Messages: []Message{
			{Role: RoleUser, Content: "weather?"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{
				ID:       "call_1",
				Type:     "function",
				Function: ToolCallFunction{Name: "get_weather", Arguments: "{}"},
			}}},
			{Role: RoleTool, Content: "sunny"},
		},
	}

	var validationErr *ValidationError
	if err := ValidateChatRequest(request); !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want *ValidationError", err)
	}
	if !strings.Contains(validationErr.Field, "messages[2]") {
		t.Errorf("field = %q, want it to locate the offending message", validationErr.Field)
	}
}

func TestValidateChatRequestForcedToolChoice(t *testing.T) {
	base := validChatRequest()
	base.Tools = []ToolDescription{{Name: "get_weather"}}

	t.Run("declared tool passes", func(t *testing.T) {
		request := base
		request.ToolChoice = &ToolChoice{Mode: ToolChoiceTool, Name: "get_weather"}
		if err := ValidateChatRequest(request); err != nil {
			t.Fatalf("declared forced tool rejected: %v", err)
		}
	})

	t.Run("unknown tool fails before any traffic", func(t *testing.T) {
		request := base
		request.ToolChoice = &ToolChoice{Mode: ToolChoiceTool, Name: "get_stock_price"}

		var validationErr *ValidationError
		if err := ValidateChatRequest(request); !errors.As(err, &validationErr) {
			t.Fatalf("got %v, want *ValidationError", err)
		}
		if !strings.Contains(validationErr.Reason, "get_stock_price") {
			t.Errorf("reason = %q, want it to name the missing tool", validationErr.Reason)
		}
	})

	t.Run("missing name fails", func(t *testing.T) {
		request := base
		request.ToolChoice = &ToolChoice{Mode: ToolChoiceTool}

		var validationErr *ValidationError
		if err := ValidateChatRequest(request); !errors.As(err, &validationErr) {
			t.Fatalf("got %v, want *ValidationError", err)
		}
	})

	t.Run("auto mode ignores tool membership", func(t *testing.T) {
		request := base
		request.ToolChoice = &ToolChoice{Mode: ToolChoiceAuto}
		if err := ValidateChatRequest(request); err != nil {
			t.Fatalf("auto tool choice rejected: %v", err)
		}
	})
}

func TestValidateCompletionRequest(t *testing.T) {
	if err := ValidateCompletionRequest(CompletionRequest{Model: "m", Prompt: "once upon"}); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	var validationErr *ValidationError
	if err := ValidateCompletionRequest(CompletionRequest{Model: "m"}); !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want *ValidationError for empty prompt", err)
	}
}

func TestValidateFIMRequest(t *testing.T) {
	if err := ValidateFIMRequest(FIMRequest{Model: "m", Prefix: "func main() {"}); err != nil {
		t.Fatalf("prefix-only request rejected: %v", err)
	}
	if err := ValidateFIMRequest(FIMRequest{Model: "m", Suffix: "}"}); err != nil {
		t.Fatalf("suffix-only request rejected: %v", err)
	}

	var validationErr *ValidationError
	if err := ValidateFIMRequest(FIMRequest{Model: "m"}); !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want *ValidationError when both prefix and suffix are empty", err)
	}
}

func TestValidateEmbedRequest(t *testing.T) {
	if err := ValidateEmbedRequest(EmbedRequest{Model: "m", Input: []string{"text"}}); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	var validationErr *ValidationError
	if err := ValidateEmbedRequest(EmbedRequest{Model: "m"}); !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want *ValidationError for empty input", err)
	}
}

func TestValidateRerankRequest(t *testing.T) {
	request := RerankRequest{Model: "m", Query: "q", Documents: []string{"doc"}}
	if err := ValidateRerankRequest(request); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	var validationErr *ValidationError
	if err := ValidateRerankRequest(RerankRequest{Model: "m", Query: "q"}); !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want *ValidationError for no documents", err)
	}
}

func TestRequireAPIKey(t *testing.T) {
	if err := RequireAPIKey("openai", "sk-test"); err != nil {
		t.Fatalf("present key rejected: %v", err)
	}

	var validationErr *ValidationError
	if err := RequireAPIKey("openai", ""); !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want *ValidationError for a missing key", err)
	}
	if !strings.Contains(validationErr.Reason, "openai") {
		t.Errorf("reason = %q, want it to name the provider", validationErr.Reason)
	}
}
