package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelmux/modelmux/providers/ai"
)

func TestChatCompletion(t *testing.T) {
	var gotHeaders http.Header
	var gotRequest anthropicRequest

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		gotHeaders = request.Header.Clone()
		if err := json.NewDecoder(request.Body).Decode(&gotRequest); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}

		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(anthropicResponse{
			ID:    "msg_1",
			Type:  "message",
			Role:  "assistant",
			Model: "claude-sonnet-4-20250514",
			Content: []responseContentBlock{
				{Type: "text", Text: "Hello!"},
			},
			StopReason: "end_turn",
			Usage: anthropicUsage{
				InputTokens:              12,
				OutputTokens:             4,
				CacheCreationInputTokens: 7,
			},
		})
	}))
	defer server.Close()

	request := ai.ChatRequest{
		Model: "claude-sonnet-4-20250514",
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "You are terse."},
			{Role: ai.RoleUser, Content: "Hi"},
		},
	}

	response, err := testClient(t, server.URL).ChatCompletion(context.Background(), request)
	if err != nil {
		t.Fatalf("ChatCompletion failed: %v", err)
	}

	// --- header assertions ---
	if got := gotHeaders.Get("x-api-key"); got != "test-key" {
		t.Errorf("x-api-key = %q, want test-key", got)
	}
	if got := gotHeaders.Get("anthropic-version"); got != apiVersion {
		t.Errorf("anthropic-version = %q, want %q", got, apiVersion)
	}
	if got := gotHeaders.Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q, want absent (credential rides in x-api-key)", got)
	}

	// --- wire request assertions ---
	if len(gotRequest.System) != 1 || gotRequest.System[0].Text != "You are terse." {
		t.Errorf("system = %+v", gotRequest.System)
	}
	if gotRequest.System[0].CacheControl == nil {
		t.Error("default caching strategy must mark the system block")
	}
	if gotRequest.MaxTokens != defaultMaxTokens {
		t.Errorf("max_tokens = %d, want %d", gotRequest.MaxTokens, defaultMaxTokens)
	}
	if gotRequest.Stream {
		t.Error("sync request must not set stream")
	}

	// --- response assertions ---
	if response.Content != "Hello!" {
		t.Errorf("content = %q", response.Content)
	}
	if response.FinishReason != "stop" {
		t.Errorf("finish reason = %q, want stop", response.FinishReason)
	}
	if response.Usage.TotalTokens != 16 {
		t.Errorf("total tokens = %d, want 16", response.Usage.TotalTokens)
	}
	if response.Usage.CachedTokens != 7 {
		t.Errorf("cached tokens = %d, want 7", response.Usage.CachedTokens)
	}
}

func TestChatCompletionCachingStrategyNone(t *testing.T) {
	var gotRequest anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		json.NewDecoder(request.Body).Decode(&gotRequest)
		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(anthropicResponse{Model: "claude-sonnet-4-20250514"})
	}))
	defer server.Close()

	client, err := New(ai.ProviderConfig{
		APIKey:          "test-key",
		APIBase:         server.URL,
		CachingStrategy: StrategyNone,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	request := ai.ChatRequest{
		Model: "claude-sonnet-4-20250514",
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "You are terse."},
			{Role: ai.RoleUser, Content: "Hi"},
		},
	}
	if _, err := client.ChatCompletion(context.Background(), request); err != nil {
		t.Fatalf("ChatCompletion failed: %v", err)
	}

	if gotRequest.System[0].CacheControl != nil {
		t.Error("strategy none must not mark the system block")
	}
}

func TestChatCompletionUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusTooManyRequests)
		writer.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"Too many requests"}}`))
	}))
	defer server.Close()

	_, err := testClient(t, server.URL).ChatCompletion(context.Background(), chatRequest())

	var upstreamErr *ai.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("got %v, want *ai.UpstreamError", err)
	}
	if upstreamErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", upstreamErr.StatusCode)
	}
	if !upstreamErr.RateLimited() {
		t.Error("429 must report RateLimited")
	}
	if upstreamErr.Message != "Too many requests (rate_limit_error)" {
		t.Errorf("message = %q", upstreamErr.Message)
	}
}

func TestChatCompletionClientClosedRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(ai.StatusClientClosedRequest)
	}))
	defer server.Close()

	response, err := testClient(t, server.URL).ChatCompletion(context.Background(), chatRequest())
	if err != nil {
		t.Fatalf("a client-closed answer must not error, got: %v", err)
	}
	if response == nil {
		t.Fatal("expected a quiet empty response")
	}
	if response.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q, want the request model echoed", response.Model)
	}
	if response.Content != "" || response.Usage != nil {
		t.Errorf("quiet response must be empty, got %+v", response)
	}
}

func TestChatCompletionMissingAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		t.Error("request must not reach the network without a key")
	}))
	defer server.Close()

	client, err := New(ai.ProviderConfig{APIBase: server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = client.ChatCompletion(context.Background(), chatRequest())
	var validationErr *ai.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want *ai.ValidationError", err)
	}
}

func TestChatCompletionInvalidRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		t.Error("invalid requests must not reach the network")
	}))
	defer server.Close()

	_, err := testClient(t, server.URL).ChatCompletion(context.Background(), ai.ChatRequest{
		Model: "claude-sonnet-4-20250514",
	})
	var validationErr *ai.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want *ai.ValidationError", err)
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		switch request.URL.Query().Get("after_id") {
		case "":
			json.NewEncoder(writer).Encode(anthropicModelsPage{
				Data: []anthropicModelEntry{
					{ID: "claude-opus-4-20250514", CreatedAt: "2025-05-14T00:00:00Z"},
					{ID: "claude-sonnet-4-20250514", CreatedAt: "2025-05-14T00:00:00Z"},
				},
				HasMore: true,
				LastID:  "claude-sonnet-4-20250514",
			})
		case "claude-sonnet-4-20250514":
			json.NewEncoder(writer).Encode(anthropicModelsPage{
				Data: []anthropicModelEntry{
					{ID: "claude-3-5-haiku-20241022", CreatedAt: "2024-10-22T00:00:00Z"},
				},
				HasMore: false,
			})
		default:
			t.Errorf("unexpected after_id %q", request.URL.Query().Get("after_id"))
		}
	}))
	defer server.Close()

	models, err := testClient(t, server.URL).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}

	if len(models) != 3 {
		t.Fatalf("got %d models, want 3 across both pages", len(models))
	}
	if models[0].ID != "claude-opus-4-20250514" {
		t.Errorf("first model = %q", models[0].ID)
	}
	if models[2].ID != "claude-3-5-haiku-20241022" {
		t.Errorf("third model = %q", models[2].ID)
	}
	if models[0].OwnedBy != "anthropic" {
		t.Errorf("owned_by = %q", models[0].OwnedBy)
	}
	if models[0].Created == 0 {
		t.Error("created_at must be parsed to a unix timestamp")
	}
}

func TestUnsupportedOperations(t *testing.T) {
	client := testClient(t, "http://localhost:9")
	ctx := context.Background()

	if _, err := client.Completion(ctx, ai.CompletionRequest{Model: "m", Prompt: "p"}); !errors.Is(err, ai.ErrUnsupportedOperation) {
		t.Errorf("Completion: got %v", err)
	}
	if _, err := client.CompletionStream(ctx, ai.CompletionRequest{Model: "m", Prompt: "p"}); !errors.Is(err, ai.ErrUnsupportedOperation) {
		t.Errorf("CompletionStream: got %v", err)
	}
	if _, err := client.FIMStream(ctx, ai.FIMRequest{Model: "m", Prefix: "x"}); !errors.Is(err, ai.ErrUnsupportedOperation) {
		t.Errorf("FIMStream: got %v", err)
	}
	if _, err := client.Embed(ctx, ai.EmbedRequest{Model: "m", Input: []string{"x"}}); !errors.Is(err, ai.ErrUnsupportedOperation) {
		t.Errorf("Embed: got %v", err)
	}
	if _, err := client.Rerank(ctx, ai.RerankRequest{Model: "m", Query: "q", Documents: []string{"d"}}); !errors.Is(err, ai.ErrUnsupportedOperation) {
		t.Errorf("Rerank: got %v", err)
	}
}

func TestClientName(t *testing.T) {
	if got := testClient(t, "http://localhost:9").Name(); got != "anthropic" {
		t.Errorf("Name = %q, want anthropic", got)
	}
}
