package ollama

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/modelmux/modelmux/providers/ai"
)

const (
	providerID = "ollama"

	// defaultAPIBase is the daemon's default listen address. Unlike the
	// hosted providers this is the native API root, not a /v1 path.
	defaultAPIBase = "http://localhost:11434"
)

// Client adapts the ollama SDK to [ai.Client]. Use [New]; the zero value is
// not usable. A Client is stateless across requests and safe for concurrent
// use.
type Client struct {
	config ai.ProviderConfig
	api    *api.Client
	logger zerolog.Logger
}

// New returns a [Client] for the daemon at config.APIBase (the local
// default when empty).
func New(config ai.ProviderConfig) (*Client, error) {
	config = config.WithDefaults(defaultAPIBase)

	baseURL, err := url.Parse(config.APIBase)
	if err != nil {
		return nil, &ai.ValidationError{Field: "api_base", Reason: fmt.Sprintf("invalid URL: %v", err)}
	}

	httpClient, err := config.RequestOptions.HTTPClient()
	if err != nil {
		return nil, err
	}
	// The SDK builds its own requests, so header injection has to happen at
	// the transport.
	if headers := extraHeaders(config); len(headers) > 0 {
		httpClient.Transport = &headerTransport{base: httpClient.Transport, headers: headers}
	}

	return &Client{
		config: config,
		api:    api.NewClient(baseURL, httpClient),
		logger: config.LoggerOrNop(),
	}, nil
}

// Name implements [ai.Client].
func (c *Client) Name() string {
	return providerID
}

// ChatCompletion implements [ai.Client] on the daemon's chat endpoint.
func (c *Client) ChatCompletion(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := ai.ValidateChatRequest(request); err != nil {
		return nil, err
	}

	wireRequest, err := requestToOllamaChat(request, false)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	var toolCalls []ai.ToolCall
	var final api.ChatResponse

	err = c.api.Chat(ctx, &wireRequest, func(response api.ChatResponse) error {
		content.WriteString(response.Message.Content)
		toolCalls = append(toolCalls, toolCallsToGeneric(response.Message.ToolCalls)...)
		if response.Done {
			final = response
		}
		return nil
	})
	if err != nil {
		if abortedStatus(err) {
			return &ai.ChatResponse{Model: request.Model}, nil
		}
		return nil, classifyError(providerID, err)
	}

	model := final.Model
	if model == "" {
		model = request.Model
	}
	var created int64
	if !final.CreatedAt.IsZero() {
		created = final.CreatedAt.Unix()
	}

	return &ai.ChatResponse{
		Model:        model,
		Created:      created,
		Content:      content.String(),
		ToolCalls:    toolCalls,
		FinishReason: chatFinishReason(len(toolCalls) > 0, final.DoneReason),
		Usage:        ai.NewUsage(final.Metrics.PromptEvalCount, final.Metrics.EvalCount, 0),
	}, nil
}

// Embed implements [ai.Client] on the daemon's embed endpoint.
func (c *Client) Embed(ctx context.Context, request ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if err := ai.ValidateEmbedRequest(request); err != nil {
		return nil, err
	}

	wireResponse, err := c.api.Embed(ctx, &api.EmbedRequest{
		Model: request.Model,
		Input: request.Input,
	})
	if err != nil {
		if abortedStatus(err) {
			return &ai.EmbedResponse{Model: request.Model}, nil
		}
		return nil, classifyError(providerID, err)
	}

	embeddings := make([]ai.Embedding, 0, len(wireResponse.Embeddings))
	for index, vector := range wireResponse.Embeddings {
		embeddings = append(embeddings, ai.Embedding{Index: index, Vector: vector})
	}

	model := wireResponse.Model
	if model == "" {
		model = request.Model
	}

	return &ai.EmbedResponse{
		Model:      model,
		Embeddings: embeddings,
		Usage:      ai.NewUsage(wireResponse.PromptEvalCount, 0, 0),
	}, nil
}

// Rerank implements [ai.Client]; the daemon has no rerank endpoint.
func (c *Client) Rerank(ctx context.Context, request ai.RerankRequest) (*ai.RerankResponse, error) {
	return nil, ai.Unsupported(providerID, "rerank")
}

// ListModels implements [ai.Client], listing the locally installed models.
func (c *Client) ListModels(ctx context.Context) ([]ai.ModelInfo, error) {
	wireResponse, err := c.api.List(ctx)
	if err != nil {
		if abortedStatus(err) {
			return nil, nil
		}
		return nil, classifyError(providerID, err)
	}

	models := make([]ai.ModelInfo, 0, len(wireResponse.Models))
	for _, entry := range wireResponse.Models {
		info := ai.ModelInfo{ID: entry.Name}
		if !entry.ModifiedAt.IsZero() {
			info.Created = entry.ModifiedAt.Unix()
		}
		models = append(models, info)
	}
	return models, nil
}

// classifyError maps SDK failures into the taxonomy. Sync endpoints surface
// daemon-side failures as [api.StatusError]. The chat and generate paths
// flatten the daemon's error payload to a plain error instead; those are
// upstream failures delivered in-band, with no status to carry. Network
// failures keep their transport classification.
func classifyError(provider string, err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		message := statusErr.ErrorMessage
		if message == "" {
			message = statusErr.Status
		}
		return &ai.UpstreamError{Provider: provider, StatusCode: statusErr.StatusCode, Message: message}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ai.TransportError{Provider: provider, Err: err}
	}

	return &ai.UpstreamError{Provider: provider, Message: err.Error()}
}

// abortedStatus reports the client-closed sentinel from a proxy fronting the
// daemon.
func abortedStatus(err error) bool {
	var statusErr api.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == ai.StatusClientClosedRequest
}

// extraHeaders merges the optional Bearer credential with the configured
// headers; configured headers win, mirroring the HTTP helpers' ordering.
func extraHeaders(config ai.ProviderConfig) map[string]string {
	headers := map[string]string{}
	if config.APIKey != "" {
		headers["Authorization"] = "Bearer " + config.APIKey
	}
	maps.Copy(headers, config.RequestOptions.Headers)
	if len(headers) == 0 {
		return nil
	}
	return headers
}

// headerTransport injects headers into every SDK request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	clone := request.Clone(request.Context())
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}
	return base.RoundTrip(clone)
}
