package anthropic

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/modelmux/modelmux/internal/utils"
	"github.com/modelmux/modelmux/providers/ai"
)

const (
	providerID = "anthropic"

	// defaultAPIBase is the canonical base URL for Anthropic's API.
	defaultAPIBase = "https://api.anthropic.com/v1"

	messagesEndpoint = "messages"
	modelsEndpoint   = "models"

	// apiVersion is the required anthropic-version header value. Anthropic
	// version-locks response formats with it, independently of the URL.
	apiVersion = "2023-06-01"
)

// Client talks to Anthropic's Messages API. Use [New] to construct one; the
// zero value is not usable. A Client is stateless across requests and safe
// for concurrent use.
type Client struct {
	config     ai.ProviderConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// New returns a [Client] for the given configuration. The API base defaults
// to https://api.anthropic.com/v1 when unset. The credential is checked per
// call, not here, so a key-less client can still be constructed and carried.
func New(config ai.ProviderConfig) (*Client, error) {
	config = config.WithDefaults(defaultAPIBase)
	httpClient, err := config.RequestOptions.HTTPClient()
	if err != nil {
		return nil, err
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     config.LoggerOrNop(),
	}, nil
}

// Name implements [ai.Client].
func (c *Client) Name() string {
	return providerID
}

// buildHeaders constructs the headers every Anthropic request carries.
// x-api-key holds the credential (Anthropic does not use Bearer tokens) and
// anthropic-version pins the wire format. Configured extra headers come
// last so they can override.
func (c *Client) buildHeaders() []utils.HeaderOption {
	headers := []utils.HeaderOption{
		{Key: "x-api-key", Value: c.config.APIKey},
		{Key: "anthropic-version", Value: apiVersion},
	}
	return append(headers, c.config.RequestOptions.HeaderOptions()...)
}

// ChatCompletion implements [ai.Client] against the Messages API.
func (c *Client) ChatCompletion(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := ai.ValidateChatRequest(request); err != nil {
		return nil, err
	}
	if err := ai.RequireAPIKey(providerID, c.config.APIKey); err != nil {
		return nil, err
	}

	wireRequest, err := requestToAnthropic(request)
	if err != nil {
		return nil, err
	}
	applyCachingStrategy(c.config.CachingStrategy, &wireRequest)

	// Empty apiKey argument keeps the helper from injecting a Bearer token;
	// the credential rides in x-api-key instead.
	ctx = c.logger.WithContext(ctx)
	_, wireResponse, err := utils.DoPostSync[anthropicResponse](
		ctx,
		c.httpClient,
		c.config.Endpoint(messagesEndpoint),
		"",
		wireRequest,
		c.buildHeaders()...,
	)
	if err != nil {
		if ai.AbortedError(err) {
			return &ai.ChatResponse{Model: request.Model}, nil
		}
		return nil, ai.ClassifyHTTPError(providerID, err)
	}
	if wireResponse == nil {
		return nil, &ai.ProtocolError{Provider: providerID, Reason: "empty response body"}
	}

	response := anthropicToGeneric(*wireResponse)
	if response.Model == "" {
		response.Model = request.Model
	}
	return response, nil
}

// ListModels implements [ai.Client] via GET /models, following pagination
// until the listing is exhausted.
func (c *Client) ListModels(ctx context.Context) ([]ai.ModelInfo, error) {
	if err := ai.RequireAPIKey(providerID, c.config.APIKey); err != nil {
		return nil, err
	}

	ctx = c.logger.WithContext(ctx)
	var models []ai.ModelInfo
	afterID := ""

	for {
		endpoint := c.config.Endpoint(modelsEndpoint) + "?limit=100"
		if afterID != "" {
			endpoint += "&after_id=" + url.QueryEscape(afterID)
		}

		_, page, err := utils.DoGetSync[anthropicModelsPage](ctx, c.httpClient, endpoint, "", c.buildHeaders()...)
		if err != nil {
			if ai.AbortedError(err) {
				return models, nil
			}
			return nil, ai.ClassifyHTTPError(providerID, err)
		}
		if page == nil {
			break
		}

		for _, entry := range page.Data {
			models = append(models, ai.ModelInfo{
				ID:      entry.ID,
				OwnedBy: providerID,
				Created: entry.createdUnix(),
			})
		}

		if !page.HasMore || page.LastID == "" {
			break
		}
		afterID = page.LastID
	}

	return models, nil
}

// Completion implements [ai.Client]. Anthropic has no legacy completion
// endpoint.
func (c *Client) Completion(ctx context.Context, request ai.CompletionRequest) (*ai.CompletionResponse, error) {
	return nil, ai.Unsupported(providerID, "completion")
}

// CompletionStream implements [ai.Client].
func (c *Client) CompletionStream(ctx context.Context, request ai.CompletionRequest) (*ai.ChatStream, error) {
	return nil, ai.Unsupported(providerID, "completion_stream")
}

// FIMStream implements [ai.Client].
func (c *Client) FIMStream(ctx context.Context, request ai.FIMRequest) (*ai.ChatStream, error) {
	return nil, ai.Unsupported(providerID, "fim_stream")
}

// Embed implements [ai.Client].
func (c *Client) Embed(ctx context.Context, request ai.EmbedRequest) (*ai.EmbedResponse, error) {
	return nil, ai.Unsupported(providerID, "embed")
}

// Rerank implements [ai.Client].
func (c *Client) Rerank(ctx context.Context, request ai.RerankRequest) (*ai.RerankResponse, error) {
	return nil, ai.Unsupported(providerID, "rerank")
}
