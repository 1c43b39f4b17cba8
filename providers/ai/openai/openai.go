package openai

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/modelmux/modelmux/internal/utils"
	"github.com/modelmux/modelmux/providers/ai"
)

const (
	// defaultAPIBase is OpenAI's own endpoint; compatible providers supply
	// theirs through [NewCompatible].
	defaultAPIBase = "https://api.openai.com/v1"

	chatCompletionsEndpoint = "chat/completions"
	completionsEndpoint     = "completions"
	fimCompletionsEndpoint  = "fim/completions"
	embeddingsEndpoint      = "embeddings"
	rerankEndpoint          = "rerank"
	modelsEndpoint          = "models"
)

// Client talks to any endpoint speaking the OpenAI wire format. Use [New]
// or [NewCompatible]; the zero value is not usable. A Client is stateless
// across requests and safe for concurrent use.
type Client struct {
	providerID string
	config     ai.ProviderConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// New returns a [Client] for api.openai.com.
func New(config ai.ProviderConfig) (*Client, error) {
	return NewCompatible("openai", defaultAPIBase, config)
}

// NewCompatible returns a [Client] bound to another OpenAI-compatible
// provider: providerID names it in errors and [Client.Name], and
// defaultBase is used when the configuration has no APIBase.
func NewCompatible(providerID, defaultBase string, config ai.ProviderConfig) (*Client, error) {
	config = config.WithDefaults(defaultBase)
	httpClient, err := config.RequestOptions.HTTPClient()
	if err != nil {
		return nil, err
	}
	return &Client{
		providerID: providerID,
		config:     config,
		httpClient: httpClient,
		logger:     config.LoggerOrNop(),
	}, nil
}

// Name implements [ai.Client].
func (c *Client) Name() string {
	return c.providerID
}

// ChatCompletion implements [ai.Client] against /chat/completions.
func (c *Client) ChatCompletion(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := ai.ValidateChatRequest(request); err != nil {
		return nil, err
	}
	if err := ai.RequireAPIKey(c.providerID, c.config.APIKey); err != nil {
		return nil, err
	}

	wireRequest := requestToChatCompletion(request)

	ctx = c.logger.WithContext(ctx)
	_, wireResponse, err := utils.DoPostSync[chatCompletionResponse](
		ctx,
		c.httpClient,
		c.config.Endpoint(chatCompletionsEndpoint),
		c.config.APIKey,
		wireRequest,
		c.config.RequestOptions.HeaderOptions()...,
	)
	if err != nil {
		if ai.AbortedError(err) {
			return &ai.ChatResponse{Model: request.Model}, nil
		}
		return nil, ai.ClassifyHTTPError(c.providerID, err)
	}
	if wireResponse == nil || len(wireResponse.Choices) == 0 {
		return nil, &ai.ProtocolError{Provider: c.providerID, Reason: "response carried no choices"}
	}

	response := chatCompletionToGeneric(*wireResponse)
	if response.Model == "" {
		response.Model = request.Model
	}
	return response, nil
}
