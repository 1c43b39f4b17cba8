package openai

import (
	"cmp"
	"context"
	"slices"

	"github.com/modelmux/modelmux/internal/utils"
	"github.com/modelmux/modelmux/providers/ai"
)

/*
	EMBEDDINGS API - WIRE TYPES
*/

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
	// EncodingFormat pins the vector encoding to plain floats; the base64
	// alternative saves bandwidth but not every compatible provider speaks
	// it.
	EncodingFormat string `json:"encoding_format,omitempty"`
}

type embeddingsResponse struct {
	Object string           `json:"object"` // "list"
	Model  string           `json:"model"`
	Data   []embeddingEntry `json:"data"`
	Usage  *chatUsage       `json:"usage,omitempty"`
}

type embeddingEntry struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// Embed implements [ai.Client] against the /embeddings endpoint.
func (c *Client) Embed(ctx context.Context, request ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if err := ai.ValidateEmbedRequest(request); err != nil {
		return nil, err
	}
	if err := ai.RequireAPIKey(c.providerID, c.config.APIKey); err != nil {
		return nil, err
	}

	wireRequest := embeddingsRequest{
		Model:          request.Model,
		Input:          request.Input,
		EncodingFormat: "float",
	}

	ctx = c.logger.WithContext(ctx)
	_, wireResponse, err := utils.DoPostSync[embeddingsResponse](
		ctx,
		c.httpClient,
		c.config.Endpoint(embeddingsEndpoint),
		c.config.APIKey,
		wireRequest,
		c.config.RequestOptions.HeaderOptions()...,
	)
	if err != nil {
		if ai.AbortedError(err) {
			return &ai.EmbedResponse{Model: request.Model}, nil
		}
		return nil, ai.ClassifyHTTPError(c.providerID, err)
	}
	if wireResponse == nil {
		return nil, &ai.ProtocolError{Provider: c.providerID, Reason: "empty response body"}
	}

	embeddings := make([]ai.Embedding, 0, len(wireResponse.Data))
	for _, entry := range wireResponse.Data {
		embeddings = append(embeddings, ai.Embedding{Index: entry.Index, Vector: entry.Embedding})
	}
	// The wire's index field is authoritative; re-sort in case a provider
	// returns entries out of order.
	slices.SortFunc(embeddings, func(a, b ai.Embedding) int {
		return cmp.Compare(a.Index, b.Index)
	})

	response := &ai.EmbedResponse{
		Model:      wireResponse.Model,
		Embeddings: embeddings,
		Usage:      usageToGeneric(wireResponse.Usage),
	}
	if response.Model == "" {
		response.Model = request.Model
	}
	return response, nil
}
