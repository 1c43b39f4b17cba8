package openai

import (
	"context"

	"github.com/modelmux/modelmux/internal/utils"
	"github.com/modelmux/modelmux/providers/ai"
)

/*
	RERANK API - WIRE TYPES

	Rerank never made it into OpenAI's own API, but the compatible
	ecosystem converged on a /rerank endpoint with two dialects: Voyage
	returns the scored documents under "data", Cohere-style servers under
	"results". Both are decoded.
*/

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopK      *int     `json:"top_k,omitempty"`
}

type rerankResponse struct {
	Model   string        `json:"model"`
	Data    []rerankEntry `json:"data"`
	Results []rerankEntry `json:"results"`
	Usage   *chatUsage    `json:"usage,omitempty"`
}

type rerankEntry struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Rerank implements [ai.Client] against the /rerank endpoint.
func (c *Client) Rerank(ctx context.Context, request ai.RerankRequest) (*ai.RerankResponse, error) {
	if err := ai.ValidateRerankRequest(request); err != nil {
		return nil, err
	}
	if err := ai.RequireAPIKey(c.providerID, c.config.APIKey); err != nil {
		return nil, err
	}

	wireRequest := rerankRequest{
		Model:     request.Model,
		Query:     request.Query,
		Documents: request.Documents,
	}
	if request.TopK > 0 {
		topK := request.TopK
		wireRequest.TopK = &topK
	}

	ctx = c.logger.WithContext(ctx)
	_, wireResponse, err := utils.DoPostSync[rerankResponse](
		ctx,
		c.httpClient,
		c.config.Endpoint(rerankEndpoint),
		c.config.APIKey,
		wireRequest,
		c.config.RequestOptions.HeaderOptions()...,
	)
	if err != nil {
		if ai.AbortedError(err) {
			return &ai.RerankResponse{Model: request.Model}, nil
		}
		return nil, ai.ClassifyHTTPError(c.providerID, err)
	}
	if wireResponse == nil {
		return nil, &ai.ProtocolError{Provider: c.providerID, Reason: "empty response body"}
	}

	entries := wireResponse.Data
	if len(entries) == 0 {
		entries = wireResponse.Results
	}

	results := make([]ai.RerankResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, ai.RerankResult{
			Index:          entry.Index,
			RelevanceScore: entry.RelevanceScore,
		})
	}

	response := &ai.RerankResponse{
		Model:   wireResponse.Model,
		Results: results,
		Usage:   rerankUsageToGeneric(wireResponse.Usage),
	}
	if response.Model == "" {
		response.Model = request.Model
	}
	return response, nil
}

// rerankUsageToGeneric maps rerank usage. Reranking consumes input only;
// providers that report just total_tokens mean prompt-side tokens, so that
// count is carried as such instead of being zeroed by the recompute.
func rerankUsageToGeneric(usage *chatUsage) *ai.Usage {
	if usage == nil {
		return ai.NewUsage(0, 0, 0)
	}
	promptTokens := usage.PromptTokens
	if promptTokens == 0 && usage.CompletionTokens == 0 {
		promptTokens = usage.TotalTokens
	}
	return ai.NewUsage(promptTokens, usage.CompletionTokens, 0)
}
