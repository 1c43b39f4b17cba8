package openai

import (
	"context"

	"github.com/modelmux/modelmux/internal/utils"
	"github.com/modelmux/modelmux/providers/ai"
)

/*
	MODELS API - WIRE TYPES
*/

type modelsPage struct {
	Object string       `json:"object"` // "list"
	Data   []modelEntry `json:"data"`
}

type modelEntry struct {
	ID      string `json:"id"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ListModels implements [ai.Client] against the /models endpoint. The
// endpoint returns the full catalog in one page.
func (c *Client) ListModels(ctx context.Context) ([]ai.ModelInfo, error) {
	if err := ai.RequireAPIKey(c.providerID, c.config.APIKey); err != nil {
		return nil, err
	}

	ctx = c.logger.WithContext(ctx)
	_, page, err := utils.DoGetSync[modelsPage](
		ctx,
		c.httpClient,
		c.config.Endpoint(modelsEndpoint),
		c.config.APIKey,
		c.config.RequestOptions.HeaderOptions()...,
	)
	if err != nil {
		if ai.AbortedError(err) {
			return nil, nil
		}
		return nil, ai.ClassifyHTTPError(c.providerID, err)
	}
	if page == nil {
		return nil, &ai.ProtocolError{Provider: c.providerID, Reason: "empty response body"}
	}

	models := make([]ai.ModelInfo, 0, len(page.Data))
	for _, entry := range page.Data {
		models = append(models, ai.ModelInfo{
			ID:      entry.ID,
			OwnedBy: entry.OwnedBy,
			Created: entry.Created,
		})
	}
	return models, nil
}
