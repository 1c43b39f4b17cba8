package ollama

import (
	"context"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/modelmux/modelmux/internal/utils"
	"github.com/modelmux/modelmux/providers/ai"
)

// Completion implements [ai.Client] on the daemon's generate endpoint.
func (c *Client) Completion(ctx context.Context, request ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if err := ai.ValidateCompletionRequest(request); err != nil {
		return nil, err
	}

	wireRequest := api.GenerateRequest{
		Model:   request.Model,
		Prompt:  request.Prompt,
		Stream:  utils.Ptr(false),
		Options: buildOllamaOptions(request.GenerationConfig),
	}

	var text strings.Builder
	var final api.GenerateResponse

	err := c.api.Generate(ctx, &wireRequest, func(response api.GenerateResponse) error {
		text.WriteString(response.Response)
		if response.Done {
			final = response
		}
		return nil
	})
	if err != nil {
		if abortedStatus(err) {
			return &ai.CompletionResponse{Model: request.Model}, nil
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

	return &ai.CompletionResponse{
		Model:        model,
		Created:      created,
		Text:         text.String(),
		FinishReason: mapDoneReason(final.DoneReason),
		Usage:        ai.NewUsage(final.Metrics.PromptEvalCount, final.Metrics.EvalCount, 0),
	}, nil
}

// CompletionStream implements [ai.Client]; chunks carry the completed text
// in Content.
func (c *Client) CompletionStream(ctx context.Context, request ai.CompletionRequest) (*ai.ChatStream, error) {
	if err := ai.ValidateCompletionRequest(request); err != nil {
		return nil, err
	}

	wireRequest := api.GenerateRequest{
		Model:   request.Model,
		Prompt:  request.Prompt,
		Stream:  utils.Ptr(true),
		Options: buildOllamaOptions(request.GenerationConfig),
	}

	return c.generateStream(ctx, wireRequest)
}

// FIMStream implements [ai.Client]. The generate endpoint takes the suffix
// directly; infill-capable models (codellama, starcoder2, codestral) fill
// the middle.
func (c *Client) FIMStream(ctx context.Context, request ai.FIMRequest) (*ai.ChatStream, error) {
	if err := ai.ValidateFIMRequest(request); err != nil {
		return nil, err
	}

	wireRequest := api.GenerateRequest{
		Model:   request.Model,
		Prompt:  request.Prefix,
		Suffix:  request.Suffix,
		Stream:  utils.Ptr(true),
		Options: buildOllamaOptions(request.GenerationConfig),
	}

	return c.generateStream(ctx, wireRequest)
}

// generateStream runs a streaming generate call through the same
// push-to-pull bridge as chat. Generate responses carry plain text only.
func (c *Client) generateStream(ctx context.Context, wireRequest api.GenerateRequest) (*ai.ChatStream, error) {
	c.logger.Debug().Str("model", wireRequest.Model).Msg("opening ollama generate stream")

	responses, done, cancelStream := pushStream(ctx, func(streamCtx context.Context, deliver func(api.GenerateResponse) error) error {
		return c.api.Generate(streamCtx, &wireRequest, deliver)
	})

	first, ok := <-responses
	if !ok {
		generateErr := <-done
		cancelStream()
		if generateErr == nil {
			return ai.NewSingleChunkStream(&ai.ChatResponse{Model: wireRequest.Model, FinishReason: "stop"}), nil
		}
		if abortedStatus(generateErr) {
			return ai.NewChatStream(func(yield func(ai.Chunk, error) bool) {}), nil
		}
		return nil, classifyError(providerID, generateErr)
	}

	iteratorFunc := func(yield func(ai.Chunk, error) bool) {
		defer cancelStream()

		model := wireRequest.Model
		promptTokens := 0
		completionTokens := 0
		doneReason := ""

		emit := func(response api.GenerateResponse) bool {
			if response.Model != "" {
				model = response.Model
			}
			if response.Response != "" {
				if !yield(ai.Chunk{Model: model, Content: response.Response}, nil) {
					return false
				}
			}
			if response.Done {
				promptTokens = response.Metrics.PromptEvalCount
				completionTokens = response.Metrics.EvalCount
				doneReason = response.DoneReason
			}
			return true
		}

		if !emit(first) {
			return
		}
		for response := range responses {
			if ctx.Err() != nil {
				return
			}
			if !emit(response) {
				return
			}
		}

		generateErr := <-done
		if ctx.Err() != nil {
			return
		}
		if generateErr != nil {
			yield(ai.Chunk{}, classifyError(providerID, generateErr))
			return
		}

		yield(ai.Chunk{
			Model:        model,
			FinishReason: mapDoneReason(doneReason),
			Usage:        ai.NewUsage(promptTokens, completionTokens, 0),
		}, nil)
	}

	return ai.NewChatStream(iteratorFunc), nil
}
