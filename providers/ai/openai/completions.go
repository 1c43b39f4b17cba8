package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/modelmux/modelmux/internal/utils"
	"github.com/modelmux/modelmux/providers/ai"
)

/*
	LEGACY COMPLETIONS API - WIRE TYPES

	The pre-chat /completions endpoint. Most compatible providers still
	serve it, and code-infill models accept a suffix there, so it doubles as
	the FIM transport where no dedicated endpoint exists.
*/

// completionRequest is the /completions (and fim/completions) request body.
type completionRequest struct {
	Model         string         `json:"model"`
	Prompt        string         `json:"prompt"`
	Suffix        string         `json:"suffix,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	MaxTokens     *int           `json:"max_tokens,omitempty"`
	Stop          []string       `json:"stop,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

// completionResponse is both the sync response and, with stream=true, the
// per-chunk payload: streamed completions repeat the same shape with
// incremental text.
type completionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"` // "text_completion"
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []completionChoice `json:"choices"`
	Usage   *chatUsage         `json:"usage,omitempty"`
}

type completionChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
}

func applyCompletionConfig(wireRequest *completionRequest, config *ai.GenerationConfig) {
	if config == nil {
		return
	}
	if config.Temperature > 0 {
		temperature := config.Temperature
		wireRequest.Temperature = &temperature
	}
	if config.TopP > 0 {
		topP := config.TopP
		wireRequest.TopP = &topP
	}
	if config.MaxTokens > 0 {
		maxTokens := config.MaxTokens
		wireRequest.MaxTokens = &maxTokens
	}
	wireRequest.Stop = ai.FilterStopSequences(config.Stop)
}

// Completion implements [ai.Client] against the legacy /completions
// endpoint.
func (c *Client) Completion(ctx context.Context, request ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if err := ai.ValidateCompletionRequest(request); err != nil {
		return nil, err
	}
	if err := ai.RequireAPIKey(c.providerID, c.config.APIKey); err != nil {
		return nil, err
	}

	wireRequest := completionRequest{Model: request.Model, Prompt: request.Prompt}
	applyCompletionConfig(&wireRequest, request.GenerationConfig)

	ctx = c.logger.WithContext(ctx)
	_, wireResponse, err := utils.DoPostSync[completionResponse](
		ctx,
		c.httpClient,
		c.config.Endpoint(completionsEndpoint),
		c.config.APIKey,
		wireRequest,
		c.config.RequestOptions.HeaderOptions()...,
	)
	if err != nil {
		if ai.AbortedError(err) {
			return &ai.CompletionResponse{Model: request.Model}, nil
		}
		return nil, ai.ClassifyHTTPError(c.providerID, err)
	}
	if wireResponse == nil || len(wireResponse.Choices) == 0 {
		return nil, &ai.ProtocolError{Provider: c.providerID, Reason: "response carried no choices"}
	}

	choice := wireResponse.Choices[0]
	response := &ai.CompletionResponse{
		ID:           wireResponse.ID,
		Model:        wireResponse.Model,
		Created:      wireResponse.Created,
		Text:         choice.Text,
		FinishReason: normalizeFinishReason(choice.FinishReason),
		Usage:        usageToGeneric(wireResponse.Usage),
	}
	if response.Model == "" {
		response.Model = request.Model
	}
	return response, nil
}

// CompletionStream implements [ai.Client]; chunks carry the completed text
// in Content.
func (c *Client) CompletionStream(ctx context.Context, request ai.CompletionRequest) (*ai.ChatStream, error) {
	if err := ai.ValidateCompletionRequest(request); err != nil {
		return nil, err
	}
	if err := ai.RequireAPIKey(c.providerID, c.config.APIKey); err != nil {
		return nil, err
	}

	wireRequest := completionRequest{
		Model:         request.Model,
		Prompt:        request.Prompt,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}
	applyCompletionConfig(&wireRequest, request.GenerationConfig)

	return c.streamTextShaped(ctx, completionsEndpoint, wireRequest, request.Model)
}

// FIMStream implements [ai.Client]. Providers with a dedicated
// fim/completions endpoint (Mistral's codestral family, or anything opting
// in via the "fim_endpoint" extra) get that endpoint, which streams
// chat-shaped chunks. Everyone else gets the legacy completions endpoint
// with the suffix parameter, the form DeepSeek and vLLM-style servers
// expect.
func (c *Client) FIMStream(ctx context.Context, request ai.FIMRequest) (*ai.ChatStream, error) {
	if err := ai.ValidateFIMRequest(request); err != nil {
		return nil, err
	}
	if err := ai.RequireAPIKey(c.providerID, c.config.APIKey); err != nil {
		return nil, err
	}

	wireRequest := completionRequest{
		Model:  request.Model,
		Prompt: request.Prefix,
		Suffix: request.Suffix,
		Stream: true,
	}
	applyCompletionConfig(&wireRequest, request.GenerationConfig)

	if c.usesFIMEndpoint() {
		return c.streamChatShaped(ctx, fimCompletionsEndpoint, wireRequest, request.Model)
	}

	wireRequest.StreamOptions = &streamOptions{IncludeUsage: true}
	return c.streamTextShaped(ctx, completionsEndpoint, wireRequest, request.Model)
}

// usesFIMEndpoint reports whether infill goes to the dedicated
// fim/completions endpoint instead of riding the legacy suffix parameter.
func (c *Client) usesFIMEndpoint() bool {
	return c.providerID == "mistral" || c.config.Extra("fim_endpoint") == "fim"
}

// streamTextShaped opens an SSE stream on endpoint and decodes
// text_completion payloads into canonical chunks; the completed text rides
// in Content. Termination mirrors streamChatShaped: the usage chunk is
// terminal, and EOF without one synthesizes a zero-usage terminal chunk.
func (c *Client) streamTextShaped(ctx context.Context, endpoint string, body any, fallbackModel string) (*ai.ChatStream, error) {
	ctx = c.logger.WithContext(ctx)
	httpResponse, err := utils.DoPostStream(
		ctx,
		c.httpClient,
		c.config.Endpoint(endpoint),
		c.config.APIKey,
		body,
		c.config.RequestOptions.HeaderOptions()...,
	)
	if err != nil {
		if ai.AbortedError(err) {
			return ai.NewChatStream(func(yield func(ai.Chunk, error) bool) {}), nil
		}
		return nil, ai.ClassifyHTTPError(c.providerID, err)
	}

	scanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.Chunk, error) bool) {
		defer utils.CloseWithLog(ctx, httpResponse.Body)

		model := fallbackModel
		finishReason := ""

		for {
			if ctx.Err() != nil {
				return
			}

			payload, err := scanner.Next()
			if err == io.EOF {
				yield(ai.Chunk{
					Model:        model,
					FinishReason: normalizeFinishReason(finishReason),
					Usage:        ai.NewUsage(0, 0, 0),
				}, nil)
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				yield(ai.Chunk{}, &ai.TransportError{Provider: c.providerID, Err: err})
				return
			}

			var chunk completionResponse
			if parseErr := json.Unmarshal([]byte(payload), &chunk); parseErr != nil {
				yield(ai.Chunk{}, &ai.ProtocolError{
					Provider: c.providerID,
					Reason:   fmt.Sprintf("unparseable stream chunk: %v", parseErr),
				})
				return
			}

			if chunk.Model != "" {
				model = chunk.Model
			}

			if len(chunk.Choices) > 0 {
				choice := chunk.Choices[0]
				if choice.Text != "" {
					if !yield(ai.Chunk{Model: model, Content: choice.Text}, nil) {
						return
					}
				}
				if choice.FinishReason != "" {
					finishReason = choice.FinishReason
				}
			}

			if chunk.Usage != nil {
				yield(ai.Chunk{
					Model:        model,
					FinishReason: normalizeFinishReason(finishReason),
					Usage:        usageToGeneric(chunk.Usage),
				}, nil)
				return
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}
