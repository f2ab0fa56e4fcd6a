package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider asks an OpenAI chat model for a JSON sentiment verdict.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks that the key is accepted and the model exists.
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.GetModel(ctx, p.model)
	return err == nil
}

func (p *OpenAIProvider) AnalyzeSentiment(ctx context.Context, req SentimentRequest) (*SentimentResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildSentimentPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: defaultTemperature,
		MaxTokens:   maxReplyTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("openai sentiment for %s: %d %s", req.Symbol, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("openai sentiment for %s: %w", req.Symbol, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}
	return decodeSentiment(resp.Choices[0].Message.Content)
}
