package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider asks a Google Gemini model for a JSON sentiment verdict.
// A client is opened per call; calls are rare and short lived.
type GeminiProvider struct {
	apiKey string
	model  string
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	return &GeminiProvider{
		apiKey: apiKey,
		model:  model,
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable fetches the model metadata, which fails on a bad key or model name.
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return false
	}
	defer client.Close()

	_, err = client.GenerativeModel(p.model).Info(ctx)
	return err == nil
}

func (p *GeminiProvider) AnalyzeSentiment(ctx context.Context, req SentimentRequest) (*SentimentResponse, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	model.SetTemperature(defaultTemperature)
	model.SetMaxOutputTokens(maxReplyTokens)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))

	resp, err := model.GenerateContent(ctx, genai.Text(buildSentimentPrompt(req)))
	if err != nil {
		return nil, fmt.Errorf("gemini sentiment for %s: %w", req.Symbol, err)
	}

	text := candidateText(resp)
	if text == "" {
		return nil, fmt.Errorf("gemini returned no text")
	}
	return decodeSentiment(text)
}

// candidateText joins the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
