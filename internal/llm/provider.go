// Package llm provides LLM provider interfaces and implementations.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/user/crypto-analyser/internal/sentiment"
	"github.com/user/crypto-analyser/pkg/config"
)

const (
	// maxPromptPosts bounds how many posts are quoted in a prompt.
	maxPromptPosts = 20

	defaultTemperature = 0.2
	maxReplyTokens     = 500
)

const systemPrompt = "You are a cryptocurrency market analyst reading social media posts. Always respond with valid JSON only."

// SentimentRequest asks for the sentiment of a subject's posts towards
// one cryptocurrency.
type SentimentRequest struct {
	Symbol string   `json:"symbol"`
	Posts  []string `json:"posts"`
}

// SentimentResponse represents the sentiment analysis response.
type SentimentResponse struct {
	Sentiment string   `json:"sentiment"` // BULLISH, BEARISH, NEUTRAL
	Score     float64  `json:"score"`     // -1 to 1
	Keywords  []string `json:"keywords"`
}

// Provider defines the interface for LLM providers.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// AnalyzeSentiment analyzes the sentiment of posts towards a symbol.
	AnalyzeSentiment(ctx context.Context, req SentimentRequest) (*SentimentResponse, error)

	// IsAvailable checks if the provider is available.
	IsAvailable(ctx context.Context) bool
}

// NewProvider creates a new LLM provider based on configuration.
func NewProvider(cfg *config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaProvider(cfg.Ollama.URL, cfg.Ollama.Model), nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGeminiProvider(cfg.Gemini.APIKey, cfg.Gemini.Model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

// Opinion converts a provider response into an advisory opinion.
// Unrecognised labels become neutral and the score is clamped to [-1, 1].
func Opinion(provider, symbol string, resp *SentimentResponse) sentiment.Opinion {
	var s sentiment.Sentiment
	switch strings.ToUpper(strings.TrimSpace(resp.Sentiment)) {
	case "BULLISH":
		s = sentiment.Bullish
	case "BEARISH":
		s = sentiment.Bearish
	default:
		s = sentiment.Neutral
	}

	return sentiment.Opinion{
		Symbol:    symbol,
		Sentiment: s,
		Score:     max(-1, min(1, resp.Score)),
		Source:    provider,
	}
}

// buildSentimentPrompt creates the prompt for sentiment analysis.
func buildSentimentPrompt(req SentimentRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the sentiment of the following posts towards the cryptocurrency %s.\n\nPosts:\n", req.Symbol)

	posts := req.Posts
	if len(posts) > maxPromptPosts {
		posts = posts[:maxPromptPosts]
	}
	for _, p := range posts {
		fmt.Fprintf(&b, "- %s\n", strings.ReplaceAll(p, "\n", " "))
	}

	b.WriteString(`
Provide your analysis in the following JSON format:
{
  "sentiment": "BULLISH" or "BEARISH" or "NEUTRAL",
  "score": <-1 to 1, where -1 is very bearish and 1 is very bullish>,
  "keywords": ["keyword1", "keyword2", ...]
}

Respond ONLY with the JSON, no additional text.`)

	return b.String()
}

// parseJSONResponse extracts and parses JSON from the LLM response.
func parseJSONResponse(response string, v interface{}) error {
	response = strings.TrimSpace(response)

	// Models often wrap the object in prose or code fences.
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")

	if start == -1 || end == -1 || end < start {
		return fmt.Errorf("no JSON found in response: %s", response)
	}

	jsonStr := response[start : end+1]

	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w (json: %s)", err, jsonStr)
	}

	return nil
}

// decodeSentiment parses a raw completion into a SentimentResponse.
func decodeSentiment(raw string) (*SentimentResponse, error) {
	var resp SentimentResponse
	if err := parseJSONResponse(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse sentiment response: %w", err)
	}
	return &resp, nil
}
