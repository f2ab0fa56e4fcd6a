package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/crypto-analyser/internal/sentiment"
	"github.com/user/crypto-analyser/pkg/config"
)

func TestParseJSONResponse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SentimentResponse
		wantErr bool
	}{
		{
			name:  "plain object",
			input: `{"sentiment":"BULLISH","score":0.8,"keywords":["moon"]}`,
			want:  SentimentResponse{Sentiment: "BULLISH", Score: 0.8, Keywords: []string{"moon"}},
		},
		{
			name:  "fenced with prose",
			input: "Sure!\n```json\n{\"sentiment\":\"BEARISH\",\"score\":-0.5}\n```",
			want:  SentimentResponse{Sentiment: "BEARISH", Score: -0.5},
		},
		{name: "no json", input: "I cannot help with that", wantErr: true},
		{name: "broken json", input: `{"sentiment": }`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SentimentResponse
			err := parseJSONResponse(tt.input, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(&config.LLMConfig{Provider: "ollama", Ollama: config.OllamaConfig{URL: "http://x", Model: "m"}})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = NewProvider(&config.LLMConfig{Provider: "openai"})
	assert.Error(t, err)

	_, err = NewProvider(&config.LLMConfig{Provider: "gemini"})
	assert.Error(t, err)

	p, err = NewProvider(&config.LLMConfig{Provider: "openai", OpenAI: config.OpenAIConfig{APIKey: "k", Model: "m"}})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = NewProvider(&config.LLMConfig{Provider: "nope"})
	assert.Error(t, err)
}

func TestOpinion(t *testing.T) {
	op := Opinion("ollama", "BTC", &SentimentResponse{Sentiment: " bullish ", Score: 3})
	assert.Equal(t, sentiment.Opinion{Symbol: "BTC", Sentiment: sentiment.Bullish, Score: 1, Source: "ollama"}, op)

	op = Opinion("ollama", "ETH", &SentimentResponse{Sentiment: "confused", Score: -2})
	assert.Equal(t, sentiment.Neutral, op.Sentiment)
	assert.Equal(t, -1.0, op.Score)
}

func TestBuildSentimentPromptTruncatesPosts(t *testing.T) {
	posts := make([]string, 30)
	for i := range posts {
		posts[i] = "post\nline"
	}
	prompt := buildSentimentPrompt(SentimentRequest{Symbol: "SOL", Posts: posts})

	assert.Contains(t, prompt, "cryptocurrency SOL")
	assert.Equal(t, maxPromptPosts, strings.Count(prompt, "- post line\n"))
}

func TestOllamaAnalyzeSentiment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"mistral:7b"},{"name":"llama3:latest"}]}`))
		case "/api/chat":
			var req ollamaChatRequest
			if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
				return
			}
			assert.Equal(t, "llama3", req.Model)
			assert.Equal(t, "json", req.Format)
			assert.False(t, req.Stream)
			if assert.Len(t, req.Messages, 2) {
				assert.Equal(t, "system", req.Messages[0].Role)
				assert.Contains(t, req.Messages[1].Content, "DOGE")
			}
			_ = json.NewEncoder(w).Encode(ollamaChatResponse{
				Model:   "llama3",
				Message: ollamaMessage{Role: "assistant", Content: `{"sentiment":"BEARISH","score":-0.7,"keywords":["dump"]}`},
				Done:    true,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "llama3")
	assert.True(t, p.IsAvailable(context.Background()))

	resp, err := p.AnalyzeSentiment(context.Background(), SentimentRequest{Symbol: "DOGE", Posts: []string{"doge dump"}})
	require.NoError(t, err)
	assert.Equal(t, "BEARISH", resp.Sentiment)
	assert.Equal(t, -0.7, resp.Score)

	assert.False(t, NewOllamaProvider(srv.URL, "phi3").IsAvailable(context.Background()))
}

func TestOllamaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "missing")
	assert.False(t, p.IsAvailable(context.Background()))

	_, err := p.AnalyzeSentiment(context.Background(), SentimentRequest{Symbol: "BTC"})
	assert.ErrorContains(t, err, "status 404")
}
