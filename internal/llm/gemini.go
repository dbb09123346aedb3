package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Veraticus/textledger/internal/common"
	"google.golang.org/genai"
)

// GeminiGenerator implements Generator with the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	config *genai.GenerateContentConfig
	model  string
}

// NewGeminiGenerator creates a Gemini-backed generator. httpClient may be nil.
func NewGeminiGenerator(ctx context.Context, cfg Config, httpClient *http.Client) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY environment variable is required", common.ErrMissingConfig)
	}

	cfg = cfg.withDefaults()

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
		model:  cfg.Model,
		config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(cfg.Temperature),
			MaxOutputTokens: int32(cfg.MaxOutputTokens), // #nosec G115
		},
	}, nil
}

// Model returns the model identifier requests are sent to.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate content: %w", common.ErrUpstreamCall, err)
	}

	return resp.Text(), nil
}
