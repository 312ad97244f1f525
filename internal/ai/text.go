package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

const (
	defaultTextModel = "gemini-1.5-flash"
	maxKeywords      = 12
)

// brandVoiceInstruction steers the model toward storefront copy.
const brandVoiceInstruction = `You write product copy for independent e-commerce stores.
Return plain marketing text only: no markdown headings, no preamble, no quotes around the answer.
Keep it under 180 words unless the product needs more.`

// TextRequest describes a product copy request.
type TextRequest struct {
	Product  string
	Tone     string
	Keywords []string
}

// TextResult is generated copy plus the provider's token count.
type TextResult struct {
	Text       string
	TokensUsed int
}

// GeminiText generates marketing copy through the Gemini API.
type GeminiText struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
}

// NewGeminiText creates a Gemini-backed text generator.
func NewGeminiText(ctx context.Context, apiKey, modelName string, limiter *rate.Limiter) (*GeminiText, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if modelName == "" {
		modelName = defaultTextModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiText{client: client, model: modelName, limiter: limiter}, nil
}

// Close releases the underlying client.
func (g *GeminiText) Close() error {
	return g.client.Close()
}

// Generate produces copy for one product.
func (g *GeminiText) Generate(ctx context.Context, req TextRequest) (*TextResult, error) {
	if err := wait(ctx, g.limiter); err != nil {
		return nil, err
	}

	m := g.client.GenerativeModel(g.model)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(brandVoiceInstruction)},
	}

	resp, err := m.GenerateContent(ctx, genai.Text(BuildTextPrompt(req)))
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Message: err.Error()}
	}

	text := responseText(resp)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	result := &TextResult{Text: text}
	if resp.UsageMetadata != nil {
		result.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

// BuildTextPrompt renders the user prompt sent to the model.
func BuildTextPrompt(req TextRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a product description for: %s.\n", strings.TrimSpace(req.Product))

	if tone := strings.TrimSpace(req.Tone); tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", tone)
	}

	keywords := make([]string, 0, len(req.Keywords))
	for _, k := range req.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
		if len(keywords) == maxKeywords {
			break
		}
	}
	if len(keywords) > 0 {
		fmt.Fprintf(&b, "Work in these keywords naturally: %s.\n", strings.Join(keywords, ", "))
	}

	return b.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
