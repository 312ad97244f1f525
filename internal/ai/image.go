package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	imagesPath        = "/v1/images/generations"
	defaultImageSize  = "1024x1024"
	maxErrorBodyBytes = 64 << 10
	maxImageBodyBytes = 32 << 20
)

var allowedSizes = map[string]bool{
	"256x256":   true,
	"512x512":   true,
	"1024x1024": true,
}

// ImageRequest describes an image generation request.
type ImageRequest struct {
	Prompt string
	Size   string
}

// ImageResult holds either a hosted URL or inline base64 data.
type ImageResult struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// ImageClient calls an OpenAI-compatible image generation endpoint.
type ImageClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewImageClient creates an image client. httpClient may be nil.
func NewImageClient(baseURL, apiKey, model string, httpClient *http.Client, limiter *rate.Limiter) *ImageClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ImageClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// NormalizeSize returns the requested size or the default when empty.
func NormalizeSize(size string) (string, error) {
	size = strings.ToLower(strings.TrimSpace(size))
	if size == "" {
		return defaultImageSize, nil
	}
	if !allowedSizes[size] {
		return "", ErrInvalidSize
	}
	return size, nil
}

// Generate requests one image.
func (c *ImageClient) Generate(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	if c.baseURL == "" || c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	size, err := NormalizeSize(req.Size)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"prompt": req.Prompt,
		"size":   size,
		"n":      1,
	}
	if c.model != "" {
		payload["model"] = c.model
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image request: %w", err)
	}

	if err := wait(ctx, c.limiter); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+imagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: "image", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ProviderError{Provider: "image", StatusCode: resp.StatusCode, Message: msg}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBodyBytes))
	if err != nil {
		return nil, &ProviderError{Provider: "image", StatusCode: resp.StatusCode, Message: err.Error()}
	}

	first := gjson.GetBytes(raw, "data.0")
	result := &ImageResult{
		URL:           first.Get("url").String(),
		B64JSON:       first.Get("b64_json").String(),
		RevisedPrompt: first.Get("revised_prompt").String(),
	}
	if result.URL == "" && result.B64JSON == "" {
		return nil, ErrEmptyResponse
	}

	return result, nil
}
