package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spacebio/rag/internal/types"
)

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GeminiClient generates one image per prompt through the Gemini
// generateContent endpoint.
type GeminiClient struct {
	config GeminiConfig
	client *http.Client
}

func NewGeminiClient(config GeminiConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, types.ValidationError{
			Field:   "images.api_key",
			Message: "Gemini API key is required",
		}
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash-image-preview"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &GeminiClient{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

type generateRequest struct {
	Contents []requestContent `json:"contents"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []responsePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// The API has returned the payload under both snake_case and
// camelCase field names, so the decoder accepts either.
type responsePart struct {
	InlineData      *inlineData `json:"inline_data"`
	InlineDataCamel *inlineData `json:"inlineData"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

func (p responsePart) data() string {
	if p.InlineData != nil && p.InlineData.Data != "" {
		return p.InlineData.Data
	}
	if p.InlineDataCamel != nil && p.InlineDataCamel.Data != "" {
		return p.InlineDataCamel.Data
	}
	return ""
}

// GenerateImage returns the first inline binary payload in the model
// response, or ErrNoImageData when the response carries none.
func (g *GeminiClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []requestContent{{Parts: []requestPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.config.BaseURL, g.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.config.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &types.UpstreamError{Stage: "image", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &types.UpstreamError{
			Stage: "image",
			Err:   fmt.Errorf("status %d: %s", resp.StatusCode, detail),
		}
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &types.UpstreamError{Stage: "image", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	for _, candidate := range parsed.Candidates {
		for _, p := range candidate.Content.Parts {
			if b64 := p.data(); b64 != "" {
				payload, err := base64.StdEncoding.DecodeString(b64)
				if err != nil {
					return nil, &types.UpstreamError{Stage: "image", Err: fmt.Errorf("bad image payload: %w", err)}
				}
				return payload, nil
			}
		}
	}

	return nil, types.ErrNoImageData
}
