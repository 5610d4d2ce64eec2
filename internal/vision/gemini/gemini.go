package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/vbonduro/cropdoc/internal/photo"
	"github.com/vbonduro/cropdoc/internal/vision"
)

type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnalyzer creates a Gemini API client. baseURL overrides the
// service endpoint and is empty in production.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model, baseURL string) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client, model: model}, nil
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, p photo.Photo) (*vision.Analysis, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: vision.SystemPrompt}},
		},
	}
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: p.MIMEType, Data: p.Data}},
			{Text: vision.UserPrompt},
		},
	}}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code != 0 {
			return nil, &vision.StatusError{Backend: "gemini", Code: apiErr.Code, Body: apiErr.Message}
		}
		return nil, fmt.Errorf("failed to call gemini: %w", err)
	}

	text := resp.Text()
	return &vision.Analysis{
		Diagnosis:   vision.ParseResponse(text),
		RawResponse: text,
	}, nil
}
