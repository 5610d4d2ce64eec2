package openai

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/vbonduro/cropdoc/internal/photo"
	"github.com/vbonduro/cropdoc/internal/vision"
)

// DefaultBaseURL is the API root; the client appends /chat/completions.
const DefaultBaseURL = "https://api.openai.com/v1"

type OpenAIAnalyzer struct {
	client *goopenai.Client
	model  string
}

// NewOpenAIAnalyzer returns an analyzer for the Chat Completions API rooted at
// baseURL (DefaultBaseURL when empty). The API key is sent as-is; an empty key
// surfaces as a 401 from the service.
func NewOpenAIAnalyzer(apiKey, model, baseURL string) *OpenAIAnalyzer {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAnalyzer{
		client: goopenai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func buildMessages(p photo.Photo) []goopenai.ChatCompletionMessage {
	return []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: vision.SystemPrompt},
		{Role: goopenai.ChatMessageRoleUser, MultiContent: []goopenai.ChatMessagePart{
			{Type: goopenai.ChatMessagePartTypeText, Text: vision.UserPrompt},
			{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{URL: p.DataURI()}},
		}},
	}
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, p photo.Photo) (*vision.Analysis, error) {
	resp, err := a.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    a.model,
		Messages: buildMessages(p),
	})
	if err != nil {
		if statusErr := statusError(err); statusErr != nil {
			return nil, statusErr
		}
		return nil, fmt.Errorf("failed to call openai: %w", err)
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	return &vision.Analysis{
		Diagnosis:   vision.ParseResponse(text),
		RawResponse: text,
	}, nil
}

// statusError converts a non-2xx reply into a *vision.StatusError. It returns
// nil for transport and decode failures.
func statusError(err error) *vision.StatusError {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &vision.StatusError{Backend: "openai", Code: apiErr.HTTPStatusCode, Body: vision.TruncateBody([]byte(apiErr.Message))}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &vision.StatusError{Backend: "openai", Code: reqErr.HTTPStatusCode, Body: vision.TruncateBody(reqErr.Body)}
	}
	return nil
}
