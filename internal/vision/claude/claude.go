package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/cropdoc/internal/photo"
	"github.com/vbonduro/cropdoc/internal/vision"
)

// maxTokens covers three short labelled lines.
const maxTokens = 256

type ClaudeAnalyzer struct {
	client *anthropic.Client
	model  string
}

// NewClaudeAnalyzer returns an analyzer for the Anthropic Messages API.
// opts are passed to the client, e.g. anthropic.WithBaseURL in tests.
func NewClaudeAnalyzer(apiKey, model string, opts ...anthropic.ClientOption) *ClaudeAnalyzer {
	return &ClaudeAnalyzer{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func buildMessages(p photo.Photo) []anthropic.Message {
	return []anthropic.Message{{
		Role: anthropic.RoleUser,
		Content: []anthropic.MessageContent{
			anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
				anthropic.MessagesContentSourceTypeBase64,
				normaliseMIME(p.MIMEType),
				p.Base64(),
			)),
			anthropic.NewTextMessageContent(vision.UserPrompt),
		},
	}}
}

func (a *ClaudeAnalyzer) Analyze(ctx context.Context, p photo.Photo) (*vision.Analysis, error) {
	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		System:    vision.SystemPrompt,
		Messages:  buildMessages(p),
		MaxTokens: maxTokens,
	})
	if err != nil {
		if code, ok := statusFromError(err); ok {
			return nil, &vision.StatusError{Backend: "claude", Code: code, Body: err.Error()}
		}
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	var text string
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			text = c.GetText()
			break
		}
	}

	return &vision.Analysis{
		Diagnosis:   vision.ParseResponse(text),
		RawResponse: text,
	}, nil
}

// statusFromError recovers the HTTP status class of an Anthropic failure.
// Structured API errors carry a type rather than a code, so the type is mapped
// back to the status the API documents for it.
func statusFromError(err error) (int, bool) {
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode != 0 {
		return reqErr.StatusCode, true
	}

	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		switch string(apiErr.Type) {
		case "invalid_request_error":
			return http.StatusBadRequest, true
		case "authentication_error":
			return http.StatusUnauthorized, true
		case "permission_error":
			return http.StatusForbidden, true
		case "not_found_error":
			return http.StatusNotFound, true
		case "request_too_large":
			return http.StatusRequestEntityTooLarge, true
		case "rate_limit_error":
			return http.StatusTooManyRequests, true
		case "overloaded_error":
			return 529, true
		default:
			return http.StatusInternalServerError, true
		}
	}
	return 0, false
}

// normaliseMIME maps MIME types to the values the Anthropic API accepts.
// The Anthropic API accepts only jpeg, png, gif, and webp. Unknown types are
// coerced to jpeg as the most universally supported lossy fallback.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
