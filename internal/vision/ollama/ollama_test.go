package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/cropdoc/internal/photo"
	"github.com/vbonduro/cropdoc/internal/vision"
)

var testPhoto = photo.Photo{Data: []byte{0xFF, 0xD8, 0xFF, 0xE0}, MIMEType: "image/jpeg"}

func TestOllamaAnalyze(t *testing.T) {
	// Create a test server that mimics Ollama
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)

		resp := map[string]any{
			"model":    got.Model,
			"response": "Crop: Chilli\nDisease: Leaf curl\nSolution: Control whiteflies",
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	analyzer := NewOllamaAnalyzer(server.URL, "llava")

	result, err := analyzer.Analyze(context.Background(), testPhoto)
	require.NoError(t, err)
	assert.Equal(t, vision.Diagnosis{Crop: "Chilli", Disease: "Leaf curl", Solution: "Control whiteflies"}, result.Diagnosis)

	assert.Equal(t, "llava", got.Model)
	assert.Equal(t, vision.SystemPrompt, got.System)
	assert.Equal(t, vision.UserPrompt, got.Prompt)
	assert.Equal(t, []string{testPhoto.Base64()}, got.Images)
	assert.False(t, got.Stream)
}

func TestOllamaAnalyzeNetworkError(t *testing.T) {
	analyzer := NewOllamaAnalyzer("http://localhost:99999", "llava")

	_, err := analyzer.Analyze(context.Background(), testPhoto)
	assert.Error(t, err)
}

func TestOllamaAnalyzeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	analyzer := NewOllamaAnalyzer(server.URL, "llava")

	_, err := analyzer.Analyze(context.Background(), testPhoto)
	var statusErr *vision.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
}
