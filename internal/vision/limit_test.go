package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/vbonduro/cropdoc/internal/photo"
)

type countingAnalyzer struct {
	calls int
}

func (c *countingAnalyzer) Analyze(context.Context, photo.Photo) (*Analysis, error) {
	c.calls++
	return &Analysis{Diagnosis: ParseResponse("Crop: Wheat")}, nil
}

func TestLimitRefusesBeyondBurst(t *testing.T) {
	next := &countingAnalyzer{}
	a := Limit(next, rate.NewLimiter(rate.Limit(0.001), 1))

	_, err := a.Analyze(context.Background(), photo.Photo{})
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), photo.Photo{})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, next.calls)
}

func TestLimitNilLimiter(t *testing.T) {
	next := &countingAnalyzer{}
	assert.Same(t, Analyzer(next), Limit(next, nil))
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Backend: "openai", Code: 429, Body: "slow down"}
	assert.Equal(t, "openai returned status 429: slow down", err.Error())

	err = &StatusError{Backend: "ollama", Code: 500}
	assert.Equal(t, "ollama returned status 500", err.Error())
}

func TestTruncateBody(t *testing.T) {
	assert.Equal(t, "short", TruncateBody([]byte("short")))

	long := make([]byte, maxErrorBody+10)
	for i := range long {
		long[i] = 'x'
	}
	got := TruncateBody(long)
	assert.Len(t, got, maxErrorBody+3)
}
