package vision

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/vbonduro/cropdoc/internal/photo"
)

type limitedAnalyzer struct {
	next    Analyzer
	limiter *rate.Limiter
}

// Limit wraps next so that requests beyond limiter's budget fail fast with
// ErrRateLimited. Refused requests never reach the backend.
func Limit(next Analyzer, limiter *rate.Limiter) Analyzer {
	if limiter == nil {
		return next
	}
	return &limitedAnalyzer{next: next, limiter: limiter}
}

func (l *limitedAnalyzer) Analyze(ctx context.Context, p photo.Photo) (*Analysis, error) {
	if !l.limiter.Allow() {
		return nil, ErrRateLimited
	}
	return l.next.Analyze(ctx, p)
}
