package vision

import (
	"context"
	"errors"
	"fmt"

	"github.com/vbonduro/cropdoc/internal/photo"
)

// SystemPrompt constrains every backend to the three-line reply ParseResponse
// understands.
const SystemPrompt = `You are an agriculture expert. From the image, detect the crop name and any disease. Respond strictly in this format:
Crop: <name>
Disease: <max 5 words>
Solution: <max 5 words>.
Nothing else.`

// UserPrompt accompanies the image in the user turn.
const UserPrompt = "Analyze this crop image and return crop name, disease, and solution."

// ErrRateLimited is returned by a limited Analyzer when it refuses a request
// without contacting the backend.
var ErrRateLimited = errors.New("vision: request rate limit exceeded")

type Analyzer interface {
	Analyze(ctx context.Context, p photo.Photo) (*Analysis, error)
}

type Analysis struct {
	Diagnosis   Diagnosis
	RawResponse string
}

// StatusError reports a non-2xx reply from a model backend.
type StatusError struct {
	Backend string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Backend, e.Code)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Backend, e.Code, e.Body)
}

// maxErrorBody bounds how much of an error reply is kept in StatusError.
const maxErrorBody = 512

// TruncateBody shortens an error reply for logging.
func TruncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
