package capture

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vbonduro/cropdoc/internal/camera"
	"github.com/vbonduro/cropdoc/internal/photo"
	"github.com/vbonduro/cropdoc/internal/vision"
)

// Text shown to the user. Labels and notices are bilingual where the page
// presents them that way.
const (
	AnalyzeLabel = "Analyze Crop / फसल विश्लेषण करें"
	BackLabel    = "⬅ Back"
	LoadingText  = "Analyzing... कृपया प्रतीक्षा करें..."

	msgAccessDenied = "Camera access denied / कैमरा एक्सेस अस्वीकृत"
	msgNoImage      = "Please capture or upload an image first"
	msgInvalidImage = "Unsupported image format / असमर्थित छवि प्रारूप"
	msgAuthInvalid  = "❌ API key is invalid or expired."
	msgRateLimited  = "⚠️ Too many requests. Try again later."
	msgUnavailable  = "⚠️ API not responding. Try again later."
	msgUnexpected   = "⚠️ Something went wrong. Try again later."
)

var (
	// ErrAnalysisPending is returned when an analysis is triggered while a
	// previous request has not completed.
	ErrAnalysisPending = errors.New("analysis already in progress")
	// ErrSuperseded is returned by AnalyzeOrReset when a newer capture or
	// upload replaced the image while the request was in flight. The late
	// result is discarded.
	ErrSuperseded = errors.New("analysis superseded by a newer image")
)

type Kind int

const (
	UnexpectedFailure Kind = iota
	DeviceAccessDenied
	NoImageAvailable
	InvalidImage
	AuthInvalid
	RateLimited
	ServiceUnavailable
)

var kindNames = map[Kind]string{
	UnexpectedFailure:  "unexpected_failure",
	DeviceAccessDenied: "device_access_denied",
	NoImageAvailable:   "no_image_available",
	InvalidImage:       "invalid_image",
	AuthInvalid:        "auth_invalid",
	RateLimited:        "rate_limited",
	ServiceUnavailable: "service_unavailable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Message returns the user-facing text for k.
func (k Kind) Message() string {
	switch k {
	case DeviceAccessDenied:
		return msgAccessDenied
	case NoImageAvailable:
		return msgNoImage
	case InvalidImage:
		return msgInvalidImage
	case AuthInvalid:
		return msgAuthInvalid
	case RateLimited:
		return msgRateLimited
	case ServiceUnavailable:
		return msgUnavailable
	default:
		return msgUnexpected
	}
}

// Blocking reports whether k is raised before any network call and shown as
// an alert rather than in the result panel.
func (k Kind) Blocking() bool {
	return k == DeviceAccessDenied || k == NoImageAvailable || k == InvalidImage
}

// Failure is the error returned by controller operations that end in a
// user-visible failure.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return f.Kind.String() + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// Classify maps an error from a camera device or vision backend to a Kind.
func Classify(err error) Kind {
	var statusErr *vision.StatusError
	switch {
	case err == nil:
		return UnexpectedFailure
	case errors.Is(err, vision.ErrRateLimited):
		return RateLimited
	case errors.As(err, &statusErr):
		switch statusErr.Code {
		case http.StatusUnauthorized:
			return AuthInvalid
		case http.StatusTooManyRequests:
			return RateLimited
		default:
			return ServiceUnavailable
		}
	case errors.Is(err, camera.ErrAccessDenied), errors.Is(err, camera.ErrNoAgent):
		return DeviceAccessDenied
	case errors.Is(err, photo.ErrUnsupported):
		return InvalidImage
	case errors.Is(err, context.DeadlineExceeded):
		return ServiceUnavailable
	default:
		return UnexpectedFailure
	}
}
