//go:build !gocv

package local

import (
	"errors"
	"log/slog"

	"github.com/vbonduro/cropdoc/internal/camera"
)

// New returns an error when built without OpenCV support.
func New(cfg Config, logger *slog.Logger) (camera.Device, error) {
	return nil, errors.New("local camera support requires building with -tags gocv")
}
