// Package photo holds still images captured from a camera or uploaded by the
// user, and the format checks applied before they reach a vision model.
package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	_ "golang.org/x/image/webp"
)

// ErrUnsupported is returned when bytes are not a JPEG, PNG, GIF or WebP image.
var ErrUnsupported = errors.New("unsupported image format")

// allowedTypes is the set of MIME types accepted as photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff algorithm
// has no WebP signature.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// Photo is an encoded still image.
type Photo struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Decode sniffs data, checks it is an accepted image format and reads its
// pixel dimensions. The pixels themselves are not decoded.
func Decode(data []byte) (Photo, error) {
	mimeType, ok := sniff(data)
	if !ok {
		return Photo{}, ErrUnsupported
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Photo{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return Photo{
		Data:     data,
		MIMEType: mimeType,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// Empty reports whether p carries no image bytes.
func (p Photo) Empty() bool {
	return len(p.Data) == 0
}

// Base64 returns the image bytes in standard base64.
func (p Photo) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// DataURI returns p as a data: URI suitable for an <img src> or a JSON payload.
func (p Photo) DataURI() string {
	return "data:" + p.MIMEType + ";base64," + p.Base64()
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

func sniff(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mimeType := http.DetectContentType(data)
	if allowedTypes[mimeType] {
		return mimeType, true
	}
	return "", false
}
