package photo

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{G: 200, A: 255})
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), nil))
	return buf.Bytes()
}

func encodeGIF(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, testImage(w, h), nil))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantMIME string
		wantW    int
		wantH    int
	}{
		{name: "JPEG", data: encodeJPEG(t, 32, 24), wantMIME: "image/jpeg", wantW: 32, wantH: 24},
		{name: "PNG", data: encodePNG(t, 10, 7), wantMIME: "image/png", wantW: 10, wantH: 7},
		{name: "GIF", data: encodeGIF(t, 4, 4), wantMIME: "image/gif", wantW: 4, wantH: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, p.MIMEType)
			assert.Equal(t, tt.wantW, p.Width)
			assert.Equal(t, tt.wantH, p.Height)
			assert.Equal(t, tt.data, p.Data)
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "PDF disguised as image", data: []byte("%PDF-1.4 malicious content")},
		{name: "RIFF but not WebP", data: append([]byte("RIFF\x00\x00\x00\x00WAVE"), make([]byte, 10)...)},
		{name: "WebP header with garbage body", data: append([]byte("RIFF\x00\x00\x00\x00WEBP"), make([]byte, 10)...)},
		{name: "JPEG magic bytes only", data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}},
		{name: "plain text", data: []byte("Crop: Wheat")},
		{name: "empty", data: []byte{}},
		{name: "too short for WebP check", data: []byte("RIFF")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, ErrUnsupported)
		})
	}
}

func TestDataURI(t *testing.T) {
	data := encodePNG(t, 2, 2)
	p, err := Decode(data)
	require.NoError(t, err)

	uri := p.DataURI()
	encoded, ok := strings.CutPrefix(uri, "data:image/png;base64,")
	require.True(t, ok, "unexpected prefix in %q", uri[:30])

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestEmpty(t *testing.T) {
	assert.True(t, Photo{}.Empty())
	assert.False(t, Photo{Data: []byte{1}}.Empty())
}
