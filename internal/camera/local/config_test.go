package local

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vbonduro/cropdoc/internal/camera"
)

func TestConfigIndex(t *testing.T) {
	cfg := Config{BackIndex: 2, FrontIndex: 5}
	assert.Equal(t, 2, cfg.index(camera.Back))
	assert.Equal(t, 5, cfg.index(camera.Front))
}
