// Package local drives a camera attached to the machine running cropdoc,
// for kiosk setups where the browser cannot reach a camera itself. The OpenCV
// implementation is only compiled with -tags gocv.
package local

import "github.com/vbonduro/cropdoc/internal/camera"

// Config maps facings to OS device indices.
type Config struct {
	BackIndex  int
	FrontIndex int
}

func (c Config) index(f camera.Facing) int {
	if f == camera.Front {
		return c.FrontIndex
	}
	return c.BackIndex
}
