// Package camera abstracts the devices that produce live video for capture.
// A Device hands out at most one Stream at a time; opening a new one releases
// the previous handle.
package camera

import (
	"context"
	"errors"
	"fmt"

	"github.com/vbonduro/cropdoc/internal/photo"
)

var (
	// ErrAccessDenied is returned when the user or the platform refuses access
	// to the camera.
	ErrAccessDenied = errors.New("camera access denied")
	// ErrClosed is returned by operations on a released stream.
	ErrClosed = errors.New("camera stream closed")
	// ErrNoAgent is returned by relay devices when no browser is connected.
	ErrNoAgent = errors.New("no camera agent connected")
)

// Facing selects the physical sensor.
type Facing int

const (
	Back Facing = iota
	Front
)

// Toggle returns the opposite facing.
func (f Facing) Toggle() Facing {
	if f == Front {
		return Back
	}
	return Front
}

func (f Facing) String() string {
	if f == Front {
		return "front"
	}
	return "back"
}

// MediaMode returns the getUserMedia facingMode constraint for f.
func (f Facing) MediaMode() string {
	if f == Front {
		return "user"
	}
	return "environment"
}

// ParseFacing accepts "front"/"back" and the getUserMedia spellings
// "user"/"environment".
func ParseFacing(s string) (Facing, error) {
	switch s {
	case "back", "environment":
		return Back, nil
	case "front", "user":
		return Front, nil
	default:
		return Back, fmt.Errorf("unknown camera facing %q", s)
	}
}

type Device interface {
	// Open acquires a live stream for facing, blocking until the device
	// answers or ctx is done.
	Open(ctx context.Context, facing Facing) (Stream, error)
}

type Stream interface {
	Facing() Facing
	// Snapshot rasterizes the current frame at the stream's native resolution.
	Snapshot(ctx context.Context) (photo.Photo, error)
	// Done is closed once the stream is released, by Close or by the device
	// itself (for example when the browser agent reconnects).
	Done() <-chan struct{}
	Close() error
}

// Unavailable is a Device for hosts without a camera. Every Open fails with
// ErrAccessDenied.
type Unavailable struct{}

func (Unavailable) Open(context.Context, Facing) (Stream, error) {
	return nil, fmt.Errorf("%w: no camera on this host", ErrAccessDenied)
}
