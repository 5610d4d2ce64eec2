//go:build gocv

package local

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/vbonduro/cropdoc/internal/camera"
	"github.com/vbonduro/cropdoc/internal/photo"
)

// Device opens V4L2/AVFoundation cameras attached to the host through OpenCV.
type Device struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	current *stream
}

func New(cfg Config, logger *slog.Logger) (camera.Device, error) {
	return &Device{cfg: cfg, logger: logger}, nil
}

func (d *Device) Open(ctx context.Context, facing camera.Facing) (camera.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil {
		if err := d.current.closeLocked(); err != nil {
			d.logger.Warn("failed to release previous capture device", "error", err)
		}
		d.current = nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	index := d.cfg.index(facing)
	vc, err := gocv.VideoCaptureDevice(index)
	if err != nil {
		return nil, fmt.Errorf("%w: open device %d: %v", camera.ErrAccessDenied, index, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("%w: device %d not opened", camera.ErrAccessDenied, index)
	}

	s := &stream{dev: d, vc: vc, facing: facing, done: make(chan struct{})}
	d.current = s
	d.logger.Info("local camera opened", "device", index, "facing", facing.String())
	return s, nil
}

type stream struct {
	dev    *Device
	vc     *gocv.VideoCapture
	facing camera.Facing
	closed bool
	done   chan struct{}
}

func (s *stream) Facing() camera.Facing { return s.facing }

func (s *stream) Done() <-chan struct{} { return s.done }

func (s *stream) Snapshot(ctx context.Context) (photo.Photo, error) {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	if s.closed {
		return photo.Photo{}, camera.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return photo.Photo{}, err
	}

	mat := gocv.NewMat()
	defer mat.Close()
	if ok := s.vc.Read(&mat); !ok || mat.Empty() {
		return photo.Photo{}, fmt.Errorf("read frame: device returned no image")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return photo.Photo{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return photo.Photo{
		Data:     bytes.Clone(buf.GetBytes()),
		MIMEType: "image/jpeg",
		Width:    mat.Cols(),
		Height:   mat.Rows(),
	}, nil
}

func (s *stream) Close() error {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	if s.dev.current == s {
		s.dev.current = nil
	}
	return s.closeLocked()
}

func (s *stream) closeLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return s.vc.Close()
}
