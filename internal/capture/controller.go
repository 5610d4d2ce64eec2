// Package capture implements the capture/analyze controller behind the crop
// doctor page: it acquires an image from a camera stream or an upload, sends
// it to a vision backend and holds what the page should display.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/cropdoc/internal/camera"
	"github.com/vbonduro/cropdoc/internal/photo"
	"github.com/vbonduro/cropdoc/internal/vision"
)

type ViewState int

const (
	Capturing ViewState = iota
	ShowingResult
)

func (s ViewState) String() string {
	if s == ShowingResult {
		return "showing_result"
	}
	return "capturing"
}

type RequestState int

const (
	Idle RequestState = iota
	Pending
	Done
)

// Options bounds the blocking calls made by a Controller. Zero values disable
// the corresponding timeout.
type Options struct {
	StartTimeout    time.Duration
	SnapshotTimeout time.Duration
	AnalyzeTimeout  time.Duration
}

type Controller struct {
	device   camera.Device
	analyzer vision.Analyzer
	opts     Options
	logger   *slog.Logger

	mu        sync.Mutex
	facing    camera.Facing
	stream    camera.Stream
	still     photo.Photo
	view      ViewState
	request   RequestState
	epoch     uint64
	result    *vision.Diagnosis
	failure   *Failure
	alert     string
	showSteps bool
	preview   bool
	panel     bool
}

func New(device camera.Device, analyzer vision.Analyzer, opts Options, logger *slog.Logger) *Controller {
	return &Controller{
		device:    device,
		analyzer:  analyzer,
		opts:      opts,
		logger:    logger,
		showSteps: true,
	}
}

// StartCapture releases any held stream and opens a new one with facing.
func (c *Controller) StartCapture(ctx context.Context, facing camera.Facing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.alert = ""
	c.showSteps = false
	c.facing = facing
	return c.startLocked(ctx)
}

// SwitchCamera toggles the facing and restarts capture with it.
func (c *Controller) SwitchCamera(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.alert = ""
	c.facing = c.facing.Toggle()
	c.logger.Debug("switching camera", "facing", c.facing)
	return c.startLocked(ctx)
}

func (c *Controller) startLocked(ctx context.Context) error {
	c.supersedeLocked()
	c.releaseStreamLocked()
	c.still = photo.Photo{}
	c.preview = false

	if c.opts.StartTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.StartTimeout)
		defer cancel()
	}

	stream, err := c.device.Open(ctx, c.facing)
	if err != nil {
		c.logger.Warn("camera start failed", "facing", c.facing, "error", err)
		c.alert = DeviceAccessDenied.Message()
		return &Failure{Kind: DeviceAccessDenied, Err: err}
	}
	c.stream = stream
	c.view = Capturing
	c.panel = false
	c.logger.Info("camera started", "facing", c.facing)
	return nil
}

// LoadFromFile reads an uploaded image and makes it the current source. Bytes
// that do not decode as a supported image leave the state untouched.
func (c *Controller) LoadFromFile(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.alert = ""
	p, err := photo.Decode(data)
	if err != nil {
		c.logger.Warn("rejected upload", "bytes", len(data), "error", err)
		c.alert = InvalidImage.Message()
		return &Failure{Kind: InvalidImage, Err: err}
	}

	c.supersedeLocked()
	c.releaseStreamLocked()
	c.still = p
	c.view = Capturing
	c.showSteps = false
	c.preview = true
	c.panel = false
	c.logger.Info("image loaded", "mime_type", p.MIMEType, "width", p.Width, "height", p.Height, "bytes", len(p.Data))
	return nil
}

// AnalyzeOrReset submits the current image for analysis while capturing, and
// returns to capturing while a result is shown. A trigger while a request is
// pending is rejected with ErrAnalysisPending.
func (c *Controller) AnalyzeOrReset(ctx context.Context) error {
	c.mu.Lock()
	if c.request == Pending {
		c.mu.Unlock()
		return ErrAnalysisPending
	}
	c.alert = ""

	if c.view == ShowingResult {
		defer c.mu.Unlock()
		c.panel = false
		c.preview = false
		c.showSteps = true
		c.result = nil
		c.failure = nil
		c.request = Idle
		c.view = Capturing
		return c.startLocked(ctx)
	}

	img, err := c.acquireLocked(ctx)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	c.still = img
	c.preview = true
	c.panel = true
	c.result = nil
	c.failure = nil
	c.request = Pending
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	analysis, err := c.analyze(ctx, img)

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		c.logger.Info("discarding superseded analysis", "error", err)
		return ErrSuperseded
	}

	c.request = Done
	c.view = ShowingResult
	if err != nil {
		kind := Classify(err)
		if kind == UnexpectedFailure {
			c.logger.Error("analysis failed", "error", err)
		} else {
			c.logger.Warn("analysis failed", "kind", kind, "error", err)
		}
		c.failure = &Failure{Kind: kind, Err: err}
		return c.failure
	}
	c.result = &analysis.Diagnosis
	return nil
}

// acquireLocked returns the image to analyze. A live stream is snapshotted
// and released so the preview shows the still.
func (c *Controller) acquireLocked(ctx context.Context) (photo.Photo, error) {
	if !c.still.Empty() {
		return c.still, nil
	}
	c.dropReleasedLocked()
	if c.stream == nil {
		c.alert = NoImageAvailable.Message()
		return photo.Photo{}, &Failure{Kind: NoImageAvailable}
	}

	img, err := c.snapshotLocked(ctx)
	c.releaseStreamLocked()
	if err != nil {
		c.logger.Warn("snapshot failed", "facing", c.facing, "error", err)
		c.alert = NoImageAvailable.Message()
		return photo.Photo{}, &Failure{Kind: NoImageAvailable, Err: err}
	}
	return img, nil
}

func (c *Controller) analyze(ctx context.Context, img photo.Photo) (*vision.Analysis, error) {
	ctx = context.WithoutCancel(ctx)
	if c.opts.AnalyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.AnalyzeTimeout)
		defer cancel()
	}

	start := time.Now()
	c.logger.Info("vision analysis started", "mime_type", img.MIMEType, "bytes", len(img.Data))
	analysis, err := c.analyzer.Analyze(ctx, img)
	if err != nil {
		return nil, err
	}
	c.logger.Info("vision analysis complete",
		"crop", analysis.Diagnosis.Crop,
		"duration_ms", time.Since(start).Milliseconds())
	return analysis, nil
}

// PreviewFrame snapshots the live stream without changing state. It is used
// for devices whose video the browser cannot display directly.
func (c *Controller) PreviewFrame(ctx context.Context) (photo.Photo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropReleasedLocked()
	if c.stream == nil {
		return photo.Photo{}, camera.ErrClosed
	}
	return c.snapshotLocked(ctx)
}

// snapshotLocked bounds the snapshot so an unresponsive camera cannot hold
// the controller lock.
func (c *Controller) snapshotLocked(ctx context.Context) (photo.Photo, error) {
	if c.opts.SnapshotTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.SnapshotTimeout)
		defer cancel()
	}
	return c.stream.Snapshot(ctx)
}

// Close releases the camera stream and discards any in-flight analysis.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersedeLocked()
	if c.stream == nil {
		return nil
	}
	err := c.stream.Close()
	c.stream = nil
	if err != nil && !errors.Is(err, camera.ErrClosed) {
		return fmt.Errorf("failed to close camera stream: %w", err)
	}
	return nil
}

// supersedeLocked invalidates a pending request so its result is dropped.
func (c *Controller) supersedeLocked() {
	if c.request == Pending {
		c.epoch++
		c.request = Idle
		c.panel = false
	}
}

// dropReleasedLocked forgets a stream the device released on its own. With no
// still to fall back on, the page returns to the capture steps.
func (c *Controller) dropReleasedLocked() {
	if c.stream == nil {
		return
	}
	select {
	case <-c.stream.Done():
	default:
		return
	}
	c.logger.Info("camera stream released by device", "facing", c.stream.Facing())
	c.stream = nil
	if c.view == Capturing && c.still.Empty() {
		c.showSteps = true
	}
}

func (c *Controller) releaseStreamLocked() {
	if c.stream == nil {
		return
	}
	if err := c.stream.Close(); err != nil && !errors.Is(err, camera.ErrClosed) {
		c.logger.Warn("failed to release camera stream", "facing", c.stream.Facing(), "error", err)
	}
	c.stream = nil
}
