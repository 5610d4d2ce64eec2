package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vbonduro/cropdoc/internal/camera"
	"github.com/vbonduro/cropdoc/internal/photo"
	"github.com/vbonduro/cropdoc/internal/vision"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeDevice records every Open and hands out fakeStreams.
type fakeDevice struct {
	mu      sync.Mutex
	opens   []camera.Facing
	streams []*fakeStream
	openErr error
	frame   photo.Photo
	snapErr error
	hang    bool // snapshots block until ctx is done
}

func (d *fakeDevice) Open(_ context.Context, facing camera.Facing) (camera.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens = append(d.opens, facing)
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &fakeStream{facing: facing, frame: d.frame, snapErr: d.snapErr, hang: d.hang, done: make(chan struct{})}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevice) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.opens)
}

func (d *fakeDevice) lastStream() *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

type fakeStream struct {
	mu      sync.Mutex
	facing  camera.Facing
	frame   photo.Photo
	snapErr error
	hang    bool
	closed  int
	snaps   int
	done    chan struct{}
}

func (s *fakeStream) Facing() camera.Facing { return s.facing }

func (s *fakeStream) Done() <-chan struct{} { return s.done }

func (s *fakeStream) Snapshot(ctx context.Context) (photo.Photo, error) {
	s.mu.Lock()
	if s.closed > 0 {
		s.mu.Unlock()
		return photo.Photo{}, camera.ErrClosed
	}
	s.snaps++
	if s.hang {
		s.mu.Unlock()
		<-ctx.Done()
		return photo.Photo{}, ctx.Err()
	}
	defer s.mu.Unlock()
	if s.snapErr != nil {
		return photo.Photo{}, s.snapErr
	}
	return s.frame, nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed == 0 {
		close(s.done)
	}
	s.closed++
	return nil
}

func (s *fakeStream) snapCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snaps
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed > 0
}

// fakeAnalyzer returns a canned reply. When gate is set, Analyze signals
// started and blocks until gate is closed or ctx ends.
type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   int
	got     []photo.Photo
	reply   string
	err     error
	gate    chan struct{}
	started chan struct{}
	ctxErr  error
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, p photo.Photo) (*vision.Analysis, error) {
	a.mu.Lock()
	a.calls++
	a.got = append(a.got, p)
	gate, started := a.gate, a.started
	a.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a.mu.Lock()
	a.ctxErr = ctx.Err()
	a.mu.Unlock()

	if a.err != nil {
		return nil, a.err
	}
	return &vision.Analysis{Diagnosis: vision.ParseResponse(a.reply), RawResponse: a.reply}, nil
}

func (a *fakeAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
