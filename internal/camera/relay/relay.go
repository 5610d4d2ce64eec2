// Package relay implements camera.Device on top of a browser. The page opens a
// websocket, runs getUserMedia when told to, and answers snapshot requests
// with JPEG frames drawn at the video's native size.
//
// Server → browser (JSON text):
//
//	{"type":"ready"}                                   (agent registered)
//	{"type":"start","stream":"<id>","facing":"environment"}
//	{"type":"snapshot","stream":"<id>"}
//	{"type":"stop","stream":"<id>"}
//
// Browser → server:
//
//	{"type":"started","stream":"<id>","width":1280,"height":720}
//	{"type":"denied","stream":"<id>","reason":"NotAllowedError"}
//	{"type":"error","stream":"<id>","reason":"..."}   (snapshot failed)
//	<binary JPEG>                                      (snapshot reply)
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vbonduro/cropdoc/internal/camera"
	"github.com/vbonduro/cropdoc/internal/photo"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxMessageBytes bounds a single snapshot frame.
	maxMessageBytes = 16 << 20
)

type command struct {
	Type   string `json:"type"`
	Stream string `json:"stream"`
	Facing string `json:"facing,omitempty"`
}

type event struct {
	Type   string `json:"type"`
	Stream string `json:"stream"`
	Reason string `json:"reason,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Device is a camera.Device backed by one browser tab. It is safe for
// concurrent use.
type Device struct {
	logger *slog.Logger

	mu      sync.Mutex
	agent   *agent
	current *stream
}

func New(logger *slog.Logger) *Device {
	return &Device{logger: logger}
}

type agent struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
}

func (a *agent) send(cmd command) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if err := a.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return a.conn.WriteJSON(cmd)
}

// Connected reports whether a browser is attached.
func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.agent != nil
}

// Attach serves conn as the device's browser agent until the connection drops
// or ctx is done. A newer connection replaces an older one, and streams opened
// through the older one are released.
func (d *Device) Attach(ctx context.Context, conn *websocket.Conn) error {
	a := &agent{conn: conn, done: make(chan struct{})}

	d.mu.Lock()
	prev := d.agent
	d.agent = a
	stale := d.current
	d.current = nil
	d.mu.Unlock()

	if stale != nil {
		stale.release()
	}
	if prev != nil {
		_ = prev.conn.Close()
	}
	d.logger.Debug("camera agent attached", "remote", conn.RemoteAddr().String())
	if err := a.send(command{Type: "ready"}); err != nil {
		d.logger.Warn("failed to greet camera agent", "error", err)
	}

	conn.SetReadLimit(maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-a.done:
				return
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			}
		}
	}()

	err := d.readLoop(conn)
	close(a.done)

	d.mu.Lock()
	if d.agent == a {
		d.agent = nil
	}
	cur := d.current
	if cur != nil && cur.agent == a {
		d.current = nil
	} else {
		cur = nil
	}
	d.mu.Unlock()
	if cur != nil {
		cur.release()
	}
	_ = conn.Close()
	d.logger.Debug("camera agent detached", "error", err)

	if err == nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (d *Device) readLoop(conn *websocket.Conn) error {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		switch mt {
		case websocket.BinaryMessage:
			if s := d.active(""); s != nil {
				s.deliver(snapshotResult{data: data})
			}
		case websocket.TextMessage:
			var ev event
			if err := json.Unmarshal(data, &ev); err != nil {
				d.logger.Warn("malformed camera agent message", "error", err)
				continue
			}
			s := d.active(ev.Stream)
			if s == nil {
				continue
			}
			switch ev.Type {
			case "started", "denied":
				select {
				case s.startc <- ev:
				default:
				}
			case "error":
				s.deliver(snapshotResult{err: fmt.Errorf("camera agent snapshot failed: %s", ev.Reason)})
			}
		}
	}
}

// active returns the current stream, or nil if id is non-empty and names a
// different stream.
func (d *Device) active(id string) *stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil || (id != "" && d.current.id != id) {
		return nil
	}
	return d.current
}

// Open asks the browser to start the camera with facing and waits for its
// answer. Any previously opened stream is stopped first.
func (d *Device) Open(ctx context.Context, facing camera.Facing) (camera.Stream, error) {
	d.mu.Lock()
	a := d.agent
	prev := d.current
	d.current = nil
	d.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			d.logger.Warn("failed to stop previous camera stream", "stream", prev.id, "error", err)
		}
	}
	if a == nil {
		return nil, camera.ErrNoAgent
	}

	s := &stream{
		id:      uuid.NewString(),
		facing:  facing,
		dev:     d,
		agent:   a,
		startc:  make(chan event, 1),
		results: make(chan snapshotResult, 1),
		closed:  make(chan struct{}),
	}
	d.mu.Lock()
	d.current = s
	d.mu.Unlock()

	if err := a.send(command{Type: "start", Stream: s.id, Facing: facing.MediaMode()}); err != nil {
		s.release()
		return nil, fmt.Errorf("send start command: %w", err)
	}

	select {
	case ev := <-s.startc:
		if ev.Type == "denied" {
			s.release()
			return nil, fmt.Errorf("%w: %s", camera.ErrAccessDenied, ev.Reason)
		}
		d.logger.Info("camera stream started", "stream", s.id, "facing", facing.String(), "width", ev.Width, "height", ev.Height)
		return s, nil
	case <-a.done:
		s.release()
		return nil, camera.ErrNoAgent
	case <-ctx.Done():
		_ = s.Close()
		return nil, fmt.Errorf("wait for camera: %w", ctx.Err())
	}
}

// Close stops the current stream and disconnects the browser.
func (d *Device) Close() error {
	d.mu.Lock()
	a := d.agent
	cur := d.current
	d.agent = nil
	d.current = nil
	d.mu.Unlock()

	if cur != nil {
		_ = cur.Close()
	}
	if a != nil {
		return a.conn.Close()
	}
	return nil
}

type snapshotResult struct {
	data []byte
	err  error
}

type stream struct {
	id     string
	facing camera.Facing
	dev    *Device
	agent  *agent

	startc  chan event
	results chan snapshotResult
	snapMu  sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

func (s *stream) Facing() camera.Facing { return s.facing }

func (s *stream) Done() <-chan struct{} { return s.closed }

func (s *stream) deliver(r snapshotResult) {
	select {
	case s.results <- r:
	default:
	}
}

func (s *stream) Snapshot(ctx context.Context) (photo.Photo, error) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	select {
	case <-s.closed:
		return photo.Photo{}, camera.ErrClosed
	default:
	}

	// Drop any frame left over from an abandoned request.
	select {
	case <-s.results:
	default:
	}

	if err := s.agent.send(command{Type: "snapshot", Stream: s.id}); err != nil {
		return photo.Photo{}, fmt.Errorf("send snapshot command: %w", err)
	}

	select {
	case r := <-s.results:
		if r.err != nil {
			return photo.Photo{}, r.err
		}
		p, err := photo.Decode(r.data)
		if err != nil {
			return photo.Photo{}, fmt.Errorf("decode snapshot: %w", err)
		}
		return p, nil
	case <-s.closed:
		return photo.Photo{}, camera.ErrClosed
	case <-s.agent.done:
		return photo.Photo{}, camera.ErrNoAgent
	case <-ctx.Done():
		return photo.Photo{}, ctx.Err()
	}
}

// release marks the stream closed and forgets it without messaging the browser.
func (s *stream) release() bool {
	released := false
	s.closeOnce.Do(func() {
		close(s.closed)
		released = true
	})
	s.dev.mu.Lock()
	if s.dev.current == s {
		s.dev.current = nil
	}
	s.dev.mu.Unlock()
	return released
}

// Close tells the browser to stop the camera tracks for this stream.
func (s *stream) Close() error {
	if !s.release() {
		return nil
	}
	select {
	case <-s.agent.done:
		return nil
	default:
	}
	if err := s.agent.send(command{Type: "stop", Stream: s.id}); err != nil {
		return fmt.Errorf("send stop command: %w", err)
	}
	return nil
}
