// Package session keeps one capture controller per browser session. Sessions
// live in memory only and expire after an idle TTL.
package session

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/vbonduro/cropdoc/internal/camera"
	"github.com/vbonduro/cropdoc/internal/capture"
)

type Session struct {
	ID         string
	Device     camera.Device
	Controller *capture.Controller
}

// Builder creates the camera device and controller for a new session.
type Builder func(logger *slog.Logger) (camera.Device, *capture.Controller)

type Registry struct {
	items  *cache.Cache
	build  Builder
	logger *slog.Logger
}

// New returns a Registry whose sessions expire after ttl without access. A ttl
// of zero keeps sessions until Delete or Close.
func New(ttl time.Duration, build Builder, logger *slog.Logger) *Registry {
	cleanup := ttl / 2
	if ttl <= 0 {
		ttl = cache.NoExpiration
		cleanup = 0
	}
	r := &Registry{
		items:  cache.New(ttl, cleanup),
		build:  build,
		logger: logger,
	}
	r.items.OnEvicted(r.evicted)
	return r
}

// Get returns the session for id and refreshes its TTL.
func (r *Registry) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := r.items.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	r.items.SetDefault(id, s)
	return s, true
}

// GetOrCreate returns the session for id, or a new session when id is unknown
// or expired. created reports whether a new session was made.
func (r *Registry) GetOrCreate(id string) (s *Session, created bool) {
	if s, ok := r.Get(id); ok {
		return s, false
	}

	id = uuid.NewString()
	logger := r.logger.With("session_id", id)
	device, ctrl := r.build(logger)
	s = &Session{ID: id, Device: device, Controller: ctrl}
	r.items.SetDefault(id, s)
	r.logger.Info("session created", "session_id", id)
	return s, true
}

func (r *Registry) Delete(id string) {
	r.items.Delete(id)
}

// Close ends every session, releasing their cameras.
func (r *Registry) Close() {
	r.items.DeleteExpired()
	for id := range r.items.Items() {
		r.items.Delete(id)
	}
}

func (r *Registry) evicted(id string, v any) {
	s, ok := v.(*Session)
	if !ok {
		return
	}
	if err := s.Controller.Close(); err != nil {
		r.logger.Warn("failed to close controller", "session_id", id, "error", err)
	}
	if closer, ok := s.Device.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			r.logger.Warn("failed to close camera device", "session_id", id, "error", err)
		}
	}
	r.logger.Info("session ended", "session_id", id)
}
