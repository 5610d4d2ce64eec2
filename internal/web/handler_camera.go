package web

import (
	"errors"
	"net/http"

	"github.com/vbonduro/cropdoc/internal/camera"
	"github.com/vbonduro/cropdoc/internal/camera/relay"
)

// handleCameraSocket attaches the page as the session's camera agent.
func (s *Server) handleCameraSocket(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	dev, ok := sess.Device.(*relay.Device)
	if !ok {
		http.NotFound(w, r)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("camera socket upgrade failed", "session_id", sess.ID, "error", err)
		return
	}
	if err := dev.Attach(r.Context(), conn); err != nil {
		s.logger.Warn("camera agent disconnected", "session_id", sess.ID, "error", err)
	}
}

// handleCameraPreview serves the current frame of a host camera.
func (s *Server) handleCameraPreview(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	frame, err := sess.Controller.PreviewFrame(r.Context())
	if errors.Is(err, camera.ErrClosed) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.logger.Warn("preview frame failed", "session_id", sess.ID, "error", err)
		http.Error(w, "camera unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", frame.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(frame.Data); err != nil {
		s.logger.Debug("write preview frame failed", "error", err)
	}
}
