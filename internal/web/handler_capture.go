package web

import (
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/cropdoc/internal/camera"
	"github.com/vbonduro/cropdoc/internal/capture"
	"github.com/vbonduro/cropdoc/internal/session"
)

const sessionCookie = "cropdoc_session"

// panelData is what partials/panel.html renders.
type panelData struct {
	capture.View
	PreviewURL template.URL
	Loading    string
}

func newPanelData(v capture.View) panelData {
	// Preview is a data URI built from bytes that already decoded as an image.
	return panelData{View: v, PreviewURL: template.URL(v.Preview), Loading: capture.LoadingText}
}

type pageData struct {
	Panel        panelData
	ServerCamera bool
}

// session returns the caller's session, creating one and setting the cookie
// when the request carries none or an expired one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			Secure:   r.TLS != nil,
		})
	}
	return sess
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	data := pageData{
		Panel:        newPanelData(sess.Controller.View()),
		ServerCamera: s.opts.ServerCamera,
	}
	if err := s.renderPage(w, data, "base.html", "pages/index.html", "partials/panel.html"); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleStartCapture(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	facing := sess.Controller.View().Facing
	if v := r.FormValue("facing"); v != "" {
		f, err := camera.ParseFacing(v)
		if err != nil {
			http.Error(w, "invalid facing", http.StatusBadRequest)
			return
		}
		facing = f
	}
	err := sess.Controller.StartCapture(r.Context(), facing)
	s.respond(w, sess, err)
}

func (s *Server) handleSwitchCamera(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	err := sess.Controller.SwitchCamera(r.Context())
	s.respond(w, sess, err)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image file required", http.StatusBadRequest)
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	err = sess.Controller.LoadFromFile(r.Context(), file)
	s.respond(w, sess, err)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	err := sess.Controller.AnalyzeOrReset(r.Context())
	s.respond(w, sess, err)
}

// respond renders the panel after a controller operation, choosing the status
// from err.
func (s *Server) respond(w http.ResponseWriter, sess *session.Session, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("capture operation failed", "session_id", sess.ID, "error", err)
	}
	if err := s.renderPartial(w, status, "partials/panel.html", "panel", newPanelData(sess.Controller.View())); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

func statusFor(err error) int {
	var failure *capture.Failure
	switch {
	case err == nil, errors.Is(err, capture.ErrSuperseded):
		return http.StatusOK
	case errors.Is(err, capture.ErrAnalysisPending):
		return http.StatusConflict
	case errors.As(err, &failure):
		// A denied camera still renders a usable panel; the alert carries it.
		if failure.Kind.Blocking() && failure.Kind != capture.DeviceAccessDenied {
			return http.StatusUnprocessableEntity
		}
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func facingLabel(f camera.Facing) string {
	if f == camera.Front {
		return "Front / सामने"
	}
	return "Back / पीछे"
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
