package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raveportal/pageshare/internal/dom"
	"github.com/raveportal/pageshare/internal/session"
	"github.com/raveportal/pageshare/internal/validation"
)

type sessionsHandler struct {
	sessions *session.Manager
	validate *validation.Validator
}

func newSessionsHandler(sessions *session.Manager) *sessionsHandler {
	return &sessionsHandler{sessions: sessions, validate: validation.New("json")}
}

// fragmentResponse is the rendered state of a session.
type fragmentResponse struct {
	ID      string `json:"id"`
	PageID  int64  `json:"pageId"`
	HTML    string `json:"html"`
	Version uint64 `json:"version"`
}

func toFragmentResponse(s *session.Session) fragmentResponse {
	html, version := s.Fragment().HTML()
	return fragmentResponse{ID: s.ID, PageID: s.PageID, HTML: html, Version: version}
}

type cloneRequest struct {
	UserID   int64  `json:"userId" validate:"min=0"`
	PageName string `json:"pageName" validate:"required"`
}

// Create handles POST /api/v1/sessions.
func (h *sessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var init session.InitData
	if err := readJSON(r, &init); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := h.validate.Validate(init); err != nil {
		writeValidationError(w, err)
		return
	}

	s, err := h.sessions.Create(r.Context(), init)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrLimitReached):
			writeError(w, http.StatusServiceUnavailable, "session_limit", "too many active sessions")
			return
		case errors.Is(err, session.ErrShutdown):
			writeError(w, http.StatusServiceUnavailable, "shutting_down", "server is shutting down")
			return
		}
		slog.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}

	auditLog(r, "session.create", s.ID, "page_id", init.PageID, "owner_id", init.OwnerID)
	writeJSON(w, http.StatusCreated, toFragmentResponse(s))
}

// Get handles GET /api/v1/sessions/{id}.
func (h *sessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toFragmentResponse(s))
}

// Show handles POST /api/v1/sessions/{id}/show.
func (h *sessionsHandler) Show(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := s.Show(r.Context()); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toFragmentResponse(s))
}

// Event handles POST /api/v1/sessions/{id}/events.
func (h *sessionsHandler) Event(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var evt dom.Event
	if err := readJSON(r, &evt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := s.HandleEvent(r.Context(), evt); err != nil {
		writeSessionError(w, err)
		return
	}
	auditLog(r, "session.event", s.ID, "event", evt.Key())
	writeJSON(w, http.StatusAccepted, toFragmentResponse(s))
}

// Clone handles POST /api/v1/sessions/{id}/clone.
func (h *sessionsHandler) Clone(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req cloneRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := h.validate.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := s.CloneForUser(r.Context(), req.UserID, req.PageName); err != nil {
		writeSessionError(w, err)
		return
	}
	auditLog(r, "page.clone", s.ID, "page_id", s.PageID, "user_id", req.UserID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

// Delete handles DELETE /api/v1/sessions/{id}.
func (h *sessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.Delete(id); err != nil {
		writeSessionError(w, err)
		return
	}
	auditLog(r, "session.delete", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *sessionsHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return nil, false
	}
	return s, true
}
