package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"monthcal/internal/calendar"
	"monthcal/internal/dataservice"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/source"
	"monthcal/internal/store"
	"monthcal/internal/view"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// writeFailure maps an operation error onto a status code. User input
// errors carry their message; anything unexpected is logged and hidden.
func writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, calendar.ErrInvalidDate),
		errors.Is(err, store.ErrInvalidEvent),
		errors.Is(err, dataservice.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, view.ErrEventNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, view.ErrReadOnly):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, source.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "sign in required")
	case source.StatusCode(err) == http.StatusForbidden:
		writeError(w, http.StatusForbidden, "invalid credentials")
	case errors.Is(err, source.ErrFetchFailure):
		appLog.Error(op+" failed", err)
		writeError(w, http.StatusBadGateway, "data service unavailable")
	default:
		appLog.Error(op+" failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) writeGrid(w http.ResponseWriter, status int) {
	g, err := s.session.Grid()
	if err != nil {
		writeFailure(w, "build grid", err)
		return
	}
	writeJSON(w, status, g)
}

// handleMonth returns the month grid of the current selection.
//
// GET /api/month
func (s *Server) handleMonth(w http.ResponseWriter, _ *http.Request) {
	s.writeGrid(w, http.StatusOK)
}

func (s *Server) handleNavigate(dir view.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.session.Navigate(r.Context(), dir); err != nil {
			writeFailure(w, "navigate", err)
			return
		}
		s.writeGrid(w, http.StatusOK)
	}
}

// handleSelect focuses a day and opens its event list.
//
// POST /api/select {"month": 2, "day": 14, "year": 2023}
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var d model.CalendarDate
	if err := decodeBody(w, r, &d); err != nil {
		writeFailure(w, "select", err)
		return
	}
	// The date comes from the client, so a bad one is a request error here.
	if err := calendar.ValidateDate(d); err != nil {
		writeFailure(w, "select", fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := s.session.SelectDay(r.Context(), d); err != nil {
		writeFailure(w, "select", err)
		return
	}
	s.writeGrid(w, http.StatusOK)
}

type dayResponse struct {
	Date       model.CalendarDate  `json:"date"`
	EditorOpen bool                `json:"editorOpen"`
	Mode       string              `json:"mode"`
	Events     []view.EventDetails `json:"events"`
}

// handleDay resolves the events of the selected day.
//
// GET /api/day
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	details, err := s.session.DayDetails(r.Context())
	if err != nil {
		if errors.Is(err, view.ErrDisposed) {
			// Client went away.
			return
		}
		writeFailure(w, "day details", err)
		return
	}
	if details == nil {
		details = []view.EventDetails{}
	}

	st := s.session.State()
	writeJSON(w, http.StatusOK, dayResponse{
		Date:       st.Selected,
		EditorOpen: st.EditorOpen,
		Mode:       view.ModeName(st.Mode),
		Events:     details,
	})
}

type editorRequest struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

// handleEditor switches the editor between list, new, edit and delete.
//
// POST /api/editor {"mode": "edit", "id": "1234567890"}
func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	var req editorRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, "editor", err)
		return
	}

	var transition func(view.State) (view.State, error)
	switch req.Mode {
	case "list":
		transition = func(st view.State) (view.State, error) { return st.BackToList(), nil }
	case "new":
		transition = func(st view.State) (view.State, error) { return st.BeginNew(), nil }
	case "edit":
		transition = func(st view.State) (view.State, error) { return st.BeginEdit(req.ID) }
	case "delete":
		transition = func(st view.State) (view.State, error) { return st.BeginDelete(req.ID) }
	default:
		writeFailure(w, "editor", fmt.Errorf("%w: unknown mode %q", errBadRequest, req.Mode))
		return
	}

	if err := s.session.Apply(transition); err != nil {
		writeFailure(w, "editor", err)
		return
	}
	s.writeEditor(w)
}

// POST /api/editor/close
func (s *Server) handleEditorClose(w http.ResponseWriter, _ *http.Request) {
	_ = s.session.Apply(func(st view.State) (view.State, error) { return st.CloseEditor(), nil })
	s.writeEditor(w)
}

type editorResponse struct {
	Open  bool         `json:"open"`
	Mode  string       `json:"mode"`
	Event *model.Event `json:"event,omitempty"`
	ID    string       `json:"id,omitempty"`
}

func (s *Server) writeEditor(w http.ResponseWriter) {
	st := s.session.State()
	resp := editorResponse{Open: st.EditorOpen, Mode: view.ModeName(st.Mode)}
	switch m := st.Mode.(type) {
	case view.EditMode:
		resp.Event = &m.Event
	case view.DeleteMode:
		resp.ID = m.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCreateEvent adds a local event.
//
// POST /api/events {"title": "...", "description": "...", "date": "M/D/YYYY HH:MM:SS"}
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req store.NewEvent
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, "create event", err)
		return
	}
	ev, err := s.session.AddEvent(req)
	if err != nil {
		writeFailure(w, "create event", err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// handleUpdateEvent edits a local event.
//
// PUT /api/events/{id}
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req view.EventEdit
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, "update event", err)
		return
	}
	req.ID = r.PathValue("id")

	ev, err := s.session.SaveEvent(req)
	if err != nil {
		writeFailure(w, "update event", err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// DELETE /api/events/{id}
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveEvent(r.PathValue("id")); err != nil {
		writeFailure(w, "delete event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRefresh reloads the visible window. Fetch failures are reported in
// the grid's status, not as an HTTP error.
//
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Refresh(r.Context()); err != nil {
		writeFailure(w, "refresh", err)
		return
	}
	s.writeGrid(w, http.StatusOK)
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleSignin exchanges credentials for a data service token, keeps it
// server side and reloads the month.
//
// POST /api/signin {"username": "...", "password": "..."}
func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	if s.signer == nil || s.tokens == nil {
		writeError(w, http.StatusNotFound, "sign-in is not available")
		return
	}

	var req signinRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, "signin", err)
		return
	}
	token, err := s.signer.Signin(r.Context(), req.Username, req.Password)
	if err != nil {
		writeFailure(w, "signin", err)
		return
	}
	s.tokens.SetToken(token)
	appLog.Info("signed in to data service", "username", req.Username)

	if err := s.session.Refresh(r.Context()); err != nil {
		writeFailure(w, "refresh", err)
		return
	}
	s.writeGrid(w, http.StatusOK)
}

// handleExport serves the session's events as an iCalendar file.
//
// GET /calendar.ics
func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	body := ics.Encode(s.session.State().Store.Events(), s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="monthcal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
