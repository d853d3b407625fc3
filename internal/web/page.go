package web

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	appLog "monthcal/internal/log"
	"monthcal/internal/store"
	"monthcal/internal/view"
)

//go:embed templates/calendar.html
var calendarHTML string

// embeddedStatic holds the stylesheet and script the calendar page loads.
//
//go:embed all:static
var embeddedStatic embed.FS

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var calendarTmpl = template.Must(template.New("calendar").Parse(calendarHTML))

type calendarPage struct {
	view.Grid
	Weekdays []string
	Ready    bool
}

// handleCalendarPage renders the month grid server side. The root element
// carries data-ready="true" once events have settled so headless captures
// know when to shoot.
//
// GET /calendar
func (s *Server) handleCalendarPage(w http.ResponseWriter, _ *http.Request) {
	g, err := s.session.Grid()
	if err != nil {
		writeFailure(w, "build grid", err)
		return
	}

	var buf bytes.Buffer
	page := calendarPage{Grid: g, Weekdays: weekdays, Ready: g.Status != store.StatusLoading}
	if err := calendarTmpl.Execute(&buf, page); err != nil {
		appLog.Error("render calendar page", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// staticFileServer serves the embedded assets under /static/.
func staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// handlePreview serves the last captured PNG of the calendar page.
//
// GET /preview.png
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, s.previewPath)
}
