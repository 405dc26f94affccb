package http

import (
	"bytes"
	"context"
	"net/http"

	applog "budgetboard/internal/log"
	"budgetboard/internal/view"
)

func (s *Server) viewOptions(r *http.Request) []view.Option {
	loc, _ := s.locationFromRequest(r)
	opts := []view.Option{
		view.WithLocation(loc),
		view.WithLogger(applog.FromContext(r.Context()).WithComponent(applog.ComponentView)),
	}
	if s.opts.FetchTimeout > 0 {
		opts = append(opts, view.WithFetchTimeout(s.opts.FetchTimeout))
	}
	return opts
}

// handleIndex renders the page with shell panels. A signed-out visitor gets
// the inert summary and no records.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	user := s.userFromRequest(r)
	_, tz := s.locationFromRequest(r)

	page := view.Page{
		UserID:   userIDOf(user),
		Timezone: tz,
		Summary:  view.InertSummary(),
		Records:  view.LoadingRecords(),
	}
	if user != nil {
		page.Summary = view.LoadingSummary()
	}

	var buf bytes.Buffer
	if err := s.renderer.Page(&buf, page); err != nil {
		s.renderError(w, r, "page", err)
		return
	}
	writeHTML(w, buf.Bytes())
}

// handleSummaryPartial mounts a summary, waits for it to settle and renders
// it once. A panel that does not settle in time renders as it stands.
func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	user := s.userFromRequest(r)
	v := view.MountSummary(r.Context(), s.store, user, s.viewOptions(r)...)
	defer v.Unmount()

	s.awaitSettled(r, "summary", v.WaitSettled)

	body, err := s.renderer.SummaryBytes(v.Model())
	if err != nil {
		s.renderError(w, r, "summary", err)
		return
	}
	writeHTML(w, body)
}

func (s *Server) handleRecordsPartial(w http.ResponseWriter, r *http.Request) {
	v := view.MountRecords(r.Context(), s.store, s.viewOptions(r)...)
	defer v.Unmount()

	s.awaitSettled(r, "records", v.WaitSettled)

	body, err := s.renderer.RecordsBytes(v.Model())
	if err != nil {
		s.renderError(w, r, "records", err)
		return
	}
	writeHTML(w, body)
}

func (s *Server) awaitSettled(r *http.Request, name string, wait func(context.Context) error) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.PartialTimeout)
	defer cancel()
	if err := wait(ctx); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Panel did not settle",
			applog.FieldView, name, applog.FieldError, err.Error())
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, name string, err error) {
	fields := applog.NewFields().WithView(name, "")
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogError(r.Context(), "Render failed", err, applog.ComponentTemplate, applog.OpRender, fields)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
