package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"budgetboard/internal/core"
	"budgetboard/web"
)

// Template names.
const (
	TemplateSummary = "budget_summary"
	TemplateRecords = "records_list"
	TemplatePage    = "index.html"
)

// Page is the data of the full dashboard page. The panels start as shells
// and are replaced by the live connections.
type Page struct {
	UserID   string
	Timezone string
	Summary  SummaryModel
	Records  RecordsModel
}

// Renderer renders view models with the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

var funcs = template.FuncMap{
	"toneClass": func(t core.Tone) string {
		if t == "" {
			return ""
		}
		return "amount--" + string(t)
	},
}

func NewRenderer() (*Renderer, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

func (r *Renderer) Summary(w io.Writer, m SummaryModel) error {
	return r.tmpl.ExecuteTemplate(w, TemplateSummary, m)
}

func (r *Renderer) Records(w io.Writer, m RecordsModel) error {
	return r.tmpl.ExecuteTemplate(w, TemplateRecords, m)
}

func (r *Renderer) Page(w io.Writer, p Page) error {
	return r.tmpl.ExecuteTemplate(w, TemplatePage, p)
}

// SummaryBytes renders into memory so a failed render never leaves a
// half-written fragment on the wire.
func (r *Renderer) SummaryBytes(m SummaryModel) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Summary(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) RecordsBytes(m RecordsModel) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Records(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Shells for the first paint of the page.
func InertSummary() SummaryModel {
	return SummaryState{Phase: PhaseInert}.Model()
}

func LoadingSummary() SummaryModel {
	return SummaryState{Phase: PhaseLoading, Loading: true}.Model()
}

func LoadingRecords() RecordsModel {
	return RecordsState{Phase: PhaseLoading, Loading: true}.Model(nil)
}
