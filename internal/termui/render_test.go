package termui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"budgetboard/internal/core"
	"budgetboard/internal/view"
)

func TestRenderSummary(t *testing.T) {
	tests := []struct {
		name  string
		model view.SummaryModel
		want  []string
		not   []string
	}{
		{
			name:  "inert",
			model: view.InertSummary(),
			want:  []string{view.SummaryTitle},
			not:   []string{view.MsgLoading, "Total"},
		},
		{
			name:  "loading",
			model: view.LoadingSummary(),
			want:  []string{view.MsgLoading},
		},
		{
			name: "error",
			model: view.SummaryModel{
				Title: view.SummaryTitle, Phase: view.PhaseError, Message: view.MsgBudgetFailed,
			},
			want: []string{view.MsgBudgetFailed},
		},
		{
			name: "ready",
			model: view.SummaryModel{
				Title:         view.SummaryTitle,
				Phase:         view.PhaseReady,
				TotalReceived: "$100.00",
				TotalSpent:    "$30.00",
				NetBalance:    "$70.00",
				NetTone:       core.ToneIncome,
				Comparison:    "You are within your budget by $30.00.",
			},
			want: []string{"Total Received:", "$100.00", "Total Spent:", "$30.00", "Net Balance:", "$70.00", "You are within your budget by $30.00."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderSummary(tt.model)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, n := range tt.not {
				assert.NotContains(t, out, n)
			}
		})
	}
}

func TestRenderRecords(t *testing.T) {
	m := view.RecordsModel{
		Title: view.RecordsTitle,
		Phase: view.PhaseReady,
		Items: []view.RecordItem{
			{ID: "a", Date: "Monday, January 15, 2024 at 03:30 PM", Category: "Food", Description: "Lunch", Amount: "-$12.50", Tone: core.ToneExpense},
			{ID: "b", Date: "Sunday, January 14, 2024 at 09:00 AM", Category: "Salary", Description: "January", Amount: "+$1000.00", Tone: core.ToneIncome},
		},
	}

	out := RenderRecords(m)
	assert.Contains(t, out, view.RecordsTitle)
	assert.Contains(t, out, "-$12.50")
	assert.Contains(t, out, "+$1000.00")
	assert.Less(t, strings.Index(out, "Lunch"), strings.Index(out, "Salary"), "order is kept")

	// Every table line has the same visible width.
	var widths []int
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n")[1:] {
		widths = append(widths, lipgloss.Width(line))
	}
	for _, w := range widths {
		assert.Equal(t, widths[0], w)
	}
}

func TestRenderRecordsMessages(t *testing.T) {
	out := RenderRecords(view.LoadingRecords())
	assert.Contains(t, out, view.MsgLoading)
	assert.NotContains(t, out, "╭")

	out = RenderRecords(view.RecordsModel{Title: view.RecordsTitle, Phase: view.PhaseError, Message: view.MsgRecordsFailed})
	assert.Contains(t, out, view.MsgRecordsFailed)
}
