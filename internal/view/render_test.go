package view

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetboard/internal/core"
)

func TestRenderer_SummaryStates(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	tests := []struct {
		name    string
		model   SummaryModel
		want    []string
		notWant []string
	}{
		{
			name:    "inert",
			model:   InertSummary(),
			want:    []string{`data-state="inert"`, SummaryTitle},
			notWant: []string{MsgLoading, "Total Received"},
		},
		{
			name:  "loading",
			model: LoadingSummary(),
			want:  []string{`data-state="loading"`, MsgLoading},
		},
		{
			name:  "error",
			model: SummaryState{Phase: PhaseError, Err: MsgBudgetFailed}.Model(),
			want:  []string{"panel__message--error", MsgBudgetFailed},
		},
		{
			name:  "empty",
			model: SummaryState{Phase: PhaseEmpty}.Model(),
			want:  []string{MsgNoRecords},
		},
		{
			name: "ready with negative balance",
			model: SummaryModel{
				Title: SummaryTitle, Phase: PhaseReady, State: "ready",
				TotalReceived: "$10.00", TotalSpent: "$60.00", NetBalance: "$-50.00",
				NetTone: core.ToneExpense, Comparison: "You have exceeded your budget by $10.00.",
			},
			want: []string{
				`<span class="amount amount--income">$10.00</span>`,
				`<span class="amount amount--expense">$60.00</span>`,
				`<span class="amount amount--expense">$-50.00</span>`,
				"You have exceeded your budget by $10.00.",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, r.Summary(&buf, tt.model))
			out := buf.String()
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, out, nw)
			}
		})
	}
}

func TestRenderer_RecordsEscapesText(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	out, err := r.RecordsBytes(RecordsModel{
		Title: RecordsTitle, Phase: PhaseReady, State: "ready",
		Items: []RecordItem{{
			ID: "1", Date: "Monday, January 15, 2024 at 02:30 PM", Category: "Food",
			Description: "<script>alert(1)</script>", Amount: "-$12.50", Tone: core.ToneExpense,
		}},
	})
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, `<p class="amount amount--expense">-$12.50</p>`)
	assert.Contains(t, s, "&lt;script&gt;")
	assert.NotContains(t, s, "<script>")
}

func TestRenderer_Page(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, Page{
		UserID:   "alice",
		Timezone: "Europe/Rome",
		Summary:  LoadingSummary(),
		Records:  LoadingRecords(),
	}))
	out := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<!doctype html>"))
	assert.Contains(t, out, `data-user="alice"`)
	assert.Contains(t, out, `data-live="/live/summary"`)
	assert.Contains(t, out, `id="records-list"`)
}
