package view

import (
	"time"

	"budgetboard/internal/core"
)

// SummaryModel is the display form of a SummaryState.
type SummaryModel struct {
	Title string
	Phase Phase
	// State is Phase.String(), for templates.
	State string
	// Message is the loading, error or empty text.
	Message       string
	TotalReceived string
	TotalSpent    string
	NetBalance    string
	NetTone       core.Tone
	Comparison    string
}

func (s SummaryState) Model() SummaryModel {
	m := SummaryModel{Title: SummaryTitle, Phase: s.Phase, State: s.Phase.String()}
	switch s.Phase {
	case PhaseLoading:
		m.Message = MsgLoading
	case PhaseError:
		m.Message = s.Err
	case PhaseEmpty:
		m.Message = MsgNoRecords
	case PhaseReady:
		m.TotalReceived = core.FormatCurrency(s.Aggregate.TotalReceived)
		m.TotalSpent = core.FormatAbsCurrency(s.Aggregate.TotalSpent)
		m.NetBalance = core.FormatCurrency(s.Aggregate.NetBalance)
		m.NetTone = core.BalanceTone(s.Aggregate.NetBalance)
		m.Comparison = s.Comparison
	}
	return m
}

// RecordItem is one formatted list entry.
type RecordItem struct {
	ID          string
	Date        string
	Category    string
	Description string
	Amount      string
	Tone        core.Tone
}

type RecordsModel struct {
	Title   string
	Phase   Phase
	State   string
	Message string
	Items   []RecordItem
}

// Model formats the records for a viewer in loc.
func (s RecordsState) Model(loc *time.Location) RecordsModel {
	m := RecordsModel{Title: RecordsTitle, Phase: s.Phase, State: s.Phase.String()}
	switch s.Phase {
	case PhaseLoading:
		m.Message = MsgLoading
	case PhaseError:
		m.Message = s.Err
	}
	if s.Phase == PhaseReady {
		m.Items = make([]RecordItem, 0, len(s.Records))
		for _, r := range s.Records {
			m.Items = append(m.Items, RecordItem{
				ID:          r.ID,
				Date:        core.FormatLongDate(r.Date, loc),
				Category:    r.Category,
				Description: r.Description,
				Amount:      core.FormatSignedAmount(r.Amount),
				Tone:        core.AmountTone(r.Amount),
			})
		}
	}
	return m
}
