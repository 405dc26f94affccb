package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func amounts(vals ...string) []BudgetRecord {
	out := make([]BudgetRecord, len(vals))
	for i, v := range vals {
		out[i] = BudgetRecord{ID: v, Amount: decimal.RequireFromString(v)}
	}
	return out
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		records  []BudgetRecord
		received string
		spent    string
		net      string
	}{
		{name: "empty", records: nil, received: "0", spent: "0", net: "0"},
		{name: "mixed", records: amounts("100", "-30", "-20"), received: "100", spent: "-50", net: "50"},
		{name: "zero counts nowhere", records: amounts("0", "0", "5"), received: "5", spent: "0", net: "5"},
		{name: "only expenses", records: amounts("-0.1", "-0.2"), received: "0", spent: "-0.3", net: "-0.3"},
		{name: "cents stay exact", records: amounts("0.1", "0.2", "-0.3"), received: "0.3", spent: "-0.3", net: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := Summarize(tt.records)
			assert.True(t, agg.TotalReceived.Equal(decimal.RequireFromString(tt.received)), "received = %s", agg.TotalReceived)
			assert.True(t, agg.TotalSpent.Equal(decimal.RequireFromString(tt.spent)), "spent = %s", agg.TotalSpent)
			assert.True(t, agg.NetBalance.Equal(decimal.RequireFromString(tt.net)), "net = %s", agg.NetBalance)

			assert.False(t, agg.TotalReceived.IsNegative())
			assert.False(t, agg.TotalSpent.IsPositive())
			assert.True(t, agg.NetBalance.Equal(agg.TotalReceived.Add(agg.TotalSpent)))
		})
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	snapshot := amounts("12.5", "-3.25", "-0.01", "40")
	first := Summarize(snapshot)
	second := Summarize(CloneRecords(snapshot))
	assert.Equal(t, first, second)
}

func TestCompareBudget(t *testing.T) {
	budget := func(s string) decimal.NullDecimal { return NewBudget(decimal.RequireFromString(s)) }

	tests := []struct {
		name   string
		net    string
		budget decimal.NullDecimal
		want   string
	}{
		{"no budget", "-500", NoBudget, "No budget set."},
		{"exceeded", "-150", budget("100"), "You have exceeded your budget by $50.00."},
		{"spent exactly the budget", "-100", budget("100"), "You are within your budget by $0.00."},
		{"spent less than budget", "-30.5", budget("100"), "You are within your budget by $69.50."},
		// Positive balance above the budget keeps the negative "within" figure.
		{"surplus above budget", "50", budget("40"), "You are within your budget by $-10.00."},
		{"surplus below budget", "10", budget("40"), "You are within your budget by $30.00."},
		{"zero budget", "0", budget("0"), "You are within your budget by $0.00."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareBudget(decimal.RequireFromString(tt.net), tt.budget))
		})
	}
}

func TestSummaryScenario(t *testing.T) {
	agg := Summarize(amounts("100", "-30", "-20"))

	assert.Equal(t, "$100.00", FormatCurrency(agg.TotalReceived))
	assert.Equal(t, "$-50.00", FormatCurrency(agg.TotalSpent))
	assert.Equal(t, "$50.00", FormatCurrency(agg.NetBalance))
	assert.Equal(t, "You are within your budget by $-10.00.",
		CompareBudget(agg.NetBalance, NewBudget(decimal.NewFromInt(40))))
}
