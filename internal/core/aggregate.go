package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Aggregate is derived from a record list on every read and never stored.
// NetBalance always equals TotalReceived + TotalSpent.
type Aggregate struct {
	TotalReceived decimal.Decimal
	TotalSpent    decimal.Decimal // zero or negative
	NetBalance    decimal.Decimal
}

// Summarize reduces records into received/spent/net totals. Zero amounts
// count towards neither side.
func Summarize(records []BudgetRecord) Aggregate {
	received := decimal.Zero
	spent := decimal.Zero
	for _, r := range records {
		switch {
		case r.Amount.IsPositive():
			received = received.Add(r.Amount)
		case r.Amount.IsNegative():
			spent = spent.Add(r.Amount)
		}
	}
	return Aggregate{
		TotalReceived: received,
		TotalSpent:    spent,
		NetBalance:    received.Add(spent),
	}
}

// Budget comparison messages.
const (
	MsgNoBudget    = "No budget set."
	msgExceededFmt = "You have exceeded your budget by %s."
	msgWithinFmt   = "You are within your budget by %s."
)

// CompareBudget describes the net balance against the budget ceiling.
//
// The "within" amount is budget - |net| even when net is positive, so a
// surplus larger than the budget yields a negative figure, e.g.
// "You are within your budget by $-10.00.". This matches the behaviour
// users already see and is kept until product decides otherwise.
func CompareBudget(net decimal.Decimal, budget decimal.NullDecimal) string {
	if !budget.Valid {
		return MsgNoBudget
	}
	abs := net.Abs()
	if net.IsNegative() && abs.GreaterThan(budget.Decimal) {
		return fmt.Sprintf(msgExceededFmt, FormatCurrency(abs.Sub(budget.Decimal)))
	}
	return fmt.Sprintf(msgWithinFmt, FormatCurrency(budget.Decimal.Sub(abs)))
}
