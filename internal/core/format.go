package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tone is the colour family an amount is shown in.
type Tone string

const (
	ToneIncome  Tone = "income"
	ToneExpense Tone = "expense"
)

// LongDateLayout renders e.g. "Monday, January 15, 2024 at 02:30 PM".
const LongDateLayout = "Monday, January 2, 2006 at 03:04 PM"

// FormatCurrency renders d with two decimals and a "$" prefix. A negative
// value keeps its sign after the symbol ("$-50.00").
func FormatCurrency(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// FormatAbsCurrency renders |d| with two decimals and a "$" prefix.
func FormatAbsCurrency(d decimal.Decimal) string {
	return FormatCurrency(d.Abs())
}

// FormatSignedAmount renders a list amount: "+$12.50" for income and
// "-$12.50" for anything else, zero included.
func FormatSignedAmount(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + FormatAbsCurrency(d)
	}
	return "-" + FormatAbsCurrency(d)
}

// AmountTone colours a single record amount.
func AmountTone(d decimal.Decimal) Tone {
	if d.IsPositive() {
		return ToneIncome
	}
	return ToneExpense
}

// BalanceTone colours a balance; zero is shown as healthy.
func BalanceTone(d decimal.Decimal) Tone {
	if d.IsNegative() {
		return ToneExpense
	}
	return ToneIncome
}

// FormatLongDate renders t in the viewer's location. A nil location means
// time.Local.
func FormatLongDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(LongDateLayout)
}
