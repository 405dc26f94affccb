package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// User is the opaque credential of a signed-in user.
	User struct {
		ID string
	}

	// BudgetRecord is a single income (positive amount) or expense (negative amount).
	BudgetRecord struct {
		ID          string          `json:"id"`
		UserID      string          `json:"userId"`
		Amount      decimal.Decimal `json:"amount"`
		Date        time.Time       `json:"date"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
	}

	// UserProfile is the user document. Budget is the spending ceiling and
	// may be unset.
	UserProfile struct {
		UserID string              `json:"userId"`
		Budget decimal.NullDecimal `json:"budget"`
	}
)

var (
	ErrInvalidRecord      = errors.New("invalid budget record")
	ErrEmptyID            = errors.New("empty record id")
	ErrEmptyUser          = errors.New("empty user id")
	ErrEmptyCategory      = errors.New("empty category")
	ErrZeroDate           = errors.New("date cannot be zero")
	ErrNegativeBudget     = errors.New("budget cannot be negative")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// IsIncome reports whether the record adds to the balance.
func (r BudgetRecord) IsIncome() bool {
	return r.Amount.IsPositive()
}

// IsExpense reports whether the record subtracts from the balance.
func (r BudgetRecord) IsExpense() bool {
	return r.Amount.IsNegative()
}

func (r BudgetRecord) Validate() error {
	var err error
	switch {
	case strings.TrimSpace(r.ID) == "":
		err = ErrEmptyID
	case strings.TrimSpace(r.UserID) == "":
		err = ErrEmptyUser
	case r.Date.IsZero():
		err = ErrZeroDate
	case strings.TrimSpace(r.Category) == "":
		err = ErrEmptyCategory
	case len(r.Description) > 200:
		err = ErrDescriptionTooLong
	}
	if err != nil {
		return errors.Join(ErrInvalidRecord, err)
	}
	return nil
}

func (p UserProfile) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrEmptyUser
	}
	if p.Budget.Valid && p.Budget.Decimal.IsNegative() {
		return ErrNegativeBudget
	}
	return nil
}

// NewBudget wraps a ceiling value as a set budget.
func NewBudget(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// NoBudget is the unset budget.
var NoBudget = decimal.NullDecimal{}

// CloneRecords returns a copy that shares no backing array with in.
func CloneRecords(in []BudgetRecord) []BudgetRecord {
	if in == nil {
		return nil
	}
	out := make([]BudgetRecord, len(in))
	copy(out, in)
	return out
}
