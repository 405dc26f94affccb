package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBudgetRecordValidate(t *testing.T) {
	good := BudgetRecord{
		ID:       "r1",
		UserID:   "u1",
		Amount:   decimal.NewFromInt(-5),
		Date:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Category: "Food",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	mutate := func(fn func(*BudgetRecord)) BudgetRecord {
		r := good
		fn(&r)
		return r
	}
	bads := []struct {
		rec  BudgetRecord
		want error
	}{
		{mutate(func(r *BudgetRecord) { r.ID = " " }), ErrEmptyID},
		{mutate(func(r *BudgetRecord) { r.UserID = "" }), ErrEmptyUser},
		{mutate(func(r *BudgetRecord) { r.Date = time.Time{} }), ErrZeroDate},
		{mutate(func(r *BudgetRecord) { r.Category = "" }), ErrEmptyCategory},
		{mutate(func(r *BudgetRecord) { r.Description = strings.Repeat("x", 201) }), ErrDescriptionTooLong},
	}
	for i, tc := range bads {
		err := tc.rec.Validate()
		if !errors.Is(err, ErrInvalidRecord) || !errors.Is(err, tc.want) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestUserProfileValidate(t *testing.T) {
	if err := (UserProfile{UserID: "u1"}).Validate(); err != nil {
		t.Fatalf("profile without budget should be valid: %v", err)
	}
	if err := (UserProfile{UserID: "u1", Budget: NewBudget(decimal.NewFromInt(10))}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (UserProfile{UserID: "u1", Budget: NewBudget(decimal.NewFromInt(-1))}).Validate(); !errors.Is(err, ErrNegativeBudget) {
		t.Fatalf("expected ErrNegativeBudget, got %v", err)
	}
	if err := (UserProfile{}).Validate(); !errors.Is(err, ErrEmptyUser) {
		t.Fatalf("expected ErrEmptyUser, got %v", err)
	}
}

func TestRecordDirection(t *testing.T) {
	in := BudgetRecord{Amount: decimal.NewFromInt(1)}
	out := BudgetRecord{Amount: decimal.NewFromInt(-1)}
	zero := BudgetRecord{}
	if !in.IsIncome() || in.IsExpense() {
		t.Fatalf("positive amount should be income")
	}
	if out.IsIncome() || !out.IsExpense() {
		t.Fatalf("negative amount should be expense")
	}
	if zero.IsIncome() || zero.IsExpense() {
		t.Fatalf("zero amount is neither income nor expense")
	}
}
