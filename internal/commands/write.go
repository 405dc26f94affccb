package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"budgetboard/internal/amqp"
	"budgetboard/internal/core"
	applog "budgetboard/internal/log"
	"budgetboard/internal/store"
)

func newSeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Load records and profiles from a JSON seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			seed, err := store.LoadSeed(args[0])
			if err != nil {
				return err
			}

			// Bulk writes go to the base store; other processes hear about
			// them once at the end.
			if err := seed.Apply(ctx, a.backend.Base, nil); err != nil {
				return fmt.Errorf("apply seed: %w", err)
			}
			if n := a.backend.Notifier; n != nil {
				if err := n.PublishRecordsChanged(ctx, amqp.NewRecordsChangedMessage(amqp.OpSeed, "", "")); err != nil {
					a.logger.Warn("Failed to announce seed", applog.FieldError, err)
				}
			}

			fmt.Fprintf(a.out, "Seeded %d records and %d profiles from %s\n", len(seed.Records), len(seed.Profiles), args[0])
			return nil
		},
	}
}

func newAddCommand(a *app) *cobra.Command {
	var (
		userID      string
		amount      string
		category    string
		description string
		date        string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a budget record (positive amount is income, negative is expense)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := core.ParseAmount(amount)
			if err != nil {
				return err
			}
			when := time.Now()
			if date != "" {
				if when, err = parseDate(date, a.loc); err != nil {
					return err
				}
			}

			rec := core.BudgetRecord{
				ID:          uuid.NewString(),
				UserID:      strings.TrimSpace(userID),
				Amount:      amt,
				Date:        when,
				Category:    strings.TrimSpace(category),
				Description: strings.TrimSpace(description),
			}
			if err := rec.Validate(); err != nil {
				return err
			}
			if err := a.backend.Store.PutRecord(cmd.Context(), rec); err != nil {
				return fmt.Errorf("add record: %w", err)
			}

			a.logger.Info("Budget record written", applog.NewFields().
				WithRecord(rec.ID, rec.UserID, rec.Amount.String(), rec.Category).ToSlice()...)
			fmt.Fprintf(a.out, "Added %s %s (%s) for %s\n", rec.ID, core.FormatSignedAmount(rec.Amount), rec.Category, rec.UserID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owner user id (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "signed amount, e.g. -12.50 (required)")
	cmd.Flags().StringVar(&category, "category", "", "category (required)")
	cmd.Flags().StringVar(&description, "description", "", "free text")
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD or RFC 3339 (default now)")
	for _, f := range []string{"user", "amount", "category"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newBudgetCommand(a *app) *cobra.Command {
	var (
		userID string
		amount string
		unset  bool
	)

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Set or clear the budget ceiling of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := core.UserProfile{UserID: strings.TrimSpace(userID)}
			switch {
			case unset && amount != "":
				return fmt.Errorf("--amount and --clear are mutually exclusive")
			case unset:
				p.Budget = core.NoBudget
			case amount == "":
				return fmt.Errorf("one of --amount or --clear is required")
			default:
				d, err := core.ParseAmount(amount)
				if err != nil {
					return fmt.Errorf("%w: %q", err, amount)
				}
				p.Budget = core.NewBudget(d)
			}
			if err := p.Validate(); err != nil {
				return err
			}
			if err := a.backend.Store.PutProfile(cmd.Context(), p); err != nil {
				return fmt.Errorf("set budget: %w", err)
			}

			if p.Budget.Valid {
				fmt.Fprintf(a.out, "Budget of %s set to %s\n", p.UserID, core.FormatCurrency(p.Budget.Decimal))
			} else {
				fmt.Fprintf(a.out, "Budget of %s cleared\n", p.UserID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "budget ceiling, e.g. 500")
	cmd.Flags().BoolVar(&unset, "clear", false, "remove the budget")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
