package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"budgetboard/internal/core"
	applog "budgetboard/internal/log"
	"budgetboard/internal/termui"
	"budgetboard/internal/view"
)

const settleTimeout = 10 * time.Second

// errPanelFailed makes a one-shot run exit non-zero when the panel shows an
// error.
var errPanelFailed = errors.New("panel failed")

func newSummaryCommand(a *app) *cobra.Command {
	var (
		userID string
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the budget summary of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID = strings.TrimSpace(userID)
			if userID == "" {
				return errors.New("--user must not be empty")
			}

			ctx := cmd.Context()
			v := view.MountSummary(ctx, a.backend.Store, &core.User{ID: userID}, a.viewOptions()...)
			defer v.Unmount()

			render := func() (string, view.Phase) {
				m := v.Model()
				return termui.RenderSummary(m), m.Phase
			}
			return a.show(ctx, "summary", watch, v.WaitSettled, v.Changes(), render)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-render on every change until interrupted")
	return cmd
}

func newRecordsCommand(a *app) *cobra.Command {
	var (
		tz    string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List every budget record in store order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tz != "" {
				loc, err := time.LoadLocation(tz)
				if err != nil {
					return fmt.Errorf("invalid --tz %q: %w", tz, err)
				}
				a.loc = loc
			}

			ctx := cmd.Context()
			v := view.MountRecords(ctx, a.backend.Store, a.viewOptions()...)
			defer v.Unmount()

			render := func() (string, view.Phase) {
				m := v.Model()
				return termui.RenderRecords(m), m.Phase
			}
			return a.show(ctx, "records", watch, v.WaitSettled, v.Changes(), render)
		},
	}

	cmd.Flags().StringVar(&tz, "tz", "", "IANA time zone for dates (default DISPLAY_TIMEZONE)")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-render on every change until interrupted")
	return cmd
}

func (a *app) viewOptions() []view.Option {
	return []view.Option{
		view.WithLocation(a.loc),
		view.WithLogger(a.logger.WithComponent(applog.ComponentView)),
	}
}

// show prints a mounted panel once it has settled, or on every change when
// watching. Watching ends without error when ctx is done.
func (a *app) show(ctx context.Context, name string, watch bool,
	wait func(context.Context) error, changes <-chan struct{}, render func() (string, view.Phase)) error {

	if !watch {
		wctx, cancel := context.WithTimeout(ctx, settleTimeout)
		defer cancel()
		if err := wait(wctx); err != nil {
			a.logger.Warn("Panel did not settle", applog.FieldView, name, applog.FieldError, err)
		}
		out, phase := render()
		fmt.Fprintln(a.out, out)
		if phase == view.PhaseError {
			return errPanelFailed
		}
		return nil
	}

	last := ""
	for {
		if out, _ := render(); out != last {
			fmt.Fprintln(a.out, out)
			last = out
		}
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
		}
	}
}
