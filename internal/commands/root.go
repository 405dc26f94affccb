// Package commands holds the budgetctl command tree.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"budgetboard/internal/backend"
	"budgetboard/internal/cli"
	applog "budgetboard/internal/log"
)

// Option adjusts the command environment, mostly for tests.
type Option func(*app)

// WithBackend skips configuration and uses b as the store.
func WithBackend(b *backend.BackendResult) Option {
	return func(a *app) { a.backend = b }
}

func WithOutput(w io.Writer) Option {
	return func(a *app) { a.out = w }
}

// WithLocation fixes the display zone used when --tz is not given.
func WithLocation(loc *time.Location) Option {
	return func(a *app) { a.loc = loc }
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	out      io.Writer
	logger   *applog.Logger
	loc      *time.Location
	backend  *backend.BackendResult
	injected bool

	logLevel string
	envFile  string

	stopRunners context.CancelFunc
	runners     *errgroup.Group
}

// NewRootCommand creates the budgetctl command with all subcommands. A
// backend it opens itself stays open; Execute closes it.
func NewRootCommand(opts ...Option) *cobra.Command {
	cmd, _ := newRoot(opts...)
	return cmd
}

func newRoot(opts ...Option) (*cobra.Command, *app) {
	a := &app{out: os.Stdout}
	for _, opt := range opts {
		opt(a)
	}
	a.injected = a.backend != nil

	rootCmd := &cobra.Command{
		Use:   "budgetctl",
		Short: "Budget summary and records from the terminal",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}
	rootCmd.SetOut(a.out)

	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "environment file to load if present")

	rootCmd.AddCommand(
		newSummaryCommand(a),
		newRecordsCommand(a),
		newSeedCommand(a),
		newAddCommand(a),
		newBudgetCommand(a),
	)
	return rootCmd, a
}

// open builds the configured backend and starts its background loops so
// watch mode sees writes from other processes.
func (a *app) open(ctx context.Context) error {
	if a.logger == nil {
		a.logger = cli.SetupLogger(a.logLevel, os.Stderr).WithComponent(applog.ComponentCLI)
	}
	if a.injected {
		if a.loc == nil {
			a.loc = time.Local
		}
		return nil
	}

	cli.LoadEnvFile(a.envFile)
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if a.loc == nil {
		a.loc = cfg.Location()
	}

	factory := backend.NewFactory(a.logger.Logger)
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend config: %w", err)
	}
	res, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.DataBackend, err)
	}
	a.backend = res

	runCtx, cancel := context.WithCancel(ctx)
	g, runCtx := errgroup.WithContext(runCtx)
	for _, r := range res.Runners {
		g.Go(func() error {
			err := r.Run(runCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("Background loop stopped", "runner", r.Name, applog.FieldError, err)
				return err
			}
			return nil
		})
	}
	a.stopRunners, a.runners = cancel, g
	a.logger.Debug("Backend ready", applog.FieldBackend, cfg.DataBackend)
	return nil
}

func (a *app) close() error {
	if a.injected || a.backend == nil {
		return nil
	}
	var errs []error
	if a.stopRunners != nil {
		a.stopRunners()
		errs = append(errs, a.runners.Wait())
	}
	if a.backend.Cleanup != nil {
		errs = append(errs, a.backend.Cleanup())
	}
	a.backend = nil
	return errors.Join(errs...)
}

// Execute runs budgetctl until done or interrupted, then closes the
// backend whether or not the command failed.
func Execute(ctx context.Context) error {
	cmd, a := newRoot()
	err := cmd.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}
