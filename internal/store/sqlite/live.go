package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetboard/internal/cache"
	"budgetboard/internal/core"
	"budgetboard/internal/store"
)

// Store adds live queries on top of Repository. Subscriptions are grouped
// by filter so a change costs one query per distinct filter, however many
// views are watching it.
type Store struct {
	repo  *Repository
	cache *cache.LRU[[]core.BudgetRecord]

	// refreshMu orders subscribe and refresh so a newer snapshot is never
	// overwritten by an older query result.
	refreshMu   sync.Mutex
	mu          sync.Mutex
	groups      map[string]*group
	parallelism int
}

type group struct {
	filter store.RecordFilter
	feeds  map[*store.Feed]struct{}
}

var _ store.ReadWriter = (*Store)(nil)

type Option func(*Store)

// WithCache overrides the snapshot cache size and TTL.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Store) { s.cache = cache.NewLRU[[]core.BudgetRecord](size, ttl) }
}

// WithParallelism bounds concurrent queries during a refresh.
func WithParallelism(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

func New(repo *Repository, opts ...Option) *Store {
	s := &Store{
		repo:        repo,
		cache:       cache.NewLRU[[]core.BudgetRecord](256, 5*time.Minute),
		groups:      make(map[string]*group),
		parallelism: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the database at dbPath and wraps it in a live store.
func Open(dbPath string, opts ...Option) (*Store, error) {
	repo, err := OpenRepository(dbPath)
	if err != nil {
		return nil, err
	}
	return New(repo, opts...), nil
}

func (s *Store) Close() error {
	return s.repo.Close()
}

// SubscribeRecords implements store.RecordSubscriber. A failing initial
// query is reported through the subscription's error channel.
func (s *Store) SubscribeRecords(ctx context.Context, f store.RecordFilter) (store.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	feed := store.NewFeed(f, s.unsubscribe)

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	records, err := s.query(ctx, f)
	if err != nil {
		slog.WarnContext(ctx, "Live query could not be established", "filter", f.Key(), "error", err)
		feed.Fail(err)
		return feed, nil
	}

	s.mu.Lock()
	g, ok := s.groups[f.Key()]
	if !ok {
		g = &group{filter: f, feeds: make(map[*store.Feed]struct{})}
		s.groups[f.Key()] = g
	}
	g.feeds[feed] = struct{}{}
	s.mu.Unlock()

	feed.Publish(records)
	return feed, nil
}

func (s *Store) unsubscribe(f *store.Feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := f.Filter().Key()
	if g, ok := s.groups[key]; ok {
		delete(g.feeds, f)
		if len(g.feeds) == 0 {
			delete(s.groups, key)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, g := range s.groups {
		n += len(g.feeds)
	}
	return n
}

// Refresh re-runs every live query and pushes the results. A filter whose
// query fails has its subscriptions interrupted. When ctx ends first the
// failed filters are left alone and ctx.Err() is returned.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.cache.Purge()

	s.mu.Lock()
	groups := make([]*group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	s.mu.Unlock()
	if len(groups) == 0 {
		return nil
	}

	results := make([][]core.BudgetRecord, len(groups))
	errs := make([]error, len(groups))
	var eg errgroup.Group
	eg.SetLimit(s.parallelism)
	for i, g := range groups {
		eg.Go(func() error {
			results[i], errs[i] = s.query(ctx, g.filter)
			return nil
		})
	}
	_ = eg.Wait()

	cancelled := ctx.Err()
	for i, g := range groups {
		if errs[i] != nil {
			if cancelled == nil {
				s.interrupt(g, errs[i])
			}
			continue
		}
		for _, f := range s.feedsOf(g) {
			f.Publish(results[i])
		}
	}
	if cancelled != nil {
		return cancelled
	}
	return errors.Join(errs...)
}

func (s *Store) feedsOf(g *group) []*store.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*store.Feed, 0, len(g.feeds))
	for f := range g.feeds {
		out = append(out, f)
	}
	return out
}

func (s *Store) interrupt(g *group, err error) {
	feeds := s.feedsOf(g)
	slog.Error("Live query interrupted", "filter", g.filter.Key(), "subscribers", len(feeds), "error", err)
	for _, f := range feeds {
		f.Fail(fmt.Errorf("live query %s interrupted: %w", g.filter.Key(), err))
		f.Close()
	}
}

func (s *Store) query(ctx context.Context, f store.RecordFilter) ([]core.BudgetRecord, error) {
	if records, ok := s.cache.Get(f.Key()); ok {
		return records, nil
	}
	records, err := s.repo.ListRecords(ctx, f)
	if err != nil {
		return nil, err
	}
	s.cache.Set(f.Key(), records)
	return records, nil
}

// FetchProfile implements store.ProfileFetcher.
func (s *Store) FetchProfile(ctx context.Context, userID string) (core.UserProfile, bool, error) {
	return s.repo.GetProfile(ctx, userID)
}

// PutRecord implements store.RecordWriter.
func (s *Store) PutRecord(ctx context.Context, r core.BudgetRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpsertRecord(ctx, r); err != nil {
		return err
	}
	return s.refreshAfterWrite(ctx)
}

// DeleteRecord implements store.RecordWriter.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	if err := s.repo.DeleteRecord(ctx, id); err != nil {
		return err
	}
	return s.refreshAfterWrite(ctx)
}

// PutProfile implements store.ProfileWriter.
func (s *Store) PutProfile(ctx context.Context, p core.UserProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.repo.UpsertProfile(ctx, p)
}

// refreshAfterWrite does not fail the write: query errors already reached
// the affected subscribers. The write is committed, so the refresh outlives
// the writer's context.
func (s *Store) refreshAfterWrite(ctx context.Context) error {
	if err := s.Refresh(context.WithoutCancel(ctx)); err != nil {
		slog.WarnContext(ctx, "Refresh after write reported errors", "error", err)
	}
	return nil
}

// Watch polls PRAGMA data_version every interval and refreshes live queries
// when another connection or process has committed. It returns when ctx is
// done.
func (s *Store) Watch(ctx context.Context, interval time.Duration) error {
	conn, err := s.repo.dataVersionConn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	last, err := dataVersion(ctx, conn)
	if err != nil {
		return err
	}

	// Commits that landed before the baseline was read.
	if err := s.Refresh(ctx); err != nil {
		slog.WarnContext(ctx, "Initial refresh reported errors", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.InfoContext(ctx, "Watching SQLite for external changes", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			v, err := dataVersion(ctx, conn)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.WarnContext(ctx, "Watch poll failed", "error", err)
				continue
			}
			if v == last {
				s.cache.CleanExpired()
				continue
			}
			last = v
			slog.DebugContext(ctx, "External change detected", "data_version", v)
			if err := s.Refresh(ctx); err != nil {
				slog.WarnContext(ctx, "Refresh after external change reported errors", "error", err)
			}
		}
	}
}
