// Package memory is an in-process document store with live record queries.
// It is the default backend and the fake used by view and HTTP tests.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"budgetboard/internal/core"
	"budgetboard/internal/store"
)

type Store struct {
	mu       sync.Mutex
	order    []string
	records  map[string]core.BudgetRecord
	profiles map[string]core.UserProfile
	feeds    map[*store.Feed]struct{}

	subscribeErr error
	fetchErr     error
	fetchGate    <-chan struct{}
}

var _ store.ReadWriter = (*Store)(nil)

func New() *Store {
	return &Store{
		records:  make(map[string]core.BudgetRecord),
		profiles: make(map[string]core.UserProfile),
		feeds:    make(map[*store.Feed]struct{}),
	}
}

// NewFromFile seeds the store from a JSON seed file. An empty path yields an
// empty store.
func NewFromFile(ctx context.Context, path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	seed, err := store.LoadSeed(path)
	if err != nil {
		return nil, err
	}
	if err := seed.Apply(ctx, s, nil); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Memory store seeded", "path", path, "records", len(seed.Records), "profiles", len(seed.Profiles))
	return s, nil
}

// SubscribeRecords implements store.RecordSubscriber.
func (s *Store) SubscribeRecords(ctx context.Context, f store.RecordFilter) (store.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	feed := store.NewFeed(f, s.unsubscribe)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribeErr != nil {
		feed.Fail(s.subscribeErr)
		return feed, nil
	}
	s.feeds[feed] = struct{}{}
	feed.Publish(s.queryLocked(f))
	return feed, nil
}

func (s *Store) unsubscribe(f *store.Feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.feeds, f)
}

// FetchProfile implements store.ProfileFetcher.
func (s *Store) FetchProfile(ctx context.Context, userID string) (core.UserProfile, bool, error) {
	s.mu.Lock()
	gate := s.fetchGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return core.UserProfile{}, false, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return core.UserProfile{}, false, s.fetchErr
	}
	p, ok := s.profiles[userID]
	return p, ok, nil
}

// PutRecord implements store.RecordWriter. Existing records keep their
// position in the delivery order.
func (s *Store) PutRecord(ctx context.Context, r core.BudgetRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	s.records[r.ID] = r
	s.broadcastLocked()
	return nil
}

// DeleteRecord implements store.RecordWriter.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[id]; !exists {
		return fmt.Errorf("delete record %s: %w", id, store.ErrNotFound)
	}
	delete(s.records, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.broadcastLocked()
	return nil
}

// PutProfile implements store.ProfileWriter. Profiles are not live.
func (s *Store) PutProfile(ctx context.Context, p core.UserProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.feeds)
}

// FailSubscriptions makes every following SubscribeRecords fail with err.
// A nil err restores normal behaviour.
func (s *Store) FailSubscriptions(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribeErr = err
}

// FailFetches makes every following FetchProfile fail with err.
func (s *Store) FailFetches(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = err
}

// GateFetches holds every FetchProfile until gate is closed. A nil gate
// releases future fetches immediately.
func (s *Store) GateFetches(gate <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchGate = gate
}

// Interrupt fails every live subscription with err, as a dropped
// connection would.
func (s *Store) Interrupt(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for f := range s.feeds {
		f.Fail(err)
		delete(s.feeds, f)
	}
}

func (s *Store) queryLocked(f store.RecordFilter) []core.BudgetRecord {
	out := make([]core.BudgetRecord, 0, len(s.order))
	for _, id := range s.order {
		if r := s.records[id]; f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) broadcastLocked() {
	results := make(map[string][]core.BudgetRecord)
	for f := range s.feeds {
		key := f.Filter().Key()
		snap, ok := results[key]
		if !ok {
			snap = s.queryLocked(f.Filter())
			results[key] = snap
		}
		f.Publish(snap)
	}
}
