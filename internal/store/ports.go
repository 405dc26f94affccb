// Package store defines the ports the views use to talk to the document
// store: live record queries, one-shot profile reads, and the writes used by
// seeding tools.
package store

import (
	"context"
	"errors"

	"budgetboard/internal/core"
)

// Collection names shared by every backend.
const (
	CollectionRecords  = "budgetRecords"
	CollectionProfiles = "users"
)

var (
	ErrClosed   = errors.New("store: subscription closed")
	ErrNotFound = errors.New("store: document not found")
)

// RecordFilter selects records. The zero value matches every record;
// a non-empty UserID matches records whose userId equals it.
type RecordFilter struct {
	UserID string
}

// Match reports whether r is part of the filter's result set.
func (f RecordFilter) Match(r core.BudgetRecord) bool {
	return f.UserID == "" || r.UserID == f.UserID
}

// Key identifies the filter for grouping and caching.
func (f RecordFilter) Key() string {
	if f.UserID == "" {
		return CollectionRecords + ":*"
	}
	return CollectionRecords + ":userId=" + f.UserID
}

// Ports for outbound adapters.
type (
	// Subscription is a live query. Snapshots delivers full replacement
	// lists, newest wins. Errors delivers at most one error, after which
	// nothing else is delivered. Close is idempotent and synchronous.
	Subscription interface {
		Snapshots() <-chan []core.BudgetRecord
		Errors() <-chan error
		Close()
	}

	RecordSubscriber interface {
		// SubscribeRecords opens a live query. The current result set is
		// delivered right away.
		SubscribeRecords(ctx context.Context, f RecordFilter) (Subscription, error)
	}

	ProfileFetcher interface {
		// FetchProfile reads the user's profile once. ok is false when no
		// profile document exists.
		FetchProfile(ctx context.Context, userID string) (p core.UserProfile, ok bool, err error)
	}

	RecordWriter interface {
		PutRecord(ctx context.Context, r core.BudgetRecord) error
		DeleteRecord(ctx context.Context, id string) error
	}

	ProfileWriter interface {
		PutProfile(ctx context.Context, p core.UserProfile) error
	}

	// Store is what a mounted view needs.
	Store interface {
		RecordSubscriber
		ProfileFetcher
	}

	// ReadWriter is a full backend.
	ReadWriter interface {
		Store
		RecordWriter
		ProfileWriter
	}
)
