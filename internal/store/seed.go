package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"budgetboard/internal/core"
)

// Seed is the JSON document accepted by SEED_FILE and `budgetctl seed`.
type Seed struct {
	Records  []core.BudgetRecord `json:"records"`
	Profiles []core.UserProfile  `json:"profiles"`
}

// LoadSeed reads and validates a seed file.
func LoadSeed(path string) (Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	var s Seed
	if err := json.Unmarshal(raw, &s); err != nil {
		return Seed{}, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	for i, r := range s.Records {
		if err := r.Validate(); err != nil {
			return Seed{}, fmt.Errorf("seed record %d (%s): %w", i, r.ID, err)
		}
	}
	for i, p := range s.Profiles {
		if err := p.Validate(); err != nil {
			return Seed{}, fmt.Errorf("seed profile %d (%s): %w", i, p.UserID, err)
		}
	}
	return s, nil
}

// Apply writes every profile and record of the seed. onWrite, if set, runs
// after each successful record write.
func (s Seed) Apply(ctx context.Context, w interface {
	RecordWriter
	ProfileWriter
}, onWrite func(core.BudgetRecord)) error {
	for _, p := range s.Profiles {
		if err := w.PutProfile(ctx, p); err != nil {
			return fmt.Errorf("put profile %s: %w", p.UserID, err)
		}
	}
	for _, r := range s.Records {
		if err := w.PutRecord(ctx, r); err != nil {
			return fmt.Errorf("put record %s: %w", r.ID, err)
		}
		if onWrite != nil {
			onWrite(r)
		}
	}
	return nil
}
