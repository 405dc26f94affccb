// Package sqlite is a SQLite-backed document store with live record
// queries. Changes are detected from local writes, explicit refreshes (for
// example AMQP notifications) and a data_version watcher that sees commits
// made by other processes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"budgetboard/internal/core"
	"budgetboard/internal/store"
)

const dateLayout = time.RFC3339Nano

// Repository is the plain SQL layer: no live behaviour.
type Repository struct {
	db   *sql.DB
	path string
}

func OpenRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db, path: dbPath}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListRecords returns the records matching f in insertion order.
func (r *Repository) ListRecords(ctx context.Context, f store.RecordFilter) ([]core.BudgetRecord, error) {
	q := `SELECT id, user_id, amount, date, category, description FROM ` + store.CollectionRecords
	var args []any
	if f.UserID != "" {
		q += ` WHERE user_id = ?`
		args = append(args, f.UserID)
	}
	q += ` ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query records (%s): %w", f.Key(), err)
	}
	defer rows.Close()

	out := []core.BudgetRecord{}
	for rows.Next() {
		var (
			rec          core.BudgetRecord
			amount, when string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &amount, &when, &rec.Category, &rec.Description); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("record %s: parse amount %q: %w", rec.ID, amount, err)
		}
		if rec.Date, err = time.Parse(dateLayout, when); err != nil {
			return nil, fmt.Errorf("record %s: parse date %q: %w", rec.ID, when, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// UpsertRecord inserts r or updates it in place, keeping its position.
func (r *Repository) UpsertRecord(ctx context.Context, rec core.BudgetRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO `+store.CollectionRecords+` (id, user_id, amount, date, category, description)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			amount = excluded.amount,
			date = excluded.date,
			category = excluded.category,
			description = excluded.description,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		rec.ID, rec.UserID, rec.Amount.String(), rec.Date.UTC().Format(dateLayout), rec.Category, rec.Description)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}
	return nil
}

func (r *Repository) DeleteRecord(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+store.CollectionRecords+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete record %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *Repository) GetProfile(ctx context.Context, userID string) (core.UserProfile, bool, error) {
	var budget sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT budget FROM `+store.CollectionProfiles+` WHERE user_id = ?`, userID).Scan(&budget)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProfile{}, false, nil
	}
	if err != nil {
		return core.UserProfile{}, false, fmt.Errorf("get profile %s: %w", userID, err)
	}

	p := core.UserProfile{UserID: userID}
	if budget.Valid {
		d, err := decimal.NewFromString(budget.String)
		if err != nil {
			return core.UserProfile{}, false, fmt.Errorf("profile %s: parse budget %q: %w", userID, budget.String, err)
		}
		p.Budget = core.NewBudget(d)
	}
	return p, true, nil
}

func (r *Repository) UpsertProfile(ctx context.Context, p core.UserProfile) error {
	var budget sql.NullString
	if p.Budget.Valid {
		budget = sql.NullString{String: p.Budget.Decimal.String(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO `+store.CollectionProfiles+` (user_id, budget) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			budget = excluded.budget,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		p.UserID, budget)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.UserID, err)
	}
	slog.DebugContext(ctx, "Profile saved to SQLite", "user_id", p.UserID, "budget_set", p.Budget.Valid)
	return nil
}

// dataVersionConn pins a connection: PRAGMA data_version is only
// meaningful when read repeatedly on the same connection.
func (r *Repository) dataVersionConn(ctx context.Context) (*sql.Conn, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire watch connection: %w", err)
	}
	return conn, nil
}

func dataVersion(ctx context.Context, conn *sql.Conn) (int64, error) {
	var v int64
	if err := conn.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read data_version: %w", err)
	}
	return v, nil
}
