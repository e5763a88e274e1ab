package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kcourse/internal/logger"
	"kcourse/internal/store"
	"kcourse/internal/types"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const planColumns = "id, user_id, destination, purpose, people_count, start_date, end_date, image_url, ai_suggestion, ai_min_budget, ai_max_budget, created_at"

// PGStore keeps trip plans in PostgreSQL.
type PGStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

var _ store.PlanRepository = (*PGStore)(nil)

// Open connects to dsn, waits for the server and creates the table.
func Open(ctx context.Context, dsn, table string) (*PGStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		logger.Warnf("postgres ping failed (attempt %d/10): %v", i+1, err)
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}
	s := New(db, table)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open connection without migrating.
func New(db *sql.DB, table string) *PGStore {
	table = strings.TrimSpace(table)
	if table == "" {
		table = "tour_plan"
	}
	return &PGStore{db: db, table: pq.QuoteIdentifier(table), now: time.Now}
}

func (s *PGStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id            TEXT PRIMARY KEY,
			user_id       TEXT        NOT NULL DEFAULT '',
			destination   TEXT        NOT NULL,
			purpose       TEXT        NOT NULL,
			people_count  INTEGER     NOT NULL,
			start_date    DATE        NOT NULL,
			end_date      DATE        NOT NULL,
			image_url     TEXT        NOT NULL DEFAULT '',
			ai_suggestion TEXT        NOT NULL DEFAULT '',
			ai_min_budget NUMERIC(14,2) NOT NULL DEFAULT 0,
			ai_max_budget NUMERIC(14,2) NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.table))
	if err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *PGStore) Insert(ctx context.Context, plan *types.TripPlan) error {
	store.PrepareInsert(plan, s.now())
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`, s.table, planColumns)
	_, err := s.db.ExecContext(ctx, query,
		plan.ID, plan.UserID, plan.Destination, plan.Purpose, plan.PeopleCount,
		plan.StartDate.Time, plan.EndDate.Time, plan.ImageURL, plan.AISuggestion,
		plan.AIMinBudget, plan.AIMaxBudget, plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert trip plan: %w", err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, filter store.ListFilter) ([]types.TripPlan, error) {
	var (
		query string
		args  []any
	)
	if uid := strings.TrimSpace(filter.UserID); uid != "" {
		query = fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, planColumns, s.table)
		args = []any{uid, filter.EffectiveLimit()}
	} else {
		query = fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC, id DESC LIMIT $1`, planColumns, s.table)
		args = []any{filter.EffectiveLimit()}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trip plans: %w", err)
	}
	defer rows.Close()

	var out []types.TripPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		out = append(out, plan)
	}
	return out, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, id string) (*types.TripPlan, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, planColumns, s.table), id)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get trip plan %s: %w", id, err)
	}
	return &plan, nil
}

func (s *PGStore) Delete(ctx context.Context, id string) (*types.TripPlan, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1 RETURNING %s`, s.table, planColumns), id)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: delete trip plan %s: %w", id, err)
	}
	return &plan, nil
}

func (s *PGStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(r rowScanner) (types.TripPlan, error) {
	var (
		p          types.TripPlan
		start, end time.Time
		minB, maxB decimal.Decimal
	)
	if err := r.Scan(&p.ID, &p.UserID, &p.Destination, &p.Purpose, &p.PeopleCount,
		&start, &end, &p.ImageURL, &p.AISuggestion, &minB, &maxB, &p.CreatedAt); err != nil {
		return types.TripPlan{}, err
	}
	p.StartDate = types.NewDate(start.Year(), start.Month(), start.Day())
	p.EndDate = types.NewDate(end.Year(), end.Month(), end.Day())
	p.AIMinBudget, p.AIMaxBudget = minB, maxB
	return p, nil
}
