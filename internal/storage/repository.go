package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertSignalSQL = `INSERT INTO signals (
        symbol,
        name,
        class,
        price,
        probability,
        threshold,
        conditions,
        evaluated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    RETURNING id, created_at;`

	listRecentSignalsSQL = `SELECT
        id,
        symbol,
        name,
        class,
        price,
        probability,
        threshold,
        conditions,
        evaluated_at,
        created_at
    FROM signals
    ORDER BY evaluated_at DESC
    LIMIT $1;`

	listSignalsBetweenSQL = `SELECT
        id,
        symbol,
        name,
        class,
        price,
        probability,
        threshold,
        conditions,
        evaluated_at,
        created_at
    FROM signals
    WHERE evaluated_at >= $1
      AND evaluated_at < $2
    ORDER BY evaluated_at;`

	countSignalsSinceSQL = `SELECT COUNT(*) FROM signals WHERE evaluated_at >= $1;`

	insertCycleSQL = `INSERT INTO cycles (
        started_at,
        finished_at,
        assets_evaluated,
        assets_failed,
        signals_emitted,
        sessions_open
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    RETURNING id, created_at;`

	latestCycleSQL = `SELECT
        id,
        started_at,
        finished_at,
        assets_evaluated,
        assets_failed,
        signals_emitted,
        sessions_open,
        created_at
    FROM cycles
    ORDER BY started_at DESC
    LIMIT 1;`
)

// SignalStore defines operations for signal persistence.
type SignalStore interface {
	InsertSignal(ctx context.Context, record SignalRecord) (SignalRecord, error)
	ListRecentSignals(ctx context.Context, limit int) ([]SignalRecord, error)
	ListSignalsBetween(ctx context.Context, from, to time.Time) ([]SignalRecord, error)
	CountSignalsSince(ctx context.Context, since time.Time) (int64, error)
}

// CycleStore defines operations for cycle summary persistence.
type CycleStore interface {
	InsertCycle(ctx context.Context, record CycleRecord) (CycleRecord, error)
	LatestCycle(ctx context.Context) (*CycleRecord, error)
}

// Store aggregates access to signals and cycle summaries.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertSignal persists an emitted signal.
func (s *Store) InsertSignal(ctx context.Context, record SignalRecord) (SignalRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return SignalRecord{}, err
	}

	row := pool.QueryRow(ctx, insertSignalSQL,
		record.Symbol,
		record.Name,
		record.Class,
		record.Price.String(),
		record.Probability,
		record.Threshold,
		record.Conditions,
		record.EvaluatedAt,
	)
	if err := row.Scan(&record.ID, &record.CreatedAt); err != nil {
		return SignalRecord{}, fmt.Errorf("insert signal: %w", err)
	}
	return record, nil
}

// ListRecentSignals lists the most recent signals, newest first.
func (s *Store) ListRecentSignals(ctx context.Context, limit int) ([]SignalRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSignalsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent signals: %w", queryErr)
	}
	defer rows.Close()

	return collectSignals(rows, limit)
}

// ListSignalsBetween lists signals within a time window, oldest first.
func (s *Store) ListSignalsBetween(ctx context.Context, from, to time.Time) ([]SignalRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSignalsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list signals between: %w", queryErr)
	}
	defer rows.Close()

	return collectSignals(rows, 0)
}

// CountSignalsSince counts signals emitted at or after the given instant.
func (s *Store) CountSignalsSince(ctx context.Context, since time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := pool.QueryRow(ctx, countSignalsSinceSQL, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count signals: %w", err)
	}
	return count, nil
}

// InsertCycle persists a cycle summary.
func (s *Store) InsertCycle(ctx context.Context, record CycleRecord) (CycleRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return CycleRecord{}, err
	}

	row := pool.QueryRow(ctx, insertCycleSQL,
		record.StartedAt,
		record.FinishedAt,
		record.AssetsEvaluated,
		record.AssetsFailed,
		record.SignalsEmitted,
		record.SessionsOpen,
	)
	if err := row.Scan(&record.ID, &record.CreatedAt); err != nil {
		return CycleRecord{}, fmt.Errorf("insert cycle: %w", err)
	}
	return record, nil
}

// LatestCycle returns the most recent cycle summary, or nil when none exist.
func (s *Store) LatestCycle(ctx context.Context) (*CycleRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var record CycleRecord
	row := pool.QueryRow(ctx, latestCycleSQL)
	scanErr := row.Scan(
		&record.ID,
		&record.StartedAt,
		&record.FinishedAt,
		&record.AssetsEvaluated,
		&record.AssetsFailed,
		&record.SignalsEmitted,
		&record.SessionsOpen,
		&record.CreatedAt,
	)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest cycle: %w", scanErr)
	}
	return &record, nil
}

func collectSignals(rows pgx.Rows, capacity int) ([]SignalRecord, error) {
	records := make([]SignalRecord, 0, capacity)
	for rows.Next() {
		var record SignalRecord
		var price string
		if err := rows.Scan(
			&record.ID,
			&record.Symbol,
			&record.Name,
			&record.Class,
			&price,
			&record.Probability,
			&record.Threshold,
			&record.Conditions,
			&record.EvaluatedAt,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		parsed, parseErr := decimal.NewFromString(price)
		if parseErr != nil {
			return nil, fmt.Errorf("parse signal price: %w", parseErr)
		}
		record.Price = parsed
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

var _ SignalStore = (*Store)(nil)
var _ CycleStore = (*Store)(nil)
