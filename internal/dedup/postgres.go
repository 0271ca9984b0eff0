package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"argus/internal/constants"
	"argus/internal/logger"
)

// postgresStore implements Store on the dedup_records table. The claim is a
// single statement so concurrent callers race inside the database, not in Go:
// the unique index on key serializes them and the conditional DO UPDATE only
// succeeds when the existing record has already expired. RowsAffected is 1
// exactly when this caller won the window.
type postgresStore struct {
	db     *sql.DB
	logger logger.Logger

	sweepInterval time.Duration
	lastSweep     atomic.Int64 // unix nanos of the last opportunistic sweep
}

func NewPostgresStore(db *sql.DB, sweepInterval time.Duration, log logger.Logger) Store {
	return &postgresStore{
		db:            db,
		logger:        log,
		sweepInterval: sweepInterval,
	}
}

func (s *postgresStore) AllowOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.StoreOpTimeout)
	defer cancel()

	now := time.Now().UTC()
	query := `
		INSERT INTO dedup_records (key, logged_at, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET logged_at = EXCLUDED.logged_at, expires_at = EXCLUDED.expires_at
		WHERE dedup_records.expires_at <= EXCLUDED.logged_at`

	result, err := s.db.ExecContext(ctx, query, key, now, now.Add(ttl))
	if err != nil {
		return false, fmt.Errorf("failed to claim dedup window: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}

	s.maybeSweep(now)
	return affected == 1, nil
}

// Sweep deletes expired records. Failures are reported but never block the
// hot path; expired rows are also reclaimed in place by AllowOnce.
func (s *postgresStore) Sweep(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.StoreOpTimeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM dedup_records WHERE expires_at <= $1`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to sweep dedup records: %w", err)
	}
	if deleted, err := result.RowsAffected(); err == nil && deleted > 0 {
		s.logger.Debugw("swept expired dedup records", "deleted", deleted)
	}
	return nil
}

// maybeSweep runs an opportunistic background sweep at most once per
// sweepInterval.
func (s *postgresStore) maybeSweep(now time.Time) {
	if s.sweepInterval <= 0 {
		return
	}
	last := s.lastSweep.Load()
	if now.UnixNano()-last < int64(s.sweepInterval) {
		return
	}
	if !s.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.StoreOpTimeout)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.logger.Warnw("opportunistic dedup sweep failed", "error", err)
		}
	}()
}

func (s *postgresStore) Close() error {
	return nil
}
