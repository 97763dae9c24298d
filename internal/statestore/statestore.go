// Package statestore persists estimator state snapshots across process
// restarts. The core never mandates persistence; this store serializes
// whatever blob each estimator chooses to expose and hands it back on
// restore, without ever touching live state.
package statestore

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"bandit-trading-engine/internal/interfaces"
	"bandit-trading-engine/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS estimator_snapshots (
    algorithm_id TEXT PRIMARY KEY,
    taken_at     TEXT NOT NULL,
    payload      BLOB NOT NULL
);`

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save snapshots every estimator in one transaction.
func (s *Store) Save(ctx context.Context, estimators []interfaces.Estimator) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, est := range estimators {
		blob, err := est.Snapshot()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO estimator_snapshots (algorithm_id, taken_at, payload)
			 VALUES (?, ?, ?)
			 ON CONFLICT(algorithm_id) DO UPDATE SET taken_at=excluded.taken_at, payload=excluded.payload`,
			est.ID(), now, blob,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load restores each estimator that has a stored snapshot. Estimators
// without one keep their fresh state.
func (s *Store) Load(ctx context.Context, estimators []interfaces.Estimator) error {
	for _, est := range estimators {
		var blob []byte
		err := s.db.QueryRowContext(ctx,
			`SELECT payload FROM estimator_snapshots WHERE algorithm_id = ?`, est.ID(),
		).Scan(&blob)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return err
		}
		if err := est.Restore(blob); err != nil {
			return err
		}
		logger.Info(ctx, "Restored estimator state", "algorithm_id", est.ID())
	}
	return nil
}
