package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/boardsync/boardsync/internal/model"
)

// GetSyncState reads the singleton row.
func (db *DB) GetSyncState(ctx context.Context) (*model.SyncState, error) {
	return getSyncState(ctx, db.conn)
}

// GetSyncState reads the singleton row within the transaction.
func (tx *Tx) GetSyncState(ctx context.Context) (*model.SyncState, error) {
	return getSyncState(ctx, tx.conn)
}

func getSyncState(ctx context.Context, q querier) (*model.SyncState, error) {
	row := q.QueryRowContext(ctx, `
		SELECT files_fingerprint, store_fingerprint, lease_owner, lease_expiry, last_sync_at, last_result
		FROM sync_state WHERE id = 1`)

	var s model.SyncState
	var leaseOwner, leaseExpiry, lastSyncAt, lastResult sql.NullString

	err := row.Scan(&s.FilesFingerprint, &s.StoreFingerprint,
		&leaseOwner, &leaseExpiry, &lastSyncAt, &lastResult)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync state singleton missing (run 'bsync init'): %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}

	s.LeaseOwner = leaseOwner.String
	s.LeaseExpiry = nullStringToTime(leaseExpiry)
	s.LastSyncAt = nullStringToTime(lastSyncAt)
	s.LastResult = lastResult.String
	return &s, nil
}

// SetFingerprints persists both sides' fingerprints on the singleton.
func (tx *Tx) SetFingerprints(ctx context.Context, files, store string) error {
	if _, err := tx.conn.ExecContext(ctx, `
		UPDATE sync_state SET files_fingerprint = ?, store_fingerprint = ? WHERE id = 1`,
		files, store); err != nil {
		return fmt.Errorf("failed to persist fingerprints: %w", err)
	}
	return nil
}
