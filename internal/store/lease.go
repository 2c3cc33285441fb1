package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LeaseTTL bounds worst-case unavailability after an unclean termination:
// a lease that is never released expires on its own after this duration.
const LeaseTTL = 60 * time.Second

// LeaseHeldError reports a failed acquisition along with the current holder,
// so the caller can print who holds the lease and until when.
type LeaseHeldError struct {
	Owner  string
	Expiry time.Time
}

func (e *LeaseHeldError) Error() string {
	return fmt.Sprintf("lease held by %q until %s", e.Owner, e.Expiry.UTC().Format(time.RFC3339))
}

// AcquireLease attempts to take the advisory lease for owner.
//
// Acquisition is a single atomic conditional write: it succeeds iff no owner
// is recorded or the recorded expiry has already passed. On success the
// expiry is set to now+LeaseTTL. On failure a *LeaseHeldError is returned
// and the caller must abort immediately; there is no blocking or retry here.
func (db *DB) AcquireLease(ctx context.Context, owner string, now time.Time) error {
	expiry := now.Add(LeaseTTL)

	res, err := db.conn.ExecContext(ctx, `
		UPDATE sync_state
		SET lease_owner = ?, lease_expiry = ?
		WHERE id = 1
		  AND (lease_owner IS NULL OR lease_owner = ''
		       OR lease_expiry IS NULL OR lease_expiry <= ?)`,
		owner, formatTime(expiry), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to acquire lease: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check lease acquisition: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Contended: report the current holder.
	var holder, holderExpiry sql.NullString
	err = db.conn.QueryRowContext(ctx,
		`SELECT lease_owner, lease_expiry FROM sync_state WHERE id = 1`).
		Scan(&holder, &holderExpiry)
	if err != nil {
		return fmt.Errorf("failed to read lease holder: %w", err)
	}

	held := &LeaseHeldError{Owner: holder.String}
	if t := nullStringToTime(holderExpiry); t != nil {
		held.Expiry = *t
	}
	return held
}

// ReleaseLease clears the lease if owner still holds it, and always records
// the outcome and timestamp of the attempt on the singleton - including for
// attempts that ultimately failed.
func (db *DB) ReleaseLease(ctx context.Context, owner, result string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE sync_state
		SET lease_owner = NULL, lease_expiry = NULL, last_result = ?, last_sync_at = ?
		WHERE id = 1 AND lease_owner = ?`,
		result, formatTime(at), owner)
	if err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check lease release: %w", err)
	}
	if n == 1 {
		return nil
	}

	// We no longer hold the lease (expired and taken over, or never held).
	// Still record the outcome of the attempt.
	if _, err := db.conn.ExecContext(ctx, `
		UPDATE sync_state SET last_result = ?, last_sync_at = ? WHERE id = 1`,
		result, formatTime(at)); err != nil {
		return fmt.Errorf("failed to record sync outcome: %w", err)
	}
	return nil
}
