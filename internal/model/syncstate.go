package model

import "time"

// SyncState is the process-wide singleton row tracking the last-known
// fingerprint of each side, the advisory lease, and the last sync outcome.
//
// It is created once at bootstrap and threaded explicitly through lease and
// fingerprint operations so contention scenarios can be exercised
// deterministically in tests.
type SyncState struct {
	FilesFingerprint string     `json:"files_fingerprint"`
	StoreFingerprint string     `json:"store_fingerprint"`
	LeaseOwner       string     `json:"lease_owner,omitempty"`
	LeaseExpiry      *time.Time `json:"lease_expiry,omitempty"`
	LastSyncAt       *time.Time `json:"last_sync_at,omitempty"`
	LastResult       string     `json:"last_result,omitempty"`
}

// LeaseHeld reports whether the lease is currently held as of now.
func (s *SyncState) LeaseHeld(now time.Time) bool {
	return s.LeaseOwner != "" && s.LeaseExpiry != nil && s.LeaseExpiry.After(now)
}
