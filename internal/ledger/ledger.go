// Package ledger records the cross-store inconsistency windows the
// lifecycle coordinator knowingly accepts: an orphaned profile row after
// a failed delete, an orphaned identity account after a failed
// compensation, a profile left stale after a partial update. Entries are
// for operator inspection only; nothing here repairs anything.
package ledger

import (
	"context"
	"time"
)

// Kind names one class of accepted inconsistency.
type Kind string

const (
	// KindOrphanedProfile: the identity account was deleted but the
	// profile row survived.
	KindOrphanedProfile Kind = "orphaned_profile"
	// KindOrphanedAccount: the profile insert failed and the
	// compensating account delete failed too.
	KindOrphanedAccount Kind = "orphaned_account"
	// KindPartialUpdate: the identity account was updated but the
	// profile row was not.
	KindPartialUpdate Kind = "partial_update"
)

// Entry is one recorded inconsistency.
type Entry struct {
	Kind     Kind      `json:"kind"`
	Role     string    `json:"role"`
	EntityID string    `json:"entity_id"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

// Store persists entries.
type Store interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
