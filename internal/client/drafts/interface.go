// Package drafts persists not-yet-confirmed document snapshots in a local
// SQLite database so unsaved edits survive a client restart.
package drafts

import (
	"context"
	"time"
)

// Draft is one locally persisted snapshot of an editable document.
type Draft struct {
	// Kind and Key identify the document (e.g. "timesheet" / "2026-08-28").
	Kind string
	Key  string

	// Payload is the JSON-encoded snapshot as last captured.
	Payload []byte

	// Dirty marks a draft whose content the server has not confirmed yet.
	Dirty bool

	UpdatedAt time.Time
}

// Repository describes the local draft persistence operations.
type Repository interface {
	// Upsert inserts or replaces the draft for its kind+key.
	Upsert(ctx context.Context, d *Draft) error

	// Get returns the draft for kind+key, or common.ErrorNotFound.
	Get(ctx context.Context, kind, key string) (*Draft, error)

	// MarkClean clears the dirty flag after a confirmed save.
	MarkClean(ctx context.Context, kind, key string) error

	// ListDirty returns all drafts with unconfirmed content.
	ListDirty(ctx context.Context) ([]Draft, error)

	// Delete removes the draft for kind+key. Missing drafts are not an error.
	Delete(ctx context.Context, kind, key string) error
}
