package drafts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
	"github.com/silverkiwi/jobs-manager-sub002/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert inserts or replaces the draft for its kind+key.
func (r *SQLiteRepository) Upsert(ctx context.Context, d *Draft) error {
	query := `INSERT INTO drafts (kind, key, payload, dirty, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(kind, key) DO UPDATE SET payload = excluded.payload,
				dirty = excluded.dirty,
				updated_at = excluded.updated_at
	`
	dirty := 0
	if d.Dirty {
		dirty = 1
	}
	updatedAt := d.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query, d.Kind, d.Key, d.Payload, dirty, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert draft: %w", err)
	}
	return nil
}

// Get returns the draft for kind+key, or common.ErrorNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, kind, key string) (*Draft, error) {
	query := `SELECT kind, key, payload, dirty, updated_at FROM drafts WHERE kind = ? AND key = ?`

	var d Draft
	var dirty int
	err := r.db.QueryRowContext(ctx, query, kind, key).
		Scan(&d.Kind, &d.Key, &d.Payload, &dirty, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select draft: %w", err)
	}
	d.Dirty = dirty != 0
	return &d, nil
}

// MarkClean clears the dirty flag after a confirmed save.
func (r *SQLiteRepository) MarkClean(ctx context.Context, kind, key string) error {
	query := `UPDATE drafts SET dirty = 0 WHERE kind = ? AND key = ?`
	_, err := r.db.ExecContext(ctx, query, kind, key)
	if err != nil {
		return fmt.Errorf("failed to mark draft clean: %w", err)
	}
	return nil
}

// ListDirty returns all drafts with unconfirmed content.
func (r *SQLiteRepository) ListDirty(ctx context.Context) ([]Draft, error) {
	query := `SELECT kind, key, payload, dirty, updated_at FROM drafts WHERE dirty = 1`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select drafts: %w", err)
	}
	defer rows.Close()

	var result []Draft
	for rows.Next() {
		var d Draft
		var dirty int
		if err := rows.Scan(&d.Kind, &d.Key, &d.Payload, &dirty, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Dirty = dirty != 0
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the draft for kind+key.
func (r *SQLiteRepository) Delete(ctx context.Context, kind, key string) error {
	query := `DELETE FROM drafts WHERE kind = ? AND key = ?`
	_, err := r.db.ExecContext(ctx, query, kind, key)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

var _ Repository = (*SQLiteRepository)(nil)
