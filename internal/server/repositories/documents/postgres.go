// Package documents provides PostgreSQL-backed persistence for documents
// and their line items.
package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
	"github.com/silverkiwi/jobs-manager-sub002/internal/dbx"
	"github.com/silverkiwi/jobs-manager-sub002/internal/server/models"
)

// PostgresRepository implements document storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get loads a document by owner, kind, and key together with its line items.
func (r *PostgresRepository) Get(ctx context.Context, userID, kind, key string) (*models.Document, []*models.Line, error) {
	query := `
		SELECT id, number, fields FROM documents
		WHERE user_id = $1 AND kind = $2 AND key = $3
	`

	doc := &models.Document{UserID: userID, Kind: kind, Key: key}
	var fieldsJSON []byte
	err := r.db.QueryRowContext(ctx, query, userID, kind, key).Scan(&doc.ID, &doc.Number, &fieldsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, common.ErrorNotFound
		}
		return nil, nil, fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal(fieldsJSON, &doc.Fields); err != nil {
		return nil, nil, fmt.Errorf("decoding fields: %w", err)
	}

	lines, err := r.selectLines(ctx, doc.ID)
	if err != nil {
		return nil, nil, err
	}
	return doc, lines, nil
}

func (r *PostgresRepository) selectLines(ctx context.Context, documentID string) ([]*models.Line, error) {
	query := `
		SELECT id, cells, position FROM line_items
		WHERE document_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to select line items: %w", err)
	}
	defer rows.Close()

	var result []*models.Line
	for rows.Next() {
		item := models.Line{DocumentID: documentID}
		var cellsJSON []byte
		if err := rows.Scan(&item.ID, &cellsJSON, &item.Position); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(cellsJSON, &item.Cells); err != nil {
			return nil, fmt.Errorf("decoding cells: %w", err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Upsert inserts or updates a document. A document inserted for the first
// time gets a fresh UUID id and the next sequential number for its kind
// (TS-000123 / PO-000123).
func (r *PostgresRepository) Upsert(ctx context.Context, doc *models.Document) error {
	fieldsJSON, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}

	if doc.ID != "" {
		query := `
			UPDATE documents SET fields = $1, updated_at = now()
			WHERE id = $2 AND user_id = $3
		`
		res, err := r.db.ExecContext(ctx, query, fieldsJSON, doc.ID, doc.UserID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected error: %w", err)
		}
		if n == 0 {
			return common.ErrorNotFound
		}
		return nil
	}

	number, err := r.nextNumber(ctx, doc.Kind)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	query := `
		INSERT INTO documents (id, user_id, kind, key, number, fields)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query, id, doc.UserID, doc.Kind, doc.Key, number, fieldsJSON); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	doc.ID = id
	doc.Number = number
	return nil
}

// nextNumber bumps the per-kind counter and formats the human number.
func (r *PostgresRepository) nextNumber(ctx context.Context, kind string) (string, error) {
	query := `
		INSERT INTO document_numbers (kind, last_value) VALUES ($1, 1)
		ON CONFLICT (kind)
		DO UPDATE SET last_value = document_numbers.last_value + 1
		RETURNING last_value
	`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, kind).Scan(&n); err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return fmt.Sprintf("%s-%06d", common.DocumentKind(kind).NumberPrefix(), n), nil
}

// UpsertLine inserts or updates one line item. Lines posted without an id
// are new; they get a fresh UUID written back to line.ID.
func (r *PostgresRepository) UpsertLine(ctx context.Context, line *models.Line) error {
	cellsJSON, err := json.Marshal(line.Cells)
	if err != nil {
		return fmt.Errorf("encoding cells: %w", err)
	}

	if line.ID == "" {
		line.ID = uuid.NewString()
	}

	query := `
		INSERT INTO line_items (id, document_id, cells, position)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id)
		DO UPDATE SET
			cells = EXCLUDED.cells,
			position = EXCLUDED.position
			WHERE line_items.document_id = EXCLUDED.document_id
	`
	if _, err := r.db.ExecContext(ctx, query, line.ID, line.DocumentID, cellsJSON, line.Position); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteLines removes the given ids from one document. Ids that are already
// gone are not an error; deletion is idempotent so resent queues are safe.
func (r *PostgresRepository) DeleteLines(ctx context.Context, documentID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		DELETE FROM line_items
		WHERE document_id = $1 AND id = ANY($2)
	`
	if _, err := r.db.ExecContext(ctx, query, documentID, ids); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
