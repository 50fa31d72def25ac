package documents

import (
	"context"

	"github.com/silverkiwi/jobs-manager-sub002/internal/server/models"
)

// Repository abstracts document and line-item persistence.
type Repository interface {
	// Get loads a document with its line items ordered by position.
	Get(ctx context.Context, userID, kind, key string) (*models.Document, []*models.Line, error)

	// Upsert inserts or updates a document. On first insert the repository
	// assigns doc.ID and doc.Number.
	Upsert(ctx context.Context, doc *models.Document) error

	// UpsertLine inserts or updates one line item. A line without an ID
	// gets one assigned.
	UpsertLine(ctx context.Context, line *models.Line) error

	// DeleteLines removes the given line ids from a document. Unknown ids
	// are ignored.
	DeleteLines(ctx context.Context, documentID string, ids []string) error
}
