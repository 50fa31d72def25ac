package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
	"github.com/silverkiwi/jobs-manager-sub002/internal/dbx"
	"github.com/silverkiwi/jobs-manager-sub002/internal/server/models"
	"github.com/silverkiwi/jobs-manager-sub002/internal/server/repositories/repomanager"
)

// SaveLine is one posted line item. Key is the client's row key; it is echoed
// back in the outcome so the client can attach server-assigned ids to the
// right rows. ID is empty for lines the server has never stored.
type SaveLine struct {
	Key   string
	ID    string
	Cells map[string]string
}

// SaveRequest is one posted document snapshot.
type SaveRequest struct {
	ID             string
	Fields         map[string]string
	Lines          []SaveLine
	DeletedLineIDs []string
}

// SaveMessage is one user-facing note attached to a save outcome.
type SaveMessage struct {
	Level   string
	Message string
}

// SaveOutcome is the business-level result of a save. Success false means
// the payload was rejected and nothing was written; Messages then says why.
type SaveOutcome struct {
	Success  bool
	ID       string
	Number   string
	LineIDs  map[string]string
	Messages []SaveMessage
}

// requiredFields lists the header fields a document must carry before the
// server will persist it.
var requiredFields = map[common.DocumentKind][]string{
	common.KindTimesheet:     {"staff"},
	common.KindPurchaseOrder: {"supplier"},
}

// DocumentService persists posted snapshots and serves hydration state.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager) *DocumentService {
	return &DocumentService{db: db, repomanager: m}
}

// Hydrate loads the stored state of one document for its owner.
func (s *DocumentService) Hydrate(ctx context.Context, userID, kind, key string) (*models.Document, []*models.Line, error) {
	if !common.DocumentKind(kind).Valid() {
		return nil, nil, common.ErrorUnknownKind
	}
	if key == "" {
		return nil, nil, common.ErrorNoDocumentKey
	}
	repo := s.repomanager.Documents(s.db)
	return repo.Get(ctx, userID, kind, key)
}

// Save validates and persists one snapshot in a single transaction: upsert
// the document (assigning id and number on first contact), upsert the posted
// lines in order, and delete the posted deletion ids. A validation failure
// writes nothing and reports Success false.
func (s *DocumentService) Save(ctx context.Context, userID, kind, key string, req *SaveRequest) (*SaveOutcome, error) {
	if !common.DocumentKind(kind).Valid() {
		return nil, common.ErrorUnknownKind
	}
	if key == "" {
		return nil, common.ErrorNoDocumentKey
	}

	if messages := s.validate(common.DocumentKind(kind), req); len(messages) > 0 {
		return &SaveOutcome{Success: false, Messages: messages}, nil
	}

	outcome := &SaveOutcome{Success: true, LineIDs: map[string]string{}}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Documents(tx)

		doc := &models.Document{
			ID:     req.ID,
			UserID: userID,
			Kind:   kind,
			Key:    key,
			Fields: req.Fields,
		}

		// The client may not know the server id yet even when the
		// document exists (e.g. an earlier response was lost), so the
		// stored row wins over the posted id.
		if existing, _, err := repo.Get(ctx, userID, kind, key); err == nil {
			doc.ID = existing.ID
			doc.Number = existing.Number
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		if err := repo.Upsert(ctx, doc); err != nil {
			return fmt.Errorf("saving document: %w", err)
		}

		for i, posted := range req.Lines {
			line := &models.Line{
				ID:         posted.ID,
				DocumentID: doc.ID,
				Cells:      posted.Cells,
				Position:   i,
			}
			wasNew := line.ID == ""
			if err := repo.UpsertLine(ctx, line); err != nil {
				return fmt.Errorf("saving line: %w", err)
			}
			if wasNew {
				outcome.LineIDs[posted.Key] = line.ID
			}
		}

		if err := repo.DeleteLines(ctx, doc.ID, req.DeletedLineIDs); err != nil {
			return fmt.Errorf("deleting lines: %w", err)
		}

		outcome.ID = doc.ID
		outcome.Number = doc.Number
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *DocumentService) validate(kind common.DocumentKind, req *SaveRequest) []SaveMessage {
	var messages []SaveMessage
	for _, field := range requiredFields[kind] {
		if req.Fields[field] == "" {
			messages = append(messages, SaveMessage{Level: "error", Message: "Missing " + field})
		}
	}
	return messages
}
