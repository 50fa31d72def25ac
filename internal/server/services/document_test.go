package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
	"github.com/silverkiwi/jobs-manager-sub002/internal/server/models"
)

type fakeDocsRepo struct {
	getDoc   *models.Document
	getLines []*models.Line
	getErr   error

	upserted    []*models.Document
	lines       []*models.Line
	deleted     []string
	nextLineSeq int
}

func (f *fakeDocsRepo) Get(ctx context.Context, userID, kind, key string) (*models.Document, []*models.Line, error) {
	if f.getErr != nil {
		return nil, nil, f.getErr
	}
	return f.getDoc, f.getLines, nil
}

func (f *fakeDocsRepo) Upsert(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = "doc-new"
		doc.Number = "TS-000001"
	}
	f.upserted = append(f.upserted, doc)
	return nil
}

func (f *fakeDocsRepo) UpsertLine(ctx context.Context, line *models.Line) error {
	if line.ID == "" {
		f.nextLineSeq++
		line.ID = fmt.Sprintf("srv-%d", f.nextLineSeq)
	}
	f.lines = append(f.lines, line)
	return nil
}

func (f *fakeDocsRepo) DeleteLines(ctx context.Context, documentID string, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

func newDocumentServiceWithFake(t *testing.T, repo *fakeDocsRepo) (*DocumentService, func()) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc := NewDocumentService(db, &fakeRepoManager{d: repo})
	return svc, func() { db.Close() }
}

func TestSave_FirstContactAssignsIDsAndNumber(t *testing.T) {
	repo := &fakeDocsRepo{getErr: common.ErrorNotFound}
	svc, closeDB := newDocumentServiceWithFake(t, repo)
	defer closeDB()

	req := &SaveRequest{
		Fields: map[string]string{"staff": "alice"},
		Lines: []SaveLine{
			{Key: "row-a", Cells: map[string]string{"hours": "4"}},
			{Key: "row-b", ID: "line-9", Cells: map[string]string{"hours": "2"}},
		},
		DeletedLineIDs: []string{"line-3"},
	}

	out, err := svc.Save(context.Background(), "user-1", "timesheet", "2026-08-28", req)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if !out.Success {
		t.Fatalf("expected success, got messages %v", out.Messages)
	}
	if out.ID != "doc-new" || out.Number != "TS-000001" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.LineIDs["row-a"] == "" {
		t.Fatal("new line must get a server id keyed by the client row key")
	}
	if _, ok := out.LineIDs["row-b"]; ok {
		t.Fatal("lines that already have an id must not be re-announced")
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "line-3" {
		t.Fatalf("deletion queue not applied: %v", repo.deleted)
	}
}

func TestSave_ExistingDocumentWinsOverPostedID(t *testing.T) {
	repo := &fakeDocsRepo{
		getDoc: &models.Document{ID: "doc-1", Number: "TS-000007"},
	}
	svc, closeDB := newDocumentServiceWithFake(t, repo)
	defer closeDB()

	req := &SaveRequest{Fields: map[string]string{"staff": "alice"}}
	out, err := svc.Save(context.Background(), "user-1", "timesheet", "2026-08-28", req)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if out.ID != "doc-1" || out.Number != "TS-000007" {
		t.Fatalf("stored identity must win, got %+v", out)
	}
	if len(repo.upserted) != 1 || repo.upserted[0].ID != "doc-1" {
		t.Fatalf("unexpected upsert: %+v", repo.upserted)
	}
}

func TestSave_ValidationRejectsWithoutWriting(t *testing.T) {
	repo := &fakeDocsRepo{getErr: common.ErrorNotFound}
	db, _ := newSQLMockDB(t)
	defer db.Close()
	svc := NewDocumentService(db, &fakeRepoManager{d: repo})

	req := &SaveRequest{Fields: map[string]string{}}
	out, err := svc.Save(context.Background(), "user-1", "purchase_order", "job-77", req)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if out.Success {
		t.Fatal("expected rejection")
	}
	if len(out.Messages) != 1 || out.Messages[0].Message != "Missing supplier" {
		t.Fatalf("unexpected messages: %v", out.Messages)
	}
	if len(repo.upserted) != 0 || len(repo.lines) != 0 || len(repo.deleted) != 0 {
		t.Fatal("a rejected save must write nothing")
	}
}

func TestSave_UnknownKind(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	svc := NewDocumentService(db, &fakeRepoManager{d: &fakeDocsRepo{}})

	_, err := svc.Save(context.Background(), "user-1", "invoice", "x", &SaveRequest{})
	if !errors.Is(err, common.ErrorUnknownKind) {
		t.Fatalf("expected ErrorUnknownKind, got %v", err)
	}
}

func TestSave_MissingKey(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	svc := NewDocumentService(db, &fakeRepoManager{d: &fakeDocsRepo{}})

	_, err := svc.Save(context.Background(), "user-1", "timesheet", "", &SaveRequest{})
	if !errors.Is(err, common.ErrorNoDocumentKey) {
		t.Fatalf("expected ErrorNoDocumentKey, got %v", err)
	}
}

func TestSave_LinePositionsFollowPostedOrder(t *testing.T) {
	repo := &fakeDocsRepo{getErr: common.ErrorNotFound}
	svc, closeDB := newDocumentServiceWithFake(t, repo)
	defer closeDB()

	req := &SaveRequest{
		Fields: map[string]string{"staff": "alice"},
		Lines: []SaveLine{
			{Key: "a", Cells: map[string]string{}},
			{Key: "b", Cells: map[string]string{}},
			{Key: "c", Cells: map[string]string{}},
		},
	}
	if _, err := svc.Save(context.Background(), "user-1", "timesheet", "k", req); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	for i, line := range repo.lines {
		if line.Position != i {
			t.Fatalf("line %d has position %d", i, line.Position)
		}
	}
}

func TestHydrate_PassesThrough(t *testing.T) {
	repo := &fakeDocsRepo{
		getDoc:   &models.Document{ID: "doc-1", Number: "PO-000002"},
		getLines: []*models.Line{{ID: "line-1"}},
	}
	db, _ := newSQLMockDB(t)
	defer db.Close()
	svc := NewDocumentService(db, &fakeRepoManager{d: repo})

	doc, lines, err := svc.Hydrate(context.Background(), "user-1", "purchase_order", "job-77")
	if err != nil {
		t.Fatalf("Hydrate error: %v", err)
	}
	if doc.ID != "doc-1" || len(lines) != 1 {
		t.Fatalf("unexpected hydration: %+v %+v", doc, lines)
	}
}

func TestHydrate_UnknownKind(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	svc := NewDocumentService(db, &fakeRepoManager{d: &fakeDocsRepo{}})

	_, _, err := svc.Hydrate(context.Background(), "user-1", "invoice", "x")
	if !errors.Is(err, common.ErrorUnknownKind) {
		t.Fatalf("expected ErrorUnknownKind, got %v", err)
	}
}
