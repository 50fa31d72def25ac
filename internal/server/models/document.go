package models

import "time"

// Document is the persisted form of one timesheet or purchase order.
// Fields holds the scalar header values; line items live in Line rows.
type Document struct {
	ID        string
	UserID    string
	Kind      string
	Key       string
	Number    string
	Fields    map[string]string
	UpdatedAt time.Time
}

// Line is one persisted line item of a document.
type Line struct {
	ID         string
	DocumentID string
	Cells      map[string]string
	Position   int
}
