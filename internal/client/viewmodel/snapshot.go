package viewmodel

// Snapshot is a point-in-time copy of a document taken synchronously at the
// moment the debounce gate fires, not at the moment of the user action.
// It owns its maps and slices; later document mutations do not affect it.
type Snapshot struct {
	Kind           string            `json:"kind"`
	Key            string            `json:"key"`
	ID             string            `json:"id,omitempty"`
	Fields         map[string]string `json:"record"`
	Lines          []SnapshotLine    `json:"line_items"`
	DeletedLineIDs []string          `json:"deleted_line_items"`
}

// SnapshotLine is one line item within a snapshot. Key carries the client
// row key so the server response can be matched back to live rows.
type SnapshotLine struct {
	Key   string            `json:"key"`
	ID    string            `json:"id,omitempty"`
	Cells map[string]string `json:"cells"`
}

// Snapshot collects the current document state: all scalar fields, every
// row that has at least one non-empty business cell, and the full
// pending-deletion queue accumulated since the last successful save.
// It performs no I/O.
func (d *Document) Snapshot() *Snapshot {
	s := &Snapshot{
		Kind:           string(d.Kind),
		Key:            d.Key,
		ID:             d.ID,
		Fields:         make(map[string]string, len(d.Fields)),
		DeletedLineIDs: d.PendingDeletions(),
	}
	for k, v := range d.Fields {
		s.Fields[k] = v
	}
	for _, row := range d.rows {
		if row.Blank() {
			continue
		}
		s.Lines = append(s.Lines, row.clone())
	}
	return s
}

// Dirty reports whether the snapshot carries anything worth sending:
// at least one line, one deletion, or one non-empty field.
func (s *Snapshot) Dirty() bool {
	if len(s.Lines) > 0 || len(s.DeletedLineIDs) > 0 {
		return true
	}
	for _, v := range s.Fields {
		if v != "" {
			return true
		}
	}
	return false
}
