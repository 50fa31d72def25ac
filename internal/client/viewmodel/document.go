// Package viewmodel holds the client-side editable state of a single
// business document (a timesheet day, a purchase order): scalar header
// fields, an ordered set of line rows, and the set of line identifiers the
// user deleted that the server has not yet confirmed.
//
// The document is a plain in-memory model with no I/O. Mutations run
// synchronously, recompute derived cells before returning, and notify the
// registered mutation listener last, so any snapshot taken afterwards is
// internally consistent.
package viewmodel

import (
	"context"

	"github.com/google/uuid"

	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
)

// Row is one editable line item. Key is a client-generated identifier that
// stays stable for the lifetime of the row; ID is assigned by the server on
// first successful save and is empty until then.
type Row struct {
	Key   string
	ID    string
	Cells map[string]string
}

// Blank reports whether every business cell of the row is empty.
// Blank rows are placeholders for user entry and are never sent to the server.
func (r *Row) Blank() bool {
	for _, v := range r.Cells {
		if v != "" {
			return false
		}
	}
	return true
}

func (r *Row) clone() SnapshotLine {
	cells := make(map[string]string, len(r.Cells))
	for k, v := range r.Cells {
		cells[k] = v
	}
	return SnapshotLine{Key: r.Key, ID: r.ID, Cells: cells}
}

// ComputeFunc recalculates derived cells of a row in place
// (e.g. hours×rate → amount). It must be side-effect free beyond the map.
type ComputeFunc func(cells map[string]string)

// Document is the editable record. It is not safe for concurrent use; the
// owning component serializes access (the CLI event loop does, matching the
// single-threaded model of the web application this mirrors).
type Document struct {
	Kind   common.DocumentKind
	Key    string
	ID     string
	Number string
	Fields map[string]string

	rows []*Row

	pendingDeletions []string
	pendingSet       map[string]struct{}

	compute  ComputeFunc
	onMutate func()
	emitter  EventEmitter
}

// Option configures a Document at construction time.
type Option func(*Document)

// WithCompute installs the derived-cell recalculation hook.
func WithCompute(fn ComputeFunc) Option {
	return func(d *Document) { d.compute = fn }
}

// WithEmitter installs the event emitter for change notifications.
func WithEmitter(e EventEmitter) Option {
	return func(d *Document) { d.emitter = e }
}

// NewDocument creates an empty document of the given kind with one blank row,
// so the user always has an entry point.
func NewDocument(kind common.DocumentKind, key string, opts ...Option) *Document {
	d := &Document{
		Kind:       kind,
		Key:        key,
		Fields:     make(map[string]string),
		pendingSet: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.rows = append(d.rows, d.newBlankRow())
	return d
}

// Hydration is the server-rendered initial state of a document.
type Hydration struct {
	ID     string            `json:"id"`
	Number string            `json:"number"`
	Fields map[string]string `json:"record"`
	Lines  []HydrationLine   `json:"line_items"`
}

// HydrationLine is one persisted line item in the hydration payload.
type HydrationLine struct {
	ID    string            `json:"id"`
	Cells map[string]string `json:"cells"`
}

// FromHydration builds a document from the server's hydration payload.
// Every hydrated line gets a fresh client row key; an empty document still
// receives one blank row.
func FromHydration(kind common.DocumentKind, key string, h *Hydration, opts ...Option) *Document {
	d := &Document{
		Kind:       kind,
		Key:        key,
		ID:         h.ID,
		Number:     h.Number,
		Fields:     make(map[string]string, len(h.Fields)),
		pendingSet: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	for k, v := range h.Fields {
		d.Fields[k] = v
	}
	for _, line := range h.Lines {
		cells := make(map[string]string, len(line.Cells))
		for k, v := range line.Cells {
			cells[k] = v
		}
		d.rows = append(d.rows, &Row{Key: uuid.NewString(), ID: line.ID, Cells: cells})
	}
	if len(d.rows) == 0 {
		d.rows = append(d.rows, d.newBlankRow())
	}
	return d
}

// FromSnapshot rebuilds a document from a previously captured snapshot
// (local draft resume). Row keys and the pending-deletion queue are
// restored; the document number is refreshed by the next save or hydration.
func FromSnapshot(s *Snapshot, opts ...Option) *Document {
	d := &Document{
		Kind:       common.DocumentKind(s.Kind),
		Key:        s.Key,
		ID:         s.ID,
		Fields:     make(map[string]string, len(s.Fields)),
		pendingSet: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	for k, v := range s.Fields {
		d.Fields[k] = v
	}
	for _, line := range s.Lines {
		cells := make(map[string]string, len(line.Cells))
		for k, v := range line.Cells {
			cells[k] = v
		}
		key := line.Key
		if key == "" {
			key = uuid.NewString()
		}
		d.rows = append(d.rows, &Row{Key: key, ID: line.ID, Cells: cells})
	}
	if len(d.rows) == 0 {
		d.rows = append(d.rows, d.newBlankRow())
	}
	for _, id := range s.DeletedLineIDs {
		d.queueDeletion(id)
	}
	return d
}

// OnMutate registers fn to run after every mutation. The autosave coordinator
// uses this to arm its debounce gate. Only one listener is supported.
func (d *Document) OnMutate(fn func()) {
	d.onMutate = fn
}

// Rows returns the live rows in order. Callers must not mutate the returned
// rows directly; use SetCell and friends so recomputation and notification run.
func (d *Document) Rows() []*Row {
	return d.rows
}

// PendingDeletions returns the queued line ids awaiting server confirmation,
// in deletion order.
func (d *Document) PendingDeletions() []string {
	out := make([]string, len(d.pendingDeletions))
	copy(out, d.pendingDeletions)
	return out
}

// SetField sets a scalar header field and notifies the mutation listener.
func (d *Document) SetField(name, value string) {
	d.Fields[name] = value
	d.emit(EventFieldChanged, name)
	d.mutated()
}

// Field returns the named header field; missing fields read as empty rather
// than failing.
func (d *Document) Field(name string) string {
	return d.Fields[name]
}

// SetCell sets one cell of the row at index i, recomputes derived cells
// synchronously, and then notifies the mutation listener. Out-of-range
// indexes are ignored.
func (d *Document) SetCell(i int, name, value string) {
	if i < 0 || i >= len(d.rows) {
		return
	}
	row := d.rows[i]
	row.Cells[name] = value
	if d.compute != nil {
		d.compute(row.Cells)
	}
	d.emit(EventCellChanged, row.Key)
	d.mutated()
}

// AddRow appends a blank row and returns its index.
func (d *Document) AddRow() int {
	row := d.newBlankRow()
	d.rows = append(d.rows, row)
	d.emit(EventRowAdded, row.Key)
	d.mutated()
	return len(d.rows) - 1
}

// DeleteRow removes the row at index i immediately (optimistic: the server
// has not confirmed anything yet). If the row had a server id, the id joins
// the pending-deletion queue, at most once. Deleting the last remaining row
// inserts a fresh blank row so the document is never empty. Out-of-range
// indexes are ignored.
func (d *Document) DeleteRow(i int) {
	if i < 0 || i >= len(d.rows) {
		return
	}
	row := d.rows[i]
	if row.ID != "" {
		d.queueDeletion(row.ID)
	}
	d.rows = append(d.rows[:i], d.rows[i+1:]...)
	if len(d.rows) == 0 {
		d.rows = append(d.rows, d.newBlankRow())
	}
	d.emit(EventRowDeleted, row.Key)
	d.mutated()
}

// ApplyServerAssigned writes server-assigned identity back into the document.
// Each write happens only where the client-side value is still empty, so a
// value that arrived through another path is never clobbered. lineIDs maps
// client row keys to their new server ids.
func (d *Document) ApplyServerAssigned(id, number string, lineIDs map[string]string) {
	if d.ID == "" && id != "" {
		d.ID = id
	}
	if d.Number == "" && number != "" {
		d.Number = number
	}
	for _, row := range d.rows {
		if row.ID != "" {
			continue
		}
		if newID, ok := lineIDs[row.Key]; ok && newID != "" {
			row.ID = newID
		}
	}
}

// ClearDeletions removes the given ids from the pending-deletion queue.
// Called after a save that included them succeeded; ids queued since that
// save's snapshot survive untouched.
func (d *Document) ClearDeletions(ids []string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := d.pendingDeletions[:0]
	for _, id := range d.pendingDeletions {
		if _, ok := drop[id]; ok {
			delete(d.pendingSet, id)
			continue
		}
		kept = append(kept, id)
	}
	d.pendingDeletions = kept
}

func (d *Document) queueDeletion(id string) {
	if _, ok := d.pendingSet[id]; ok {
		return
	}
	d.pendingSet[id] = struct{}{}
	d.pendingDeletions = append(d.pendingDeletions, id)
}

func (d *Document) newBlankRow() *Row {
	return &Row{Key: uuid.NewString(), Cells: make(map[string]string)}
}

func (d *Document) mutated() {
	if d.onMutate != nil {
		d.onMutate()
	}
}

func (d *Document) emit(event string, data any) {
	if d.emitter != nil {
		d.emitter.Emit(context.Background(), event, data)
	}
}
