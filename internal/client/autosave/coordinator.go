package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/silverkiwi/jobs-manager-sub002/internal/client/client"
	"github.com/silverkiwi/jobs-manager-sub002/internal/client/drafts"
	"github.com/silverkiwi/jobs-manager-sub002/internal/client/viewmodel"
	"github.com/silverkiwi/jobs-manager-sub002/internal/logging"
)

// DefaultQuiescence is the wait after the last edit before a save fires.
const DefaultQuiescence = 1500 * time.Millisecond

// ErrRejected marks a save the server accepted at the transport level but
// refused at the business level. Client state is kept for resend.
var ErrRejected = errors.New("save rejected by server")

// Coordinator owns one editable document and keeps the server copy in step
// with it: edits go through the coordinator, arm the debounce gate, and the
// gate's fire snapshots the document and posts it. All document access is
// serialized by the coordinator's mutex, so edits keep run-to-completion
// semantics against the save goroutine.
//
// At most one save request is in flight per document. An edit landing while
// a save is outstanding marks the coordinator dirty; a follow-up save with a
// fresh snapshot runs as soon as the response has been processed. The
// identifier write-back additionally only fills empty fields, so even an
// unexpected concurrent writer cannot be clobbered.
type Coordinator struct {
	mu  sync.Mutex // guards doc
	doc *viewmodel.Document

	api     client.Client
	drafts  drafts.Repository
	emitter viewmodel.EventEmitter
	logger  logging.Logger
	ctx     context.Context

	deb *Debouncer

	flightMu sync.Mutex
	inFlight bool
	dirty    bool
	pending  *pendingRun
}

// pendingRun joins edits merged into an in-flight save with the follow-up
// run that will carry them. Their handles resolve with that run's result.
type pendingRun struct {
	err  error
	done chan struct{}
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithQuiescence overrides the debounce interval (tests use a short one).
func WithQuiescence(interval time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.deb = NewDebouncer(interval, c.save)
	}
}

// WithDrafts persists every snapshot to the local draft store.
func WithDrafts(repo drafts.Repository) CoordinatorOption {
	return func(c *Coordinator) { c.drafts = repo }
}

// WithEmitter routes saved-events and user messages through e.
func WithEmitter(e viewmodel.EventEmitter) CoordinatorOption {
	return func(c *Coordinator) { c.emitter = e }
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// NewCoordinator wires a coordinator around doc. The document's mutation
// hook is claimed by the coordinator; mutate only through coordinator
// methods afterwards.
func NewCoordinator(doc *viewmodel.Document, api client.Client, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		doc: doc,
		api: api,
		ctx: context.Background(),
	}
	c.deb = NewDebouncer(DefaultQuiescence, c.save)
	for _, opt := range opts {
		opt(c)
	}
	doc.OnMutate(func() { c.deb.Trigger() })
	return c
}

// SetField edits a scalar header field.
func (c *Coordinator) SetField(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.SetField(name, value)
}

// SetCell edits one cell of row i; derived cells recompute before the
// debounce countdown is re-armed.
func (c *Coordinator) SetCell(i int, name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.SetCell(i, name, value)
}

// AddRow appends a blank row and returns its index.
func (c *Coordinator) AddRow() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.AddRow()
}

// DeleteRow removes row i optimistically and queues its server id (if any)
// for deletion on the next save.
func (c *Coordinator) DeleteRow(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.DeleteRow(i)
}

// View runs fn with the document under the coordinator's lock, for
// rendering. fn must not retain the document.
func (c *Coordinator) View(fn func(doc *viewmodel.Document)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.doc)
}

// Flush fires a pending countdown immediately and waits for the save.
// Returns nil when nothing was pending.
func (c *Coordinator) Flush() error {
	return c.deb.Flush()
}

// Close shuts the debounce gate. Pending edits are not saved; call Flush
// first when they should be.
func (c *Coordinator) Close() {
	c.deb.Close()
}

// save is the debounce gate's target. It loops while edits arrive during an
// in-flight request, so those edits are merged into an immediate follow-up
// instead of racing a second POST. The follow-up runs whether or not the
// outstanding save succeeded; a merged edit blocks here until its follow-up
// completes and reports that follow-up's result, never a premature nil.
func (c *Coordinator) save() error {
	c.flightMu.Lock()
	if c.inFlight {
		c.dirty = true
		if c.pending == nil {
			c.pending = &pendingRun{done: make(chan struct{})}
		}
		p := c.pending
		c.flightMu.Unlock()
		<-p.done
		return p.err
	}
	c.inFlight = true
	c.flightMu.Unlock()

	var firstErr error
	for i := 0; ; i++ {
		c.flightMu.Lock()
		c.dirty = false
		run := c.pending
		c.pending = nil
		c.flightMu.Unlock()

		err := c.saveOnce()
		if i == 0 {
			firstErr = err
		}
		if run != nil {
			run.err = err
			close(run.done)
		}

		c.flightMu.Lock()
		if !c.dirty {
			c.inFlight = false
			c.flightMu.Unlock()
			return firstErr
		}
		c.flightMu.Unlock()
	}
}

// saveOnce takes one snapshot, persists it as a dirty draft, posts it, and
// reconciles the response.
func (c *Coordinator) saveOnce() error {
	c.mu.Lock()
	snap := c.doc.Snapshot()
	c.mu.Unlock()

	c.persistDraft(snap, true)

	result, err := c.api.Save(c.ctx, snap)
	if err != nil {
		// transport failure: everything stays queued; the next edit resends
		c.logError("save failed", err)
		c.message("error", fmt.Sprintf("Save failed: %v", err))
		return err
	}

	if !result.Success {
		// business rejection: surface the server's words, keep state
		for _, m := range result.Messages {
			c.message(m.Level, m.Message)
		}
		if len(result.Messages) == 0 {
			c.message("error", "Save rejected by server")
		}
		return ErrRejected
	}

	c.mu.Lock()
	c.doc.ApplyServerAssigned(result.ID, result.Number, result.LineIDs)
	c.doc.ClearDeletions(snap.DeletedLineIDs)
	number := c.doc.Number
	c.mu.Unlock()

	c.persistClean(snap)
	c.emit(viewmodel.EventSaved, number)
	return nil
}

func (c *Coordinator) persistDraft(snap *viewmodel.Snapshot, dirty bool) {
	if c.drafts == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		c.logError("encoding draft", err)
		return
	}
	d := &drafts.Draft{
		Kind:      snap.Kind,
		Key:       snap.Key,
		Payload:   payload,
		Dirty:     dirty,
		UpdatedAt: time.Now().UTC(),
	}
	if err := c.drafts.Upsert(c.ctx, d); err != nil {
		c.logError("persisting draft", err)
	}
}

func (c *Coordinator) persistClean(snap *viewmodel.Snapshot) {
	if c.drafts == nil {
		return
	}
	if err := c.drafts.MarkClean(c.ctx, snap.Kind, snap.Key); err != nil {
		c.logError("marking draft clean", err)
	}
}

func (c *Coordinator) message(level, text string) {
	c.emit(viewmodel.EventMessage, viewmodel.UserMessage{Level: level, Message: text})
}

func (c *Coordinator) emit(event string, data any) {
	if c.emitter != nil {
		c.emitter.Emit(c.ctx, event, data)
	}
}

func (c *Coordinator) logError(msg string, err error) {
	if c.logger != nil {
		c.logger.Error(c.ctx, msg, "error", err)
	}
}
