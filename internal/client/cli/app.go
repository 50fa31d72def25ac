// Package cli implements the interactive editing shell: open a document,
// edit fields and rows, and let the autosave coordinator persist changes in
// the background.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/silverkiwi/jobs-manager-sub002/internal/client/autosave"
	"github.com/silverkiwi/jobs-manager-sub002/internal/client/client"
	"github.com/silverkiwi/jobs-manager-sub002/internal/client/config"
	"github.com/silverkiwi/jobs-manager-sub002/internal/client/drafts"
	"github.com/silverkiwi/jobs-manager-sub002/internal/client/viewmodel"
	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
	"github.com/silverkiwi/jobs-manager-sub002/internal/logging"

	_ "modernc.org/sqlite"
)

// App holds the interactive session state: one open document at a time with
// its autosave coordinator.
type App struct {
	config  *config.Config
	api     client.Client
	drafts  drafts.Repository
	db      *sql.DB
	logger  logging.Logger
	out     io.Writer
	reader  *bufio.Reader
	session bool

	coord  *autosave.Coordinator
	kind   common.DocumentKind
	key    string
	status *statusPoller
}

// NewApp wires the application from config: local draft database, HTTP
// client, structured logging to stderr.
func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	db, draftRepo, err := drafts.InitDatabase(ctx, c.DraftDBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing draft database: %w", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	apiClient := client.NewHTTPClient(c.ServerEndpointAddr, nil)

	return &App{
		config: c,
		api:    apiClient,
		drafts: draftRepo,
		db:     db,
		logger: logger,
		out:    os.Stdout,
		reader: bufio.NewReader(os.Stdin),
		status: newStatusPoller(apiClient, c.OnlineCheckInterval),
	}, nil
}

// Run starts the REPL and tears the session down on exit.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close()

	go a.status.Run(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.statusLine, scanner)
}

func (a *App) close() {
	if a.coord != nil {
		// best effort: push the last burst of edits before exit
		_ = a.coord.Flush()
		a.coord.Close()
	}
	_ = a.api.Close()
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.session
}

func (a *App) hasDocument() bool {
	return a.coord != nil
}

func (a *App) statusLine() string {
	reach := "offline"
	if a.status.Online() {
		reach = "online"
	}
	if !a.session {
		return "[" + reach + "] logged out"
	}
	if a.coord == nil {
		return "[" + reach + "] no document"
	}
	return fmt.Sprintf("[%s] %s %s", reach, a.kind, a.key)
}

// Login prompts for credentials and opens a session against the server.
func (a *App) Login(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.api.Login(ctx, username, password); err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			fmt.Fprintln(a.out, "Invalid username or password")
			return nil
		}
		fmt.Fprintf(a.out, "Login failed: %v\n", err)
		return nil
	}
	a.session = true
	fmt.Fprintln(a.out, "Logged in")
	return nil
}

// Open loads a document by kind and key: a dirty local draft wins over the
// server copy, then server hydration, then a fresh empty document.
func (a *App) Open(ctx context.Context, kindArg, key string) error {
	kind := common.DocumentKind(kindArg)
	if !kind.Valid() {
		fmt.Fprintf(a.out, "Unknown document kind %q (want timesheet or purchase_order)\n", kindArg)
		return nil
	}
	if key == "" {
		fmt.Fprintln(a.out, "A document key is required, e.g. 2026-08-28")
		return nil
	}

	if a.coord != nil {
		_ = a.coord.Flush()
		a.coord.Close()
		a.coord = nil
	}

	doc, err := a.loadDocument(ctx, kind, key)
	if err != nil {
		fmt.Fprintf(a.out, "Could not open %s %s: %v\n", kind, key, err)
		return nil
	}

	a.kind = kind
	a.key = key
	a.coord = autosave.NewCoordinator(doc, a.api,
		autosave.WithQuiescence(a.config.QuiescenceInterval),
		autosave.WithDrafts(a.drafts),
		autosave.WithEmitter(&terminalEmitter{out: a.out}),
		autosave.WithLogger(a.logger),
	)
	fmt.Fprintf(a.out, "Opened %s %s\n", kind, key)
	return nil
}

func (a *App) loadDocument(ctx context.Context, kind common.DocumentKind, key string) (*viewmodel.Document, error) {
	opts := []viewmodel.Option{viewmodel.WithCompute(viewmodel.ComputeFor(kind))}

	if draft, err := a.drafts.Get(ctx, string(kind), key); err == nil && draft.Dirty {
		var snap viewmodel.Snapshot
		if err := json.Unmarshal(draft.Payload, &snap); err == nil {
			fmt.Fprintln(a.out, "Resuming unsaved local draft")
			return viewmodel.FromSnapshot(&snap, opts...), nil
		}
		a.logger.Warn(ctx, "discarding unreadable draft", "kind", kind, "key", key)
	}

	h, err := a.api.Hydrate(ctx, kind, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return viewmodel.NewDocument(kind, key, opts...), nil
		}
		return nil, err
	}
	return viewmodel.FromHydration(kind, key, h, opts...), nil
}

// SetField edits a scalar header field of the open document.
func (a *App) SetField(_ context.Context, name, value string) error {
	a.coord.SetField(name, value)
	return nil
}

// SetCell edits one cell of a row.
func (a *App) SetCell(_ context.Context, row int, name, value string) error {
	a.coord.SetCell(row, name, value)
	return nil
}

// AddRow appends a blank row.
func (a *App) AddRow(_ context.Context) error {
	i := a.coord.AddRow()
	fmt.Fprintf(a.out, "Added row %d\n", i)
	return nil
}

// DeleteRow removes a row; the grid never drops below one row.
func (a *App) DeleteRow(_ context.Context, row int) error {
	a.coord.DeleteRow(row)
	return nil
}

// Show renders the open document.
func (a *App) Show(_ context.Context) error {
	a.coord.View(func(d *viewmodel.Document) {
		number := d.Number
		if number == "" {
			number = "(unsaved)"
		}
		fmt.Fprintf(a.out, "%s %s  %s\n", d.Kind, d.Key, number)
		for name, value := range d.Fields {
			fmt.Fprintf(a.out, "  %s: %s\n", name, value)
		}
		for i, row := range d.Rows() {
			marker := " "
			if row.ID == "" {
				marker = "*" // not yet on the server
			}
			fmt.Fprintf(a.out, "  [%d]%s %v\n", i, marker, row.Cells)
		}
		if n := len(d.PendingDeletions()); n > 0 {
			fmt.Fprintf(a.out, "  %d deletion(s) awaiting confirmation\n", n)
		}
	})
	return nil
}

// Flush forces any pending autosave to run now.
func (a *App) Flush(_ context.Context) error {
	if err := a.coord.Flush(); err != nil {
		fmt.Fprintf(a.out, "Save failed: %v\n", err)
	}
	return nil
}

// terminalEmitter renders coordinator events as terminal lines.
type terminalEmitter struct {
	out io.Writer
}

func (t *terminalEmitter) Emit(_ context.Context, event string, data any) {
	switch event {
	case viewmodel.EventSaved:
		if number, ok := data.(string); ok && number != "" {
			fmt.Fprintf(t.out, "Saved (%s)\n", number)
			return
		}
		fmt.Fprintln(t.out, "Saved")
	case viewmodel.EventMessage:
		if m, ok := data.(viewmodel.UserMessage); ok {
			fmt.Fprintf(t.out, "[%s] %s\n", m.Level, m.Message)
		}
	}
}
