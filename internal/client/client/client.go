// Package client implements the HTTP transport between the editing client
// and the jobs-manager save endpoint.
package client

import (
	"context"

	"github.com/silverkiwi/jobs-manager-sub002/internal/client/viewmodel"
	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
)

// Client is the transport surface the autosave coordinator depends on.
type Client interface {
	Close() error
	Login(ctx context.Context, username string, password []byte) error
	Hydrate(ctx context.Context, kind common.DocumentKind, key string) (*viewmodel.Hydration, error)
	Save(ctx context.Context, snapshot *viewmodel.Snapshot) (*SaveResult, error)
	Ping(ctx context.Context) error
}

// Message is one server-provided notification in a save response.
type Message struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// SaveResult is the interpreted body of a save response. When Success is
// false the server rejected the payload at the business level; Messages then
// carries the reason(s). Transport-level failures never produce a SaveResult.
type SaveResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Number  string `json:"number,omitempty"`
	// LineIDs maps client row keys to their server-assigned line ids.
	LineIDs  map[string]string `json:"line_ids,omitempty"`
	Messages []Message         `json:"messages,omitempty"`
}

// TokenSource supplies the anti-forgery token attached to every mutating
// request. A source that cannot produce a token returns an error, which the
// caller surfaces as an ordinary save failure.
type TokenSource interface {
	Token() (string, error)
}
