// Package api exposes the jobs-manager HTTP endpoint: login, document
// hydration, and the autosave target. Handlers speak JSON; authentication
// is a session JWT header plus a CSRF JWT header on mutations.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
	"github.com/silverkiwi/jobs-manager-sub002/internal/logging"
	"github.com/silverkiwi/jobs-manager-sub002/internal/server/models"
	"github.com/silverkiwi/jobs-manager-sub002/internal/server/services"
)

// UserAuthenticator is the slice of the user service the API needs.
type UserAuthenticator interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
}

// DocumentStore is the slice of the document service the API needs.
type DocumentStore interface {
	Hydrate(ctx context.Context, userID, kind, key string) (*models.Document, []*models.Line, error)
	Save(ctx context.Context, userID, kind, key string, req *services.SaveRequest) (*services.SaveOutcome, error)
}

// Server is the HTTP front of the jobs-manager backend.
type Server struct {
	addr      string
	logger    logging.Logger
	users     UserAuthenticator
	documents DocumentStore
	jwtSecret []byte
}

// NewServer constructs a Server. The secret must match the one the user
// service signs tokens with.
func NewServer(addr string, logger logging.Logger, users UserAuthenticator, documents DocumentStore, secretKey string) *Server {
	return &Server{
		addr:      addr,
		logger:    logger,
		users:     users,
		documents: documents,
		jwtSecret: []byte(secretKey),
	}
}

// Handler builds the route table. Collection names are the plural document
// kinds ("timesheets", "purchase_orders").
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/ping", s.handlePing)
	mux.Handle("GET /api/{collection}/{key}", s.withSession(http.HandlerFunc(s.handleHydrate)))
	mux.Handle("POST /api/{collection}/save", s.withSession(s.withCSRF(http.HandlerFunc(s.handleSave))))

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info(ctx, "http server listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// kindFromCollection maps a URL collection segment to a document kind.
func kindFromCollection(collection string) (common.DocumentKind, bool) {
	switch collection {
	case "timesheets":
		return common.KindTimesheet, true
	case "purchase_orders":
		return common.KindPurchaseOrder, true
	default:
		return "", false
	}
}
