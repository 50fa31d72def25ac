package repomanager

import (
	"context"
	"database/sql"

	"github.com/silverkiwi/jobs-manager-sub002/internal/dbx"
	"github.com/silverkiwi/jobs-manager-sub002/internal/server/repositories/documents"
	"github.com/silverkiwi/jobs-manager-sub002/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Documents(db dbx.DBTX) documents.Repository
}
