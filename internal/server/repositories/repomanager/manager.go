package repomanager

import (
	"context"
	"database/sql"

	"github.com/univx/authcore/internal/dbx"
	"github.com/univx/authcore/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a connection or transaction
// and owns schema migrations.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
