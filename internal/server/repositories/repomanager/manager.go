// Package repomanager vends repositories bound to a DBTX so services can use
// the same repository types inside and outside a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pulse/internal/dbx"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/users"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/verifications"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Verifications(db dbx.DBTX) verifications.Repository
}
