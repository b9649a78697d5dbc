package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/voternet/internal/dbx"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/candidates"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/elections"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/users"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/voters"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/votes"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// path works on a plain *sql.DB or inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Voters(db dbx.DBTX) voters.Repository
	Elections(db dbx.DBTX) elections.Repository
	Candidates(db dbx.DBTX) candidates.Repository
	Votes(db dbx.DBTX) votes.Repository
	AuditLogs(db dbx.DBTX) auditlogs.Repository
}
