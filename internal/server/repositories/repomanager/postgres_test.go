package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/voternet/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/candidates"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/elections"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/users"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/voters"
	"github.com/dmitrijs2005/voternet/internal/server/repositories/votes"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db := newDB(t)
	var m RepositoryManager = NewPostgresRepositoryManager()

	assert.IsType(t, &users.PostgresRepository{}, m.Users(db))
	assert.IsType(t, &voters.PostgresRepository{}, m.Voters(db))
	assert.IsType(t, &elections.PostgresRepository{}, m.Elections(db))
	assert.IsType(t, &candidates.PostgresRepository{}, m.Candidates(db))
	assert.IsType(t, &votes.PostgresRepository{}, m.Votes(db))
	assert.IsType(t, &auditlogs.PostgresRepository{}, m.AuditLogs(db))
}

func TestRunMigrations(t *testing.T) {
	db := newDB(t)
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), db))
	assert.Equal(t, ".", gotDir)

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	assert.EqualError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), db), "boom")
}
