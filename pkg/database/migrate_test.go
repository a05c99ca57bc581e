package database

import (
	"context"
	"testing"
	"testing/fstest"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateAppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	sqlxdb := sqlx.NewDb(db, "sqlmock")

	files := fstest.MapFS{
		"migrations/0002_b.sql": {Data: []byte("CREATE TABLE b (id INT);")},
		"migrations/0001_a.sql": {Data: []byte("CREATE TABLE a (id INT);")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("0001_a.sql").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("0002_b.sql").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("0002_b.sql", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res, err := migrate(context.Background(), sqlxdb, files)
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_b.sql"}, res.Applied)
	assert.Equal(t, []string{"0001_a.sql"}, res.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	body, err := migrationFiles.ReadFile("migrations/0001_share_links.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "share_links_token_key")
	assert.Contains(t, string(body), "share_link_access_logs")
}
