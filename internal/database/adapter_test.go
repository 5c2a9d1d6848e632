package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockConn(t *testing.T, cfg Config) (*Conn, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return New(db, cfg).Conn(), mock
}

func TestConnQuery(t *testing.T) {
	conn, mock := newMockConn(t, Config{})

	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow(int64(1), []byte("Ada")).
		AddRow(int64(2), []byte("Grace"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).WillReturnRows(rows)

	rs, err := conn.Query(context.Background(), `SELECT * FROM "users"`)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, rs.Columns)
	require.Len(t, rs.Rows, 2)
	// Driver byte slices come back as strings.
	assert.Equal(t, "Ada", rs.Rows[0]["name"])
	assert.Equal(t, int64(2), rs.Rows[1]["id"])
	assert.False(t, rs.Truncated)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnQueryTruncatesAtRowCap(t *testing.T) {
	conn, mock := newMockConn(t, Config{MaxResultRows: 2})

	rows := sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	rs, err := conn.Query(context.Background(), `SELECT "id" FROM "users"`)
	require.NoError(t, err)

	assert.Len(t, rs.Rows, 2)
	assert.True(t, rs.Truncated)
}

func TestConnExec(t *testing.T) {
	conn, mock := newMockConn(t, Config{})

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "name" = $1`)).
		WithArgs("Ada").
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := conn.Exec(context.Background(), `UPDATE "users" SET "name" = $1`, "Ada")
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
}

func TestConnExecDDLWithoutRowCount(t *testing.T) {
	conn, mock := newMockConn(t, Config{})

	mock.ExpectExec("CREATE TABLE").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no RowsAffected available after DDL statement")))

	affected, err := conn.Exec(context.Background(), `CREATE TABLE "users" ("id" SERIAL)`)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestConnQueryPoolExhausted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	// Hold the pool's only connection so nothing else can run.
	held, err := db.Conn(context.Background())
	require.NoError(t, err)
	defer held.Close() //nolint:errcheck

	conn := New(db, Config{AcquireTimeout: 20 * time.Millisecond}).Conn()

	_, err = conn.Query(context.Background(), `SELECT 1`)
	require.Error(t, err)

	var typed *Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, KindConnectionLost, typed.Kind)
	assert.Contains(t, typed.Hint, "pool")

	// The statement never reached the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnExecPoolExhausted(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	held, err := db.Conn(context.Background())
	require.NoError(t, err)
	defer held.Close() //nolint:errcheck

	conn := New(db, Config{AcquireTimeout: 20 * time.Millisecond}).Conn()

	_, err = conn.Exec(context.Background(), `DELETE FROM "users"`)
	require.Error(t, err)

	var typed *Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, KindConnectionLost, typed.Kind)
}

func TestConnBeginCommit(t *testing.T) {
	conn, mock := newMockConn(t, Config{})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	require.NoError(t, conn.Begin(ctx))
	assert.True(t, conn.InTransaction())

	_, err := conn.Exec(ctx, `INSERT INTO "users" ("name") VALUES ($1)`, "Ada")
	require.NoError(t, err)

	require.NoError(t, conn.Commit())
	assert.False(t, conn.InTransaction())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnBeginRollback(t *testing.T) {
	conn, mock := newMockConn(t, Config{})

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.NoError(t, conn.Begin(context.Background()))
	require.NoError(t, conn.Rollback())
	assert.False(t, conn.InTransaction())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnBeginTwiceFails(t *testing.T) {
	conn, mock := newMockConn(t, Config{})

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.NoError(t, conn.Begin(context.Background()))
	err := conn.Begin(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already open")

	// The original transaction is still usable.
	assert.True(t, conn.InTransaction())
	require.NoError(t, conn.Rollback())
}

func TestConnCommitWithoutBegin(t *testing.T) {
	conn, _ := newMockConn(t, Config{})

	require.Error(t, conn.Commit())
	require.Error(t, conn.Rollback())
}

func TestConnCloseRollsBackOpenTransaction(t *testing.T) {
	conn, mock := newMockConn(t, Config{})

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.NoError(t, conn.Begin(context.Background()))
	require.NoError(t, conn.Close())

	assert.False(t, conn.InTransaction())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTables(t *testing.T) {
	conn, mock := newMockConn(t, Config{})

	rows := sqlmock.NewRows([]string{"table_name"}).
		AddRow("authors").
		AddRow("books")
	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").WillReturnRows(rows)

	tables, err := conn.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"authors", "books"}, tables)
}

func TestDescribeTable(t *testing.T) {
	conn, mock := newMockConn(t, Config{})

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "character_maximum_length"}).
			AddRow("id", "integer", "NO", "nextval('users_id_seq'::regclass)", nil).
			AddRow("email", "character varying", "NO", nil, 255))

	mock.ExpectQuery("FROM information_schema.table_constraints").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "constraint_type", "column_name"}).
			AddRow("users_pkey", "PRIMARY KEY", "id").
			AddRow("users_email_key", "UNIQUE", "email"))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	info, err := conn.DescribeTable(context.Background(), "users")
	require.NoError(t, err)

	assert.Equal(t, "users", info.Name)
	require.Len(t, info.Columns, 2)
	assert.Equal(t, "id", info.Columns[0].Name)
	assert.False(t, info.Columns[0].Nullable)
	assert.Equal(t, int64(255), info.Columns[1].MaxLength)
	require.Len(t, info.Constraints, 2)
	assert.Equal(t, "PRIMARY KEY", info.Constraints[0].Type)
	assert.Equal(t, int64(42), info.RowCount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDescribeTableMissing(t *testing.T) {
	conn, mock := newMockConn(t, Config{})

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("ghosts").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "character_maximum_length"}))

	_, err := conn.DescribeTable(context.Background(), "ghosts")
	require.Error(t, err)

	var typed *Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, KindSyntaxOrSchema, typed.Kind)
	assert.Contains(t, typed.Message, "ghosts")
}

func TestDescribeTableRejectsBadIdent(t *testing.T) {
	conn, _ := newMockConn(t, Config{})

	_, err := conn.DescribeTable(context.Background(), `users"; DROP TABLE users; --`)
	require.Error(t, err)
}

func TestCheckIdent(t *testing.T) {
	valid := []string{"users", "order_items", "_private", "Table2"}
	for _, name := range valid {
		if err := CheckIdent(name); err != nil {
			t.Errorf("CheckIdent(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "2fast", "user-name", "users; DROP", `a"b`, "naïve",
		"this_identifier_is_way_too_long_to_be_accepted_by_postgres_which_caps_at_63"}
	for _, name := range invalid {
		if err := CheckIdent(name); err == nil {
			t.Errorf("CheckIdent(%q) = nil, want error", name)
		}
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"users"`, QuoteIdent("users"))
}
