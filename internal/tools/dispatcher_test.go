package tools

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbwizard/dbwizard/internal/database"
	"github.com/dbwizard/dbwizard/internal/models"
)

// pqError42P01 is the driver error Postgres raises for a missing table.
var pqError42P01 = pq.Error{Code: "42P01", Message: `relation "ghosts" does not exist`}

func newTestDispatcher(t *testing.T) (*Dispatcher, *database.Conn, sqlmock.Sqlmock, *models.Session) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	adapter := database.New(db, database.Config{})
	sess := models.NewSession("test question")
	return NewDispatcher(NewRegistry(), adapter.MaxResultRows()), adapter.Conn(), mock, sess
}

func call(op string, args map[string]any) models.ToolCall {
	return models.ToolCall{ID: "call_1", Operation: op, Arguments: args}
}

func TestDispatchDescribeDatabase(t *testing.T) {
	d, conn, mock, sess := newTestDispatcher(t)

	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers").AddRow("orders"))

	res := d.Dispatch(context.Background(), conn, sess, call("describe_database", nil))

	require.True(t, res.Success, "unexpected failure: %+v", res.Error)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, "customers", res.Rows[0]["table_name"])
	assert.Contains(t, res.Message, "2 tables")
}

func TestDispatchCreateRecord(t *testing.T) {
	d, conn, mock, sess := newTestDispatcher(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "customers" ("email", "name") VALUES ($1, $2) RETURNING *`)).
		WithArgs("john@example.com", "John Doe").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name"}).
			AddRow(int64(1), "john@example.com", "John Doe"))

	res := d.Dispatch(context.Background(), conn, sess, call("create_record", map[string]any{
		"table":  "customers",
		"values": map[string]any{"name": "John Doe", "email": "john@example.com"},
	}))

	require.True(t, res.Success, "unexpected failure: %+v", res.Error)
	assert.Equal(t, int64(1), res.Affected)

	row, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "John Doe", row["name"])
}

func TestDispatchUnknownOperationTouchesNothing(t *testing.T) {
	d, conn, mock, sess := newTestDispatcher(t)

	res := d.Dispatch(context.Background(), conn, sess, call("drop_table", map[string]any{"table": "users"}))

	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, string(KindUnknownOperation), res.Error.Kind)
	assert.NotEmpty(t, res.Error.Hint, "planner needs the available operations to recover")

	// No SQL may run for a rejected call.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchInvalidArgumentsTouchesNothing(t *testing.T) {
	d, conn, mock, sess := newTestDispatcher(t)

	res := d.Dispatch(context.Background(), conn, sess, call("delete_record", map[string]any{
		"table": "users",
	}))

	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, string(KindInvalidArguments), res.Error.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchDatabaseErrorIsTyped(t *testing.T) {
	d, conn, mock, sess := newTestDispatcher(t)

	mock.ExpectQuery("SELECT").
		WillReturnError(&pqError42P01)

	res := d.Dispatch(context.Background(), conn, sess, call("read_records", map[string]any{
		"table": "ghosts",
	}))

	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, "syntax_or_schema", res.Error.Kind)
	assert.Contains(t, res.Error.Message, "ghosts")
	assert.Contains(t, res.Error.Hint, "describe_database")
}

func TestDispatchAllContinuesPastFailures(t *testing.T) {
	d, conn, mock, sess := newTestDispatcher(t)

	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users"))
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	calls := []models.ToolCall{
		{ID: "a", Operation: "describe_database"},
		{ID: "b", Operation: "drop_table", Arguments: map[string]any{"table": "users"}},
		{ID: "c", Operation: "read_records", Arguments: map[string]any{"table": "users"}},
	}

	results := d.DispatchAll(context.Background(), conn, sess, calls)

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success, "a failed call must not stop the batch")
	assert.Equal(t, "a", results[0].CallID)
	assert.Equal(t, "c", results[2].CallID)
}

func TestDispatchTransactionLifecycle(t *testing.T) {
	d, conn, mock, sess := newTestDispatcher(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "customers"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()

	res := d.Dispatch(ctx, conn, sess, call("manage_transaction", map[string]any{"action": "begin"}))
	require.True(t, res.Success, "unexpected failure: %+v", res.Error)
	assert.Equal(t, models.TxInTransaction, sess.TxState)
	assert.True(t, conn.InTransaction())

	res = d.Dispatch(ctx, conn, sess, call("update_record", map[string]any{
		"table":   "customers",
		"values":  map[string]any{"name": "J"},
		"filters": map[string]any{"id": float64(1)},
	}))
	require.True(t, res.Success, "unexpected failure: %+v", res.Error)
	assert.Equal(t, int64(1), res.Affected)

	res = d.Dispatch(ctx, conn, sess, call("manage_transaction", map[string]any{"action": "commit"}))
	require.True(t, res.Success, "unexpected failure: %+v", res.Error)
	assert.Equal(t, models.TxCommitted, sess.TxState)
	assert.False(t, conn.InTransaction())
}

func TestDispatchSecondBeginRejectedBeforeDatabase(t *testing.T) {
	d, conn, mock, sess := newTestDispatcher(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx := context.Background()

	res := d.Dispatch(ctx, conn, sess, call("manage_transaction", map[string]any{"action": "begin"}))
	require.True(t, res.Success)

	// A second begin is an error, not a no-op, and must not reach the
	// database.
	res = d.Dispatch(ctx, conn, sess, call("manage_transaction", map[string]any{"action": "begin"}))
	require.False(t, res.Success)
	assert.Equal(t, string(KindInvalidArguments), res.Error.Kind)
	assert.Contains(t, res.Error.Message, "already in progress")
	assert.Equal(t, models.TxInTransaction, sess.TxState)

	require.NoError(t, conn.Close())
}

func TestDispatchCommitFailureResyncsState(t *testing.T) {
	d, conn, mock, sess := newTestDispatcher(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access due to concurrent update"})
	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx := context.Background()

	res := d.Dispatch(ctx, conn, sess, call("manage_transaction", map[string]any{"action": "begin"}))
	require.True(t, res.Success, "unexpected failure: %+v", res.Error)

	// The driver tears the transaction down on a failed commit, so the
	// session must not be left believing one is still open.
	res = d.Dispatch(ctx, conn, sess, call("manage_transaction", map[string]any{"action": "commit"}))
	require.False(t, res.Success)
	assert.Equal(t, models.TxRolledBack, sess.TxState)
	assert.False(t, conn.InTransaction())

	// A fresh transaction can start on the same session afterwards.
	res = d.Dispatch(ctx, conn, sess, call("manage_transaction", map[string]any{"action": "begin"}))
	require.True(t, res.Success, "unexpected failure: %+v", res.Error)
	assert.Equal(t, models.TxInTransaction, sess.TxState)

	res = d.Dispatch(ctx, conn, sess, call("manage_transaction", map[string]any{"action": "rollback"}))
	require.True(t, res.Success, "unexpected failure: %+v", res.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchRollbackFailureResyncsState(t *testing.T) {
	d, conn, mock, sess := newTestDispatcher(t)

	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(&pq.Error{Code: "08006", Message: "connection terminated"})

	ctx := context.Background()

	res := d.Dispatch(ctx, conn, sess, call("manage_transaction", map[string]any{"action": "begin"}))
	require.True(t, res.Success, "unexpected failure: %+v", res.Error)

	res = d.Dispatch(ctx, conn, sess, call("manage_transaction", map[string]any{"action": "rollback"}))
	require.False(t, res.Success)
	assert.Equal(t, models.TxRolledBack, sess.TxState)
	assert.False(t, conn.InTransaction())
}

func TestDispatchCommitWithoutBegin(t *testing.T) {
	d, conn, mock, sess := newTestDispatcher(t)

	res := d.Dispatch(context.Background(), conn, sess, call("manage_transaction", map[string]any{"action": "commit"}))

	require.False(t, res.Success)
	assert.Equal(t, string(KindInvalidArguments), res.Error.Kind)
	assert.Equal(t, models.TxNone, sess.TxState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchCreateTableThenDescribe(t *testing.T) {
	d, conn, mock, sess := newTestDispatcher(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "reviews"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("reviews").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "character_maximum_length"}).
			AddRow("id", "integer", "NO", "nextval('reviews_id_seq'::regclass)", nil).
			AddRow("title", "character varying", "NO", nil, 255))
	mock.ExpectQuery("FROM information_schema.table_constraints").
		WithArgs("reviews").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "constraint_type", "column_name"}).
			AddRow("reviews_pkey", "PRIMARY KEY", "id"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "reviews"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	ctx := context.Background()

	res := d.Dispatch(ctx, conn, sess, call("create_table", map[string]any{
		"table_name": "reviews",
		"columns": []any{
			map[string]any{"name": "id", "type": "serial", "constraints": []any{"primary_key"}},
			map[string]any{"name": "title", "type": "string", "constraints": []any{"not_null"}},
		},
	}))
	require.True(t, res.Success, "unexpected failure: %+v", res.Error)

	res = d.Dispatch(ctx, conn, sess, call("describe_table", map[string]any{"table": "reviews"}))
	require.True(t, res.Success, "unexpected failure: %+v", res.Error)

	info, ok := res.Data.(*database.TableInfo)
	require.True(t, ok)
	assert.Equal(t, "reviews", info.Name)
	assert.Len(t, info.Columns, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}
