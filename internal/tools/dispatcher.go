package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dbwizard/dbwizard/internal/database"
	"github.com/dbwizard/dbwizard/internal/models"
)

// Dispatcher validates proposed calls and executes them on a session
// connection. Failures come back inside the ToolResult; Dispatch never
// returns an error because tool failures are fed back to the planner, not
// raised.
type Dispatcher struct {
	registry *Registry
	maxRows  int
}

// NewDispatcher builds a dispatcher over the given catalog. maxRows caps
// read_records result sets; zero means the adapter default.
func NewDispatcher(registry *Registry, maxRows int) *Dispatcher {
	if maxRows <= 0 {
		maxRows = database.DefaultMaxResultRows
	}
	return &Dispatcher{registry: registry, maxRows: maxRows}
}

// Registry returns the catalog this dispatcher executes.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// DispatchAll executes a batch strictly in proposal order. A failed call
// does not stop the remainder; each call gets its own result so the planner
// sees exactly what happened.
func (d *Dispatcher) DispatchAll(ctx context.Context, conn *database.Conn, sess *models.Session, calls []models.ToolCall) []models.ToolResult {
	results := make([]models.ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, d.Dispatch(ctx, conn, sess, call))
	}
	return results
}

// Dispatch validates and executes a single call.
func (d *Dispatcher) Dispatch(ctx context.Context, conn *database.Conn, sess *models.Session, call models.ToolCall) models.ToolResult {
	op, err := d.registry.Validate(call)
	if err != nil {
		slog.Debug("rejected tool call", "session", sess.ID, "operation", call.Operation, "error", err)
		return failFrom(call, err)
	}

	slog.Debug("executing tool", "session", sess.ID, "operation", call.Operation)

	switch p := op.(type) {
	case DescribeDatabaseParams:
		return d.describeDatabase(ctx, conn, call)
	case DescribeTableParams:
		return d.describeTable(ctx, conn, call, p)
	case ReadRecordsParams:
		return d.readRecords(ctx, conn, call, p)
	case CreateRecordParams:
		return d.createRecord(ctx, conn, call, p)
	case UpdateRecordParams:
		return d.updateRecord(ctx, conn, call, p)
	case DeleteRecordParams:
		return d.deleteRecord(ctx, conn, call, p)
	case CreateTableParams:
		return d.createTable(ctx, conn, call, p)
	case AlterTableParams:
		return d.alterTable(ctx, conn, call, p)
	case CreateIndexParams:
		return d.createIndex(ctx, conn, call, p)
	case DropIndexParams:
		return d.dropIndex(ctx, conn, call, p)
	case ManageTransactionParams:
		return d.manageTransaction(ctx, conn, sess, call, p)
	default:
		return models.FailResult(call, string(KindUnknownOperation),
			fmt.Sprintf("operation %q has no executor", call.Operation), "")
	}
}

// failFrom maps an error into a ToolResult. Validation and database errors
// keep their kind; anything else is an argument problem surfaced from a
// statement builder.
func failFrom(call models.ToolCall, err error) models.ToolResult {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return models.FailResult(call, string(ve.Kind), strings.Join(ve.Problems, "; "), ve.Hint)
	}
	var dbe *database.Error
	if errors.As(err, &dbe) {
		return models.FailResult(call, string(dbe.Kind), dbe.Message, dbe.Hint)
	}
	return models.FailResult(call, string(KindInvalidArguments), err.Error(), "")
}

func okResult(call models.ToolCall, message string) models.ToolResult {
	return models.ToolResult{
		CallID:    call.ID,
		Operation: call.Operation,
		Success:   true,
		Message:   message,
	}
}

func (d *Dispatcher) describeDatabase(ctx context.Context, conn *database.Conn, call models.ToolCall) models.ToolResult {
	tables, err := conn.ListTables(ctx)
	if err != nil {
		return failFrom(call, err)
	}

	rows := make([]map[string]any, len(tables))
	for i, t := range tables {
		rows[i] = map[string]any{"table_name": t}
	}

	res := okResult(call, fmt.Sprintf("database contains %d tables", len(tables)))
	res.Columns = []string{"table_name"}
	res.Rows = rows
	res.RowCount = len(tables)
	return res
}

func (d *Dispatcher) describeTable(ctx context.Context, conn *database.Conn, call models.ToolCall, p DescribeTableParams) models.ToolResult {
	info, err := conn.DescribeTable(ctx, p.Table)
	if err != nil {
		return failFrom(call, err)
	}

	res := okResult(call, fmt.Sprintf("table %q has %d columns, %d constraints, %d rows",
		info.Name, len(info.Columns), len(info.Constraints), info.RowCount))
	res.Data = info
	return res
}

func (d *Dispatcher) readRecords(ctx context.Context, conn *database.Conn, call models.ToolCall, p ReadRecordsParams) models.ToolResult {
	stmt, err := buildSelect(p, d.maxRows)
	if err != nil {
		return failFrom(call, err)
	}

	rs, err := conn.Query(ctx, stmt.query, stmt.args...)
	if err != nil {
		return failFrom(call, err)
	}

	res := okResult(call, fmt.Sprintf("%d rows from %q", len(rs.Rows), p.Table))
	res.Columns = rs.Columns
	res.Rows = rs.Rows
	res.RowCount = len(rs.Rows)
	res.Truncated = rs.Truncated
	return res
}

func (d *Dispatcher) createRecord(ctx context.Context, conn *database.Conn, call models.ToolCall, p CreateRecordParams) models.ToolResult {
	stmt, err := buildInsert(p)
	if err != nil {
		return failFrom(call, err)
	}

	rs, err := conn.Query(ctx, stmt.query, stmt.args...)
	if err != nil {
		return failFrom(call, err)
	}

	res := okResult(call, fmt.Sprintf("created record in %q", p.Table))
	res.Affected = 1
	if len(rs.Rows) > 0 {
		res.Data = rs.Rows[0]
	}
	return res
}

func (d *Dispatcher) updateRecord(ctx context.Context, conn *database.Conn, call models.ToolCall, p UpdateRecordParams) models.ToolResult {
	stmt, err := buildUpdate(p)
	if err != nil {
		return failFrom(call, err)
	}

	affected, err := conn.Exec(ctx, stmt.query, stmt.args...)
	if err != nil {
		return failFrom(call, err)
	}

	res := okResult(call, fmt.Sprintf("updated %d rows in %q", affected, p.Table))
	res.Affected = affected
	return res
}

func (d *Dispatcher) deleteRecord(ctx context.Context, conn *database.Conn, call models.ToolCall, p DeleteRecordParams) models.ToolResult {
	stmt, err := buildDelete(p)
	if err != nil {
		return failFrom(call, err)
	}

	affected, err := conn.Exec(ctx, stmt.query, stmt.args...)
	if err != nil {
		return failFrom(call, err)
	}

	res := okResult(call, fmt.Sprintf("deleted %d rows from %q", affected, p.Table))
	res.Affected = affected
	return res
}

func (d *Dispatcher) createTable(ctx context.Context, conn *database.Conn, call models.ToolCall, p CreateTableParams) models.ToolResult {
	stmt := buildCreateTable(p)
	if _, err := conn.Exec(ctx, stmt.query); err != nil {
		return failFrom(call, err)
	}
	return okResult(call, fmt.Sprintf("created table %q with %d columns", p.TableName, len(p.Columns)))
}

func (d *Dispatcher) alterTable(ctx context.Context, conn *database.Conn, call models.ToolCall, p AlterTableParams) models.ToolResult {
	stmt := buildAlterTable(p)
	if _, err := conn.Exec(ctx, stmt.query); err != nil {
		return failFrom(call, err)
	}
	return okResult(call, fmt.Sprintf("altered table %q (%s)", p.Table, p.Action))
}

func (d *Dispatcher) createIndex(ctx context.Context, conn *database.Conn, call models.ToolCall, p CreateIndexParams) models.ToolResult {
	stmt, name := buildCreateIndex(p)
	if _, err := conn.Exec(ctx, stmt.query); err != nil {
		return failFrom(call, err)
	}
	return okResult(call, fmt.Sprintf("created index %q on %q", name, p.Table))
}

func (d *Dispatcher) dropIndex(ctx context.Context, conn *database.Conn, call models.ToolCall, p DropIndexParams) models.ToolResult {
	stmt := buildDropIndex(p)
	if _, err := conn.Exec(ctx, stmt.query); err != nil {
		return failFrom(call, err)
	}
	return okResult(call, fmt.Sprintf("dropped index %q", p.IndexName))
}

// manageTransaction checks the state machine before touching the database,
// so an illegal transition never reaches the connection.
func (d *Dispatcher) manageTransaction(ctx context.Context, conn *database.Conn, sess *models.Session, call models.ToolCall, p ManageTransactionParams) models.ToolResult {
	next, err := sess.TxState.Apply(p.Action)
	if err != nil {
		return models.FailResult(call, string(KindInvalidArguments), err.Error(),
			fmt.Sprintf("transaction state is %q", sess.TxState))
	}

	switch p.Action {
	case models.TxBegin:
		err = conn.Begin(ctx)
	case models.TxCommit:
		err = conn.Commit()
	case models.TxRollback:
		err = conn.Rollback()
	}
	if err != nil {
		// The driver tears the transaction down on a failed commit or
		// rollback, so the state machine must not stay open: nothing the
		// connection runs from here on is inside a transaction.
		if p.Action != models.TxBegin && !conn.InTransaction() {
			sess.TxState = models.TxRolledBack
		}
		return failFrom(call, err)
	}

	sess.TxState = next
	return okResult(call, fmt.Sprintf("transaction %s", verbFor(p.Action)))
}

func verbFor(action models.TxAction) string {
	switch action {
	case models.TxBegin:
		return "started"
	case models.TxCommit:
		return "committed"
	default:
		return "rolled back"
	}
}
