package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"regexp"

	"github.com/lib/pq"
)

// ErrorKind classifies a database failure for the planner and the caller.
type ErrorKind string

const (
	// KindConstraintViolation covers unique, foreign-key, not-null, and
	// check constraint failures (SQLSTATE class 23).
	KindConstraintViolation ErrorKind = "constraint_violation"
	// KindSyntaxOrSchema covers statements referencing nonexistent tables,
	// columns, or indexes, bad value syntax, and malformed SQL.
	KindSyntaxOrSchema ErrorKind = "syntax_or_schema"
	// KindStatementTimeout marks statements cancelled by the per-statement
	// deadline.
	KindStatementTimeout ErrorKind = "statement_timeout"
	// KindConnectionLost marks broken connections and pool exhaustion.
	KindConnectionLost ErrorKind = "connection_lost"
)

// Error is the normalized database failure. Message is safe to surface to
// the planner; the raw driver error stays wrapped for logs only.
type Error struct {
	Kind    ErrorKind
	Message string
	Hint    string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Identifier extraction from driver messages, for the cases where the
// structured pq fields are empty.
var (
	relationNotExist  = regexp.MustCompile(`relation "([^"]+)" does not exist`)
	relationExists    = regexp.MustCompile(`relation "([^"]+)" already exists`)
	columnNotExist    = regexp.MustCompile(`column "([^"]+)"[^"]*does not exist`)
	indexNotExist     = regexp.MustCompile(`index "([^"]+)" does not exist`)
	constraintMessage = regexp.MustCompile(`constraint "([^"]+)"`)
)

// classify maps a driver-level failure into the typed taxonomy. Errors that
// are already classified pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Kind:    KindStatementTimeout,
			Message: "statement exceeded the time limit",
			Hint:    "narrow the query with filters or a limit, or add an index",
			cause:   err,
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifyPQ(pqErr)
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return &Error{
			Kind:    KindConnectionLost,
			Message: "database connection was lost",
			Hint:    "retry the operation",
			cause:   err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{
			Kind:    KindConnectionLost,
			Message: "database is unreachable",
			Hint:    "retry the operation",
			cause:   err,
		}
	}

	return &Error{
		Kind:    KindSyntaxOrSchema,
		Message: "the statement was rejected by the database",
		cause:   err,
	}
}

func classifyPQ(pqErr *pq.Error) *Error {
	code := string(pqErr.Code)
	class := string(pqErr.Code.Class())

	switch {
	case class == "23":
		return constraintError(pqErr)

	case code == "57014":
		return &Error{
			Kind:    KindStatementTimeout,
			Message: "statement was cancelled by the server time limit",
			Hint:    "narrow the query with filters or a limit, or add an index",
			cause:   pqErr,
		}

	case class == "08", class == "53", class == "57":
		return &Error{
			Kind:    KindConnectionLost,
			Message: "database connection problem",
			Hint:    "retry the operation",
			cause:   pqErr,
		}

	default:
		return schemaError(pqErr)
	}
}

func constraintError(pqErr *pq.Error) *Error {
	e := &Error{Kind: KindConstraintViolation, cause: pqErr}

	name := pqErr.Constraint
	if name == "" {
		if m := constraintMessage.FindStringSubmatch(pqErr.Message); m != nil {
			name = m[1]
		}
	}

	switch string(pqErr.Code) {
	case "23505":
		e.Message = constraintMsg("a row with the same unique value already exists", name)
		e.Hint = "read the existing rows before inserting, or update the existing row"
	case "23503":
		e.Message = constraintMsg("referenced row does not exist", name)
		e.Hint = "check the foreign key value against the referenced table"
	case "23502":
		col := pqErr.Column
		if col != "" {
			e.Message = fmt.Sprintf("column %q requires a value", col)
		} else {
			e.Message = "a required column is missing a value"
		}
		e.Hint = "use describe_table to see which columns are NOT NULL"
	case "23514":
		e.Message = constraintMsg("a check constraint rejected the value", name)
		e.Hint = "use describe_table to see the table's constraints"
	default:
		e.Message = constraintMsg("a constraint rejected the operation", name)
	}
	return e
}

func constraintMsg(base, constraint string) string {
	if constraint == "" {
		return base
	}
	return fmt.Sprintf("%s (constraint %q)", base, constraint)
}

func schemaError(pqErr *pq.Error) *Error {
	e := &Error{Kind: KindSyntaxOrSchema, cause: pqErr}

	switch string(pqErr.Code) {
	case "42P01":
		table := pqErr.Table
		if table == "" {
			if m := relationNotExist.FindStringSubmatch(pqErr.Message); m != nil {
				table = m[1]
			}
		}
		if table != "" {
			e.Message = fmt.Sprintf("table %q does not exist", table)
		} else {
			e.Message = "the referenced table does not exist"
		}
		e.Hint = "use describe_database to list the tables that exist"

	case "42703":
		col := pqErr.Column
		if col == "" {
			if m := columnNotExist.FindStringSubmatch(pqErr.Message); m != nil {
				col = m[1]
			}
		}
		if col != "" {
			e.Message = fmt.Sprintf("column %q does not exist", col)
		} else {
			e.Message = "the referenced column does not exist"
		}
		e.Hint = "use describe_table to inspect the table's columns"

	case "42P07":
		table := pqErr.Table
		if table == "" {
			if m := relationExists.FindStringSubmatch(pqErr.Message); m != nil {
				table = m[1]
			}
		}
		if table != "" {
			e.Message = fmt.Sprintf("table %q already exists", table)
		} else {
			e.Message = "a relation with that name already exists"
		}
		e.Hint = "use describe_table to inspect it, or alter_table to change it"

	case "42704":
		if m := indexNotExist.FindStringSubmatch(pqErr.Message); m != nil {
			e.Message = fmt.Sprintf("index %q does not exist", m[1])
		} else {
			e.Message = "the referenced object does not exist"
		}

	case "42601":
		e.Message = "the generated statement had a syntax error"

	case "42804", "22P02":
		e.Message = "a value does not match the column's type"
		e.Hint = "use describe_table to check the column types"

	default:
		if string(pqErr.Code.Class()) == "22" {
			e.Message = "a value does not match the column's type"
			e.Hint = "use describe_table to check the column types"
		} else {
			e.Message = "the statement was rejected by the database"
		}
	}
	return e
}
