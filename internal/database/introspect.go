package database

import (
	"context"
	"database/sql"
	"fmt"
)

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name      string `json:"name"`
	DataType  string `json:"data_type"`
	Nullable  bool   `json:"nullable"`
	Default   string `json:"default,omitempty"`
	MaxLength int64  `json:"max_length,omitempty"`
}

// ConstraintInfo describes one constraint attached to a table.
type ConstraintInfo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Column string `json:"column"`
}

// TableInfo is the full shape of a table as reported by describe_table.
type TableInfo struct {
	Name        string           `json:"name"`
	Columns     []ColumnInfo     `json:"columns"`
	Constraints []ConstraintInfo `json:"constraints"`
	RowCount    int64            `json:"row_count"`
}

const listTablesSQL = `SELECT table_name FROM information_schema.tables
WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
ORDER BY table_name`

// ListTables returns the names of the tables in the public schema, sorted.
func (c *Conn) ListTables(ctx context.Context) ([]string, error) {
	ex, release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	stmtCtx, cancel := c.stmtCtx(ctx)
	defer cancel()

	rows, err := ex.QueryContext(stmtCtx, listTablesSQL)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close() //nolint:errcheck

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify(err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return tables, nil
}

const tableColumnsSQL = `SELECT column_name, data_type, is_nullable, column_default, character_maximum_length
FROM information_schema.columns
WHERE table_schema = 'public' AND table_name = $1
ORDER BY ordinal_position`

const tableConstraintsSQL = `SELECT tc.constraint_name, tc.constraint_type, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
WHERE tc.table_schema = 'public' AND tc.table_name = $1
ORDER BY tc.constraint_name, kcu.ordinal_position`

// DescribeTable returns the columns, constraints, and row count for a table.
// A table that does not exist yields a typed syntax_or_schema error.
func (c *Conn) DescribeTable(ctx context.Context, table string) (*TableInfo, error) {
	if err := CheckIdent(table); err != nil {
		return nil, err
	}

	columns, err := c.tableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, &Error{
			Kind:    KindSyntaxOrSchema,
			Message: fmt.Sprintf("table %q does not exist", table),
			Hint:    "use describe_database to list the tables that exist",
		}
	}

	constraints, err := c.tableConstraints(ctx, table)
	if err != nil {
		return nil, err
	}

	count, err := c.tableRowCount(ctx, table)
	if err != nil {
		return nil, err
	}

	return &TableInfo{
		Name:        table,
		Columns:     columns,
		Constraints: constraints,
		RowCount:    count,
	}, nil
}

func (c *Conn) tableColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	ex, release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	stmtCtx, cancel := c.stmtCtx(ctx)
	defer cancel()

	rows, err := ex.QueryContext(stmtCtx, tableColumnsSQL, table)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close() //nolint:errcheck

	var columns []ColumnInfo
	for rows.Next() {
		var (
			col      ColumnInfo
			nullable string
			def      sql.NullString
			maxLen   sql.NullInt64
		)
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &def, &maxLen); err != nil {
			return nil, classify(err)
		}
		col.Nullable = nullable == "YES"
		col.Default = def.String
		col.MaxLength = maxLen.Int64
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return columns, nil
}

func (c *Conn) tableConstraints(ctx context.Context, table string) ([]ConstraintInfo, error) {
	ex, release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	stmtCtx, cancel := c.stmtCtx(ctx)
	defer cancel()

	rows, err := ex.QueryContext(stmtCtx, tableConstraintsSQL, table)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close() //nolint:errcheck

	var constraints []ConstraintInfo
	for rows.Next() {
		var con ConstraintInfo
		if err := rows.Scan(&con.Name, &con.Type, &con.Column); err != nil {
			return nil, classify(err)
		}
		constraints = append(constraints, con)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return constraints, nil
}

func (c *Conn) tableRowCount(ctx context.Context, table string) (int64, error) {
	ex, release, err := c.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	stmtCtx, cancel := c.stmtCtx(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", QuoteIdent(table))
	var count int64
	row := ex.QueryRowContext(stmtCtx, query)
	if err := row.Scan(&count); err != nil {
		return 0, classify(err)
	}
	return count, nil
}
