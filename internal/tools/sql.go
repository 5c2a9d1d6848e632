package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dbwizard/dbwizard/internal/database"
)

// statement is a parameterized SQL statement ready for the adapter. Values
// always travel as bind arguments; identifiers are validated by the schema
// and quoted here.
type statement struct {
	query string
	args  []any
}

// pgTypes maps the catalog's abstract column types to PostgreSQL types.
var pgTypes = map[string]string{
	"string":    "VARCHAR(255)",
	"text":      "TEXT",
	"integer":   "INTEGER",
	"int":       "INTEGER",
	"bigint":    "BIGINT",
	"float":     "REAL",
	"decimal":   "DECIMAL",
	"boolean":   "BOOLEAN",
	"bool":      "BOOLEAN",
	"date":      "DATE",
	"datetime":  "TIMESTAMP",
	"timestamp": "TIMESTAMP",
	"json":      "JSONB",
	"uuid":      "UUID",
	"serial":    "SERIAL",
}

var columnConstraints = map[string]string{
	"primary_key": "PRIMARY KEY",
	"not_null":    "NOT NULL",
	"unique":      "UNIQUE",
}

// quoteColumn quotes a column reference, keeping a table qualifier intact.
func quoteColumn(col string) string {
	if table, column, ok := strings.Cut(col, "."); ok {
		return database.QuoteIdent(table) + "." + database.QuoteIdent(column)
	}
	return database.QuoteIdent(col)
}

// sortedKeys gives map-driven clauses a deterministic column order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// bindValue converts a decoded argument value into a driver-bindable one.
// Maps and slices are sent as JSON text so they can land in JSONB columns.
func bindValue(v any) (any, error) {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding value: %w", err)
		}
		return string(b), nil
	default:
		return v, nil
	}
}

// whereClause renders filters as ANDed conditions. Nil matches IS NULL and
// slices become IN lists; everything else is an equality bind.
func whereClause(filters map[string]any, argIdx int) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	var (
		conds []string
		args  []any
	)
	for _, key := range sortedKeys(filters) {
		col := quoteColumn(key)
		switch v := filters[key].(type) {
		case nil:
			conds = append(conds, col+" IS NULL")
		case []any:
			if len(v) == 0 {
				return "", nil, fmt.Errorf("filter %q has an empty value list", key)
			}
			holders := make([]string, len(v))
			for i, item := range v {
				holders[i] = fmt.Sprintf("$%d", argIdx)
				argIdx++
				args = append(args, item)
			}
			conds = append(conds, fmt.Sprintf("%s IN (%s)", col, strings.Join(holders, ", ")))
		default:
			conds = append(conds, fmt.Sprintf("%s = $%d", col, argIdx))
			argIdx++
			args = append(args, v)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func buildInsert(p CreateRecordParams) (statement, error) {
	keys := sortedKeys(p.Values)

	cols := make([]string, len(keys))
	holders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		cols[i] = database.QuoteIdent(key)
		holders[i] = fmt.Sprintf("$%d", i+1)
		v, err := bindValue(p.Values[key])
		if err != nil {
			return statement{}, err
		}
		args[i] = v
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		database.QuoteIdent(p.Table), strings.Join(cols, ", "), strings.Join(holders, ", "))
	return statement{query: query, args: args}, nil
}

func buildSelect(p ReadRecordsParams, maxRows int) (statement, error) {
	var selectList []string
	switch {
	case len(p.Aggregations) > 0:
		for _, g := range p.GroupBy {
			selectList = append(selectList, quoteColumn(g))
		}
		for _, a := range p.Aggregations {
			target := "*"
			if a.Column != "" {
				target = quoteColumn(a.Column)
			}
			expr := fmt.Sprintf("%s(%s)", strings.ToUpper(a.Fn), target)
			if a.Alias != "" {
				expr += " AS " + database.QuoteIdent(a.Alias)
			}
			selectList = append(selectList, expr)
		}
	case len(p.Columns) > 0:
		for _, c := range p.Columns {
			selectList = append(selectList, quoteColumn(c))
		}
	default:
		selectList = []string{"*"}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(selectList, ", "), database.QuoteIdent(p.Table))

	for _, j := range p.Joins {
		kind := "INNER"
		if j.Type == "left" {
			kind = "LEFT"
		}
		fmt.Fprintf(&b, " %s JOIN %s ON %s = %s",
			kind, database.QuoteIdent(j.Table), quoteColumn(j.On.Left), quoteColumn(j.On.Right))
	}

	where, args, err := whereClause(p.Filters, 1)
	if err != nil {
		return statement{}, err
	}
	b.WriteString(where)

	if len(p.GroupBy) > 0 {
		quoted := make([]string, len(p.GroupBy))
		for i, g := range p.GroupBy {
			quoted[i] = quoteColumn(g)
		}
		fmt.Fprintf(&b, " GROUP BY %s", strings.Join(quoted, ", "))
	}

	if len(p.OrderBy) > 0 {
		parts := make([]string, len(p.OrderBy))
		for i, o := range p.OrderBy {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts[i] = quoteColumn(o.Column) + " " + dir
		}
		fmt.Fprintf(&b, " ORDER BY %s", strings.Join(parts, ", "))
	}

	limit := p.Limit
	if limit == 0 || limit > maxRows {
		limit = maxRows
	}
	fmt.Fprintf(&b, " LIMIT %d", limit)

	return statement{query: b.String(), args: args}, nil
}

func buildUpdate(p UpdateRecordParams) (statement, error) {
	keys := sortedKeys(p.Values)

	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(p.Filters))
	for i, key := range keys {
		sets[i] = fmt.Sprintf("%s = $%d", database.QuoteIdent(key), i+1)
		v, err := bindValue(p.Values[key])
		if err != nil {
			return statement{}, err
		}
		args = append(args, v)
	}

	where, whereArgs, err := whereClause(p.Filters, len(keys)+1)
	if err != nil {
		return statement{}, err
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s",
		database.QuoteIdent(p.Table), strings.Join(sets, ", "), where)
	return statement{query: query, args: args}, nil
}

func buildDelete(p DeleteRecordParams) (statement, error) {
	where, args, err := whereClause(p.Filters, 1)
	if err != nil {
		return statement{}, err
	}
	query := fmt.Sprintf("DELETE FROM %s%s", database.QuoteIdent(p.Table), where)
	return statement{query: query, args: args}, nil
}

func buildCreateTable(p CreateTableParams) statement {
	defs := make([]string, len(p.Columns))
	for i, col := range p.Columns {
		def := database.QuoteIdent(col.Name) + " " + pgTypes[col.Type]
		for _, con := range col.Constraints {
			def += " " + columnConstraints[con]
		}
		defs[i] = def
	}

	query := fmt.Sprintf("CREATE TABLE %s (%s)",
		database.QuoteIdent(p.TableName), strings.Join(defs, ", "))
	return statement{query: query}
}

func buildAlterTable(p AlterTableParams) statement {
	table := database.QuoteIdent(p.Table)

	var query string
	switch p.Action {
	case "add_column":
		query = fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			table, database.QuoteIdent(p.Column), pgTypes[p.Type])
	case "drop_column":
		query = fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
			table, database.QuoteIdent(p.Column))
	case "modify_column":
		query = fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s",
			table, database.QuoteIdent(p.Column), pgTypes[p.Type])
	case "add_constraint":
		if p.Constraint == "not_null" {
			query = fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL",
				table, database.QuoteIdent(p.Column))
		} else {
			query = fmt.Sprintf("ALTER TABLE %s ADD UNIQUE (%s)",
				table, database.QuoteIdent(p.Column))
		}
	case "drop_constraint":
		query = fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
			table, database.QuoteIdent(p.ConstraintName))
	}
	return statement{query: query}
}

// buildCreateIndex returns the statement and the index name actually used,
// since the default name is derived from the table and columns.
func buildCreateIndex(p CreateIndexParams) (statement, string) {
	name := p.IndexName
	if name == "" {
		name = "idx_" + p.Table + "_" + strings.Join(p.Columns, "_")
		if len(name) > 63 {
			name = name[:63]
		}
	}

	unique := ""
	if p.Unique {
		unique = "UNIQUE "
	}

	quoted := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		quoted[i] = database.QuoteIdent(c)
	}

	query := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, database.QuoteIdent(name), database.QuoteIdent(p.Table), strings.Join(quoted, ", "))
	return statement{query: query}, name
}

func buildDropIndex(p DropIndexParams) statement {
	return statement{query: fmt.Sprintf("DROP INDEX %s", database.QuoteIdent(p.IndexName))}
}
