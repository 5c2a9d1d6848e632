package database

import (
	"database/sql"
	"time"
)

// RowSet is a scanned query result: ordered column names plus rows as
// column-name-to-value maps. Truncated is set when the row cap was hit.
type RowSet struct {
	Columns   []string
	Rows      []map[string]any
	Truncated bool
}

// scanRows drains rows into a RowSet, stopping after maxRows. Byte slices
// are normalized to strings so results serialize cleanly as JSON.
func scanRows(rows *sql.Rows, maxRows int) (*RowSet, error) {
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &RowSet{Columns: cols}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if maxRows > 0 && len(rs.Rows) >= maxRows {
			rs.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC()
	default:
		return val
	}
}
