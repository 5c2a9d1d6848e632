// Package seed creates the demo datasets the wizard can be tried against:
// an e-commerce shop, a blog, and a library. Applying a dataset twice is
// safe; existing rows are left alone.
package seed

import (
	"context"
	"fmt"

	"github.com/dbwizard/dbwizard/internal/database"
)

// Dataset is a group of related demo tables.
type Dataset struct {
	Name   string
	Tables []Table
}

// Table is one demo table: its schema, its rows, and how to insert them.
// Keyed tables carry an ON CONFLICT DO NOTHING target and can be
// re-inserted safely; unkeyed tables are only seeded while empty.
type Table struct {
	Name   string
	Schema string
	Insert string
	Keyed  bool
	Rows   [][]any
}

// TableCount reports how many rows a table holds after seeding.
type TableCount struct {
	Dataset string `json:"dataset"`
	Table   string `json:"table"`
	Rows    int64  `json:"rows"`
}

// All returns every demo dataset.
func All() []Dataset {
	return []Dataset{ecommerce, blog, library}
}

// ByName resolves dataset names, preserving order.
func ByName(names ...string) ([]Dataset, error) {
	byName := make(map[string]Dataset)
	for _, ds := range All() {
		byName[ds.Name] = ds
	}

	datasets := make([]Dataset, 0, len(names))
	for _, name := range names {
		ds, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown dataset %q (have: ecommerce, blog, library)", name)
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// Apply creates the dataset tables and fills them with demo rows,
// reporting the resulting per-table row counts.
func Apply(ctx context.Context, conn *database.Conn, datasets ...Dataset) ([]TableCount, error) {
	var counts []TableCount

	for _, ds := range datasets {
		for _, t := range ds.Tables {
			if _, err := conn.Exec(ctx, t.Schema); err != nil {
				return nil, fmt.Errorf("creating table %s: %w", t.Name, err)
			}

			if err := seedRows(ctx, conn, t); err != nil {
				return nil, err
			}

			n, err := tableCount(ctx, conn, t.Name)
			if err != nil {
				return nil, err
			}
			counts = append(counts, TableCount{Dataset: ds.Name, Table: t.Name, Rows: n})
		}
	}
	return counts, nil
}

func seedRows(ctx context.Context, conn *database.Conn, t Table) error {
	if len(t.Rows) == 0 {
		return nil
	}

	if !t.Keyed {
		// No conflict target to lean on, so only an empty table is seeded.
		n, err := tableCount(ctx, conn, t.Name)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}

	for _, row := range t.Rows {
		if _, err := conn.Exec(ctx, t.Insert, row...); err != nil {
			return fmt.Errorf("seeding table %s: %w", t.Name, err)
		}
	}
	return nil
}

// Reset drops the dataset tables, dependents first.
func Reset(ctx context.Context, conn *database.Conn, datasets ...Dataset) error {
	for _, ds := range datasets {
		for i := len(ds.Tables) - 1; i >= 0; i-- {
			t := ds.Tables[i]
			stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", database.QuoteIdent(t.Name))
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("dropping table %s: %w", t.Name, err)
			}
		}
	}
	return nil
}

func tableCount(ctx context.Context, conn *database.Conn, table string) (int64, error) {
	rs, err := conn.Query(ctx, fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", database.QuoteIdent(table)))
	if err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", table, err)
	}
	if len(rs.Rows) == 0 {
		return 0, nil
	}
	switch v := rs.Rows[0]["n"].(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		var n int64
		fmt.Sscanf(v, "%d", &n) //nolint:errcheck
		return n, nil
	default:
		return 0, nil
	}
}
