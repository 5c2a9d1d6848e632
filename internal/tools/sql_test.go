package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInsert(t *testing.T) {
	stmt, err := buildInsert(CreateRecordParams{
		Table:  "customers",
		Values: map[string]any{"name": "John Doe", "email": "john@example.com"},
	})
	require.NoError(t, err)

	// Columns are emitted in sorted order so the statement is deterministic.
	assert.Equal(t, `INSERT INTO "customers" ("email", "name") VALUES ($1, $2) RETURNING *`, stmt.query)
	assert.Equal(t, []any{"john@example.com", "John Doe"}, stmt.args)
}

func TestBuildInsertEncodesJSONValues(t *testing.T) {
	stmt, err := buildInsert(CreateRecordParams{
		Table:  "events",
		Values: map[string]any{"payload": map[string]any{"kind": "signup"}},
	})
	require.NoError(t, err)

	assert.Equal(t, `INSERT INTO "events" ("payload") VALUES ($1) RETURNING *`, stmt.query)
	require.Len(t, stmt.args, 1)
	assert.JSONEq(t, `{"kind":"signup"}`, stmt.args[0].(string))
}

func TestBuildSelectDefaults(t *testing.T) {
	stmt, err := buildSelect(ReadRecordsParams{Table: "products"}, 200)
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "products" LIMIT 200`, stmt.query)
	assert.Empty(t, stmt.args)
}

func TestBuildSelectFilters(t *testing.T) {
	stmt, err := buildSelect(ReadRecordsParams{
		Table:   "orders",
		Columns: []string{"id", "total"},
		Filters: map[string]any{
			"status":     []any{"pending", "paid"},
			"deleted_at": nil,
			"customer":   "john",
		},
		OrderBy: []OrderBy{{Column: "total", Desc: true}},
		Limit:   5,
	}, 200)
	require.NoError(t, err)

	want := `SELECT "id", "total" FROM "orders"` +
		` WHERE "customer" = $1 AND "deleted_at" IS NULL AND "status" IN ($2, $3)` +
		` ORDER BY "total" DESC LIMIT 5`
	assert.Equal(t, want, stmt.query)
	assert.Equal(t, []any{"john", "pending", "paid"}, stmt.args)
}

func TestBuildSelectEmptyInList(t *testing.T) {
	_, err := buildSelect(ReadRecordsParams{
		Table:   "orders",
		Filters: map[string]any{"status": []any{}},
	}, 200)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty value list")
}

func TestBuildSelectJoinAndAggregation(t *testing.T) {
	stmt, err := buildSelect(ReadRecordsParams{
		Table: "orders",
		Joins: []Join{{
			Table: "customers",
			Type:  "left",
			On:    JoinOn{Left: "orders.customer_id", Right: "customers.id"},
		}},
		Aggregations: []Aggregation{
			{Fn: "count", Alias: "order_count"},
			{Fn: "sum", Column: "orders.total", Alias: "revenue"},
		},
		GroupBy: []string{"customers.name"},
	}, 200)
	require.NoError(t, err)

	want := `SELECT "customers"."name", COUNT(*) AS "order_count", SUM("orders"."total") AS "revenue"` +
		` FROM "orders" LEFT JOIN "customers" ON "orders"."customer_id" = "customers"."id"` +
		` GROUP BY "customers"."name" LIMIT 200`
	assert.Equal(t, want, stmt.query)
}

func TestBuildSelectCapsLimit(t *testing.T) {
	stmt, err := buildSelect(ReadRecordsParams{Table: "logs", Limit: 5000}, 200)
	require.NoError(t, err)
	assert.Contains(t, stmt.query, "LIMIT 200")
}

func TestBuildUpdate(t *testing.T) {
	stmt, err := buildUpdate(UpdateRecordParams{
		Table:   "customers",
		Values:  map[string]any{"email": "new@example.com", "name": "Johnny"},
		Filters: map[string]any{"id": float64(7)},
	})
	require.NoError(t, err)

	assert.Equal(t, `UPDATE "customers" SET "email" = $1, "name" = $2 WHERE "id" = $3`, stmt.query)
	assert.Equal(t, []any{"new@example.com", "Johnny", float64(7)}, stmt.args)
}

func TestBuildDelete(t *testing.T) {
	stmt, err := buildDelete(DeleteRecordParams{
		Table:   "sessions",
		Filters: map[string]any{"expired": true},
	})
	require.NoError(t, err)

	assert.Equal(t, `DELETE FROM "sessions" WHERE "expired" = $1`, stmt.query)
	assert.Equal(t, []any{true}, stmt.args)
}

func TestBuildCreateTable(t *testing.T) {
	stmt := buildCreateTable(CreateTableParams{
		TableName: "reviews",
		Columns: []ColumnDef{
			{Name: "id", Type: "serial", Constraints: []string{"primary_key"}},
			{Name: "title", Type: "string", Constraints: []string{"not_null"}},
			{Name: "body", Type: "text"},
			{Name: "rating", Type: "integer"},
			{Name: "meta", Type: "json"},
		},
	})

	want := `CREATE TABLE "reviews" ("id" SERIAL PRIMARY KEY, "title" VARCHAR(255) NOT NULL, ` +
		`"body" TEXT, "rating" INTEGER, "meta" JSONB)`
	assert.Equal(t, want, stmt.query)
}

func TestBuildAlterTable(t *testing.T) {
	tests := []struct {
		name string
		p    AlterTableParams
		want string
	}{
		{
			name: "add column",
			p:    AlterTableParams{Table: "users", Action: "add_column", Column: "age", Type: "integer"},
			want: `ALTER TABLE "users" ADD COLUMN "age" INTEGER`,
		},
		{
			name: "drop column",
			p:    AlterTableParams{Table: "users", Action: "drop_column", Column: "age"},
			want: `ALTER TABLE "users" DROP COLUMN "age"`,
		},
		{
			name: "modify column",
			p:    AlterTableParams{Table: "users", Action: "modify_column", Column: "age", Type: "bigint"},
			want: `ALTER TABLE "users" ALTER COLUMN "age" TYPE BIGINT`,
		},
		{
			name: "add unique constraint",
			p:    AlterTableParams{Table: "users", Action: "add_constraint", Column: "email", Constraint: "unique"},
			want: `ALTER TABLE "users" ADD UNIQUE ("email")`,
		},
		{
			name: "add not null constraint",
			p:    AlterTableParams{Table: "users", Action: "add_constraint", Column: "email", Constraint: "not_null"},
			want: `ALTER TABLE "users" ALTER COLUMN "email" SET NOT NULL`,
		},
		{
			name: "drop constraint",
			p:    AlterTableParams{Table: "users", Action: "drop_constraint", ConstraintName: "users_email_key"},
			want: `ALTER TABLE "users" DROP CONSTRAINT "users_email_key"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildAlterTable(tt.p).query)
		})
	}
}

func TestBuildCreateIndex(t *testing.T) {
	stmt, name := buildCreateIndex(CreateIndexParams{
		Table:   "orders",
		Columns: []string{"customer_id", "status"},
	})

	assert.Equal(t, "idx_orders_customer_id_status", name)
	assert.Equal(t, `CREATE INDEX "idx_orders_customer_id_status" ON "orders" ("customer_id", "status")`, stmt.query)
}

func TestBuildCreateIndexUniqueNamed(t *testing.T) {
	stmt, name := buildCreateIndex(CreateIndexParams{
		Table:     "users",
		Columns:   []string{"email"},
		IndexName: "users_email_uniq",
		Unique:    true,
	})

	assert.Equal(t, "users_email_uniq", name)
	assert.Equal(t, `CREATE UNIQUE INDEX "users_email_uniq" ON "users" ("email")`, stmt.query)
}

func TestBuildDropIndex(t *testing.T) {
	stmt := buildDropIndex(DropIndexParams{IndexName: "idx_orders_status"})
	assert.Equal(t, `DROP INDEX "idx_orders_status"`, stmt.query)
}
