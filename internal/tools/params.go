package tools

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/dbwizard/dbwizard/internal/models"
)

// Operation names, in catalog order.
const (
	OpDescribeDatabase  = "describe_database"
	OpDescribeTable     = "describe_table"
	OpReadRecords       = "read_records"
	OpCreateRecord      = "create_record"
	OpUpdateRecord      = "update_record"
	OpDeleteRecord      = "delete_record"
	OpCreateTable       = "create_table"
	OpAlterTable        = "alter_table"
	OpCreateIndex       = "create_index"
	OpDropIndex         = "drop_index"
	OpManageTransaction = "manage_transaction"
)

// Operation is a validated, typed tool call ready to execute.
type Operation interface {
	Name() string
}

// DescribeDatabaseParams has no arguments.
type DescribeDatabaseParams struct{}

func (DescribeDatabaseParams) Name() string { return OpDescribeDatabase }

// DescribeTableParams identifies the table to describe.
type DescribeTableParams struct {
	Table string `mapstructure:"table"`
}

func (DescribeTableParams) Name() string { return OpDescribeTable }

// JoinOn names the two columns a join matches on.
type JoinOn struct {
	Left  string `mapstructure:"left"`
	Right string `mapstructure:"right"`
}

// Join describes one joined table in a read.
type Join struct {
	Table string `mapstructure:"table"`
	Type  string `mapstructure:"type"`
	On    JoinOn `mapstructure:"on"`
}

// Aggregation is one aggregate expression in a read.
type Aggregation struct {
	Fn     string `mapstructure:"fn"`
	Column string `mapstructure:"column"`
	Alias  string `mapstructure:"alias"`
}

// OrderBy is one sort key in a read.
type OrderBy struct {
	Column string `mapstructure:"column"`
	Desc   bool   `mapstructure:"desc"`
}

// ReadRecordsParams selects rows from a table.
type ReadRecordsParams struct {
	Table        string         `mapstructure:"table"`
	Columns      []string       `mapstructure:"columns"`
	Filters      map[string]any `mapstructure:"filters"`
	Joins        []Join         `mapstructure:"joins"`
	Aggregations []Aggregation  `mapstructure:"aggregations"`
	GroupBy      []string       `mapstructure:"group_by"`
	OrderBy      []OrderBy      `mapstructure:"order_by"`
	Limit        int            `mapstructure:"limit"`
}

func (ReadRecordsParams) Name() string { return OpReadRecords }

// CreateRecordParams inserts one row.
type CreateRecordParams struct {
	Table  string         `mapstructure:"table"`
	Values map[string]any `mapstructure:"values"`
}

func (CreateRecordParams) Name() string { return OpCreateRecord }

// UpdateRecordParams updates the rows matching Filters.
type UpdateRecordParams struct {
	Table   string         `mapstructure:"table"`
	Values  map[string]any `mapstructure:"values"`
	Filters map[string]any `mapstructure:"filters"`
}

func (UpdateRecordParams) Name() string { return OpUpdateRecord }

// DeleteRecordParams deletes the rows matching Filters.
type DeleteRecordParams struct {
	Table   string         `mapstructure:"table"`
	Filters map[string]any `mapstructure:"filters"`
}

func (DeleteRecordParams) Name() string { return OpDeleteRecord }

// ColumnDef is one column of a new table.
type ColumnDef struct {
	Name        string   `mapstructure:"name"`
	Type        string   `mapstructure:"type"`
	Constraints []string `mapstructure:"constraints"`
}

// CreateTableParams creates a table.
type CreateTableParams struct {
	TableName string      `mapstructure:"table_name"`
	Columns   []ColumnDef `mapstructure:"columns"`
}

func (CreateTableParams) Name() string { return OpCreateTable }

// AlterTableParams modifies a table. Which fields apply depends on Action;
// the schema enforces the per-action requirements.
type AlterTableParams struct {
	Table          string `mapstructure:"table"`
	Action         string `mapstructure:"action"`
	Column         string `mapstructure:"column"`
	Type           string `mapstructure:"type"`
	Constraint     string `mapstructure:"constraint"`
	ConstraintName string `mapstructure:"name"`
}

func (AlterTableParams) Name() string { return OpAlterTable }

// CreateIndexParams creates an index. IndexName defaults to
// idx_<table>_<columns> when empty.
type CreateIndexParams struct {
	Table     string   `mapstructure:"table"`
	Columns   []string `mapstructure:"columns"`
	IndexName string   `mapstructure:"name"`
	Unique    bool     `mapstructure:"unique"`
}

func (CreateIndexParams) Name() string { return OpCreateIndex }

// DropIndexParams drops an index by name.
type DropIndexParams struct {
	IndexName string `mapstructure:"name"`
}

func (DropIndexParams) Name() string { return OpDropIndex }

// ManageTransactionParams drives the session transaction state.
type ManageTransactionParams struct {
	Action models.TxAction `mapstructure:"action"`
}

func (ManageTransactionParams) Name() string { return OpManageTransaction }

// decodeParams decodes a schema-valid argument map into the operation's
// typed params.
func decodeParams(name string, args map[string]any) (Operation, error) {
	switch name {
	case OpDescribeDatabase:
		return DescribeDatabaseParams{}, nil
	case OpDescribeTable:
		var p DescribeTableParams
		if err := mapstructure.Decode(args, &p); err != nil {
			return nil, err
		}
		return p, nil
	case OpReadRecords:
		var p ReadRecordsParams
		if err := mapstructure.Decode(args, &p); err != nil {
			return nil, err
		}
		return p, nil
	case OpCreateRecord:
		var p CreateRecordParams
		if err := mapstructure.Decode(args, &p); err != nil {
			return nil, err
		}
		return p, nil
	case OpUpdateRecord:
		var p UpdateRecordParams
		if err := mapstructure.Decode(args, &p); err != nil {
			return nil, err
		}
		return p, nil
	case OpDeleteRecord:
		var p DeleteRecordParams
		if err := mapstructure.Decode(args, &p); err != nil {
			return nil, err
		}
		return p, nil
	case OpCreateTable:
		var p CreateTableParams
		if err := mapstructure.Decode(args, &p); err != nil {
			return nil, err
		}
		return p, nil
	case OpAlterTable:
		var p AlterTableParams
		if err := mapstructure.Decode(args, &p); err != nil {
			return nil, err
		}
		return p, nil
	case OpCreateIndex:
		var p CreateIndexParams
		if err := mapstructure.Decode(args, &p); err != nil {
			return nil, err
		}
		return p, nil
	case OpDropIndex:
		var p DropIndexParams
		if err := mapstructure.Decode(args, &p); err != nil {
			return nil, err
		}
		return p, nil
	case OpManageTransaction:
		var p ManageTransactionParams
		if err := mapstructure.Decode(args, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("no parameter type for operation %q", name)
	}
}
