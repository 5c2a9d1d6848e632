package models

import "fmt"

// TransactionState tracks explicit transaction management for one session.
type TransactionState string

const (
	TxNone          TransactionState = "none"
	TxInTransaction TransactionState = "in_transaction"
	TxCommitted     TransactionState = "committed"
	TxRolledBack    TransactionState = "rolled_back"
)

// TxAction is a manage_transaction action.
type TxAction string

const (
	TxBegin    TxAction = "begin"
	TxCommit   TxAction = "commit"
	TxRollback TxAction = "rollback"
)

// Apply returns the state after performing action, or an error when the
// transition is illegal. Repeating an action in the state it already
// produced is an error, not a silent no-op: the planner must see it.
func (s TransactionState) Apply(action TxAction) (TransactionState, error) {
	switch action {
	case TxBegin:
		if s == TxInTransaction {
			return s, fmt.Errorf("transaction already in progress; commit or rollback first")
		}
		return TxInTransaction, nil
	case TxCommit:
		if s != TxInTransaction {
			return s, fmt.Errorf("no transaction in progress to commit (state %s)", s)
		}
		return TxCommitted, nil
	case TxRollback:
		if s != TxInTransaction {
			return s, fmt.Errorf("no transaction in progress to roll back (state %s)", s)
		}
		return TxRolledBack, nil
	default:
		return s, fmt.Errorf("unknown transaction action %q", action)
	}
}

// Open reports whether a transaction is currently in progress.
func (s TransactionState) Open() bool {
	return s == TxInTransaction
}
