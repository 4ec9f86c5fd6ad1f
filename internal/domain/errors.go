// internal/domain/errors.go
package domain

import "fmt"

// InvariantReason identifies which ledger integrity rule a record broke.
type InvariantReason string

const (
	ReasonUnknownIngredient InvariantReason = "unknown_ingredient"
	ReasonUnknownKind       InvariantReason = "unknown_kind"
	ReasonNegativeQuantity  InvariantReason = "negative_quantity"
	ReasonUnorderedLedger   InvariantReason = "unordered_ledger"
)

// InvariantError is a fatal caller bug: the engine cannot safely guess a
// correction to an upstream integrity violation, so the offending record is
// identified and the error propagates.
type InvariantError struct {
	TransactionID string
	IngredientID  string
	Reason        InvariantReason
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("ledger invariant violated (%s): transaction=%q ingredient=%q",
		e.Reason, e.TransactionID, e.IngredientID)
}
