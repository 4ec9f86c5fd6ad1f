// internal/domain/transaction.go
package domain

import (
	"strings"
	"time"
)

// TransactionKind is the closed set of ledger movement kinds.
type TransactionKind string

const (
	// KindPurchase is an inbound receipt; UnitPrice is required.
	KindPurchase TransactionKind = "purchase"
	// KindUsage is production consumption.
	KindUsage TransactionKind = "usage"
	// KindAdjustment is a signed delta correction (audit finding, spillage
	// recovery). Positive deltas enter at the current average cost.
	KindAdjustment TransactionKind = "adjustment"
	// KindWaste is disposed stock.
	KindWaste TransactionKind = "waste"
	// KindExpired is stock written off past its shelf life.
	KindExpired TransactionKind = "expired"
	// KindRecount overrides the running quantity with an absolute count.
	KindRecount TransactionKind = "recount"
)

var transactionKinds = map[string]TransactionKind{
	"purchase":   KindPurchase,
	"usage":      KindUsage,
	"adjustment": KindAdjustment,
	"waste":      KindWaste,
	"expired":    KindExpired,
	"recount":    KindRecount,
}

// ParseTransactionKind returns the kind for a label (case-insensitive).
func ParseTransactionKind(label string) (TransactionKind, bool) {
	kind, ok := transactionKinds[strings.ToLower(strings.TrimSpace(label))]
	return kind, ok
}

// Valid reports whether k is a member of the closed kind set.
func (k TransactionKind) Valid() bool {
	_, ok := transactionKinds[string(k)]
	return ok
}

// StockTransaction is one append-only ledger entry. Entries are never edited or
// deleted, which is what makes FIFO and moving-average replay a valid audit
// trail.
//
// Quantity is an unsigned magnitude for every kind except Adjustment (signed
// delta) and Recount (absolute count). UnitPrice is set on purchases and nil
// otherwise.
type StockTransaction struct {
	ID           string          `json:"id" db:"id"`
	IngredientID string          `json:"ingredient_id" db:"ingredient_id"`
	Kind         TransactionKind `json:"kind" db:"kind"`
	Quantity     float64         `json:"quantity" db:"quantity"`
	UnitPrice    *float64        `json:"unit_price" db:"unit_price"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	Reference    string          `json:"reference" db:"reference"`
	Notes        string          `json:"notes" db:"notes"`
}

// Validate checks the record-level invariants the engine cannot absorb: an
// unknown kind or a negative quantity where an unsigned magnitude is expected.
// Data-quality issues (missing or non-positive purchase price) deliberately
// pass; they surface later as advisories.
func (t StockTransaction) Validate() error {
	if !t.Kind.Valid() {
		return &InvariantError{
			TransactionID: t.ID,
			IngredientID:  t.IngredientID,
			Reason:        ReasonUnknownKind,
		}
	}

	switch t.Kind {
	case KindAdjustment:
		// signed delta, any value allowed
	case KindRecount:
		if t.Quantity < 0 {
			return &InvariantError{
				TransactionID: t.ID,
				IngredientID:  t.IngredientID,
				Reason:        ReasonNegativeQuantity,
			}
		}
	default:
		if t.Quantity < 0 {
			return &InvariantError{
				TransactionID: t.ID,
				IngredientID:  t.IngredientID,
				Reason:        ReasonNegativeQuantity,
			}
		}
	}

	return nil
}

// NextStock returns the ingredient stock after applying this transaction,
// floored at zero. This is the single place the currentStock mutation rule
// lives; the persistence layer calls it inside a per-ingredient lock.
func (t StockTransaction) NextStock(current float64) (float64, error) {
	if err := t.Validate(); err != nil {
		return current, err
	}

	var next float64
	switch t.Kind {
	case KindPurchase:
		next = current + t.Quantity
	case KindUsage, KindWaste, KindExpired:
		next = current - t.Quantity
	case KindAdjustment:
		next = current + t.Quantity
	case KindRecount:
		next = t.Quantity
	}

	if next < 0 {
		next = 0
	}
	return next, nil
}

// EnsureOrdered verifies that txs are presented in non-decreasing CreatedAt
// order. FIFO and moving-average replay depend on it; the engine validates
// rather than sorting on the caller's behalf.
func EnsureOrdered(txs []StockTransaction) error {
	for i := 1; i < len(txs); i++ {
		if txs[i].CreatedAt.Before(txs[i-1].CreatedAt) {
			return &InvariantError{
				TransactionID: txs[i].ID,
				IngredientID:  txs[i].IngredientID,
				Reason:        ReasonUnorderedLedger,
			}
		}
	}
	return nil
}

// ValidateLedger checks the full input contract for one ingredient's ledger
// slice: every record belongs to the ingredient, passes record-level
// validation, and the slice is time-ordered.
func ValidateLedger(ing Ingredient, txs []StockTransaction) error {
	for _, t := range txs {
		if t.IngredientID != ing.ID {
			return &InvariantError{
				TransactionID: t.ID,
				IngredientID:  t.IngredientID,
				Reason:        ReasonUnknownIngredient,
			}
		}
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return EnsureOrdered(txs)
}
