package costing

import (
	"time"

	"github.com/pawonlab/stockwise/internal/domain"
)

// PurchaseRecord is one purchase contributing to the weighted average.
type PurchaseRecord struct {
	Date       time.Time `json:"date"`
	Quantity   float64   `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	TotalValue float64   `json:"total_value"`
	Reference  string    `json:"reference"`
}

// WeightedAverageResult holds the cost basis over the full purchase history.
type WeightedAverageResult struct {
	Price           float64          `json:"weighted_average_price"`
	TotalQuantity   float64          `json:"total_quantity"`
	TotalValue      float64          `json:"total_value"`
	PurchaseHistory []PurchaseRecord `json:"purchase_history"`
}

// FIFOResult values on-hand stock against the oldest surviving cost layers.
//
// When currentStock exceeds the quantity recorded in tracked purchases (stock
// that predates the ledger), the uncovered remainder is excluded from the
// valuation rather than guessed at; Uncovered reports how much.
type FIFOResult struct {
	StockValue         float64             `json:"stock_value"`
	AverageCostPerUnit float64             `json:"average_cost_per_unit"`
	Layers             []domain.StockLayer `json:"layers"`
	Uncovered          float64             `json:"uncovered_quantity"`
}

// MovingAverageResult is the running cost basis after replaying the ledger.
type MovingAverageResult struct {
	AveragePrice float64                      `json:"average_price"`
	StockValue   float64                      `json:"stock_value"`
	History      []domain.MovingAverageRecord `json:"history"`
}

// Method tags a costing model for the price write-back contract.
type Method string

const (
	MethodWeighted Method = "weighted"
	MethodFIFO     Method = "fifo"
	MethodMoving   Method = "moving"
	MethodLatest   Method = "latest"
)

// ParseMethod returns the method for a tag.
func ParseMethod(tag string) (Method, bool) {
	switch Method(tag) {
	case MethodWeighted, MethodFIFO, MethodMoving, MethodLatest:
		return Method(tag), true
	}
	return "", false
}
