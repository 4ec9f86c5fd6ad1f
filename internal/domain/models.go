// internal/domain/models.go
package domain

import "time"

// Ingredient is a snapshot of one raw-material row. CurrentStock is mutated only
// as a side effect of appending a StockTransaction, never directly.
type Ingredient struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Unit         string    `json:"unit" db:"unit"`
	CurrentStock float64   `json:"current_stock" db:"current_stock"`
	MinStock     float64   `json:"min_stock" db:"min_stock"`
	PricePerUnit float64   `json:"price_per_unit" db:"price_per_unit"`
	Supplier     string    `json:"supplier" db:"supplier"`
	Category     string    `json:"category" db:"category"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// StockLayer is one FIFO cost layer still covering on-hand stock.
type StockLayer struct {
	Quantity     float64   `json:"quantity"`
	UnitPrice    float64   `json:"unit_price"`
	TotalValue   float64   `json:"total_value"`
	PurchaseDate time.Time `json:"purchase_date"`
	Reference    string    `json:"reference"`
}

// MovingAverageRecord is the running state snapshot after one replayed transaction.
type MovingAverageRecord struct {
	Date            time.Time       `json:"date"`
	Kind            TransactionKind `json:"kind"`
	Quantity        float64         `json:"quantity"`
	UnitPrice       float64         `json:"unit_price"`
	RunningQuantity float64         `json:"running_quantity"`
	RunningValue    float64         `json:"running_value"`
	AveragePrice    float64         `json:"average_price"`
	Reference       string          `json:"reference"`
}

// ReorderPoint is the derived replenishment recommendation for one ingredient.
// It is recomputed on demand and never persisted.
type ReorderPoint struct {
	IngredientID   string  `json:"ingredient_id"`
	EffectiveMin   float64 `json:"effective_min_stock"`
	RecommendedQty float64 `json:"recommended_order_quantity"`
	LeadTimeDays   int     `json:"lead_time_days"`
	SafetyStock    float64 `json:"safety_stock"`
	AvgDailyUsage  float64 `json:"average_daily_usage"`
	ShouldReorder  bool    `json:"should_reorder"`
	EstimatedCost  float64 `json:"estimated_cost"`
}

// Severity ranks advisory recommendations and stock alerts.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Recommendation is a structured advisory. Presentation decides wording per
// locale; the engine only emits code, severity and a default message.
type Recommendation struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}
