// Package alert classifies stock health from the ratio of current stock to
// minimum stock. Classification is pure; thresholds are boundary-inclusive on
// the low side (a ratio of exactly 0.1 is still critical).
package alert

import (
	"math"
	"sort"

	"github.com/pawonlab/stockwise/internal/domain"
)

// Level is the primary stock-health status.
type Level string

const (
	LevelCritical    Level = "critical"
	LevelWarning     Level = "warning"
	LevelSafe        Level = "safe"
	LevelOverstocked Level = "overstocked"
)

const (
	criticalRatio  = 0.1
	warningRatio   = 0.3
	overstockRatio = 5.0
)

// StockAlert is one surfaced alert entry. Overstock is not mutually exclusive
// with safe: an overstocked ingredient yields a separate low-severity entry.
type StockAlert struct {
	IngredientID string          `json:"ingredient_id"`
	Name         string          `json:"name"`
	Level        Level           `json:"level"`
	Severity     domain.Severity `json:"severity"`
	OutOfStock   bool            `json:"out_of_stock"`
	Ratio        float64         `json:"ratio"`
	CurrentStock float64         `json:"current_stock"`
	MinStock     float64         `json:"min_stock"`
}

// StockRatio guards the zero-minimum division: with no minimum configured the
// ratio is +Inf when any stock is on hand, 0 otherwise. The infinity never
// leaves this package; callers receive levels and alert entries.
func StockRatio(ing domain.Ingredient) float64 {
	if ing.MinStock <= 0 {
		if ing.CurrentStock > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return ing.CurrentStock / ing.MinStock
}

// Classify maps an ingredient to its primary level.
func Classify(ing domain.Ingredient) Level {
	r := StockRatio(ing)
	switch {
	case r <= 0:
		return LevelCritical
	case r <= criticalRatio:
		return LevelCritical
	case r <= warningRatio:
		return LevelWarning
	default:
		return LevelSafe
	}
}

// Overstocked reports whether the ingredient additionally carries the
// overstock flag. An unconfigured minimum with stock on hand always flags:
// the ratio is unbounded there.
func Overstocked(ing domain.Ingredient) bool {
	return StockRatio(ing) >= overstockRatio
}

// Alerts builds the surfaced alert list for a set of ingredients, ordered by
// severity descending: out-of-stock and critical first, then warning, then
// overstock advisories. Safe ingredients produce no entry.
func Alerts(ingredients []domain.Ingredient) []StockAlert {
	var alerts []StockAlert

	for _, ing := range ingredients {
		level := Classify(ing)
		ratio := boundedRatio(ing)

		if level == LevelCritical || level == LevelWarning {
			severity := domain.SeverityMedium
			if level == LevelCritical {
				severity = domain.SeverityHigh
			}
			alerts = append(alerts, StockAlert{
				IngredientID: ing.ID,
				Name:         ing.Name,
				Level:        level,
				Severity:     severity,
				OutOfStock:   ing.CurrentStock <= 0,
				Ratio:        ratio,
				CurrentStock: ing.CurrentStock,
				MinStock:     ing.MinStock,
			})
		}

		if Overstocked(ing) {
			alerts = append(alerts, StockAlert{
				IngredientID: ing.ID,
				Name:         ing.Name,
				Level:        LevelOverstocked,
				Severity:     domain.SeverityLow,
				Ratio:        ratio,
				CurrentStock: ing.CurrentStock,
				MinStock:     ing.MinStock,
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return severityRank(alerts[i].Severity) > severityRank(alerts[j].Severity)
	})

	return alerts
}

// boundedRatio keeps Inf out of serialized output when minStock is zero.
func boundedRatio(ing domain.Ingredient) float64 {
	r := StockRatio(ing)
	if math.IsInf(r, 1) {
		return 0
	}
	return r
}

func severityRank(s domain.Severity) int {
	switch s {
	case domain.SeverityHigh:
		return 3
	case domain.SeverityMedium:
		return 2
	case domain.SeverityLow:
		return 1
	default:
		return 0
	}
}
