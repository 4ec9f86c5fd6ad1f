// Package costing computes cost-basis valuations of on-hand stock from an
// ingredient snapshot and its append-only transaction ledger. All four models
// are pure functions of the same inputs and never mutate them.
package costing

import (
	"math"

	"github.com/pawonlab/stockwise/internal/domain"
)

// WeightedAverage returns total purchased value over total purchased quantity
// across the full history. Purchases with zero quantity or no unit price are
// skipped; with no usable purchases the ingredient list price is returned with
// zero derived quantity and value.
func WeightedAverage(ing domain.Ingredient, txs []domain.StockTransaction) (WeightedAverageResult, error) {
	if err := domain.ValidateLedger(ing, txs); err != nil {
		return WeightedAverageResult{}, err
	}

	var (
		totalQuantity float64
		totalValue    float64
		history       []PurchaseRecord
	)

	for _, t := range txs {
		if t.Kind != domain.KindPurchase || t.UnitPrice == nil || t.Quantity <= 0 {
			continue
		}

		quantity := math.Abs(t.Quantity)
		value := quantity * *t.UnitPrice

		totalQuantity += quantity
		totalValue += value

		history = append(history, PurchaseRecord{
			Date:       t.CreatedAt,
			Quantity:   quantity,
			UnitPrice:  *t.UnitPrice,
			TotalValue: value,
			Reference:  t.Reference,
		})
	}

	if totalQuantity == 0 {
		return WeightedAverageResult{Price: ing.PricePerUnit}, nil
	}

	// Rounding happens only here; intermediate sums stay exact so the ratio
	// does not compound rounding error.
	return WeightedAverageResult{
		Price:           round2(totalValue / totalQuantity),
		TotalQuantity:   totalQuantity,
		TotalValue:      totalValue,
		PurchaseHistory: history,
	}, nil
}

// FIFOValue walks purchases oldest-first, greedily assigning currentStock units
// to the earliest cost layers until stock is exhausted or purchases run out.
// When no layer covers any stock the average cost falls back to the ingredient
// list price; stock value stays zero.
func FIFOValue(ing domain.Ingredient, txs []domain.StockTransaction) (FIFOResult, error) {
	if err := domain.ValidateLedger(ing, txs); err != nil {
		return FIFOResult{}, err
	}

	remaining := ing.CurrentStock
	var layers []domain.StockLayer

	for _, t := range txs {
		if remaining <= 0 {
			break
		}
		if t.Kind != domain.KindPurchase {
			continue
		}

		var unitPrice float64
		if t.UnitPrice != nil {
			unitPrice = *t.UnitPrice
		}

		layerQty := math.Min(remaining, math.Abs(t.Quantity))
		if layerQty <= 0 {
			continue
		}

		layers = append(layers, domain.StockLayer{
			Quantity:     layerQty,
			UnitPrice:    unitPrice,
			TotalValue:   layerQty * unitPrice,
			PurchaseDate: t.CreatedAt,
			Reference:    t.Reference,
		})
		remaining -= layerQty
	}

	var stockValue, covered float64
	for _, layer := range layers {
		stockValue += layer.TotalValue
		covered += layer.Quantity
	}

	result := FIFOResult{
		StockValue: round2(stockValue),
		Layers:     layers,
	}
	if covered > 0 {
		result.AverageCostPerUnit = round2(stockValue / covered)
	} else {
		result.AverageCostPerUnit = ing.PricePerUnit
	}
	if remaining > 0 {
		result.Uncovered = remaining
	}

	return result, nil
}

// MovingAverage replays the full ledger chronologically. Inbound transactions
// move the average; outflows consume at the current average and leave it
// unchanged. Running quantity and value are floored at zero.
func MovingAverage(ing domain.Ingredient, txs []domain.StockTransaction) (MovingAverageResult, error) {
	if err := domain.ValidateLedger(ing, txs); err != nil {
		return MovingAverageResult{}, err
	}

	var (
		runningQuantity float64
		runningValue    float64
	)
	averagePrice := ing.PricePerUnit
	history := make([]domain.MovingAverageRecord, 0, len(txs))

	for _, t := range txs {
		unitPrice := averagePrice
		if t.UnitPrice != nil {
			unitPrice = *t.UnitPrice
		}

		switch t.Kind {
		case domain.KindPurchase:
			quantity := math.Abs(t.Quantity)
			runningValue += quantity * unitPrice
			runningQuantity += quantity
			if runningQuantity > 0 {
				averagePrice = runningValue / runningQuantity
			} else {
				averagePrice = unitPrice
			}

		case domain.KindUsage, domain.KindWaste, domain.KindExpired:
			runningQuantity, runningValue = consume(runningQuantity, runningValue, math.Abs(t.Quantity), averagePrice)

		case domain.KindAdjustment:
			// Signed delta. Inbound corrections enter at the current average,
			// so the average itself is unaffected either way.
			if t.Quantity >= 0 {
				runningValue += t.Quantity * averagePrice
				runningQuantity += t.Quantity
			} else {
				runningQuantity, runningValue = consume(runningQuantity, runningValue, -t.Quantity, averagePrice)
			}

		case domain.KindRecount:
			runningQuantity = t.Quantity
			runningValue = t.Quantity * averagePrice
		}

		history = append(history, domain.MovingAverageRecord{
			Date:            t.CreatedAt,
			Kind:            t.Kind,
			Quantity:        t.Quantity,
			UnitPrice:       unitPrice,
			RunningQuantity: runningQuantity,
			RunningValue:    runningValue,
			AveragePrice:    averagePrice,
			Reference:       t.Reference,
		})
	}

	// Valuation deliberately pairs the mutable currentStock scalar with the
	// ledger-derived average: they are independent inputs.
	return MovingAverageResult{
		AveragePrice: round2(averagePrice),
		StockValue:   round2(ing.CurrentStock * averagePrice),
		History:      history,
	}, nil
}

// LatestPrice returns the most recent purchase unit price, falling back to the
// ingredient list price when no priced purchase exists.
func LatestPrice(ing domain.Ingredient, txs []domain.StockTransaction) (float64, error) {
	if err := domain.ValidateLedger(ing, txs); err != nil {
		return 0, err
	}

	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].Kind == domain.KindPurchase && txs[i].UnitPrice != nil {
			return *txs[i].UnitPrice, nil
		}
	}
	return ing.PricePerUnit, nil
}

// ApplyMethod evaluates one costing model and returns the plain price for the
// write-back contract. Persisting the value is the caller's responsibility.
func ApplyMethod(ing domain.Ingredient, txs []domain.StockTransaction, method Method) (float64, error) {
	switch method {
	case MethodWeighted:
		res, err := WeightedAverage(ing, txs)
		return res.Price, err
	case MethodFIFO:
		res, err := FIFOValue(ing, txs)
		return res.AverageCostPerUnit, err
	case MethodMoving:
		res, err := MovingAverage(ing, txs)
		return res.AveragePrice, err
	case MethodLatest:
		return LatestPrice(ing, txs)
	}
	return ing.PricePerUnit, nil
}

func consume(quantity, value, used, averagePrice float64) (float64, float64) {
	quantity = math.Max(0, quantity-used)
	value = math.Max(0, value-used*averagePrice)
	return quantity, value
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
