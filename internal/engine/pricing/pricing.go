// Package pricing aggregates the costing models into a pricing read-model:
// volatility statistics, a recommended HPP (cost-of-goods) price, and
// structured advisories for the presentation layer.
package pricing

import (
	"fmt"
	"math"

	"github.com/pawonlab/stockwise/internal/domain"
	"github.com/pawonlab/stockwise/internal/engine/costing"
)

const (
	volatileCoefficient = 0.15
	listPriceDriftRatio = 1.10
	methodDivergence    = 0.10
	deepLayerCount      = 5
)

// Advisory codes. Presentation maps these to localized copy; the engine only
// supplies a default message.
const (
	CodeVolatilePrice    = "volatile_price"
	CodeListPriceStale   = "list_price_stale"
	CodeMethodDivergence = "method_divergence"
	CodeDeepLayering     = "deep_layering"
	CodeMissingUnitPrice = "missing_unit_price"
	CodeNonPositivePrice = "non_positive_price"
)

// Volatility describes the spread of historic purchase prices.
type Volatility struct {
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	Coefficient float64 `json:"coefficient"`
	SampleCount int     `json:"sample_count"`
}

// StockValueByMethod reports the valuation of on-hand stock per costing model.
type StockValueByMethod struct {
	Weighted float64 `json:"weighted"`
	FIFO     float64 `json:"fifo"`
	Moving   float64 `json:"moving"`
}

// Insights is the per-ingredient pricing read-model.
type Insights struct {
	IngredientID           string                  `json:"ingredient_id"`
	WeightedAveragePrice   float64                 `json:"weighted_average_price"`
	FIFOAveragePrice       float64                 `json:"fifo_average_price"`
	MovingAveragePrice     float64                 `json:"moving_average_price"`
	LatestPurchasePrice    float64                 `json:"latest_purchase_price"`
	CurrentListPrice       float64                 `json:"current_list_price"`
	Volatility             Volatility              `json:"price_volatility"`
	RecommendedPriceForHPP float64                 `json:"recommended_price_for_hpp"`
	RecommendedMethod      costing.Method          `json:"recommended_method"`
	StockValue             StockValueByMethod      `json:"stock_value"`
	Recommendations        []domain.Recommendation `json:"recommendations"`
}

// ComputeVolatility returns mean, population standard deviation and the
// coefficient of variation for a price series. Fewer than two samples yields
// zero spread.
func ComputeVolatility(prices []float64) Volatility {
	if len(prices) < 2 {
		v := Volatility{SampleCount: len(prices)}
		if len(prices) == 1 {
			v.Mean = round2(prices[0])
		}
		return v
	}

	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))

	var variance float64
	for _, p := range prices {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(len(prices))
	stdDev := math.Sqrt(variance)

	var coefficient float64
	if mean > 0 {
		coefficient = stdDev / mean
	}

	return Volatility{
		Mean:        round2(mean),
		StdDev:      round2(stdDev),
		Coefficient: round4(coefficient),
		SampleCount: len(prices),
	}
}

// Compute builds the full pricing read-model for one ingredient. The moving
// average is the default HPP recommendation: it tracks recent cost changes
// without the noise of a single latest purchase.
func Compute(ing domain.Ingredient, txs []domain.StockTransaction) (Insights, error) {
	weighted, err := costing.WeightedAverage(ing, txs)
	if err != nil {
		return Insights{}, err
	}
	fifo, err := costing.FIFOValue(ing, txs)
	if err != nil {
		return Insights{}, err
	}
	moving, err := costing.MovingAverage(ing, txs)
	if err != nil {
		return Insights{}, err
	}
	latest, err := costing.LatestPrice(ing, txs)
	if err != nil {
		return Insights{}, err
	}

	var (
		prices       []float64
		missingPrice bool
		nonPositive  bool
	)
	for _, t := range txs {
		if t.Kind != domain.KindPurchase {
			continue
		}
		if t.UnitPrice == nil {
			missingPrice = true
			continue
		}
		if *t.UnitPrice <= 0 {
			nonPositive = true
		}
		prices = append(prices, *t.UnitPrice)
	}

	volatility := ComputeVolatility(prices)

	insights := Insights{
		IngredientID:           ing.ID,
		WeightedAveragePrice:   weighted.Price,
		FIFOAveragePrice:       fifo.AverageCostPerUnit,
		MovingAveragePrice:     moving.AveragePrice,
		LatestPurchasePrice:    latest,
		CurrentListPrice:       ing.PricePerUnit,
		Volatility:             volatility,
		RecommendedPriceForHPP: moving.AveragePrice,
		RecommendedMethod:      costing.MethodMoving,
		StockValue: StockValueByMethod{
			Weighted: weighted.TotalValue,
			FIFO:     fifo.StockValue,
			Moving:   moving.StockValue,
		},
	}

	insights.Recommendations = buildRecommendations(ing, insights, fifo, missingPrice, nonPositive)
	return insights, nil
}

func buildRecommendations(ing domain.Ingredient, in Insights, fifo costing.FIFOResult, missingPrice, nonPositive bool) []domain.Recommendation {
	var recs []domain.Recommendation

	if in.Volatility.Coefficient > volatileCoefficient {
		recs = append(recs, domain.Recommendation{
			Code:     CodeVolatilePrice,
			Severity: domain.SeverityMedium,
			Message:  fmt.Sprintf("purchase price is volatile (cv %.2f); prefer the moving average for HPP", in.Volatility.Coefficient),
		})
	}

	if ing.PricePerUnit > 0 && in.WeightedAveragePrice > ing.PricePerUnit*listPriceDriftRatio {
		recs = append(recs, domain.Recommendation{
			Code:     CodeListPriceStale,
			Severity: domain.SeverityMedium,
			Message:  "weighted average cost exceeds the list price by more than 10%; update the price list",
		})
	}

	if in.FIFOAveragePrice > 0 {
		divergence := math.Abs(in.FIFOAveragePrice-in.MovingAveragePrice) / in.FIFOAveragePrice
		if divergence > methodDivergence {
			recs = append(recs, domain.Recommendation{
				Code:     CodeMethodDivergence,
				Severity: domain.SeverityMedium,
				Message:  "FIFO and moving average diverge by more than 10%; reconcile the pricing method",
			})
		}
	}

	if len(fifo.Layers) > deepLayerCount {
		recs = append(recs, domain.Recommendation{
			Code:     CodeDeepLayering,
			Severity: domain.SeverityInfo,
			Message:  fmt.Sprintf("%d open cost layers; monitor stock rotation", len(fifo.Layers)),
		})
	}

	if missingPrice {
		recs = append(recs, domain.Recommendation{
			Code:     CodeMissingUnitPrice,
			Severity: domain.SeverityInfo,
			Message:  "some purchases have no unit price; the list price was used as fallback",
		})
	}
	if nonPositive {
		recs = append(recs, domain.Recommendation{
			Code:     CodeNonPositivePrice,
			Severity: domain.SeverityInfo,
			Message:  "some purchases carry a non-positive unit price; check upstream data entry",
		})
	}

	return recs
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
