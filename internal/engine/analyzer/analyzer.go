// Package analyzer orchestrates the costing, reorder, alert and pricing
// engines into one per-ingredient analysis bundle. Each ingredient depends
// only on its own snapshot and ledger slice, so the run is a fixed worker
// pool with no shared mutable state between tasks.
package analyzer

import (
	"context"
	"sync"

	"github.com/pawonlab/stockwise/internal/domain"
	"github.com/pawonlab/stockwise/internal/engine/alert"
	"github.com/pawonlab/stockwise/internal/engine/pricing"
	"github.com/pawonlab/stockwise/internal/engine/reorder"
)

const (
	daysPerYear  = 365
	daysPerMonth = 30

	lowTurnover  = 2
	highTurnover = 12
)

// Analysis-level advisory codes, layered on top of the pricing advisories.
const (
	CodeReorderNow         = "reorder_now"
	CodeReorderSoon        = "reorder_soon"
	CodePossibleOverstock  = "possible_overstock"
	CodePossibleUnderstock = "possible_understock"
	CodeNoMinStock         = "no_min_stock"
	CodeNoRecentUsage      = "no_recent_usage"
)

// Metrics are the headline per-ingredient numbers.
type Metrics struct {
	// DaysOfStock is current stock over daily usage; zero when there is no
	// recent usage (flagged by the no_recent_usage advisory rather than
	// reporting infinity).
	DaysOfStock float64 `json:"days_of_stock"`
	// StockValue is on-hand stock valued at the moving-average cost.
	StockValue float64 `json:"stock_value"`
	// MonthlyBurnRate is the value consumed per month at the current usage
	// rate and moving-average cost.
	MonthlyBurnRate float64 `json:"monthly_burn_rate"`
}

// Analysis is the assembled report for one ingredient.
type Analysis struct {
	Ingredient      domain.Ingredient       `json:"ingredient"`
	UsageRate       float64                 `json:"usage_rate"`
	AlertLevel      alert.Level             `json:"alert_level"`
	Overstocked     bool                    `json:"overstocked"`
	ReorderPoint    domain.ReorderPoint     `json:"reorder_point"`
	Forecast        reorder.Forecast        `json:"forecast"`
	TurnoverRatio   float64                 `json:"turnover_ratio"`
	Insights        pricing.Insights        `json:"insights"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	Metrics         Metrics                 `json:"metrics"`
}

// Analyzer runs the engines over ingredient snapshots.
type Analyzer struct {
	advisor *reorder.Advisor
	workers int
}

// New creates an Analyzer. workerCount below 1 falls back to serial execution.
func New(advisor *reorder.Advisor, workerCount int) *Analyzer {
	if advisor == nil {
		advisor = reorder.NewAdvisor()
	}
	if workerCount < 1 {
		workerCount = 1
	}
	return &Analyzer{advisor: advisor, workers: workerCount}
}

// Analyze assembles the report for every ingredient. The flat transaction
// slice is grouped per ingredient first; a transaction referencing an unknown
// ingredient is a caller bug and fails the whole run with a typed error.
func (a *Analyzer) Analyze(ctx context.Context, ingredients []domain.Ingredient, txs []domain.StockTransaction) ([]Analysis, error) {
	byIngredient, err := groupByIngredient(ingredients, txs)
	if err != nil {
		return nil, err
	}

	results := make([]Analysis, len(ingredients))
	jobChan := make(chan int, len(ingredients))
	errChan := make(chan error, a.workers)
	var wg sync.WaitGroup

	for w := 0; w < a.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobChan {
				ing := ingredients[i]
				analysis, err := a.AnalyzeOne(ing, byIngredient[ing.ID])
				if err != nil {
					select {
					case errChan <- err:
					default:
					}
					continue
				}
				results[i] = analysis
			}
		}()
	}

	for i := range ingredients {
		if err := ctx.Err(); err != nil {
			close(jobChan)
			wg.Wait()
			return nil, err
		}
		// jobChan is buffered to len(ingredients); the send never blocks.
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}
	return results, nil
}

// AnalyzeOne builds the bundle for a single ingredient.
func (a *Analyzer) AnalyzeOne(ing domain.Ingredient, txs []domain.StockTransaction) (Analysis, error) {
	rp, err := a.advisor.ReorderPoint(ing, txs)
	if err != nil {
		return Analysis{}, err
	}
	forecast, err := a.advisor.Forecast(ing, txs)
	if err != nil {
		return Analysis{}, err
	}
	insights, err := pricing.Compute(ing, txs)
	if err != nil {
		return Analysis{}, err
	}

	usageRate := rp.AvgDailyUsage
	level := alert.Classify(ing)
	overstocked := alert.Overstocked(ing)

	analysis := Analysis{
		Ingredient:    ing,
		UsageRate:     usageRate,
		AlertLevel:    level,
		Overstocked:   overstocked,
		ReorderPoint:  rp,
		Forecast:      forecast,
		TurnoverRatio: turnoverRatio(ing, usageRate),
		Insights:      insights,
		Metrics:       buildMetrics(ing, usageRate, insights),
	}
	analysis.Recommendations = buildRecommendations(ing, analysis)

	return analysis, nil
}

// turnoverRatio approximates annual turnover as yearly usage over a smoothed
// stock level (currentStock + minStock/2). This is a deliberate smoothing
// approximation, not a true time-weighted average stock.
func turnoverRatio(ing domain.Ingredient, usageRate float64) float64 {
	averageStock := ing.CurrentStock + ing.MinStock/2
	if averageStock <= 0 {
		return 0
	}
	return usageRate * daysPerYear / averageStock
}

func buildMetrics(ing domain.Ingredient, usageRate float64, insights pricing.Insights) Metrics {
	m := Metrics{
		StockValue:      insights.StockValue.Moving,
		MonthlyBurnRate: usageRate * daysPerMonth * insights.MovingAveragePrice,
	}
	if usageRate > 0 {
		m.DaysOfStock = ing.CurrentStock / usageRate
	}
	return m
}

func buildRecommendations(ing domain.Ingredient, analysis Analysis) []domain.Recommendation {
	recs := make([]domain.Recommendation, 0, len(analysis.Insights.Recommendations)+3)

	switch analysis.AlertLevel {
	case alert.LevelCritical:
		recs = append(recs, domain.Recommendation{
			Code:     CodeReorderNow,
			Severity: domain.SeverityHigh,
			Message:  "stock is at or below the critical threshold; reorder immediately",
		})
	case alert.LevelWarning:
		recs = append(recs, domain.Recommendation{
			Code:     CodeReorderSoon,
			Severity: domain.SeverityMedium,
			Message:  "stock is approaching the minimum; schedule a reorder",
		})
	}

	if analysis.TurnoverRatio > 0 && analysis.TurnoverRatio < lowTurnover {
		recs = append(recs, domain.Recommendation{
			Code:     CodePossibleOverstock,
			Severity: domain.SeverityInfo,
			Message:  "turnover below 2x per year; stock may be oversized for current demand",
		})
	}
	if analysis.TurnoverRatio > highTurnover {
		recs = append(recs, domain.Recommendation{
			Code:     CodePossibleUnderstock,
			Severity: domain.SeverityInfo,
			Message:  "turnover above 12x per year; buffer stock may be too thin",
		})
	}

	if ing.MinStock <= 0 {
		recs = append(recs, domain.Recommendation{
			Code:     CodeNoMinStock,
			Severity: domain.SeverityInfo,
			Message:  "no minimum stock configured; reorder alerts cannot trigger",
		})
	}
	if analysis.UsageRate == 0 {
		recs = append(recs, domain.Recommendation{
			Code:     CodeNoRecentUsage,
			Severity: domain.SeverityInfo,
			Message:  "no usage recorded in the trailing window; days-of-stock is not meaningful",
		})
	}

	return append(recs, analysis.Insights.Recommendations...)
}

func groupByIngredient(ingredients []domain.Ingredient, txs []domain.StockTransaction) (map[string][]domain.StockTransaction, error) {
	known := make(map[string]struct{}, len(ingredients))
	for _, ing := range ingredients {
		known[ing.ID] = struct{}{}
	}

	grouped := make(map[string][]domain.StockTransaction, len(ingredients))
	for _, t := range txs {
		if _, ok := known[t.IngredientID]; !ok {
			return nil, &domain.InvariantError{
				TransactionID: t.ID,
				IngredientID:  t.IngredientID,
				Reason:        domain.ReasonUnknownIngredient,
			}
		}
		grouped[t.IngredientID] = append(grouped[t.IngredientID], t)
	}
	return grouped, nil
}
