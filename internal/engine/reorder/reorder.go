// Package reorder derives usage rates, reorder points, safety stock, lot sizes
// and short-horizon forecasts from the ingredient ledger.
package reorder

import (
	"math"
	"time"

	"github.com/pawonlab/stockwise/internal/domain"
)

const (
	defaultWindowDays   = 30
	defaultLeadTimeDays = 7
	defaultHorizonDays  = 30

	safetyFactor   = 1.5
	orderCoverDays = 14
	forecastBuffer = 1.2
	trendThreshold = 0.1
)

// Confidence grades a forecast by sample count.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Trend classifies the usage direction over the observed history.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Forecast is a short-horizon usage projection.
type Forecast struct {
	HorizonDays         int        `json:"horizon_days"`
	Trend               Trend      `json:"trend"`
	ProjectedDailyUsage float64    `json:"projected_daily_usage"`
	ProjectedUsage      float64    `json:"projected_usage"`
	RecommendedStock    float64    `json:"recommended_stock"`
	Confidence          Confidence `json:"confidence"`
	Samples             int        `json:"samples"`
}

// Advisor computes replenishment recommendations. The clock is injected so
// trailing-window and forecast math stays deterministic under test.
type Advisor struct {
	now          func() time.Time
	windowDays   int
	leadTimeDays int
	horizonDays  int
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(a *Advisor) { a.now = now }
}

// WithWindowDays sets the trailing usage window.
func WithWindowDays(days int) Option {
	return func(a *Advisor) {
		if days > 0 {
			a.windowDays = days
		}
	}
}

// WithLeadTimeDays sets the supplier lead time assumption.
func WithLeadTimeDays(days int) Option {
	return func(a *Advisor) {
		if days > 0 {
			a.leadTimeDays = days
		}
	}
}

// WithHorizonDays sets the forecast horizon.
func WithHorizonDays(days int) Option {
	return func(a *Advisor) {
		if days > 0 {
			a.horizonDays = days
		}
	}
}

// NewAdvisor creates an Advisor with the default 30-day window, 7-day lead
// time and 30-day forecast horizon.
func NewAdvisor(opts ...Option) *Advisor {
	a := &Advisor{
		now:          time.Now,
		windowDays:   defaultWindowDays,
		leadTimeDays: defaultLeadTimeDays,
		horizonDays:  defaultHorizonDays,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// UsageRate returns average daily consumption: the sum of usage magnitudes
// inside the trailing window divided by the window length.
func (a *Advisor) UsageRate(ing domain.Ingredient, txs []domain.StockTransaction) (float64, error) {
	if err := domain.ValidateLedger(ing, txs); err != nil {
		return 0, err
	}

	cutoff := a.now().AddDate(0, 0, -a.windowDays)
	var total float64
	for _, t := range txs {
		if t.Kind != domain.KindUsage || t.CreatedAt.Before(cutoff) {
			continue
		}
		total += math.Abs(t.Quantity)
	}

	return total / float64(a.windowDays), nil
}

// ReorderPoint derives the replenishment trigger for one ingredient. The
// effective minimum is whichever is higher: the usage-derived reorder point or
// the configured minimum stock.
func (a *Advisor) ReorderPoint(ing domain.Ingredient, txs []domain.StockTransaction) (domain.ReorderPoint, error) {
	dailyUsage, err := a.UsageRate(ing, txs)
	if err != nil {
		return domain.ReorderPoint{}, err
	}

	safetyStock := dailyUsage * safetyFactor
	reorderPoint := dailyUsage*float64(a.leadTimeDays) + safetyStock
	effectiveMin := math.Max(reorderPoint, ing.MinStock)
	recommendedQty := math.Max(math.Max(dailyUsage*orderCoverDays, ing.MinStock*2), 1)

	return domain.ReorderPoint{
		IngredientID:   ing.ID,
		EffectiveMin:   effectiveMin,
		RecommendedQty: recommendedQty,
		LeadTimeDays:   a.leadTimeDays,
		SafetyStock:    safetyStock,
		AvgDailyUsage:  dailyUsage,
		ShouldReorder:  ing.CurrentStock <= effectiveMin,
		EstimatedCost:  recommendedQty * ing.PricePerUnit,
	}, nil
}

// SafetyStock is the classic demand/lead-time variability buffer:
// (maxDemand-avgDemand)*avgLead + avgDemand*(maxLead-avgLead), clamped at zero
// and ceiled to whole units.
func SafetyStock(avgDemand, maxDemand, avgLead, maxLead float64) int {
	buffer := (maxDemand-avgDemand)*avgLead + avgDemand*(maxLead-avgLead)
	return int(math.Ceil(math.Max(0, buffer)))
}

// EOQ is the economic order quantity sqrt(2*D*S/H). A zero holding cost falls
// back to one month of demand rather than dividing by zero.
func EOQ(annualDemand, orderingCost, holdingCostPerUnit float64) float64 {
	if annualDemand <= 0 {
		return 0
	}
	if holdingCostPerUnit <= 0 {
		return annualDemand / 12
	}
	return math.Sqrt(2 * annualDemand * orderingCost / holdingCostPerUnit)
}

// Forecast projects usage over the configured horizon. History is split into
// first and second halves by count; the average magnitudes classify the trend,
// which nudges the naive daily rate by ten percent either way. The recommended
// stock carries an extra twenty percent buffer.
func (a *Advisor) Forecast(ing domain.Ingredient, txs []domain.StockTransaction) (Forecast, error) {
	dailyUsage, err := a.UsageRate(ing, txs)
	if err != nil {
		return Forecast{}, err
	}

	var samples []float64
	for _, t := range txs {
		if t.Kind == domain.KindUsage {
			samples = append(samples, math.Abs(t.Quantity))
		}
	}

	trend := classifyTrend(samples)

	multiplier := 1.0
	switch trend {
	case TrendIncreasing:
		multiplier = 1 + trendThreshold
	case TrendDecreasing:
		multiplier = 1 - trendThreshold
	}

	projectedDaily := dailyUsage * multiplier
	projected := projectedDaily * float64(a.horizonDays)

	return Forecast{
		HorizonDays:         a.horizonDays,
		Trend:               trend,
		ProjectedDailyUsage: projectedDaily,
		ProjectedUsage:      projected,
		RecommendedStock:    projected * forecastBuffer,
		Confidence:          confidence(len(samples)),
		Samples:             len(samples),
	}, nil
}

func classifyTrend(samples []float64) Trend {
	if len(samples) < 2 {
		return TrendStable
	}

	half := len(samples) / 2
	firstAvg := mean(samples[:half])
	secondAvg := mean(samples[half:])

	if firstAvg == 0 {
		if secondAvg > 0 {
			return TrendIncreasing
		}
		return TrendStable
	}

	delta := (secondAvg - firstAvg) / firstAvg
	switch {
	case delta > trendThreshold:
		return TrendIncreasing
	case delta < -trendThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func confidence(samples int) Confidence {
	switch {
	case samples < 2:
		return ConfidenceLow
	case samples > 10:
		return ConfidenceHigh
	default:
		return ConfidenceMedium
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
