package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pawonlab/stockwise/internal/cache"
	"github.com/pawonlab/stockwise/internal/domain"
	"github.com/pawonlab/stockwise/internal/engine/alert"
	"github.com/pawonlab/stockwise/internal/engine/analyzer"
	"github.com/pawonlab/stockwise/internal/engine/costing"
	"github.com/pawonlab/stockwise/internal/engine/pricing"
	"github.com/pawonlab/stockwise/internal/engine/reorder"
	"github.com/pawonlab/stockwise/internal/repository"
)

// PriceUpdate reports the outcome of applying the recommended cost basis as
// the ingredient list price.
type PriceUpdate struct {
	IngredientID  string         `json:"ingredient_id"`
	PreviousPrice float64        `json:"previous_price"`
	AppliedPrice  float64        `json:"applied_price"`
	Method        costing.Method `json:"method"`
}

type InventoryService struct {
	repo     repository.InventoryRepository
	analyzer *analyzer.Analyzer
	cache    cache.InsightsCache
}

func NewInventoryService(repo repository.InventoryRepository, a *analyzer.Analyzer, cacheImpl cache.InsightsCache) *InventoryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopInsightsCache()
	}
	return &InventoryService{repo: repo, analyzer: a, cache: cacheImpl}
}

func (s *InventoryService) ListIngredients(ctx context.Context, filter repository.IngredientFilter) ([]domain.Ingredient, int, error) {
	return s.repo.ListIngredients(ctx, filter)
}

func (s *InventoryService) GetIngredient(ctx context.Context, id string) (domain.Ingredient, error) {
	return s.repo.GetIngredient(ctx, id)
}

func (s *InventoryService) ListTransactions(ctx context.Context, ingredientID string, since time.Time) ([]domain.StockTransaction, error) {
	if _, err := s.repo.GetIngredient(ctx, ingredientID); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, ingredientID, since)
}

// AnalyzeAll runs the full analysis bundle across every ingredient.
func (s *InventoryService) AnalyzeAll(ctx context.Context) ([]analyzer.Analysis, error) {
	ingredients, _, err := s.repo.ListIngredients(ctx, repository.IngredientFilter{})
	if err != nil {
		return nil, err
	}

	txs, err := s.repo.ListAllTransactions(ctx, time.Time{})
	if err != nil {
		return nil, err
	}

	results, err := s.analyzer.Analyze(ctx, ingredients, txs)
	if err != nil {
		return nil, err
	}

	for _, a := range results {
		if err := s.cache.Set(ctx, a); err != nil {
			log.Warn().Err(err).Str("ingredient_id", a.Ingredient.ID).Msg("inventory: cache set failed")
		}
	}

	return results, nil
}

// GetAnalysis returns the analysis bundle for one ingredient, served from
// cache when a fresh entry exists.
func (s *InventoryService) GetAnalysis(ctx context.Context, ingredientID string) (analyzer.Analysis, error) {
	if a, ok, err := s.cache.Get(ctx, ingredientID); err == nil && ok {
		return a, nil
	} else if err != nil {
		log.Warn().Err(err).Str("ingredient_id", ingredientID).Msg("inventory: cache get failed")
	}

	ing, err := s.repo.GetIngredient(ctx, ingredientID)
	if err != nil {
		return analyzer.Analysis{}, err
	}

	txs, err := s.repo.ListTransactions(ctx, ingredientID, time.Time{})
	if err != nil {
		return analyzer.Analysis{}, err
	}

	a, err := s.analyzer.AnalyzeOne(ing, txs)
	if err != nil {
		return analyzer.Analysis{}, err
	}

	if err := s.cache.Set(ctx, a); err != nil {
		log.Warn().Err(err).Str("ingredient_id", ingredientID).Msg("inventory: cache set failed")
	}

	return a, nil
}

// GetInsights returns only the pricing portion of the analysis bundle.
func (s *InventoryService) GetInsights(ctx context.Context, ingredientID string) (pricing.Insights, error) {
	a, err := s.GetAnalysis(ctx, ingredientID)
	if err != nil {
		return pricing.Insights{}, err
	}
	return a.Insights, nil
}

// GetAlerts classifies every ingredient against its minimum stock level.
func (s *InventoryService) GetAlerts(ctx context.Context) ([]alert.StockAlert, error) {
	ingredients, _, err := s.repo.ListIngredients(ctx, repository.IngredientFilter{})
	if err != nil {
		return nil, err
	}
	return alert.Alerts(ingredients), nil
}

// GetReorderPlan returns reorder points for every ingredient that should
// reorder now, or for all of them when includeAll is set.
func (s *InventoryService) GetReorderPlan(ctx context.Context, includeAll bool) ([]domain.ReorderPoint, error) {
	results, err := s.AnalyzeAll(ctx)
	if err != nil {
		return nil, err
	}

	plan := make([]domain.ReorderPoint, 0, len(results))
	for _, a := range results {
		if includeAll || a.ReorderPoint.ShouldReorder {
			plan = append(plan, a.ReorderPoint)
		}
	}
	return plan, nil
}

// GetForecast projects demand over the advisor horizon for one ingredient.
func (s *InventoryService) GetForecast(ctx context.Context, ingredientID string) (reorder.Forecast, error) {
	a, err := s.GetAnalysis(ctx, ingredientID)
	if err != nil {
		return reorder.Forecast{}, err
	}
	return a.Forecast, nil
}

// GetCostBasis evaluates a single costing model against the full ledger.
func (s *InventoryService) GetCostBasis(ctx context.Context, ingredientID string, method costing.Method) (float64, error) {
	ing, err := s.repo.GetIngredient(ctx, ingredientID)
	if err != nil {
		return 0, err
	}

	txs, err := s.repo.ListTransactions(ctx, ingredientID, time.Time{})
	if err != nil {
		return 0, err
	}

	return costing.ApplyMethod(ing, txs, method)
}

// EOQResult is the economic order quantity for one ingredient given the
// caller's cost assumptions.
type EOQResult struct {
	IngredientID       string  `json:"ingredient_id"`
	AnnualDemand       float64 `json:"annual_demand"`
	OrderingCost       float64 `json:"ordering_cost"`
	HoldingCostPerUnit float64 `json:"holding_cost_per_unit"`
	Quantity           float64 `json:"quantity"`
}

// GetEOQ computes the economic order quantity from the trailing usage rate.
// Holding cost per unit is the moving-average price times the annual holding
// rate.
func (s *InventoryService) GetEOQ(ctx context.Context, ingredientID string, orderingCost, holdingRatePerYear float64) (EOQResult, error) {
	a, err := s.GetAnalysis(ctx, ingredientID)
	if err != nil {
		return EOQResult{}, err
	}

	annualDemand := a.UsageRate * 365
	holdingPerUnit := a.Insights.MovingAveragePrice * holdingRatePerYear

	return EOQResult{
		IngredientID:       ingredientID,
		AnnualDemand:       annualDemand,
		OrderingCost:       orderingCost,
		HoldingCostPerUnit: holdingPerUnit,
		Quantity:           reorder.EOQ(annualDemand, orderingCost, holdingPerUnit),
	}, nil
}

// RecordTransaction appends a ledger entry, moves stock, and drops the stale
// cached analysis for the ingredient.
func (s *InventoryService) RecordTransaction(ctx context.Context, t domain.StockTransaction) (domain.StockTransaction, error) {
	saved, err := s.repo.AppendTransaction(ctx, t)
	if err != nil {
		return domain.StockTransaction{}, err
	}

	if err := s.cache.Invalidate(ctx, saved.IngredientID); err != nil {
		log.Warn().Err(err).Str("ingredient_id", saved.IngredientID).Msg("inventory: cache invalidate failed")
	}

	log.Info().
		Str("ingredient_id", saved.IngredientID).
		Str("kind", string(saved.Kind)).
		Float64("quantity", saved.Quantity).
		Msg("inventory: transaction recorded")

	return saved, nil
}

// ApplyRecommendedPrice evaluates the chosen costing model against the full
// ledger and overwrites the ingredient list price with the result. The moving
// average is the recommended default; callers may pick any model.
func (s *InventoryService) ApplyRecommendedPrice(ctx context.Context, ingredientID string, method costing.Method) (PriceUpdate, error) {
	ing, err := s.repo.GetIngredient(ctx, ingredientID)
	if err != nil {
		return PriceUpdate{}, err
	}

	txs, err := s.repo.ListTransactions(ctx, ingredientID, time.Time{})
	if err != nil {
		return PriceUpdate{}, err
	}

	price, err := costing.ApplyMethod(ing, txs, method)
	if err != nil {
		return PriceUpdate{}, err
	}

	if err := s.repo.UpdatePrice(ctx, ingredientID, price); err != nil {
		return PriceUpdate{}, err
	}

	if err := s.cache.Invalidate(ctx, ingredientID); err != nil {
		log.Warn().Err(err).Str("ingredient_id", ingredientID).Msg("inventory: cache invalidate failed")
	}

	log.Info().
		Str("ingredient_id", ingredientID).
		Str("method", string(method)).
		Float64("previous_price", ing.PricePerUnit).
		Float64("applied_price", price).
		Msg("inventory: recommended price applied")

	return PriceUpdate{
		IngredientID:  ingredientID,
		PreviousPrice: ing.PricePerUnit,
		AppliedPrice:  price,
		Method:        method,
	}, nil
}
