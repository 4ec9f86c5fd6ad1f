package analyzer

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/pawonlab/stockwise/internal/domain"
	"github.com/pawonlab/stockwise/internal/engine/alert"
	"github.com/pawonlab/stockwise/internal/engine/reorder"
)

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func newTestAnalyzer(workers int) *Analyzer {
	adv := reorder.NewAdvisor(reorder.WithClock(func() time.Time { return testNow }))
	return New(adv, workers)
}

func ing(id string, stock, minStock, price float64) domain.Ingredient {
	return domain.Ingredient{
		ID: id, Name: id, Unit: "kg",
		CurrentStock: stock, MinStock: minStock, PricePerUnit: price,
	}
}

func tx(ingID string, kind domain.TransactionKind, qty float64, price *float64, daysAgo int) domain.StockTransaction {
	return domain.StockTransaction{
		ID:           "tx-" + ingID,
		IngredientID: ingID,
		Kind:         kind,
		Quantity:     qty,
		UnitPrice:    price,
		CreatedAt:    testNow.AddDate(0, 0, -daysAgo),
	}
}

func hasCode(recs []domain.Recommendation, code string) bool {
	for _, r := range recs {
		if r.Code == code {
			return true
		}
	}
	return false
}

func TestAnalyzeOne_Bundle(t *testing.T) {
	a := newTestAnalyzer(1)

	ingredient := ing("flour", 2, 10, 1000)
	txs := []domain.StockTransaction{
		tx("flour", domain.KindPurchase, 20, ptr(900), 20),
		tx("flour", domain.KindUsage, 18, nil, 10),
	}

	analysis, err := a.AnalyzeOne(ingredient, txs)
	if err != nil {
		t.Fatalf("AnalyzeOne: %v", err)
	}

	// ratio 2/10 = 0.2
	if analysis.AlertLevel != alert.LevelWarning {
		t.Errorf("alert level = %s, want warning", analysis.AlertLevel)
	}
	if analysis.UsageRate != 0.6 {
		t.Errorf("usage rate = %v, want 18/30 = 0.6", analysis.UsageRate)
	}
	if analysis.Insights.WeightedAveragePrice != 900 {
		t.Errorf("weighted = %v, want 900", analysis.Insights.WeightedAveragePrice)
	}
	// stock 2 at moving average 900
	if analysis.Metrics.StockValue != 1800 {
		t.Errorf("stock value = %v, want 1800", analysis.Metrics.StockValue)
	}
	// 0.6*365 / (2 + 10/2) = 219/7
	wantTurnover := 0.6 * 365 / 7
	if diff := analysis.TurnoverRatio - wantTurnover; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("turnover = %v, want %v", analysis.TurnoverRatio, wantTurnover)
	}
	if !hasCode(analysis.Recommendations, CodeReorderSoon) {
		t.Errorf("warning level should recommend reorder_soon, got %+v", analysis.Recommendations)
	}
	if !hasCode(analysis.Recommendations, CodePossibleUnderstock) {
		t.Errorf("turnover %.1f should flag possible_understock", analysis.TurnoverRatio)
	}
}

func TestAnalyzeOne_NoUsageMetrics(t *testing.T) {
	a := newTestAnalyzer(1)

	analysis, err := a.AnalyzeOne(ing("sugar", 50, 0, 500), nil)
	if err != nil {
		t.Fatalf("AnalyzeOne: %v", err)
	}
	if analysis.Metrics.DaysOfStock != 0 {
		t.Errorf("days of stock = %v, want 0 with no usage", analysis.Metrics.DaysOfStock)
	}
	if !hasCode(analysis.Recommendations, CodeNoRecentUsage) {
		t.Error("want no_recent_usage advisory")
	}
	if !hasCode(analysis.Recommendations, CodeNoMinStock) {
		t.Error("want no_min_stock advisory for zero minimum")
	}
	if !analysis.Overstocked {
		t.Error("stock on hand with no configured minimum should carry the overstock flag")
	}
}

func TestAnalyzeOne_LowTurnoverFlagsOverstock(t *testing.T) {
	a := newTestAnalyzer(1)

	// 0.1/day against 200 on hand: turnover well under 2
	txs := []domain.StockTransaction{tx("salt", domain.KindUsage, 3, nil, 10)}
	analysis, err := a.AnalyzeOne(ing("salt", 200, 10, 100), txs)
	if err != nil {
		t.Fatalf("AnalyzeOne: %v", err)
	}
	if !hasCode(analysis.Recommendations, CodePossibleOverstock) {
		t.Errorf("turnover %.2f should flag possible_overstock", analysis.TurnoverRatio)
	}
}

func TestAnalyze_GroupsLedgerPerIngredient(t *testing.T) {
	a := newTestAnalyzer(4)

	ingredients := []domain.Ingredient{
		ing("flour", 10, 5, 1000),
		ing("sugar", 3, 10, 500),
		ing("cocoa", 0, 4, 2500),
	}
	txs := []domain.StockTransaction{
		tx("flour", domain.KindPurchase, 10, ptr(950), 12),
		tx("sugar", domain.KindUsage, 9, nil, 6),
		tx("flour", domain.KindUsage, 6, nil, 3),
	}

	results, err := a.Analyze(context.Background(), ingredients, txs)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	// results keep input order
	if results[0].Ingredient.ID != "flour" || results[2].Ingredient.ID != "cocoa" {
		t.Errorf("result order does not follow input order: %s, %s", results[0].Ingredient.ID, results[2].Ingredient.ID)
	}
	if results[0].UsageRate != 0.2 {
		t.Errorf("flour usage = %v, want 6/30", results[0].UsageRate)
	}
	if results[2].AlertLevel != alert.LevelCritical {
		t.Errorf("out-of-stock cocoa = %s, want critical", results[2].AlertLevel)
	}
}

func TestAnalyze_UnknownIngredientFailsTheRun(t *testing.T) {
	a := newTestAnalyzer(2)

	_, err := a.Analyze(context.Background(),
		[]domain.Ingredient{ing("flour", 10, 5, 1000)},
		[]domain.StockTransaction{tx("butter", domain.KindUsage, 2, nil, 1)},
	)

	var inv *domain.InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("error = %v, want InvariantError", err)
	}
	if inv.Reason != domain.ReasonUnknownIngredient {
		t.Errorf("reason = %s, want %s", inv.Reason, domain.ReasonUnknownIngredient)
	}
}

// Parallel and serial runs must agree exactly: tasks share no state.
func TestAnalyze_ParallelMatchesSerial(t *testing.T) {
	ingredients := make([]domain.Ingredient, 0, 16)
	var txs []domain.StockTransaction
	for i := 0; i < 16; i++ {
		id := string(rune('a' + i))
		ingredients = append(ingredients, ing(id, float64(i*3), float64(i), float64(100*(i+1))))
		txs = append(txs,
			tx(id, domain.KindPurchase, float64(5+i), ptr(float64(90+i)), 20),
			tx(id, domain.KindUsage, float64(i), nil, 5),
		)
	}

	serial, err := newTestAnalyzer(1).Analyze(context.Background(), ingredients, txs)
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	parallel, err := newTestAnalyzer(8).Analyze(context.Background(), ingredients, txs)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}

	if !reflect.DeepEqual(serial, parallel) {
		t.Error("parallel run diverged from serial run")
	}
}

func TestAnalyze_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAnalyzer(2).Analyze(ctx, []domain.Ingredient{ing("flour", 10, 5, 1000)}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
