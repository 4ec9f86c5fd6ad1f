package pricing

import (
	"testing"
	"time"

	"github.com/pawonlab/stockwise/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func ingredient(stock, minStock, listPrice float64) domain.Ingredient {
	return domain.Ingredient{
		ID:           "ing-1",
		Name:         "Coklat Bubuk",
		Unit:         "kg",
		CurrentStock: stock,
		MinStock:     minStock,
		PricePerUnit: listPrice,
	}
}

func purchase(qty, price float64, offsetHours int) domain.StockTransaction {
	return domain.StockTransaction{
		ID:           "tx",
		IngredientID: "ing-1",
		Kind:         domain.KindPurchase,
		Quantity:     qty,
		UnitPrice:    ptr(price),
		CreatedAt:    baseTime.Add(time.Duration(offsetHours) * time.Hour),
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

func TestComputeVolatility(t *testing.T) {
	cases := []struct {
		name            string
		prices          []float64
		wantMean        float64
		wantStdDev      float64
		wantCoefficient float64
	}{
		{"empty", nil, 0, 0, 0},
		{"single sample has no spread", []float64{120}, 120, 0, 0},
		{"steady prices", []float64{100, 100, 100}, 100, 0, 0},
		{"two samples", []float64{100, 200}, 150, 50, 0.3333},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := ComputeVolatility(tc.prices)
			if v.Mean != tc.wantMean || v.StdDev != tc.wantStdDev || v.Coefficient != tc.wantCoefficient {
				t.Errorf("got %+v, want mean=%v stddev=%v cv=%v", v, tc.wantMean, tc.wantStdDev, tc.wantCoefficient)
			}
		})
	}
}

func TestCompute_RecommendsMovingAverageForHPP(t *testing.T) {
	ing := ingredient(15, 5, 1000)
	txs := []domain.StockTransaction{
		purchase(10, 100, 0),
		purchase(10, 200, 1),
	}

	in, err := Compute(ing, txs)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if in.RecommendedPriceForHPP != in.MovingAveragePrice {
		t.Errorf("recommended HPP price = %v, want moving average %v", in.RecommendedPriceForHPP, in.MovingAveragePrice)
	}
	if in.WeightedAveragePrice != 150 {
		t.Errorf("weighted = %v, want 150", in.WeightedAveragePrice)
	}
	if in.LatestPurchasePrice != 200 {
		t.Errorf("latest = %v, want 200", in.LatestPurchasePrice)
	}
}

func TestCompute_VolatilePriceAdvisory(t *testing.T) {
	ing := ingredient(10, 5, 1000)
	txs := []domain.StockTransaction{
		purchase(10, 100, 0),
		purchase(10, 300, 1), // cv well above 0.15
	}

	in, err := Compute(ing, txs)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !hasCode(in.Recommendations, CodeVolatilePrice) {
		t.Errorf("want %s advisory, got %+v", CodeVolatilePrice, in.Recommendations)
	}
}

func TestCompute_StaleListPriceAdvisory(t *testing.T) {
	ing := ingredient(10, 5, 100)
	txs := []domain.StockTransaction{
		purchase(10, 120, 0), // weighted 120 > 100*1.10
	}

	in, err := Compute(ing, txs)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !hasCode(in.Recommendations, CodeListPriceStale) {
		t.Errorf("want %s advisory, got %+v", CodeListPriceStale, in.Recommendations)
	}
}

func TestCompute_MethodDivergenceAdvisory(t *testing.T) {
	// FIFO values remaining stock against the old cheap layer while the moving
	// average blends in the expensive restock.
	ing := ingredient(5, 5, 100)
	txs := []domain.StockTransaction{
		purchase(5, 100, 0),
		purchase(5, 300, 1),
	}

	in, err := Compute(ing, txs)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !hasCode(in.Recommendations, CodeMethodDivergence) {
		t.Errorf("want %s advisory, got %+v", CodeMethodDivergence, in.Recommendations)
	}
}

func TestCompute_DataQualityAdvisories(t *testing.T) {
	ing := ingredient(10, 5, 100)
	unpriced := domain.StockTransaction{
		ID: "tx", IngredientID: "ing-1", Kind: domain.KindPurchase,
		Quantity: 5, CreatedAt: baseTime,
	}
	txs := []domain.StockTransaction{
		unpriced,
		purchase(5, -10, 1),
		purchase(5, 100, 2),
	}

	in, err := Compute(ing, txs)
	if err != nil {
		t.Fatalf("Compute: data-quality issues must not error: %v", err)
	}
	if !hasCode(in.Recommendations, CodeMissingUnitPrice) {
		t.Errorf("want %s advisory", CodeMissingUnitPrice)
	}
	if !hasCode(in.Recommendations, CodeNonPositivePrice) {
		t.Errorf("want %s advisory", CodeNonPositivePrice)
	}
}

func TestCompute_EmptyLedger(t *testing.T) {
	ing := ingredient(3, 5, 800)
	in, err := Compute(ing, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if in.WeightedAveragePrice != 800 || in.FIFOAveragePrice != 800 ||
		in.MovingAveragePrice != 800 || in.LatestPurchasePrice != 800 {
		t.Errorf("all methods should fall back to list price, got %+v", in)
	}
	if in.StockValue.Weighted != 0 || in.StockValue.FIFO != 0 {
		t.Errorf("derived stock values should be zero with no purchases, got %+v", in.StockValue)
	}
}
