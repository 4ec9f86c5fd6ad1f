package costing

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/pawonlab/stockwise/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func ingredient(stock, minStock, listPrice float64) domain.Ingredient {
	return domain.Ingredient{
		ID:           "ing-1",
		Name:         "Tepung Terigu",
		Unit:         "kg",
		CurrentStock: stock,
		MinStock:     minStock,
		PricePerUnit: listPrice,
	}
}

func tx(kind domain.TransactionKind, qty float64, price *float64, offsetHours int) domain.StockTransaction {
	return domain.StockTransaction{
		ID:           "tx",
		IngredientID: "ing-1",
		Kind:         kind,
		Quantity:     qty,
		UnitPrice:    price,
		CreatedAt:    baseTime.Add(time.Duration(offsetHours) * time.Hour),
	}
}

func TestWeightedAverage_NoPurchasesFallsBackToListPrice(t *testing.T) {
	ing := ingredient(5, 2, 1200)
	txs := []domain.StockTransaction{
		tx(domain.KindUsage, 3, nil, 0),
	}

	res, err := WeightedAverage(ing, txs)
	if err != nil {
		t.Fatalf("WeightedAverage: %v", err)
	}
	if res.Price != 1200 {
		t.Errorf("price = %v, want list price 1200", res.Price)
	}
	if res.TotalQuantity != 0 || res.TotalValue != 0 {
		t.Errorf("derived quantity/value = %v/%v, want zero", res.TotalQuantity, res.TotalValue)
	}
}

func TestWeightedAverage_RatioOfSums(t *testing.T) {
	ing := ingredient(10, 5, 1000)
	txs := []domain.StockTransaction{
		tx(domain.KindPurchase, 10, ptr(100), 0),
		tx(domain.KindPurchase, 30, ptr(200), 1),
	}

	res, err := WeightedAverage(ing, txs)
	if err != nil {
		t.Fatalf("WeightedAverage: %v", err)
	}
	// (10*100 + 30*200) / 40 = 175
	if res.Price != 175 {
		t.Errorf("price = %v, want 175", res.Price)
	}
	if res.TotalQuantity != 40 || res.TotalValue != 7000 {
		t.Errorf("totals = %v/%v, want 40/7000", res.TotalQuantity, res.TotalValue)
	}
	if len(res.PurchaseHistory) != 2 {
		t.Errorf("history length = %d, want 2", len(res.PurchaseHistory))
	}
}

func TestWeightedAverage_SkipsUnpricedAndZeroQuantityPurchases(t *testing.T) {
	ing := ingredient(10, 5, 1000)
	txs := []domain.StockTransaction{
		tx(domain.KindPurchase, 10, ptr(100), 0),
		tx(domain.KindPurchase, 5, nil, 1),
		tx(domain.KindPurchase, 0, ptr(500), 2),
	}

	res, err := WeightedAverage(ing, txs)
	if err != nil {
		t.Fatalf("WeightedAverage: %v", err)
	}
	if res.Price != 100 || res.TotalQuantity != 10 {
		t.Errorf("got price=%v qty=%v, want 100/10", res.Price, res.TotalQuantity)
	}
}

func TestFIFOValue_LayerConsumption(t *testing.T) {
	ing := ingredient(7, 2, 1000)
	txs := []domain.StockTransaction{
		tx(domain.KindPurchase, 5, ptr(100), 0),
		tx(domain.KindPurchase, 5, ptr(200), 1),
	}

	res, err := FIFOValue(ing, txs)
	if err != nil {
		t.Fatalf("FIFOValue: %v", err)
	}

	if len(res.Layers) != 2 {
		t.Fatalf("layers = %d, want 2", len(res.Layers))
	}
	if res.Layers[0].Quantity != 5 || res.Layers[0].UnitPrice != 100 {
		t.Errorf("layer 0 = %+v, want 5@100", res.Layers[0])
	}
	if res.Layers[1].Quantity != 2 || res.Layers[1].UnitPrice != 200 {
		t.Errorf("layer 1 = %+v, want 2@200", res.Layers[1])
	}
	if res.StockValue != 900 {
		t.Errorf("stock value = %v, want 900", res.StockValue)
	}
	if res.AverageCostPerUnit != 128.57 {
		t.Errorf("average cost = %v, want 128.57", res.AverageCostPerUnit)
	}
}

func TestFIFOValue_StockPredatingLedgerIsUncovered(t *testing.T) {
	ing := ingredient(20, 2, 1000)
	txs := []domain.StockTransaction{
		tx(domain.KindPurchase, 5, ptr(100), 0),
	}

	res, err := FIFOValue(ing, txs)
	if err != nil {
		t.Fatalf("FIFOValue: %v", err)
	}
	if res.StockValue != 500 {
		t.Errorf("stock value = %v, want 500 (uncovered remainder excluded)", res.StockValue)
	}
	if res.Uncovered != 15 {
		t.Errorf("uncovered = %v, want 15", res.Uncovered)
	}
}

func TestFIFOValue_EmptyLedgerFallsBackToListPrice(t *testing.T) {
	res, err := FIFOValue(ingredient(10, 2, 1000), nil)
	if err != nil {
		t.Fatalf("FIFOValue: %v", err)
	}
	if res.StockValue != 0 || len(res.Layers) != 0 {
		t.Errorf("got %+v, want no layers and zero stock value", res)
	}
	if res.AverageCostPerUnit != 1000 {
		t.Errorf("average cost = %v, want list price 1000", res.AverageCostPerUnit)
	}
}

func TestMovingAverage_OrderSensitiveReplay(t *testing.T) {
	ing := ingredient(15, 2, 1000)
	txs := []domain.StockTransaction{
		tx(domain.KindPurchase, 10, ptr(100), 0),
		tx(domain.KindUsage, 5, nil, 1),
		tx(domain.KindPurchase, 10, ptr(200), 2),
	}

	res, err := MovingAverage(ing, txs)
	if err != nil {
		t.Fatalf("MovingAverage: %v", err)
	}
	// (5*100 + 10*200) / 15 = 166.666... rounded at the end
	if res.AveragePrice != 166.67 {
		t.Errorf("average = %v, want 166.67", res.AveragePrice)
	}
}

func TestMovingAverage_UsageNeverMovesTheAverage(t *testing.T) {
	ing := ingredient(4, 2, 1000)
	txs := []domain.StockTransaction{
		tx(domain.KindPurchase, 10, ptr(150), 0),
		tx(domain.KindUsage, 6, nil, 1),
	}

	res, err := MovingAverage(ing, txs)
	if err != nil {
		t.Fatalf("MovingAverage: %v", err)
	}
	if res.AveragePrice != 150 {
		t.Errorf("average = %v, want 150 (outflows must not move it)", res.AveragePrice)
	}
	last := res.History[len(res.History)-1]
	if last.RunningQuantity != 4 || last.RunningValue != 600 {
		t.Errorf("running state = %v/%v, want 4/600", last.RunningQuantity, last.RunningValue)
	}
}

func TestMovingAverage_AdjustmentDeltaAndRecount(t *testing.T) {
	ing := ingredient(12, 2, 1000)
	txs := []domain.StockTransaction{
		tx(domain.KindPurchase, 10, ptr(100), 0),
		// audit found 2 extra units: inbound delta at current average
		tx(domain.KindAdjustment, 2, nil, 1),
		// full recount snaps the running quantity
		tx(domain.KindRecount, 8, nil, 2),
	}

	res, err := MovingAverage(ing, txs)
	if err != nil {
		t.Fatalf("MovingAverage: %v", err)
	}
	if res.AveragePrice != 100 {
		t.Errorf("average = %v, want 100 (neither adjustment nor recount reprices)", res.AveragePrice)
	}
	last := res.History[len(res.History)-1]
	if last.RunningQuantity != 8 || last.RunningValue != 800 {
		t.Errorf("running state = %v/%v, want 8/800", last.RunningQuantity, last.RunningValue)
	}
}

func TestMovingAverage_EmptyLedgerUsesListPrice(t *testing.T) {
	ing := ingredient(3, 2, 750)
	res, err := MovingAverage(ing, nil)
	if err != nil {
		t.Fatalf("MovingAverage: %v", err)
	}
	if res.AveragePrice != 750 {
		t.Errorf("average = %v, want list price 750", res.AveragePrice)
	}
	if res.StockValue != 2250 {
		t.Errorf("stock value = %v, want 2250", res.StockValue)
	}
}

func TestLatestPrice(t *testing.T) {
	ing := ingredient(10, 2, 1000)

	cases := []struct {
		name string
		txs  []domain.StockTransaction
		want float64
	}{
		{"no purchases", []domain.StockTransaction{tx(domain.KindUsage, 2, nil, 0)}, 1000},
		{"single purchase", []domain.StockTransaction{tx(domain.KindPurchase, 5, ptr(880), 0)}, 880},
		{
			"latest priced purchase wins",
			[]domain.StockTransaction{
				tx(domain.KindPurchase, 5, ptr(880), 0),
				tx(domain.KindPurchase, 5, ptr(910), 1),
				tx(domain.KindPurchase, 5, nil, 2),
			},
			910,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LatestPrice(ing, tc.txs)
			if err != nil {
				t.Fatalf("LatestPrice: %v", err)
			}
			if got != tc.want {
				t.Errorf("price = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCosting_RejectsUnorderedLedger(t *testing.T) {
	ing := ingredient(10, 2, 1000)
	txs := []domain.StockTransaction{
		tx(domain.KindPurchase, 5, ptr(100), 5),
		tx(domain.KindPurchase, 5, ptr(200), 1),
	}

	_, err := MovingAverage(ing, txs)
	var inv *domain.InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("error = %v, want InvariantError", err)
	}
	if inv.Reason != domain.ReasonUnorderedLedger {
		t.Errorf("reason = %s, want %s", inv.Reason, domain.ReasonUnorderedLedger)
	}
}

func TestCosting_RejectsForeignIngredientRecord(t *testing.T) {
	ing := ingredient(10, 2, 1000)
	bad := tx(domain.KindPurchase, 5, ptr(100), 0)
	bad.IngredientID = "ing-other"

	_, err := WeightedAverage(ing, []domain.StockTransaction{bad})
	var inv *domain.InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("error = %v, want InvariantError", err)
	}
	if inv.Reason != domain.ReasonUnknownIngredient {
		t.Errorf("reason = %s, want %s", inv.Reason, domain.ReasonUnknownIngredient)
	}
}

func TestCosting_RejectsNegativeMagnitude(t *testing.T) {
	ing := ingredient(10, 2, 1000)
	_, err := FIFOValue(ing, []domain.StockTransaction{tx(domain.KindUsage, -3, nil, 0)})

	var inv *domain.InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("error = %v, want InvariantError", err)
	}
	if inv.Reason != domain.ReasonNegativeQuantity {
		t.Errorf("reason = %s, want %s", inv.Reason, domain.ReasonNegativeQuantity)
	}
}

// All four models over identical inputs must return bit-identical results on
// every call, across randomized time-sorted ledgers.
func TestCosting_PureAndIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	kinds := []domain.TransactionKind{
		domain.KindPurchase, domain.KindUsage, domain.KindWaste, domain.KindExpired,
	}

	for trial := 0; trial < 25; trial++ {
		ing := ingredient(float64(rng.Intn(50)), float64(rng.Intn(10)), float64(100+rng.Intn(900)))

		n := rng.Intn(20)
		txs := make([]domain.StockTransaction, 0, n)
		for i := 0; i < n; i++ {
			kind := kinds[rng.Intn(len(kinds))]
			entry := tx(kind, float64(1+rng.Intn(20)), nil, i)
			if kind == domain.KindPurchase && rng.Intn(4) > 0 {
				entry.UnitPrice = ptr(float64(50 + rng.Intn(500)))
			}
			txs = append(txs, entry)
		}

		w1, err1 := WeightedAverage(ing, txs)
		w2, _ := WeightedAverage(ing, txs)
		f1, _ := FIFOValue(ing, txs)
		f2, _ := FIFOValue(ing, txs)
		m1, _ := MovingAverage(ing, txs)
		m2, _ := MovingAverage(ing, txs)
		l1, _ := LatestPrice(ing, txs)
		l2, _ := LatestPrice(ing, txs)

		if err1 != nil {
			t.Fatalf("trial %d: %v", trial, err1)
		}
		if !reflect.DeepEqual(w1, w2) || !reflect.DeepEqual(f1, f2) || !reflect.DeepEqual(m1, m2) || l1 != l2 {
			t.Fatalf("trial %d: repeated call diverged", trial)
		}
	}
}

// End-to-end sanity from the purchasing workflow: the mutable currentStock
// scalar and the ledger-derived average are independent inputs to valuation.
func TestCosting_StockScalarIndependentOfLedgerAverage(t *testing.T) {
	ing := ingredient(2, 10, 1000)
	txs := []domain.StockTransaction{
		tx(domain.KindPurchase, 20, ptr(900), 0),
	}

	w, err := WeightedAverage(ing, txs)
	if err != nil {
		t.Fatalf("WeightedAverage: %v", err)
	}
	if w.Price != 900 {
		t.Errorf("weighted = %v, want 900", w.Price)
	}

	m, err := MovingAverage(ing, txs)
	if err != nil {
		t.Fatalf("MovingAverage: %v", err)
	}
	if m.StockValue != 1800 {
		t.Errorf("stock value = %v, want currentStock(2) x 900 = 1800", m.StockValue)
	}
}

func TestApplyMethod(t *testing.T) {
	ing := ingredient(7, 5, 1000)
	txs := []domain.StockTransaction{
		tx(domain.KindPurchase, 5, ptr(100), 0),
		tx(domain.KindPurchase, 5, ptr(200), 1),
	}

	tests := []struct {
		tag  string
		want float64
	}{
		{"weighted", 150},
		{"fifo", 128.57},
		{"moving", 150},
		{"latest", 200},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			method, ok := ParseMethod(tt.tag)
			if !ok {
				t.Fatalf("ParseMethod(%q) rejected a valid tag", tt.tag)
			}
			got, err := ApplyMethod(ing, txs, method)
			if err != nil {
				t.Fatalf("ApplyMethod: %v", err)
			}
			if got != tt.want {
				t.Errorf("ApplyMethod(%s) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}

	if _, ok := ParseMethod("lifo"); ok {
		t.Error("ParseMethod accepted an unknown tag")
	}
}

// With no purchases on record every method must resolve to the list price.
func TestApplyMethod_EmptyLedgerFallsBackToListPrice(t *testing.T) {
	ing := ingredient(10, 5, 1000)

	for _, tag := range []string{"weighted", "fifo", "moving", "latest"} {
		method, _ := ParseMethod(tag)
		got, err := ApplyMethod(ing, nil, method)
		if err != nil {
			t.Fatalf("ApplyMethod(%s): %v", tag, err)
		}
		if got != 1000 {
			t.Errorf("ApplyMethod(%s) = %v, want list price 1000", tag, got)
		}
	}
}
