package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
)

func decimals(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = d(v)
	}
	return out
}

func TestSummarizePrices(t *testing.T) {
	stats := SummarizePrices(decimals("40", "0", "10", "30", "20", "-5"))

	if stats.Count != 4 {
		t.Fatalf("Count = %d, want 4", stats.Count)
	}
	assertDecimal(t, "AvgPrice", stats.AvgPrice, "25")
	assertDecimal(t, "MinPrice", stats.MinPrice, "10")
	assertDecimal(t, "MaxPrice", stats.MaxPrice, "40")
	assertDecimal(t, "MedianPrice", stats.MedianPrice, "25")
	// population variance 125
	assertDecimal(t, "StdDeviation", stats.StdDeviation, "11.18")
	assertDecimal(t, "Percentile25", stats.Percentile25, "20")
	assertDecimal(t, "Percentile75", stats.Percentile75, "40")
	assertDecimal(t, "SweetSpotMin", stats.SweetSpotMin, "22")
	assertDecimal(t, "SweetSpotMax", stats.SweetSpotMax, "28")
}

func TestSummarizePrices_OddCount(t *testing.T) {
	stats := SummarizePrices(decimals("9.99", "19.99", "14.50"))
	assertDecimal(t, "MedianPrice", stats.MedianPrice, "14.50")
	// 44.48 / 3 = 14.8266...
	assertDecimal(t, "AvgPrice", stats.AvgPrice, "14.83")
}

func TestSummarizePrices_NoUsablePrices(t *testing.T) {
	stats := SummarizePrices(decimals("0", "-1"))
	if stats.Count != 0 {
		t.Errorf("Count = %d, want 0", stats.Count)
	}
	if !stats.MinPrice.IsZero() || !stats.MaxPrice.IsZero() {
		t.Errorf("expected zero range, got [%s, %s]", stats.MinPrice, stats.MaxPrice)
	}
}

func TestContextFor(t *testing.T) {
	t.Run("category prices", func(t *testing.T) {
		ctx := ContextFor(d("12"), SummarizePrices(decimals("10", "20")))
		assertDecimal(t, "CategoryMinPrice", ctx.CategoryMinPrice, "10")
		assertDecimal(t, "CategoryMaxPrice", ctx.CategoryMaxPrice, "20")
		assertDecimal(t, "CategoryAvgPrice", ctx.CategoryAvgPrice, "15")
	})

	t.Run("fallback range", func(t *testing.T) {
		ctx := ContextFor(d("20"), CategoryPriceStats{})
		assertDecimal(t, "CategoryMinPrice", ctx.CategoryMinPrice, "10")
		assertDecimal(t, "CategoryMaxPrice", ctx.CategoryMaxPrice, "40")
		assertDecimal(t, "CategoryAvgPrice", ctx.CategoryAvgPrice, "20")

		res, err := ComputePrice(ctx)
		if err != nil {
			t.Fatalf("ComputePrice: %v", err)
		}
		// zone 22..28, midpoint 25
		assertDecimal(t, "RecommendedPrice", res.RecommendedPrice, "25")
	})
}
