package analytics

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func priceCtx(current, lo, hi string) PriceContext {
	return PriceContext{
		CurrentPrice:     d(current),
		CategoryMinPrice: d(lo),
		CategoryMaxPrice: d(hi),
		CategoryAvgPrice: d(lo).Add(d(hi)).Div(two),
	}
}

func assertDecimal(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s = %s, want %s", field, got, want)
	}
}

func TestComputePrice_MidCategory(t *testing.T) {
	res, err := ComputePrice(priceCtx("50", "0", "100"))
	if err != nil {
		t.Fatalf("ComputePrice: %v", err)
	}

	assertDecimal(t, "SuggestedRangeMin", res.SuggestedRangeMin, "40")
	assertDecimal(t, "SuggestedRangeMax", res.SuggestedRangeMax, "60")
	assertDecimal(t, "RecommendedPrice", res.RecommendedPrice, "50.00")
	assertDecimal(t, "PriceDifference", res.PriceDifference, "0.00")
	if got := res.PriceChangePercentage.StringFixed(4); got != "0.0000" {
		t.Errorf("PriceChangePercentage = %s, want 0.0000", got)
	}
	if got := res.PricePercentile.StringFixed(4); got != "50.0000" {
		t.Errorf("PricePercentile = %s, want 50.0000", got)
	}
	if res.PriceAction != PriceMaintain {
		t.Errorf("PriceAction = %s, want MAINTAIN", res.PriceAction)
	}
	// 50 is not below 50, so it lands in the <75 band.
	if res.Positioning != PositioningMidRange {
		t.Errorf("Positioning = %s, want MID_RANGE", res.Positioning)
	}
	if res.ShouldNotifySeller {
		t.Error("ShouldNotifySeller = true, want false")
	}
	if res.ActionDescription != "Prix optimal - maintenir" {
		t.Errorf("ActionDescription = %q", res.ActionDescription)
	}
	assertDecimal(t, "Confidence", res.Confidence, "0.85")
	if res.AnalysisMethod != "STATISTICAL" {
		t.Errorf("AnalysisMethod = %s, want STATISTICAL", res.AnalysisMethod)
	}
	if res.Advisory != AdvisoryNote || res.Advisory == "" {
		t.Error("advisory note missing from result")
	}
}

func TestComputePrice_ZeroCurrentPrice(t *testing.T) {
	res, err := ComputePrice(priceCtx("0", "10", "20"))
	if err != nil {
		t.Fatalf("ComputePrice: %v", err)
	}
	assertDecimal(t, "PriceChangePercentage", res.PriceChangePercentage, "0")
	assertDecimal(t, "RecommendedPrice", res.RecommendedPrice, "15")
	assertDecimal(t, "PriceDifference", res.PriceDifference, "15")
	// Below the category minimum the percentile goes negative and is kept as-is.
	if got := res.PricePercentile.StringFixed(4); got != "-100.0000" {
		t.Errorf("PricePercentile = %s, want -100.0000", got)
	}
	if res.Positioning != PositioningBudget {
		t.Errorf("Positioning = %s, want BUDGET", res.Positioning)
	}
	if res.PriceAction != PriceMaintain {
		t.Errorf("PriceAction = %s, want MAINTAIN", res.PriceAction)
	}
	if res.ShouldNotifySeller {
		t.Error("ShouldNotifySeller = true, want false")
	}
}

func TestComputePrice_AbovePriceRange(t *testing.T) {
	res, err := ComputePrice(priceCtx("200", "0", "100"))
	if err != nil {
		t.Fatalf("ComputePrice: %v", err)
	}
	assertDecimal(t, "PriceChangePercentage", res.PriceChangePercentage, "-75")
	assertDecimal(t, "PricePercentile", res.PricePercentile, "200")
	if res.Positioning != PositioningLuxury {
		t.Errorf("Positioning = %s, want LUXURY", res.Positioning)
	}
	if res.PriceAction != PriceDecrease {
		t.Errorf("PriceAction = %s, want DECREASE", res.PriceAction)
	}
	if !res.ShouldNotifySeller {
		t.Error("ShouldNotifySeller = false, want true")
	}
	if res.ActionDescription != "Réduire de 75.0% (stimuler ventes)" {
		t.Errorf("ActionDescription = %q", res.ActionDescription)
	}
}

func TestComputePrice_SinglePriceCategory(t *testing.T) {
	res, err := ComputePrice(priceCtx("30", "30", "30"))
	if err != nil {
		t.Fatalf("ComputePrice: %v", err)
	}
	assertDecimal(t, "PricePercentile", res.PricePercentile, "50")
	assertDecimal(t, "RecommendedPrice", res.RecommendedPrice, "30")
	if res.Positioning != PositioningMidRange {
		t.Errorf("Positioning = %s, want MID_RANGE", res.Positioning)
	}
}

func TestComputePrice_Errors(t *testing.T) {
	tests := []struct {
		name    string
		ctx     PriceContext
		wantErr error
	}{
		{"max below min", priceCtx("10", "20", "10"), ErrInvalidRange},
		{"negative current price", priceCtx("-1", "0", "10"), ErrNegativePrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputePrice(tt.ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ComputePrice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestComputePrice_ActionThresholds(t *testing.T) {
	tests := []struct {
		name       string
		ctx        PriceContext
		wantPct    string
		wantAction PriceAction
		wantNotify bool
		wantDesc   string
	}{
		// recommended 105 against 100 is exactly +5%, which is outside the maintain band
		{"exactly five percent", priceCtx("100", "0", "210"), "5.0000", PriceIncrease, false, "Augmenter de 5.0%"},
		{"exactly fifteen percent", priceCtx("100", "0", "230"), "15.0000", PriceIncrease, false, "Augmenter de 15.0%"},
		{"above fifteen percent", priceCtx("100", "0", "232"), "16.0000", PriceIncrease, true, "Augmenter de 16.0% (forte demande)"},
		{"small decrease", priceCtx("100", "0", "180"), "-10.0000", PriceDecrease, false, "Réduire de 10.0%"},
		{"within band", priceCtx("100", "0", "206"), "3.0000", PriceMaintain, false, "Prix optimal - maintenir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ComputePrice(tt.ctx)
			if err != nil {
				t.Fatalf("ComputePrice: %v", err)
			}
			if got := res.PriceChangePercentage.StringFixed(4); got != tt.wantPct {
				t.Errorf("PriceChangePercentage = %s, want %s", got, tt.wantPct)
			}
			if res.PriceAction != tt.wantAction {
				t.Errorf("PriceAction = %s, want %s", res.PriceAction, tt.wantAction)
			}
			if res.ShouldNotifySeller != tt.wantNotify {
				t.Errorf("ShouldNotifySeller = %v, want %v", res.ShouldNotifySeller, tt.wantNotify)
			}
			if res.ActionDescription != tt.wantDesc {
				t.Errorf("ActionDescription = %q, want %q", res.ActionDescription, tt.wantDesc)
			}
		})
	}
}

func TestComputePrice_RoundsHalfUp(t *testing.T) {
	tests := []struct {
		name           string
		ctx            PriceContext
		wantRecommend  string
		wantPct        string
		wantPercentile string
	}{
		// midpoint 0.005 rounds up to a full cent
		{"recommended price", priceCtx("0.01", "0", "0.01"), "0.01", "0.0000", "100.0000"},
		// +0.01 / 32 * 100 = 0.03125
		{"positive change", priceCtx("32", "0", "64.02"), "32.01", "0.0313", "49.9844"},
		// -0.01 / 32 * 100 = -0.03125 rounds away from zero
		{"negative change", priceCtx("32", "0", "63.98"), "31.99", "-0.0313", "50.0156"},
		// 0.01 / 32 * 100 = 0.03125
		{"percentile", priceCtx("0.01", "0", "32"), "16.00", "159900.0000", "0.0313"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ComputePrice(tt.ctx)
			if err != nil {
				t.Fatalf("ComputePrice: %v", err)
			}
			assertDecimal(t, "RecommendedPrice", res.RecommendedPrice, tt.wantRecommend)
			if got := res.PriceChangePercentage.StringFixed(4); got != tt.wantPct {
				t.Errorf("PriceChangePercentage = %s, want %s", got, tt.wantPct)
			}
			if got := res.PricePercentile.StringFixed(4); got != tt.wantPercentile {
				t.Errorf("PricePercentile = %s, want %s", got, tt.wantPercentile)
			}
		})
	}
}

func TestComputePrice_RecommendationInsideSuggestedRange(t *testing.T) {
	prices := []string{"0", "0.003", "0.01", "0.5", "1", "9.99", "10.005", "19.99", "99.95", "1234.567"}
	for _, lo := range prices {
		for _, hi := range prices {
			if d(hi).LessThan(d(lo)) {
				continue
			}
			res, err := ComputePrice(priceCtx("5", lo, hi))
			if err != nil {
				t.Fatalf("ComputePrice(%s, %s): %v", lo, hi, err)
			}
			if res.RecommendedPrice.LessThan(res.SuggestedRangeMin) || res.RecommendedPrice.GreaterThan(res.SuggestedRangeMax) {
				t.Errorf("[%s,%s]: recommended %s outside [%s, %s]",
					lo, hi, res.RecommendedPrice, res.SuggestedRangeMin, res.SuggestedRangeMax)
			}
		}
	}
}

func TestComputePrice_SuggestedRangeIsExact(t *testing.T) {
	tests := []struct {
		name          string
		lo, hi        string
		wantMin       string
		wantMax       string
		wantRecommend string
	}{
		{"off-cent range", "0", "10.01", "4.004", "6.006", "5.01"},
		{"off-cent minimum", "1.005", "2.005", "1.405", "1.605", "1.51"},
		{"sub-cent zone widened to recommendation", "0", "0.003", "0", "0.0018", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ComputePrice(priceCtx("10", tt.lo, tt.hi))
			if err != nil {
				t.Fatalf("ComputePrice: %v", err)
			}
			assertDecimal(t, "SuggestedRangeMin", res.SuggestedRangeMin, tt.wantMin)
			assertDecimal(t, "SuggestedRangeMax", res.SuggestedRangeMax, tt.wantMax)
			assertDecimal(t, "RecommendedPrice", res.RecommendedPrice, tt.wantRecommend)
		})
	}
}

func TestComputePrice_PercentileMonotonic(t *testing.T) {
	prev := decimal.NewFromInt(-1 << 30)
	for cents := int64(0); cents <= 30000; cents += 137 {
		current := decimal.New(cents, -2)
		res, err := ComputePrice(PriceContext{
			CurrentPrice:     current,
			CategoryMinPrice: d("12.50"),
			CategoryMaxPrice: d("249.99"),
		})
		if err != nil {
			t.Fatalf("ComputePrice(%s): %v", current, err)
		}
		if res.PricePercentile.LessThan(prev) {
			t.Fatalf("percentile decreased at %s: %s < %s", current, res.PricePercentile, prev)
		}
		prev = res.PricePercentile
	}
}

func TestComputePrice_Idempotent(t *testing.T) {
	ctx := priceCtx("47.31", "12.99", "89.50")
	first, err := ComputePrice(ctx)
	if err != nil {
		t.Fatalf("ComputePrice: %v", err)
	}
	second, err := ComputePrice(ctx)
	if err != nil {
		t.Fatalf("ComputePrice: %v", err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("results differ:\n%s\n%s", a, b)
	}
}

func TestPositionFor(t *testing.T) {
	tests := []struct {
		percentile string
		want       Positioning
	}{
		{"-100", PositioningBudget},
		{"0", PositioningBudget},
		{"24.9999", PositioningBudget},
		{"25", PositioningValue},
		{"49.9999", PositioningValue},
		{"50", PositioningMidRange},
		{"74.9999", PositioningMidRange},
		{"75", PositioningPremium},
		{"89.9999", PositioningPremium},
		{"90", PositioningLuxury},
		{"100", PositioningLuxury},
		{"250", PositioningLuxury},
	}
	for _, tt := range tests {
		t.Run(tt.percentile, func(t *testing.T) {
			if got := PositionFor(d(tt.percentile)); got != tt.want {
				t.Errorf("PositionFor(%s) = %s, want %s", tt.percentile, got, tt.want)
			}
		})
	}
}

func TestActionFor(t *testing.T) {
	tests := []struct {
		pct  string
		want PriceAction
	}{
		{"0", PriceMaintain},
		{"4.9999", PriceMaintain},
		{"-4.9999", PriceMaintain},
		{"5", PriceIncrease},
		{"-5", PriceDecrease},
		{"42.5", PriceIncrease},
		{"-80", PriceDecrease},
	}
	for _, tt := range tests {
		t.Run(tt.pct, func(t *testing.T) {
			if got := ActionFor(d(tt.pct)); got != tt.want {
				t.Errorf("ActionFor(%s) = %s, want %s", tt.pct, got, tt.want)
			}
		})
	}
}

func TestDescribe_RoundsToOneDecimal(t *testing.T) {
	if got := PriceIncrease.Describe(d("5.25")); got != "Augmenter de 5.3%" {
		t.Errorf("Describe(5.25) = %q", got)
	}
	if got := PriceDecrease.Describe(d("-7.35")); got != "Réduire de 7.4%" {
		t.Errorf("Describe(-7.35) = %q", got)
	}
}
