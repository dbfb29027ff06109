package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rewired-gh/merchscore/internal/analytics"
)

func TestPriceContextFromFlags(t *testing.T) {
	ctx, err := priceContextFromFlags("24.99", "10", "40", "")
	if err != nil {
		t.Fatalf("priceContextFromFlags: %v", err)
	}
	if ctx.CurrentPrice.String() != "24.99" || ctx.CategoryAvgPrice.String() != "24.99" {
		t.Errorf("unexpected context: %+v", ctx)
	}

	res, err := analytics.ComputePrice(ctx)
	if err != nil {
		t.Fatalf("ComputePrice: %v", err)
	}
	if res.RecommendedPrice.String() != "25" {
		t.Errorf("recommended = %s, want 25", res.RecommendedPrice)
	}
}

func TestPriceContextFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name                 string
		current, lo, hi, avg string
	}{
		{"bad current", "abc", "1", "2", ""},
		{"bad min", "1", "", "2", ""},
		{"bad avg", "1", "1", "2", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := priceContextFromFlags(tt.current, tt.lo, tt.hi, tt.avg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"merchscore"}, args...))
	return out.String(), err
}

func TestPriceCommand(t *testing.T) {
	out, err := runApp(t, "price", "--current", "10", "--min", "0", "--max", "10.01")
	if err != nil {
		t.Fatalf("price command: %v", err)
	}

	var res analytics.PriceIntelligenceResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not a price result: %v\n%s", err, out)
	}
	for _, c := range []struct {
		field string
		got   decimal.Decimal
		want  string
	}{
		{"recommended_price", res.RecommendedPrice, "5.01"},
		{"suggested_range_min", res.SuggestedRangeMin, "4.004"},
		{"suggested_range_max", res.SuggestedRangeMax, "6.006"},
		{"category_avg_price", res.CategoryAvgPrice, "10"},
	} {
		if !c.got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("%s = %s, want %s", c.field, c.got, c.want)
		}
	}
	if res.PriceAction != analytics.PriceDecrease {
		t.Errorf("price_action = %s, want DECREASE", res.PriceAction)
	}
	if res.Advisory != analytics.AdvisoryNote {
		t.Errorf("advisory = %q, want %q", res.Advisory, analytics.AdvisoryNote)
	}
}

func TestPriceCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing max", []string{"price", "--current", "10", "--min", "0"}},
		{"not a number", []string{"price", "--current", "ten", "--min", "0", "--max", "20"}},
		{"inverted range", []string{"price", "--current", "10", "--min", "20", "--max", "5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runApp(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}
