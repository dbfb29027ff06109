package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	fallbackMinFactor = decimal.RequireFromString("0.5")
	fallbackMaxFactor = decimal.RequireFromString("2.0")
)

// CategoryPriceStats describes the price distribution of one category.
type CategoryPriceStats struct {
	Category     string          `json:"category,omitempty"`
	Count        int             `json:"count"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	MinPrice     decimal.Decimal `json:"min_price"`
	MaxPrice     decimal.Decimal `json:"max_price"`
	MedianPrice  decimal.Decimal `json:"median_price"`
	StdDeviation decimal.Decimal `json:"std_deviation"`
	Percentile25 decimal.Decimal `json:"percentile_25"`
	Percentile75 decimal.Decimal `json:"percentile_75"`
	SweetSpotMin decimal.Decimal `json:"sweet_spot_min"`
	SweetSpotMax decimal.Decimal `json:"sweet_spot_max"`
}

// SummarizePrices computes distribution statistics over the strictly positive prices.
// Missing and zero prices are ignored; with none left the zero value is returned.
func SummarizePrices(prices []decimal.Decimal) CategoryPriceStats {
	sorted := make([]decimal.Decimal, 0, len(prices))
	for _, p := range prices {
		if p.IsPositive() {
			sorted = append(sorted, p)
		}
	}
	if len(sorted) == 0 {
		return CategoryPriceStats{}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	n := len(sorted)
	count := decimal.NewFromInt(int64(n))

	sum := decimal.Sum(sorted[0], sorted[1:]...)
	avg := sum.DivRound(count, moneyPlaces)

	var median decimal.Decimal
	if n%2 == 0 {
		median = sorted[n/2-1].Add(sorted[n/2]).DivRound(two, moneyPlaces)
	} else {
		median = sorted[n/2]
	}

	squares := decimal.Zero
	for _, p := range sorted {
		d := p.Sub(avg)
		squares = squares.Add(d.Mul(d))
	}
	variance := squares.DivRound(count, ratioPlaces)
	stdDev := decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64())).Round(moneyPlaces)

	lo, hi := sorted[0], sorted[n-1]
	span := hi.Sub(lo)

	return CategoryPriceStats{
		Count:        n,
		AvgPrice:     avg,
		MinPrice:     lo,
		MaxPrice:     hi,
		MedianPrice:  median,
		StdDeviation: stdDev,
		Percentile25: sorted[n/4],
		Percentile75: sorted[n*3/4],
		SweetSpotMin: lo.Add(zoneLow.Mul(span)),
		SweetSpotMax: lo.Add(zoneHigh.Mul(span)),
	}
}

// ContextFor builds a PriceContext for a product from its category statistics. When the
// category has no usable prices the range falls back to half and double the current price
// and the average to the current price.
func ContextFor(current decimal.Decimal, stats CategoryPriceStats) PriceContext {
	c := PriceContext{
		CurrentPrice:     current,
		CategoryMinPrice: stats.MinPrice,
		CategoryMaxPrice: stats.MaxPrice,
		CategoryAvgPrice: stats.AvgPrice,
	}
	if c.CategoryMinPrice.IsZero() {
		c.CategoryMinPrice = current.Mul(fallbackMinFactor)
	}
	if c.CategoryMaxPrice.IsZero() {
		c.CategoryMaxPrice = current.Mul(fallbackMaxFactor)
	}
	if c.CategoryAvgPrice.IsZero() {
		c.CategoryAvgPrice = current
	}
	return c
}
