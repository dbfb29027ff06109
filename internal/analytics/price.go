package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AnalysisMethod labels price results as deterministic statistics rather than a model output.
const AnalysisMethod = "STATISTICAL"

// AdvisoryNote ships with every price result.
const AdvisoryNote = "Statistical analysis based on category price percentiles, not a machine learning prediction. " +
	"The recommended price targets the optimal zone between the 40th and 60th percentile of the category price range."

// PriceAction is the recommended move for a product's price.
type PriceAction string

const (
	PriceMaintain PriceAction = "MAINTAIN"
	PriceIncrease PriceAction = "INCREASE"
	PriceDecrease PriceAction = "DECREASE"
)

// Positioning is the category-relative price tier of a product.
type Positioning string

const (
	PositioningBudget   Positioning = "BUDGET"
	PositioningValue    Positioning = "VALUE"
	PositioningMidRange Positioning = "MID_RANGE"
	PositioningPremium  Positioning = "PREMIUM"
	PositioningLuxury   Positioning = "LUXURY"
)

// positioningBands is evaluated in order; the first band whose upper bound exceeds the
// percentile wins. Anything at or above the last bound is LUXURY.
var positioningBands = []struct {
	below decimal.Decimal
	tier  Positioning
}{
	{decimal.NewFromInt(25), PositioningBudget},
	{decimal.NewFromInt(50), PositioningValue},
	{decimal.NewFromInt(75), PositioningMidRange},
	{decimal.NewFromInt(90), PositioningPremium},
}

// PositionFor maps a percentile to its positioning tier. Percentiles outside [0,100] are
// not clamped: negative values resolve to BUDGET and values above 100 to LUXURY.
func PositionFor(percentile decimal.Decimal) Positioning {
	for _, band := range positioningBands {
		if percentile.LessThan(band.below) {
			return band.tier
		}
	}
	return PositioningLuxury
}

// ActionFor maps a price change percentage to a price action.
func ActionFor(changePct decimal.Decimal) PriceAction {
	switch {
	case changePct.Abs().LessThan(maintainBand):
		return PriceMaintain
	case changePct.IsPositive():
		return PriceIncrease
	default:
		return PriceDecrease
	}
}

// Describe renders the human-readable text for an action and its change percentage.
func (a PriceAction) Describe(changePct decimal.Decimal) string {
	magnitude := changePct.Abs()
	pct := magnitude.StringFixed(displayPlaces)
	strong := magnitude.GreaterThan(notifyThreshold)

	switch a {
	case PriceIncrease:
		if strong {
			return fmt.Sprintf("Augmenter de %s%% (forte demande)", pct)
		}
		return fmt.Sprintf("Augmenter de %s%%", pct)
	case PriceDecrease:
		if strong {
			return fmt.Sprintf("Réduire de %s%% (stimuler ventes)", pct)
		}
		return fmt.Sprintf("Réduire de %s%%", pct)
	default:
		return "Prix optimal - maintenir"
	}
}

// PriceContext is the per-product input to ComputePrice.
type PriceContext struct {
	CurrentPrice     decimal.Decimal `json:"current_price"`
	CategoryMinPrice decimal.Decimal `json:"category_min_price"`
	CategoryMaxPrice decimal.Decimal `json:"category_max_price"`
	CategoryAvgPrice decimal.Decimal `json:"category_avg_price"`
}

// Validate reports whether ComputePrice can run on the context.
func (c PriceContext) Validate() error {
	if c.CategoryMaxPrice.LessThan(c.CategoryMinPrice) {
		return fmt.Errorf("%w: max %s < min %s", ErrInvalidRange, c.CategoryMaxPrice, c.CategoryMinPrice)
	}
	if c.CurrentPrice.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativePrice, c.CurrentPrice)
	}
	return nil
}

// PriceIntelligenceResult is the outcome of a statistical price analysis.
type PriceIntelligenceResult struct {
	CurrentPrice          decimal.Decimal `json:"current_price"`
	RecommendedPrice      decimal.Decimal `json:"recommended_price"`
	PriceDifference       decimal.Decimal `json:"price_difference"`
	PriceChangePercentage decimal.Decimal `json:"price_change_percentage"`
	PriceAction           PriceAction     `json:"price_action"`
	ActionDescription     string          `json:"action_description"`
	Positioning           Positioning     `json:"positioning"`
	PricePercentile       decimal.Decimal `json:"price_percentile"`
	SuggestedRangeMin     decimal.Decimal `json:"suggested_range_min"`
	SuggestedRangeMax     decimal.Decimal `json:"suggested_range_max"`
	CategoryAvgPrice      decimal.Decimal `json:"category_avg_price"`
	CategoryMinPrice      decimal.Decimal `json:"category_min_price"`
	CategoryMaxPrice      decimal.Decimal `json:"category_max_price"`
	Confidence            decimal.Decimal `json:"confidence"`
	AnalysisMethod        string          `json:"analysis_method"`
	ShouldNotifySeller    bool            `json:"should_notify_seller"`
	Advisory              string          `json:"advisory"`
}

// ComputePrice derives a recommended price from the category's price range.
//
// The optimal zone spans the 40th to 60th percentile of [min, max]; the recommendation is
// its midpoint rounded half-up to cents. The zone bounds are reported exactly, widened to the
// recommendation only when cent rounding pushes it outside a sub-cent zone.
func ComputePrice(c PriceContext) (PriceIntelligenceResult, error) {
	if err := c.Validate(); err != nil {
		return PriceIntelligenceResult{}, err
	}

	span := c.CategoryMaxPrice.Sub(c.CategoryMinPrice)
	zoneMin := c.CategoryMinPrice.Add(zoneLow.Mul(span))
	zoneMax := c.CategoryMinPrice.Add(zoneHigh.Mul(span))

	recommended := zoneMin.Add(zoneMax).Div(two).Round(moneyPlaces)
	difference := recommended.Sub(c.CurrentPrice)

	changePct := decimal.Zero
	if c.CurrentPrice.IsPositive() {
		changePct = ratio(difference, c.CurrentPrice, ratioPlaces, decimal.Zero)
	}

	percentile := ratio(c.CurrentPrice.Sub(c.CategoryMinPrice), span, ratioPlaces, midPercentile)

	action := ActionFor(changePct)

	return PriceIntelligenceResult{
		CurrentPrice:          c.CurrentPrice,
		RecommendedPrice:      recommended,
		PriceDifference:       difference,
		PriceChangePercentage: changePct,
		PriceAction:           action,
		ActionDescription:     action.Describe(changePct),
		Positioning:           PositionFor(percentile),
		PricePercentile:       percentile,
		SuggestedRangeMin:     decimal.Min(zoneMin, recommended),
		SuggestedRangeMax:     decimal.Max(zoneMax, recommended),
		CategoryAvgPrice:      c.CategoryAvgPrice,
		CategoryMinPrice:      c.CategoryMinPrice,
		CategoryMaxPrice:      c.CategoryMaxPrice,
		Confidence:            priceConfidence,
		AnalysisMethod:        AnalysisMethod,
		ShouldNotifySeller:    changePct.Abs().GreaterThan(notifyThreshold),
		Advisory:              AdvisoryNote,
	}, nil
}
