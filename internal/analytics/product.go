package analytics

import "github.com/shopspring/decimal"

// UnknownCategory groups products that arrive without a category.
const UnknownCategory = "Unknown"

// ProductInput bundles everything the engine needs for one product.
type ProductInput struct {
	ProductID  string
	Category   string
	Price      PriceContext
	Bestseller BestsellerInput
	Trend      *RankingTrendInput
}

// ProductPrediction is the merged engine output for one product. Err is set when the price
// analysis could not run; such items are skipped by Aggregate.
type ProductPrediction struct {
	ProductID             string                   `json:"product_id"`
	Category              string                   `json:"category"`
	BestsellerProbability decimal.NullDecimal      `json:"bestseller_probability"`
	Bestseller            BestsellerResult         `json:"bestseller"`
	Trend                 *RankingTrendResult      `json:"trend,omitempty"`
	Price                 *PriceIntelligenceResult `json:"price,omitempty"`
	Err                   error                    `json:"-"`
}

// Evaluate runs the price, bestseller and trend calculators for one product.
func Evaluate(in ProductInput) ProductPrediction {
	category := in.Category
	if category == "" {
		category = UnknownCategory
	}

	out := ProductPrediction{
		ProductID:             in.ProductID,
		Category:              category,
		BestsellerProbability: in.Bestseller.PredictedProbability,
		Bestseller:            ClassifyBestseller(in.Bestseller),
	}

	if in.Trend != nil {
		trend := ClassifyTrend(*in.Trend)
		out.Trend = &trend
	}

	price, err := ComputePrice(in.Price)
	if err != nil {
		out.Err = err
		return out
	}
	out.Price = &price
	return out
}
