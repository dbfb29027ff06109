package refresh

import (
	"github.com/rewired-gh/merchscore/internal/analytics"
	"github.com/rewired-gh/merchscore/internal/logger"
	"github.com/rewired-gh/merchscore/internal/models"
	"github.com/shopspring/decimal"
)

func categoryOf(p *models.Product) string {
	if p.Category == "" {
		return analytics.UnknownCategory
	}
	return p.Category
}

// CategoryStats summarizes the catalog prices of every category present in products.
func CategoryStats(products []models.Product) map[string]analytics.CategoryPriceStats {
	prices := make(map[string][]decimal.Decimal)
	for i := range products {
		cat := categoryOf(&products[i])
		prices[cat] = append(prices[cat], products[i].Price)
	}

	stats := make(map[string]analytics.CategoryPriceStats, len(prices))
	for cat, ps := range prices {
		s := analytics.SummarizePrices(ps)
		s.Category = cat
		stats[cat] = s
	}
	return stats
}

// BuildInputs resolves every product into an engine input, pricing it against its
// category. Unknown stored tiers or trends are logged and treated as absent.
func BuildInputs(products []models.Product) []analytics.ProductInput {
	stats := CategoryStats(products)

	inputs := make([]analytics.ProductInput, len(products))
	for i := range products {
		p := &products[i]
		cat := categoryOf(p)

		level, err := analytics.ParseConfidenceLevel(p.BestsellerConfidence)
		if err != nil {
			logger.Warn("Product %s: %v", p.ASIN, err)
		}

		in := analytics.ProductInput{
			ProductID: p.ASIN,
			Category:  cat,
			Price:     analytics.ContextFor(p.Price, stats[cat]),
			Bestseller: analytics.BestsellerInput{
				PredictedProbability: p.BestsellerProbability,
				ConfidenceLevel:      level,
			},
		}

		if p.PredictedTrend != "" {
			trend, err := analytics.ParseTrend(p.PredictedTrend)
			if err != nil {
				logger.Warn("Product %s: %v", p.ASIN, err)
			} else {
				in.Trend = &analytics.RankingTrendInput{
					PredictedTrend:  trend,
					ConfidenceScore: p.TrendConfidence,
				}
			}
		}

		inputs[i] = in
	}
	return inputs
}
