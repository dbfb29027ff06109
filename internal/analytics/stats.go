package analytics

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// CategoryAggregate summarizes the predictions of one category. ProductCount and
// AvgBestsellerProbability duplicate Count and AvgBestsellerProb for older consumers.
type CategoryAggregate struct {
	Category                 string          `json:"category"`
	Count                    int64           `json:"count"`
	AvgBestsellerProb        decimal.Decimal `json:"avgBestsellerProb"`
	AvgPriceChange           decimal.Decimal `json:"avgPriceChange"`
	ProductCount             int64           `json:"productCount"`
	AvgBestsellerProbability decimal.Decimal `json:"avgBestsellerProbability"`
}

// PredictionStats is the batch summary produced by Aggregate.
//
// Several fields exist twice under different names (see WithAliases). Both names always
// carry the same value.
type PredictionStats struct {
	TotalPredictions                int64               `json:"totalPredictions"`
	SkippedItems                    int64               `json:"skippedItems"`
	PotentialBestsellers            int64               `json:"potentialBestsellers"`
	ProductsWithPriceRecommendation int64               `json:"productsWithPriceRecommendation"`
	ImprovingProducts               int64               `json:"improvingProducts"`
	DecliningProducts               int64               `json:"decliningProducts"`
	StableProducts                  int64               `json:"stableProducts"`
	AvgBestsellerProbability        decimal.Decimal     `json:"avgBestsellerProbability"`
	AvgPriceChange                  decimal.Decimal     `json:"avgPriceChange"`
	TrendDistribution               map[string]int64    `json:"trendDistribution"`
	PriceActionDistribution         map[string]int64    `json:"priceActionDistribution"`
	CategoryStats                   []CategoryAggregate `json:"categoryStats"`

	PotentialBestsellersCount      int64           `json:"potentialBestsellersCount"`
	ProductsWithRankingImprovement int64           `json:"productsWithRankingImprovement"`
	AverageBestsellerProbability   decimal.Decimal `json:"averageBestsellerProbability"`
	AveragePriceChangeRecommended  decimal.Decimal `json:"averagePriceChangeRecommended"`
}

// WithAliases returns a copy of s with every alias field set from its primary field.
func (s PredictionStats) WithAliases() PredictionStats {
	out := s
	out.PotentialBestsellersCount = s.PotentialBestsellers
	out.ProductsWithRankingImprovement = s.ImprovingProducts
	out.AverageBestsellerProbability = s.AvgBestsellerProbability
	out.AveragePriceChangeRecommended = s.AvgPriceChange

	out.TrendDistribution = copyCounts(s.TrendDistribution)
	out.PriceActionDistribution = copyCounts(s.PriceActionDistribution)

	out.CategoryStats = make([]CategoryAggregate, len(s.CategoryStats))
	for i, c := range s.CategoryStats {
		c.ProductCount = c.Count
		c.AvgBestsellerProbability = c.AvgBestsellerProb
		out.CategoryStats[i] = c
	}
	return out
}

func copyCounts(m map[string]int64) map[string]int64 {
	if m == nil {
		return nil
	}
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Aggregate reduces per-product predictions into batch statistics. Items carrying an
// error are counted in SkippedItems and contribute nothing else.
func Aggregate(items []ProductPrediction) PredictionStats {
	return accumulate(items).build().WithAliases()
}

// AggregateParallel splits items into at most shards contiguous shards, reduces them
// concurrently and merges the partial sums. The result equals Aggregate(items).
func AggregateParallel(items []ProductPrediction, shards int) PredictionStats {
	if shards <= 1 || len(items) < 2 {
		return Aggregate(items)
	}
	if shards > len(items) {
		shards = len(items)
	}

	size := (len(items) + shards - 1) / shards
	parts := make([]*partial, (len(items)+size-1)/size)

	var g errgroup.Group
	for i := range parts {
		i := i
		lo := i * size
		hi := min(lo+size, len(items))
		g.Go(func() error {
			parts[i] = accumulate(items[lo:hi])
			return nil
		})
	}
	_ = g.Wait() // shard reducers cannot fail

	total := newPartial()
	for _, p := range parts {
		total.merge(p)
	}
	return total.build().WithAliases()
}

type categoryPartial struct {
	count     int64
	probSum   decimal.Decimal
	probCount int64
	pctSum    decimal.Decimal
	pctCount  int64
}

func (c *categoryPartial) merge(o *categoryPartial) {
	c.count += o.count
	c.probSum = c.probSum.Add(o.probSum)
	c.probCount += o.probCount
	c.pctSum = c.pctSum.Add(o.pctSum)
	c.pctCount += o.pctCount
}

// partial holds exact running sums; averages are only rounded in build.
type partial struct {
	total, skipped, potential, priceRecs int64

	probSum   decimal.Decimal
	probCount int64
	pctSum    decimal.Decimal
	pctCount  int64

	trends     map[Trend]int64
	actions    map[PriceAction]int64
	categories map[string]*categoryPartial
}

func newPartial() *partial {
	return &partial{
		trends:     make(map[Trend]int64),
		actions:    make(map[PriceAction]int64),
		categories: make(map[string]*categoryPartial),
	}
}

func accumulate(items []ProductPrediction) *partial {
	p := newPartial()
	for _, item := range items {
		p.add(item)
	}
	return p
}

func (p *partial) category(name string) *categoryPartial {
	c, ok := p.categories[name]
	if !ok {
		c = &categoryPartial{}
		p.categories[name] = c
	}
	return c
}

func (p *partial) add(item ProductPrediction) {
	if item.Err != nil {
		p.skipped++
		return
	}

	name := item.Category
	if name == "" {
		name = UnknownCategory
	}
	cat := p.category(name)

	p.total++
	cat.count++

	if item.Bestseller.IsPotentialBestseller {
		p.potential++
	}
	if item.BestsellerProbability.Valid {
		prob := item.BestsellerProbability.Decimal
		p.probSum = p.probSum.Add(prob)
		p.probCount++
		cat.probSum = cat.probSum.Add(prob)
		cat.probCount++
	}

	if item.Trend != nil && item.Trend.Trend != "" {
		p.trends[item.Trend.Trend]++
	}

	if item.Price != nil {
		pct := item.Price.PriceChangePercentage
		p.pctSum = p.pctSum.Add(pct)
		p.pctCount++
		cat.pctSum = cat.pctSum.Add(pct)
		cat.pctCount++

		p.actions[item.Price.PriceAction]++
		if item.Price.PriceAction != PriceMaintain {
			p.priceRecs++
		}
	}
}

func (p *partial) merge(o *partial) {
	p.total += o.total
	p.skipped += o.skipped
	p.potential += o.potential
	p.priceRecs += o.priceRecs
	p.probSum = p.probSum.Add(o.probSum)
	p.probCount += o.probCount
	p.pctSum = p.pctSum.Add(o.pctSum)
	p.pctCount += o.pctCount

	for t, n := range o.trends {
		p.trends[t] += n
	}
	for a, n := range o.actions {
		p.actions[a] += n
	}
	for name, c := range o.categories {
		p.category(name).merge(c)
	}
}

func (p *partial) build() PredictionStats {
	stats := PredictionStats{
		TotalPredictions:                p.total,
		SkippedItems:                    p.skipped,
		PotentialBestsellers:            p.potential,
		ProductsWithPriceRecommendation: p.priceRecs,
		ImprovingProducts:               p.trends[TrendImproving],
		DecliningProducts:               p.trends[TrendDeclining],
		StableProducts:                  p.trends[TrendStable],
		AvgBestsellerProbability:        mean(p.probSum, p.probCount),
		AvgPriceChange:                  mean(p.pctSum, p.pctCount),
		TrendDistribution: map[string]int64{
			string(TrendImproving): p.trends[TrendImproving],
			string(TrendStable):    p.trends[TrendStable],
			string(TrendDeclining): p.trends[TrendDeclining],
		},
		PriceActionDistribution: map[string]int64{
			string(PriceMaintain): p.actions[PriceMaintain],
			string(PriceIncrease): p.actions[PriceIncrease],
			string(PriceDecrease): p.actions[PriceDecrease],
		},
		CategoryStats: make([]CategoryAggregate, 0, len(p.categories)),
	}

	for name, c := range p.categories {
		stats.CategoryStats = append(stats.CategoryStats, CategoryAggregate{
			Category:          name,
			Count:             c.count,
			AvgBestsellerProb: mean(c.probSum, c.probCount),
			AvgPriceChange:    mean(c.pctSum, c.pctCount),
		})
	}
	sort.Slice(stats.CategoryStats, func(i, j int) bool {
		return stats.CategoryStats[i].Category < stats.CategoryStats[j].Category
	})
	return stats
}
