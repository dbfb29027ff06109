package analytics

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ExperimentalNote accompanies ranking trend results: the trend model is trained on
// synthetic labels.
const ExperimentalNote = "Ce modèle utilise des étiquettes synthétiques. Interpréter avec prudence."

// Trend is the predicted direction of a product's sales ranking.
type Trend string

const (
	TrendImproving Trend = "IMPROVING"
	TrendStable    Trend = "STABLE"
	TrendDeclining Trend = "DECLINING"
)

type trendText struct {
	label       string
	description string
}

var trendTexts = map[Trend]trendText{
	TrendImproving: {"Amélioration", "Le classement devrait s'améliorer"},
	TrendStable:    {"Stable", "Le classement devrait rester stable"},
	TrendDeclining: {"Déclin", "Le classement risque de baisser"},
}

// Label returns the display label of the trend.
func (t Trend) Label() string { return trendTexts[t].label }

// Description returns the display sentence of the trend.
func (t Trend) Description() string { return trendTexts[t].description }

// ParseTrend accepts a trend name in any case.
func ParseTrend(s string) (Trend, error) {
	t := Trend(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := trendTexts[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTrend, s)
	}
	return t, nil
}

// RankingTrendInput carries a stored ranking trend prediction.
type RankingTrendInput struct {
	PredictedTrend  Trend               `json:"predicted_trend"`
	ConfidenceScore decimal.NullDecimal `json:"confidence_score"`
}

// RankingTrendResult is the classified ranking trend signal. ConfidenceLevel is nil when
// the prediction carried no confidence score.
type RankingTrendResult struct {
	Trend           Trend            `json:"trend"`
	Label           string           `json:"label"`
	Description     string           `json:"description"`
	ConfidenceLevel *ConfidenceLevel `json:"confidence_level,omitempty"`
	NeedsAttention  bool             `json:"needs_attention"`
}

// ConfidenceForScore tiers a confidence score: >=0.80 HIGH, >=0.65 MEDIUM, otherwise LOW.
func ConfidenceForScore(score decimal.Decimal) ConfidenceLevel {
	switch {
	case score.GreaterThanOrEqual(highConfidenceScore):
		return ConfidenceHigh
	case score.GreaterThanOrEqual(midConfidenceScore):
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ClassifyTrend tiers the confidence score and flags declining trends predicted with a
// score of at least 0.70. A declining trend without a score does not need attention.
func ClassifyTrend(in RankingTrendInput) RankingTrendResult {
	res := RankingTrendResult{
		Trend:       in.PredictedTrend,
		Label:       in.PredictedTrend.Label(),
		Description: in.PredictedTrend.Description(),
	}
	if !in.ConfidenceScore.Valid {
		return res
	}
	level := ConfidenceForScore(in.ConfidenceScore.Decimal)
	res.ConfidenceLevel = &level
	res.NeedsAttention = in.PredictedTrend == TrendDeclining &&
		in.ConfidenceScore.Decimal.GreaterThanOrEqual(attentionThreshold)
	return res
}
