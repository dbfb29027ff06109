package analytics

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ConfidenceLevel is a coarse confidence tier.
type ConfidenceLevel string

const (
	ConfidenceHigh    ConfidenceLevel = "HIGH"
	ConfidenceMedium  ConfidenceLevel = "MEDIUM"
	ConfidenceLow     ConfidenceLevel = "LOW"
	ConfidenceVeryLow ConfidenceLevel = "VERY_LOW"
)

var confidenceDescriptions = map[ConfidenceLevel]string{
	ConfidenceHigh:    "Haute confiance",
	ConfidenceMedium:  "Confiance moyenne",
	ConfidenceLow:     "Faible confiance",
	ConfidenceVeryLow: "Très faible confiance",
}

// Description returns the display text for the tier, or "" for an unknown tier.
func (l ConfidenceLevel) Description() string {
	return confidenceDescriptions[l]
}

// ParseConfidenceLevel accepts a tier name in any case. An empty string yields an empty
// level with no error, meaning the tier is absent.
func ParseConfidenceLevel(s string) (ConfidenceLevel, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	l := ConfidenceLevel(s)
	if _, ok := confidenceDescriptions[l]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownConfidenceLevel, s)
	}
	return l, nil
}

// BestsellerInput carries a stored bestseller prediction. The confidence tier is assigned
// upstream; an empty tier means none was stored.
type BestsellerInput struct {
	PredictedProbability decimal.NullDecimal `json:"predicted_probability"`
	ConfidenceLevel      ConfidenceLevel     `json:"confidence_level,omitempty"`
}

// BestsellerResult is the classified bestseller signal.
type BestsellerResult struct {
	ConfidenceLevel       ConfidenceLevel `json:"confidence_level"`
	IsPotentialBestseller bool            `json:"is_potential_bestseller"`
}

// ClassifyBestseller flags products whose probability is at least 0.70. A missing
// probability is never a potential bestseller, and a missing tier reads as LOW.
func ClassifyBestseller(in BestsellerInput) BestsellerResult {
	level := in.ConfidenceLevel
	if level == "" {
		level = ConfidenceLow
	}
	return BestsellerResult{
		ConfidenceLevel:       level,
		IsPotentialBestseller: in.PredictedProbability.Valid && in.PredictedProbability.Decimal.GreaterThanOrEqual(bestsellerThreshold),
	}
}
