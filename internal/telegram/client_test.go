package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/merchscore/internal/analytics"
	"github.com/rewired-gh/merchscore/internal/models"
	"github.com/rewired-gh/merchscore/internal/refresh"
	"github.com/rewired-gh/merchscore/internal/storage"
	"github.com/shopspring/decimal"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"Hello_World", "Hello\\_World"},
		{"Price: 100.50", "Price: 100\\.50"},
		{"[link](url)", "\\[link\\]\\(url\\)"},
		{"-45.0%", "\\-45\\.0%"},
		{"Réduire de 45.0% (stimuler ventes)", "Réduire de 45\\.0% \\(stimuler ventes\\)"},
		{"", ""},
		{"_*[]()~`>#+-=|{}.!", "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := escapeMarkdownV2(tt.input)
			if result != tt.expected {
				t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewClient_InvalidChatID(t *testing.T) {
	// the chat ID is parsed before any network call
	_, err := NewClient("", "not-a-number", 3, time.Second)
	if err == nil {
		t.Error("Expected error for invalid chat ID, got nil")
	}
}

func TestFormatAlerts(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	alerts := []models.SellerAlert{
		{
			Kind:             models.AlertPriceOpportunity,
			ProductID:        "B00MOUSE",
			ProductName:      "Wireless Mouse",
			SellerName:       "Gadget_Shop",
			CurrentPrice:     decimal.NewFromInt(100),
			RecommendedPrice: decimal.NewFromInt(55),
			ChangePct:        decimal.RequireFromString("-45"),
			Action:           "DECREASE",
			Description:      "Réduire de 45.0% (stimuler ventes)",
			CreatedAt:        created,
		},
		{
			Kind:            models.AlertRankingDecline,
			ProductID:       "B00BOOK",
			Trend:           "DECLINING",
			ConfidenceScore: decimal.NewNullDecimal(decimal.RequireFromString("0.8")),
			Description:     "Le classement risque de baisser",
			CreatedAt:       created,
		},
	}

	msg := formatAlerts(alerts)

	for _, want := range []string{
		"📅 Generated: 2024\\-05\\-01 09:30:00",
		"1\\. *Wireless Mouse* \\(B00MOUSE\\)",
		"📉 *\\-45\\.0%* 100\\.00 → 55\\.00",
		"Réduire de 45\\.0% \\(stimuler ventes\\)",
		"🏪 Gadget\\_Shop",
		"2\\. *B00BOOK* \\(B00BOOK\\)",
		"⚠️ *Déclin, confiance 80%*",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatStats(t *testing.T) {
	stats := analytics.Aggregate(nil)
	stats.TotalPredictions = 12
	stats.SkippedItems = 1
	stats.PotentialBestsellers = 3
	stats.AvgBestsellerProbability = decimal.RequireFromString("0.5125")
	stats.AvgPriceChange = decimal.RequireFromString("-3.5")
	stats.PriceActionDistribution["INCREASE"] = 4

	msg := formatStats(&storage.StatsSnapshot{Stats: stats, CreatedAt: time.Now()})
	for _, want := range []string{
		"Products: 12 \\(skipped 1\\)",
		"Potential bestsellers: 3",
		"Avg bestseller probability: 0\\.5125",
		"Avg recommended change: \\-3\\.50%",
		"increase 4",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatReport(t *testing.T) {
	msg := formatReport(&refresh.Report{
		ProductsFetched: 10,
		Analyzed:        9,
		Skipped:         1,
		AlertsSent:      2,
		Duration:        1500 * time.Millisecond,
	})
	if !strings.Contains(msg, "1\\.5s") || !strings.Contains(msg, "alerts sent 2") {
		t.Errorf("unexpected report message: %s", msg)
	}
}
