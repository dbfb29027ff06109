package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/rewired-gh/merchscore/internal/analytics"
	"github.com/rewired-gh/merchscore/internal/models"
	"github.com/rewired-gh/merchscore/internal/refresh"
	"github.com/rewired-gh/merchscore/internal/storage"
)

// formatAlerts formats seller alerts into a Telegram MarkdownV2 message.
func formatAlerts(alerts []models.SellerAlert) string {
	var b strings.Builder
	b.WriteString("🛒 *Seller alerts*\n\n")

	if len(alerts) > 0 {
		dateStr := escapeMarkdownV2(alerts[0].CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "📅 Generated: %s\n\n", dateStr)
	}

	for i, alert := range alerts {
		name := alert.ProductName
		if name == "" {
			name = alert.ProductID
		}
		fmt.Fprintf(&b, "%d\\. *%s* \\(%s\\)\n", i+1, escapeMarkdownV2(name), escapeMarkdownV2(alert.ProductID))

		switch alert.Kind {
		case models.AlertPriceOpportunity:
			emoji := "📈"
			if alert.ChangePct.IsNegative() {
				emoji = "📉"
			}
			fmt.Fprintf(&b, "   %s *%s* %s → %s\n",
				emoji,
				escapeMarkdownV2(alert.ChangePct.StringFixed(1)+"%"),
				escapeMarkdownV2(alert.CurrentPrice.StringFixed(2)),
				escapeMarkdownV2(alert.RecommendedPrice.StringFixed(2)))
		case models.AlertRankingDecline:
			trend := analytics.Trend(alert.Trend)
			line := trend.Label()
			if alert.ConfidenceScore.Valid {
				line += fmt.Sprintf(", confiance %s%%", alert.ConfidenceScore.Decimal.Shift(2).StringFixed(0))
			}
			fmt.Fprintf(&b, "   ⚠️ *%s*\n", escapeMarkdownV2(line))
		}

		if alert.Description != "" {
			fmt.Fprintf(&b, "   %s\n", escapeMarkdownV2(alert.Description))
		}
		if alert.SellerName != "" {
			fmt.Fprintf(&b, "   🏪 %s\n", escapeMarkdownV2(alert.SellerName))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// formatStats formats a statistics snapshot as a short dashboard summary.
func formatStats(snap *storage.StatsSnapshot) string {
	s := snap.Stats
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Prediction statistics*\n📅 %s\n\n", escapeMarkdownV2(snap.CreatedAt.Format("2006-01-02 15:04:05")))
	fmt.Fprintf(&b, "Products: %d \\(skipped %d\\)\n", s.TotalPredictions, s.SkippedItems)
	fmt.Fprintf(&b, "Potential bestsellers: %d\n", s.PotentialBestsellers)
	fmt.Fprintf(&b, "Ranking: 📈 %d  ➖ %d  📉 %d\n", s.ImprovingProducts, s.StableProducts, s.DecliningProducts)
	fmt.Fprintf(&b, "Avg bestseller probability: %s\n", escapeMarkdownV2(s.AvgBestsellerProbability.StringFixed(4)))
	fmt.Fprintf(&b, "Avg recommended change: %s\n", escapeMarkdownV2(s.AvgPriceChange.StringFixed(2)+"%"))
	fmt.Fprintf(&b, "Actions: maintain %d, increase %d, decrease %d\n",
		s.PriceActionDistribution[string(analytics.PriceMaintain)],
		s.PriceActionDistribution[string(analytics.PriceIncrease)],
		s.PriceActionDistribution[string(analytics.PriceDecrease)])
	return b.String()
}

func formatReport(r *refresh.Report) string {
	return fmt.Sprintf("✅ *Refresh done* in %s\nFetched %d, analyzed %d, skipped %d, alerts sent %d",
		escapeMarkdownV2(r.Duration.Round(time.Millisecond).String()), r.ProductsFetched, r.Analyzed, r.Skipped, r.AlertsSent)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
