package notifier

import (
	"fmt"
	"html"
	"strings"

	"MarketSeasons/internal/collector"
)

// FormatRefreshReport formats an index refresh run into a Telegram message.
func FormatRefreshReport(r *collector.RefreshReport) string {
	var b strings.Builder

	icon := "✅"
	if r.Failed() > 0 {
		icon = "⚠️"
	}
	b.WriteString(fmt.Sprintf("%s <b>Index refresh</b> | %s\n\n", icon, r.Started.Format("2006-01-02 15:04")))
	for _, res := range r.Results {
		mark := "•"
		if res.Status == collector.StatusError {
			mark = "✗"
		}
		b.WriteString(fmt.Sprintf("%s %s: %s\n", mark, html.EscapeString(res.Ticker), html.EscapeString(res.Message)))
	}
	b.WriteString(fmt.Sprintf("\n%d/%d ok | run %s", len(r.Results)-r.Failed(), len(r.Results), shortID(r.RunID)))
	return b.String()
}

// FormatTickers lists the cached tickers.
func FormatTickers(tickers []string) string {
	if len(tickers) == 0 {
		return "📦 cache is empty"
	}
	return fmt.Sprintf("📦 <b>Cached tickers</b> (%d)\n%s", len(tickers), html.EscapeString(strings.Join(tickers, ", ")))
}

// FormatHelp lists the supported chat commands.
func FormatHelp() string {
	return "Available commands:\n• /refresh refresh the volatility indexes\n• /tickers list cached tickers"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
