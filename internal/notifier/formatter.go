package notifier

import (
	"fmt"
	"html"
	"strings"

	"StockAnalysis/internal/collector"
	"StockAnalysis/internal/model"
)

// maxListedFailures caps the failure lines so the message stays under
// Telegram's 4096 character limit for a full S&P 500 outage.
const maxListedFailures = 20

// FormatIngestReport formats one ingestion run into a Telegram message.
func FormatIngestReport(r *collector.Report, attempts int) string {
	var b strings.Builder

	status := "✅"
	if r.AllFailed() {
		status = "❌"
	} else if len(r.Failures) > 0 {
		status = "⚠️"
	}

	b.WriteString(fmt.Sprintf("%s <b>StockAnalysis weekly ingest</b> | %s → %s\n\n", status,
		r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout)))
	b.WriteString(fmt.Sprintf("Tickers: %d\n", r.Tickers))
	b.WriteString(fmt.Sprintf("Bars fetched: %d\n", r.Fetched))
	b.WriteString(fmt.Sprintf("New bars stored: %d\n", r.Inserted))
	if attempts > 1 {
		b.WriteString(fmt.Sprintf("Attempts: %d\n", attempts))
	}

	if len(r.Failures) > 0 {
		b.WriteString(fmt.Sprintf("\n<b>Failed (%d):</b>\n", len(r.Failures)))
		for i, f := range r.Failures {
			if i == maxListedFailures {
				b.WriteString(fmt.Sprintf("  … and %d more\n", len(r.Failures)-maxListedFailures))
				break
			}
			b.WriteString(fmt.Sprintf("  %s: %s\n", html.EscapeString(f.Ticker), html.EscapeString(f.Err.Error())))
		}
	}
	return b.String()
}

// FormatIngestFailure formats a run that could not start or gave up.
func FormatIngestFailure(err error, attempts int) string {
	return fmt.Sprintf("❌ <b>StockAnalysis weekly ingest</b> failed after %d attempt(s)\n\n%s",
		attempts, html.EscapeString(err.Error()))
}
