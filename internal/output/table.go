package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/costpilot/costpilot/internal/models"
)

// ANSI color codes for status output (used when Colored=true).
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[0;31m"
	ansiYellow = "\033[0;33m"
	ansiGreen  = "\033[0;32m"
)

// TableOptions controls how report tables are rendered.
type TableOptions struct {
	// Colored wraps status labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// MaxDetail caps the DETAIL column width. Zero means the default width.
	MaxDetail int
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// truncateField shortens s to at most max bytes for ID/label columns.
// A single-char ellipsis replaces the last byte when truncation occurs.
func truncateField(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// statusCell returns the status padded to width characters.
// When colored, ANSI codes wrap only the text; trailing padding spaces are plain
// so subsequent columns stay visually aligned regardless of terminal ANSI support.
func statusCell(status models.SectionStatus, width int, colored bool) string {
	text := string(status)
	if !colored {
		return fmt.Sprintf("%-*s", width, text)
	}
	var code string
	switch status {
	case models.SectionSucceeded:
		code = ansiGreen
	case models.SectionPartial:
		code = ansiYellow
	case models.SectionFailed:
		code = ansiRed
	default:
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// manifestDetail picks the most informative per-entry note for the DETAIL column.
func manifestDetail(e models.ManifestEntry) string {
	switch {
	case e.Status == models.SectionSkipped:
		return e.SkipReason
	case e.Detail != "":
		if e.FailureKind != "" {
			return fmt.Sprintf("%s: %s", e.FailureKind, e.Detail)
		}
		return e.Detail
	case len(e.Warnings) > 0:
		return e.Warnings[0]
	default:
		return ""
	}
}

// RenderManifest writes the per-step outcome table of a run to w.
//
// Column order:
//
//	PROVIDER  PARTITION  STATUS  SOURCE  DETAIL
func RenderManifest(w io.Writer, report *models.ReportModel, opts TableOptions) {
	if report == nil || len(report.Manifest) == 0 {
		fmt.Fprintln(w, "No report sections.")
		return
	}

	wDetail := opts.MaxDetail
	if wDetail <= 0 {
		wDetail = 60
	}

	// Fixed column display widths.
	const (
		wProvider  = 10
		wPartition = 22
		wStatus    = 10
		wSource    = 7
	)

	var hb strings.Builder
	hb.WriteString(fmt.Sprintf("%-*s", wProvider, "PROVIDER"))
	hb.WriteString(fmt.Sprintf("  %-*s", wPartition, "PARTITION"))
	hb.WriteString(fmt.Sprintf("  %-*s", wStatus, "STATUS"))
	hb.WriteString(fmt.Sprintf("  %-*s", wSource, "SOURCE"))
	hb.WriteString(fmt.Sprintf("  %-*s", wDetail, "DETAIL"))
	header := hb.String()

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, e := range report.Manifest {
		source := "live"
		if e.FromCache {
			source = "cache"
		}
		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*s", wProvider, truncateField(string(e.Provider), wProvider)))
		rb.WriteString(fmt.Sprintf("  %-*s", wPartition, truncateField(e.PartitionType, wPartition)))
		rb.WriteString("  " + statusCell(e.Status, wStatus, opts.Colored))
		rb.WriteString(fmt.Sprintf("  %-*s", wSource, source))
		rb.WriteString(fmt.Sprintf("  %-*s", wDetail, ShortenMessage(manifestDetail(e), wDetail)))
		fmt.Fprintln(w, rb.String())
	}
}

// RenderRecommendations writes the enrichment-rule output table to w, sorted
// by descending savings so the biggest wins lead.
//
// Column order:
//
//	RULE  ACCOUNT  RESOURCE  MESSAGE  SAVINGS/MO
func RenderRecommendations(w io.Writer, recs []models.Recommendation, opts TableOptions) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recommendations.")
		return
	}

	sorted := make([]models.Recommendation, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SavingsUSD > sorted[j].SavingsUSD
	})

	const (
		wRule     = 16
		wAccount  = 14
		wResource = 24
		wMessage  = 55
	)

	var hb strings.Builder
	hb.WriteString(fmt.Sprintf("%-*s", wRule, "RULE"))
	hb.WriteString(fmt.Sprintf("  %-*s", wAccount, "ACCOUNT"))
	hb.WriteString(fmt.Sprintf("  %-*s", wResource, "RESOURCE"))
	hb.WriteString(fmt.Sprintf("  %-*s", wMessage, "MESSAGE"))
	hb.WriteString("  SAVINGS/MO")
	header := hb.String()

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, r := range sorted {
		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*s", wRule, truncateField(r.RuleID, wRule)))
		rb.WriteString(fmt.Sprintf("  %-*s", wAccount, truncateField(r.AccountID, wAccount)))
		rb.WriteString(fmt.Sprintf("  %-*s", wResource, truncateField(r.ResourceID, wResource)))
		rb.WriteString(fmt.Sprintf("  %-*s", wMessage, ShortenMessage(r.Message, wMessage)))
		rb.WriteString(fmt.Sprintf("  $%.2f", r.SavingsUSD))
		fmt.Fprintln(w, rb.String())
	}
}

// RenderCostSummary writes the Cost Explorer service breakdown to w, largest
// spend first. A nil or empty summary renders a single placeholder line.
func RenderCostSummary(w io.Writer, summary *models.CostSummary) {
	if summary == nil || len(summary.ServiceBreakdown) == 0 {
		fmt.Fprintln(w, "No cost data.")
		return
	}

	fmt.Fprintf(w, "Period %s to %s, total $%.2f\n\n",
		summary.PeriodStart, summary.PeriodEnd, summary.TotalCostUSD)

	const wService = 45

	header := fmt.Sprintf("%-*s  COST", wService, "SERVICE")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))
	for _, sc := range summary.ServiceBreakdown {
		fmt.Fprintf(w, "%-*s  $%.2f\n", wService, truncateField(sc.Service, wService), sc.CostUSD)
	}
}

// RenderWarnings writes cross-provider reconciliation warnings to w. Silent
// when there are none; warnings are advisory, not failures.
func RenderWarnings(w io.Writer, warnings []models.ReconciliationWarning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(w, "Reconciliation warnings:")
	for _, warn := range warnings {
		fmt.Fprintf(w, "  - account %s: %s (%s)\n",
			warn.AccountID, warn.Message, strings.Join(warn.Providers, ", "))
	}
}
