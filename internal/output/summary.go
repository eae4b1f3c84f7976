package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/wesleyorama2/shopload/internal/metrics"
)

// Summary is everything the end-of-run report shows.
type Summary struct {
	Backends int
	Workers  int
	Seed     int64
	LogFile  string

	Completed int64
	Failed    int64
	Cancelled int64

	Snapshot *metrics.Snapshot
	Steps    []metrics.StepStats
}

// Printer writes summaries to a writer.
type Printer struct {
	w       io.Writer
	scheme  *ColorScheme
	noColor bool
}

// NewPrinter creates a printer. With useColor false all output is plain.
func NewPrinter(w io.Writer, useColor bool) *Printer {
	scheme := NoColorScheme()
	if useColor {
		scheme = DefaultColorScheme()
		for _, c := range []*color.Color{
			scheme.Title, scheme.Label, scheme.Value, scheme.Step,
			scheme.Success, scheme.Warn, scheme.Error, scheme.Highlight,
		} {
			c.EnableColor()
		}
	}
	return &Printer{w: w, scheme: scheme, noColor: !useColor}
}

// PrintSummary writes the report.
func (p *Printer) PrintSummary(s Summary) {
	line := strings.Repeat("━", 64)
	status := SuccessIcon(p.noColor) + " completed"
	if s.Failed > 0 {
		status = WarningIcon(p.noColor) + " completed with failed sessions"
	}

	p.writeln("")
	p.writeln(p.scheme.Title.Sprint(line))
	p.writeln(fmt.Sprintf("%s - %s", p.scheme.Highlight.Sprint("shopload"), status))
	p.writeln(p.scheme.Title.Sprint(line))
	p.writeln("")

	p.row("Backends", fmt.Sprintf("%d", s.Backends))
	p.row("Workers", fmt.Sprintf("%d", s.Workers))
	p.row("Seed", fmt.Sprintf("%d", s.Seed))
	if s.LogFile != "" {
		p.row("Request log", s.LogFile)
	}
	p.writeln("")

	p.writeln(p.scheme.Label.Sprint("Sessions:"))
	p.writeln(fmt.Sprintf("  %s %s completed", SuccessIcon(p.noColor), p.scheme.Success.Sprint(formatNumber(s.Completed))))
	failed := p.scheme.Success.Sprint(formatNumber(s.Failed))
	if s.Failed > 0 {
		failed = p.scheme.Error.Sprint(formatNumber(s.Failed))
	}
	p.writeln(fmt.Sprintf("  %s %s failed", ErrorIcon(p.noColor), failed))
	if s.Cancelled > 0 {
		p.writeln(fmt.Sprintf("  %s %s cancelled", WarningIcon(p.noColor), p.scheme.Warn.Sprint(formatNumber(s.Cancelled))))
	}
	p.writeln("")

	if snap := s.Snapshot; snap != nil {
		p.row("Duration", formatDuration(snap.Elapsed))
		p.row("Total Reqs", formatNumber(snap.TotalRequests))
		p.row("Throughput", fmt.Sprintf("%.1f req/s", snap.RPS))
		p.row("Non-2xx", p.rateColor(snap.ErrorRate).Sprintf("%s (%.1f%%)", formatNumber(snap.FailedRequests), snap.ErrorRate*100))
		p.writeln("")

		p.writeln(p.scheme.Label.Sprint("Latency Distribution:"))
		p.writeln(fmt.Sprintf("  Min: %-8s P50: %-8s P90: %-8s P95: %-8s P99: %-8s Max: %s",
			formatDurationShort(snap.Latency.Min),
			formatDurationShort(snap.Latency.P50),
			formatDurationShort(snap.Latency.P90),
			formatDurationShort(snap.Latency.P95),
			formatDurationShort(snap.Latency.P99),
			formatDurationShort(snap.Latency.Max)))
		p.writeln("")

		if ph := snap.Phases; ph.TTFB.Count > 0 {
			p.writeln(p.scheme.Label.Sprint("Connection Phases:"))
			p.writeln(fmt.Sprintf("  TTFB P50: %-8s TTFB P99: %-8s DNS P50: %-8s Connect P50: %-8s New conns: %s",
				formatDurationShort(ph.TTFB.P50),
				formatDurationShort(ph.TTFB.P99),
				formatDurationShort(ph.DNS.P50),
				formatDurationShort(ph.Connect.P50),
				formatNumber(ph.Connect.Count)))
			p.writeln("")
		}
	}

	if len(s.Steps) > 0 {
		p.writeln(p.scheme.Label.Sprint("Steps:"))
		p.writeln(fmt.Sprintf("  %-18s %8s %8s %8s %8s", "", "count", "p50", "p95", "p99"))
		for _, st := range s.Steps {
			p.writeln(fmt.Sprintf("  %s %8s %8s %8s %8s",
				p.scheme.Step.Sprintf("%-18s", st.Step),
				formatNumber(st.Latency.Count),
				formatDurationShort(st.Latency.P50),
				formatDurationShort(st.Latency.P95),
				formatDurationShort(st.Latency.P99)))
		}
		p.writeln("")
	}
}

func (p *Printer) row(label, value string) {
	p.writeln(fmt.Sprintf("%-14s %s", label+":", p.scheme.Value.Sprint(value)))
}

func (p *Printer) rateColor(rate float64) *color.Color {
	switch {
	case rate >= 0.05:
		return p.scheme.Error
	case rate >= 0.01:
		return p.scheme.Warn
	default:
		return p.scheme.Success
	}
}

func (p *Printer) writeln(s string) {
	fmt.Fprintln(p.w, s)
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
}

// formatDurationShort formats a duration in a short format.
func formatDurationShort(d time.Duration) string {
	if d < time.Microsecond {
		return "0ms"
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		result.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(str[i : i+3])
	}
	return result.String()
}
