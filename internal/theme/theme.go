package theme

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/nhle/card-statements/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// Currency is the ISO-4217 code statement amounts are reported in.
const Currency = money.INR

// HeaderStyle is used for the title of every report.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// PanelStyle wraps a report body.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// LabelStyle is used for the left column of key/value rows.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Width(22)

// HelpStyle is used for hints and secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// CountStyle returns a style for a counter: green when the count is good
// news, red when it reports failures, gray when zero.
func CountStyle(n int, failure bool) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch {
	case n == 0:
		return base.Foreground(ColorGray)
	case failure:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGreen)
	}
}

// BankStyle returns a color-coded label style for a bank tag.
func BankStyle(bank model.Bank) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch bank {
	case model.BankHDFC:
		return base.Foreground(ColorBlue)
	case model.BankIDFC:
		return base.Foreground(ColorYellow)
	case model.BankUnknown:
		return base.Foreground(ColorGray)
	default:
		return base.Foreground(ColorGreen)
	}
}

// FormatAmount renders amount in rupees, rounded to paise.
func FormatAmount(amount decimal.Decimal) string {
	minor := amount.Shift(2).Round(0).IntPart()
	return money.New(minor, Currency).Display()
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// RenderSummary renders the end-of-run report.
func RenderSummary(s *model.RunSummary) string {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), value)
	}
	count := func(n int, failure bool) string {
		return CountStyle(n, failure).Render(fmt.Sprint(n))
	}

	lines := []string{
		HeaderStyle.Render("Statement run " + shortID(s.RunID)),
		"",
		row("Days searched", fmt.Sprint(s.DaysSearched)),
		row("Emails found", count(s.TotalEmailsFound, false)),
		row("PDFs downloaded", count(s.TotalPDFsDownloaded, false)),
		row("Records extracted", count(s.RecordsExtracted, false)),
		row("Records rejected", count(s.RecordsRejected, true)),
		row("Parse failures", count(s.ParseFailures, true)),
		row("Fetch failures", count(s.FetchFailures, true)),
	}

	if len(s.BankBreakdown) > 0 {
		lines = append(lines, "", HelpStyle.Render("By bank"))
		banks := make([]model.Bank, 0, len(s.BankBreakdown))
		for b := range s.BankBreakdown {
			banks = append(banks, b)
		}
		sort.Slice(banks, func(i, j int) bool { return banks[i] < banks[j] })
		for _, b := range banks {
			bd := s.BankBreakdown[b]
			lines = append(lines, row(
				BankStyle(b).Render(string(b)),
				fmt.Sprintf("%d files, %s", bd.Count, FormatSize(bd.TotalSize)),
			))
		}
	}

	if len(s.Records) > 0 {
		lines = append(lines, "", HelpStyle.Render("Statements"))
		total := decimal.Zero
		for _, r := range s.Records {
			total = total.Add(r.Amount)
			lines = append(lines, row(
				BankStyle(r.Bank).Render(string(r.Bank))+" "+r.Date,
				FormatAmount(r.Amount),
			))
		}
		lines = append(lines, row("Total", lipgloss.NewStyle().Bold(true).Render(FormatAmount(total))))
	}

	return PanelStyle.Render(strings.Join(lines, "\n"))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
