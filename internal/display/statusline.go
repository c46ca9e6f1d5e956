package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/paceguard/paceguard/internal/fetch"
	"github.com/paceguard/paceguard/internal/models"
	"github.com/paceguard/paceguard/internal/provider"
)

// StatuslineMode determines the output format for statusline display.
type StatuslineMode string

const (
	StatuslineModePretty StatuslineMode = "pretty"
	StatuslineModeShort  StatuslineMode = "short"
	StatuslineModeJSON   StatuslineMode = "json"
)

// StatuslineOptions configures statusline rendering.
type StatuslineOptions struct {
	Mode    StatuslineMode
	Limit   int
	NoColor bool
}

// RenderStatusline outputs statusline-formatted data for the given outcomes.
func RenderStatusline(w io.Writer, outcomes map[string]fetch.FetchOutcome, opts StatuslineOptions) error {
	if opts.Mode == StatuslineModeJSON {
		return renderStatuslineJSON(w, outcomes)
	}
	showBar := opts.Mode == StatuslineModePretty
	showProviderLabel := len(outcomes) != 1
	return renderStatuslineTable(w, outcomes, showProviderLabel, showBar, opts.NoColor, opts.Limit)
}

// periodColumn holds the pre-rendered data for one period in a statusline row.
type periodColumn struct {
	qualifier string
	duration  string
	bar       string // empty when showBar is false
	pct       string
	timer     string
}

// renderStatuslineTable renders a compact table for both pretty and short modes.
// When showBar is true, a visual bar column is included between duration and pct.
func renderStatuslineTable(w io.Writer, outcomes map[string]fetch.FetchOutcome, showProviderLabel, showBar, noColor bool, limit int) error {
	ids := sortedOutcomeIDs(outcomes)

	type row struct {
		provider string
		periods  []periodColumn
	}
	var rows []row
	maxProviderWidth := 0

	for _, pid := range ids {
		outcome := outcomes[pid]
		if !outcome.Success || outcome.Snapshot == nil {
			continue
		}

		r := row{provider: provider.DisplayName(pid)}
		if len(r.provider) > maxProviderWidth {
			maxProviderWidth = len(r.provider)
		}

		windows := NamedWindows(*outcome.Snapshot)
		if limit > 0 && len(windows) > limit {
			windows = windows[:limit]
		}

		for _, nw := range windows {
			w := nw.Window
			utilization := min(int(w.UsedPercent), 100)
			var pace *float64
			if w.ResetsAt != nil && w.WindowMinutes != nil {
				if p := models.CalculatePace(w.UsedPercent, *w.ResetsAt, *w.WindowMinutes, time.Now()); p != nil {
					ratio := (p.ExpectedUsedPercent + p.DeltaPercent) / max64(p.ExpectedUsedPercent, 1)
					pace = &ratio
				}
			}
			color := PaceToColor(pace, w.UsedPercent)
			qual, dur := windowNameParts(nw.Name, w)
			timer := formatDurationCompact(w.TimeToReset())
			if timer == "" {
				timer = "-"
			}

			col := periodColumn{
				qualifier: qual,
				duration:  dur,
				pct:       fmt.Sprintf("%.0f%%", w.UsedPercent),
				timer:     timer,
			}

			if showBar {
				filled := utilization * 10 / 100
				bar := strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
				col.bar = colorStyle(color).Render(bar)
				col.pct = colorStyle(color).Render(col.pct)
			} else if !noColor {
				col.pct = colorStyle(color).Render(col.pct)
			}

			r.periods = append(r.periods, col)
		}

		rows = append(rows, r)
	}

	// Determine column layout
	hasQualifier := false
	maxPeriods := 1
	for _, r := range rows {
		if len(r.periods) > maxPeriods {
			maxPeriods = len(r.periods)
		}
		for _, p := range r.periods {
			if p.qualifier != "" {
				hasQualifier = true
			}
		}
	}

	colsPerPeriod := countPeriodCols(showBar, hasQualifier)
	providerCols := 0
	if showProviderLabel {
		providerCols = 1
	}
	totalCols := providerCols + maxPeriods*colsPerPeriod

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(statuslineStyleFunc(showProviderLabel, hasQualifier, showBar, providerCols, colsPerPeriod, maxProviderWidth))

	for _, r := range rows {
		cells := make([]string, totalCols)
		if showProviderLabel {
			cells[0] = r.provider
		}
		for i, p := range r.periods {
			if i >= maxPeriods {
				break
			}
			fillPeriodCells(cells, providerCols+i*colsPerPeriod, p, hasQualifier, showBar)
		}
		t.Row(cells...)
	}

	rendered := t.Render()
	_, err := fmt.Fprintln(w, cleanTableOutput(rendered, !showProviderLabel))
	return err
}

// statuslineStyleFunc returns a StyleFunc for the statusline table.
func statuslineStyleFunc(showProviderLabel, hasQualifier, showBar bool, providerCols, colsPerPeriod, maxProviderWidth int) func(int, int) lipgloss.Style {
	return func(_, col int) lipgloss.Style {
		if showProviderLabel && col == 0 {
			return lipgloss.NewStyle().Bold(true).Align(lipgloss.Right).Width(maxProviderWidth)
		}
		periodCol := (col - providerCols) % colsPerPeriod
		return periodCellStyle(periodCol, hasQualifier, showBar)
	}
}

// periodCellStyle returns the lipgloss style for a given sub-column within a period group.
func periodCellStyle(periodCol int, hasQualifier, showBar bool) lipgloss.Style {
	// Normalize to a canonical field index regardless of which optional columns are present.
	// Fields in order: [qualifier?] [duration] [bar?] [pct] [timer]
	field := periodCol
	if !hasQualifier {
		field++ // skip qualifier slot
	}
	if !showBar && field >= 2 {
		field++ // skip bar slot
	}

	switch field {
	case 0: // qualifier
		return lipgloss.NewStyle().Align(lipgloss.Right).Foreground(lipgloss.Color("240"))
	case 1: // duration
		return lipgloss.NewStyle().Align(lipgloss.Right).Foreground(lipgloss.Color("245"))
	case 2: // bar
		return lipgloss.NewStyle().Align(lipgloss.Left)
	case 3: // pct
		return lipgloss.NewStyle().Align(lipgloss.Right)
	case 4: // timer
		return lipgloss.NewStyle().Align(lipgloss.Right).Foreground(lipgloss.Color("240"))
	}
	return lipgloss.NewStyle()
}

// countPeriodCols returns the number of table columns per period.
func countPeriodCols(showBar, hasQualifier bool) int {
	n := 3 // duration, pct, timer
	if showBar {
		n++
	}
	if hasQualifier {
		n++
	}
	return n
}

// fillPeriodCells populates the table cells for one period starting at base.
func fillPeriodCells(cells []string, base int, p periodColumn, hasQualifier, showBar bool) {
	i := base
	if hasQualifier {
		cells[i] = p.qualifier
		i++
	}
	cells[i] = p.duration
	i++
	if showBar {
		cells[i] = p.bar
		i++
	}
	cells[i] = p.pct
	i++
	cells[i] = p.timer
}

// renderStatuslineJSON renders machine-readable JSON.
func renderStatuslineJSON(w io.Writer, outcomes map[string]fetch.FetchOutcome) error {
	entries := make([]StatuslineJSON, 0, len(outcomes))

	for _, pid := range sortedOutcomeIDs(outcomes) {
		outcome := outcomes[pid]
		entry := StatuslineJSON{Provider: pid}

		if !outcome.Success || outcome.Snapshot == nil {
			entry.Error = outcome.Error
			if entry.Error == "" {
				entry.Error = "unavailable"
			}
		} else {
			snap := *outcome.Snapshot
			for _, nw := range NamedWindows(snap) {
				entry.Periods = append(entry.Periods, StatuslinePeriodJSON{
					Name:        nw.Name,
					Utilization: int(nw.Window.UsedPercent),
				})
			}

			if snap.Overage != nil && snap.Overage.IsEnabled {
				o := snap.Overage
				entry.Overage = &StatuslineOverageJSON{
					Used:        o.Used,
					Limit:       o.Limit,
					Currency:    o.Currency,
					Utilization: float64(o.UtilizationPct()),
				}
			}
		}

		entries = append(entries, entry)
	}

	return OutputJSON(w, entries)
}

// sortedOutcomeIDs returns sorted provider IDs from an outcomes map.
func sortedOutcomeIDs(outcomes map[string]fetch.FetchOutcome) []string {
	ids := make([]string, 0, len(outcomes))
	for id := range outcomes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// windowDurationLabel returns a compact duration label derived from a
// window's reset interval.
func windowDurationLabel(w models.RateWindow) string {
	if w.WindowMinutes == nil {
		return ""
	}
	hours := *w.WindowMinutes / 60
	switch {
	case hours <= 0:
		return fmt.Sprintf("%dm", *w.WindowMinutes)
	case hours < 24:
		return fmt.Sprintf("%dh", hours)
	case hours%24 == 0 && hours/24 == 7:
		return "7d"
	case hours%24 == 0 && hours/24 >= 28:
		return "30d"
	default:
		return fmt.Sprintf("%dd", hours/24)
	}
}

// windowNameParts returns the qualifier and duration label for a window.
// The qualifier carries the window's model name when present, truncated
// to keep the statusline compact.
func windowNameParts(name string, w models.RateWindow) (qualifier, duration string) {
	duration = windowDurationLabel(w)
	if w.Model != "" {
		qual := w.Model
		if len(qual) > 4 {
			qual = qual[:4]
		}
		qualifier = qual
	}
	return
}

// formatDurationCompact formats a duration in compact form (e.g., "7h", "6d9h").
func formatDurationCompact(d *time.Duration) string {
	if d == nil {
		return ""
	}

	hours := int(d.Hours())
	days := hours / 24
	remainingHours := hours % 24

	if days > 0 {
		if remainingHours > 0 {
			return fmt.Sprintf("%dd%dh", days, remainingHours)
		}
		return fmt.Sprintf("%dd", days)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh", hours)
	}

	minutes := int(d.Minutes())
	if minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}

	return "<1m"
}

// cleanTableOutput strips blank lines and trailing spaces from rendered table
// output. When trimLeft is true, it also strips leading whitespace per line
// (used when there's no provider column to preserve alignment for).
func cleanTableOutput(rendered string, trimLeft bool) string {
	lines := strings.Split(rendered, "\n")
	var cleaned []string
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " ")
		if trimLeft {
			trimmed = strings.TrimLeft(trimmed, " ")
		}
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "\n")
}
