package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/paceguard/paceguard/internal/models"
	"github.com/paceguard/paceguard/internal/modelmap"
	"github.com/paceguard/paceguard/internal/provider"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	greenStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	yellowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	redStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func colorStyle(color string) lipgloss.Style {
	switch color {
	case "green":
		return greenStyle
	case "yellow":
		return yellowStyle
	case "red":
		return redStyle
	default:
		return lipgloss.NewStyle()
	}
}

func RenderBar(usedPercent float64, width int, color string) string {
	filled := max(0, min(int(usedPercent)*width/100, width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return colorStyle(color).Render(bar)
}

// windowTableRow is one rate-window entry for the table builder. displayName
// allows overriding the name shown (e.g. indented sub-windows).
type windowTableRow struct {
	displayName string
	window      models.RateWindow
}

// buildWindowTable renders window rows as borderless lipgloss tables. Each
// window is its own single-row table so detail sub-lines can be inserted
// between rows without inflating column width for every panel.
func buildWindowTable(rows []windowTableRow) string {
	if len(rows) == 0 {
		return ""
	}

	nameWidth := 0
	for _, r := range rows {
		nameWidth = max(nameWidth, len(r.displayName))
	}

	styleFunc := func(_ int, col int) lipgloss.Style {
		switch col {
		case 0:
			return lipgloss.NewStyle().Width(nameWidth)
		case 2:
			return lipgloss.NewStyle().Align(lipgloss.Right)
		case 3:
			return lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
		}
		return lipgloss.NewStyle()
	}

	var lines []string
	for _, r := range rows {
		lines = append(lines, cleanWindowTableOutput(renderWindowRow(r, styleFunc)))
	}

	return strings.Join(lines, "\n")
}

func renderWindowRow(r windowTableRow, styleFunc func(int, int) lipgloss.Style) string {
	w := r.window
	var pace *float64
	if w.ResetsAt != nil && w.WindowMinutes != nil {
		if p := models.CalculatePace(w.UsedPercent, *w.ResetsAt, *w.WindowMinutes, time.Now()); p != nil {
			ratio := (p.ExpectedUsedPercent + p.DeltaPercent) / max64(p.ExpectedUsedPercent, 1)
			pace = &ratio
		}
	}
	color := PaceToColor(pace, w.UsedPercent)
	pct := colorStyle(color).Render(fmt.Sprintf("%.0f%%", w.UsedPercent))
	bar := RenderBar(w.UsedPercent, 20, color)

	reset := ""
	if d := w.TimeToReset(); d != nil {
		reset = "resets in " + FormatResetCountdown(d)
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(styleFunc).
		Row(r.displayName, bar, pct, reset)
	return t.Render()
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// cleanWindowTableOutput strips the single leading border space and trailing
// whitespace from each line of rendered table output, and removes empty lines.
func cleanWindowTableOutput(rendered string) string {
	lines := strings.Split(rendered, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimPrefix(line, " ")
		line = strings.TrimRight(line, " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// formatSubWindowName returns the display name for a window within a section
// group (e.g. "  Claude Sonnet 4.5"). Names are indented with two spaces.
// When the model catalog cache is warm, a raw API model ID is resolved to
// its canonical display name; otherwise the raw ID is shown as-is rather
// than risk a network fetch mid-render.
func formatSubWindowName(w *models.RateWindow) string {
	if w.Model != "" {
		return "  " + canonicalModelName(w.Model)
	}
	if w.Label == "" {
		return "  Usage"
	}
	return "  " + w.Label
}

func canonicalModelName(raw string) string {
	if !modelmap.CacheIsFresh() {
		return raw
	}
	if info := modelmap.Lookup(raw); info != nil {
		return info.Name
	}
	return raw
}

// formatCostLine formats a cost info line with the given label prefix.
func formatCostLine(c *models.ProviderCostInfo, label string) string {
	sym := ""
	if c.Currency == "USD" {
		sym = "$"
	}
	if c.TotalCredits != nil && c.RemainingCredits != nil {
		used := *c.TotalCredits - *c.RemainingCredits
		return fmt.Sprintf("%s: %s%.2f / %s%.2f %s", label, sym, used, sym, *c.TotalCredits, c.Currency)
	}
	if c.DailyUSD != nil {
		return fmt.Sprintf("%s: %s%.2f today", label, sym, *c.DailyUSD)
	}
	if c.MonthlyUSD != nil {
		return fmt.Sprintf("%s: %s%.2f this month", label, sym, *c.MonthlyUSD)
	}
	return ""
}

// RenderSingleProvider renders a single provider in expanded detail format
// with a provider title above a "Usage" panel, plus optional status info.
func RenderSingleProvider(snapshot models.UsageSnapshot, cached bool) string {
	var out strings.Builder

	providerTitle := titleStyle.Render(provider.DisplayName(snapshot.ProviderID))
	if cached {
		providerTitle += dimStyle.Render(" (" + formatAge(time.Since(snapshot.UpdatedAt)) + " ago)")
	}
	out.WriteString(providerTitle)
	out.WriteByte('\n')

	if meta := renderMetaLine(snapshot); meta != "" {
		out.WriteString(meta)
		out.WriteByte('\n')
	}

	if snapshot.Status != nil {
		out.WriteByte('\n')
		out.WriteString(renderStatusLine(*snapshot.Status))
		out.WriteByte('\n')
	}

	out.WriteByte('\n')
	out.WriteString(renderUsagePanel(snapshot))

	return out.String()
}

// renderMetaLine builds a labeled metadata line from identity and source fields.
func renderMetaLine(snapshot models.UsageSnapshot) string {
	type labeledField struct {
		label string
		value string
	}

	var fields []labeledField

	if snapshot.Identity != nil {
		if snapshot.Identity.Plan != "" {
			fields = append(fields, labeledField{"Plan", snapshot.Identity.Plan})
		}
		if snapshot.Identity.Organization != "" {
			fields = append(fields, labeledField{"Org", snapshot.Identity.Organization})
		}
		if snapshot.Identity.Email != "" {
			fields = append(fields, labeledField{"Account", snapshot.Identity.Email})
		}
	}

	if snapshot.Source != "" {
		fields = append(fields, labeledField{"Auth", formatSourceName(snapshot.Source)})
	}

	if len(fields) == 0 {
		return ""
	}

	maxLabel := 0
	for _, f := range fields {
		maxLabel = max(maxLabel, len(f.label))
	}

	lines := make([]string, len(fields))
	for i, f := range fields {
		pad := strings.Repeat(" ", maxLabel-len(f.label))
		lines[i] = dimStyle.Render(f.label) + pad + "  " + f.value
	}
	return strings.Join(lines, "\n")
}

// formatSourceName returns a human-readable name for a fetch source.
func formatSourceName(source string) string {
	switch source {
	case "oauth":
		return "OAuth"
	case "web":
		return "Web Session"
	case "api_key":
		return "API Key"
	case "device_flow":
		return "Device Flow"
	case "provider_cli":
		return "CLI"
	default:
		return source
	}
}

// renderStatusLine renders a compact status indicator line.
func renderStatusLine(status models.ProviderStatus) string {
	sym := StatusSymbol(status.Level, false)
	desc := string(status.Level)
	if status.Description != "" {
		desc = status.Description
	}
	line := sym + " " + desc
	if status.UpdatedAt != nil {
		line += dimStyle.Render("  " + FormatStatusUpdated(status.UpdatedAt))
	}
	return line
}

// renderUsagePanel renders the usage data inside a titled "Usage" panel.
func renderUsagePanel(snapshot models.UsageSnapshot) string {
	var b strings.Builder

	windows := NamedWindows(snapshot)
	if len(windows) > 0 {
		var rows []windowTableRow
		for _, nw := range windows {
			rows = append(rows, windowTableRow{nw.Name, nw.Window})
		}
		b.WriteString(buildWindowTable(rows))
	}

	if snapshot.Overage != nil && snapshot.Overage.IsEnabled {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(formatOverageLine(snapshot.Overage, "Extra Usage"))
	}
	if snapshot.Cost != nil {
		if line := formatCostLine(snapshot.Cost, "Cost"); line != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(line)
		}
	}

	return renderTitledPanel(titleStyle.Render("Usage"), b.String(), 0)
}

func formatOverageLine(o *models.OverageUsage, label string) string {
	sym := ""
	if o.Currency == "USD" {
		sym = "$"
	}
	if o.Limit > 0 {
		return fmt.Sprintf("%s: %s%.2f / %s%.2f %s", label, sym, o.Used, sym, o.Limit, o.Currency)
	}
	return fmt.Sprintf("%s: %s%.2f %s (Unlimited)", label, sym, o.Used, o.Currency)
}

// NamedWindow pairs a display name with its RateWindow.
type NamedWindow struct {
	Name   string
	Window models.RateWindow
}

// namedWindows returns Primary, Secondary, Tertiary (when present) labeled
// for display, in priority order.
func NamedWindows(snapshot models.UsageSnapshot) []NamedWindow {
	var out []NamedWindow
	if snapshot.Primary != nil {
		out = append(out, NamedWindow{windowLabel(snapshot.Primary, "Session"), *snapshot.Primary})
	}
	if snapshot.Secondary != nil {
		out = append(out, NamedWindow{windowLabel(snapshot.Secondary, "Weekly"), *snapshot.Secondary})
	}
	if snapshot.Tertiary != nil {
		out = append(out, NamedWindow{formatSubWindowName(snapshot.Tertiary), *snapshot.Tertiary})
	}
	return out
}

func windowLabel(w *models.RateWindow, fallback string) string {
	if w.Label != "" {
		return w.Label
	}
	return fallback
}

// PeriodColWidths holds pre-computed column widths used to ensure consistent
// panel sizing across all providers in the dashboard view.
type PeriodColWidths struct{ Name, Pct, Reset int }

// RowWidth returns the total visible width of a fully-populated window row
// as rendered by a borderless lipgloss table. Each column is separated by
// one hidden-border space, plus left and right border spaces.
func (cw PeriodColWidths) RowWidth() int {
	return cw.Name + 20 + cw.Pct + cw.Reset + 5
}

// GlobalPeriodColWidths computes the widest values for each column across all
// provided snapshots, using the same name normalisations as RenderProviderPanel.
func GlobalPeriodColWidths(snapshots []models.UsageSnapshot) PeriodColWidths {
	var cw PeriodColWidths
	for _, s := range snapshots {
		for _, nw := range NamedWindows(s) {
			cw.Name = max(cw.Name, len(nw.Name))
			cw.Pct = max(cw.Pct, len(fmt.Sprintf("%.0f%%", nw.Window.UsedPercent)))
			if d := nw.Window.TimeToReset(); d != nil {
				cw.Reset = max(cw.Reset, len("resets in "+FormatResetCountdown(d)))
			}
		}
	}
	return cw
}

// renderWindowTable renders a slice of named windows as a borderless table,
// using shared column widths for consistent cross-panel alignment.
func renderWindowTable(windows []NamedWindow, cw PeriodColWidths) string {
	var rows []windowTableRow
	for _, nw := range windows {
		rows = append(rows, windowTableRow{nw.Name, nw.Window})
	}
	return buildWindowTableWithWidths(rows, cw)
}

func buildWindowTableWithWidths(rows []windowTableRow, cw PeriodColWidths) string {
	if len(rows) == 0 {
		return ""
	}

	styleFunc := func(_ int, col int) lipgloss.Style {
		switch col {
		case 0:
			return lipgloss.NewStyle().Width(cw.Name)
		case 1:
			return lipgloss.NewStyle().Width(20)
		case 2:
			return lipgloss.NewStyle().Align(lipgloss.Right).Width(cw.Pct)
		case 3:
			return lipgloss.NewStyle().Width(cw.Reset).Foreground(lipgloss.Color("240"))
		}
		return lipgloss.NewStyle()
	}

	var lines []string
	for _, r := range rows {
		lines = append(lines, cleanWindowTableOutput(renderWindowRow(r, styleFunc)))
	}

	return strings.Join(lines, "\n")
}

// RenderProviderPanel renders a provider in compact panel format for multi-provider view.
// Pass column widths from GlobalPeriodColWidths so all panels share identical column sizing.
func RenderProviderPanel(snapshot models.UsageSnapshot, cached bool, cw PeriodColWidths) string {
	var b strings.Builder

	b.WriteString(renderWindowTable(NamedWindows(snapshot), cw))

	if snapshot.Overage != nil && snapshot.Overage.IsEnabled {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(formatOverageLine(snapshot.Overage, "Extra"))
	}

	title := titleStyle.Render(provider.DisplayName(snapshot.ProviderID))
	if cached {
		title += dimStyle.Render(" (" + formatAge(time.Since(snapshot.UpdatedAt)) + " ago)")
	}
	return renderTitledPanel(title, b.String(), cw.RowWidth())
}

func renderTitledPanel(title string, body string, minWidth int) string {
	lines := strings.Split(body, "\n")
	if len(lines) == 0 {
		lines = []string{""}
	}

	bodyWidth := minWidth
	for _, line := range lines {
		bodyWidth = max(bodyWidth, lipgloss.Width(line))
	}

	innerWidth := max(bodyWidth+2, lipgloss.Width(title)+1)
	top := separatorStyle.Render("╭─") + title + separatorStyle.Render(strings.Repeat("─", max(0, innerWidth-lipgloss.Width(title)-1))+"╮")
	bottom := separatorStyle.Render("╰" + strings.Repeat("─", innerWidth) + "╯")

	rows := make([]string, 0, len(lines)+2)
	rows = append(rows, top)
	for _, line := range lines {
		pad := strings.Repeat(" ", max(0, bodyWidth-lipgloss.Width(line)))
		rows = append(rows, separatorStyle.Render("│")+" "+line+pad+" "+separatorStyle.Render("│"))
	}
	rows = append(rows, bottom)

	return strings.Join(rows, "\n")
}

// formatAge formats a duration as a compact human-readable age string.
func formatAge(d time.Duration) string {
	if d.Hours() >= 24 {
		days := int(d.Hours() / 24)
		return fmt.Sprintf("%dd", days)
	}
	if d.Hours() >= 1 {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	if d.Minutes() >= 1 {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return "<1m"
}

// RenderProviderError renders a compact error line for a failed provider.
// Only suggests auth when the error is actually about missing credentials.
func RenderProviderError(providerID string, errMsg string) string {
	name := provider.DisplayName(providerID)
	line := dimStyle.Render(name + ": " + errMsg)
	if isCredentialError(errMsg) {
		line += dimStyle.Render("  (paceguard auth " + providerID + ")")
	}
	return line
}

func isCredentialError(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	for _, s := range []string{"not configured", "no credentials", "no oauth", "no strategies", "authentication required", "invalid credentials"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// StatusSymbol returns a colored status indicator symbol.
// When noColor is true, the plain symbol is returned without ANSI styling.
func StatusSymbol(level models.StatusLevel, noColor bool) string {
	sym := "?"
	var style lipgloss.Style

	switch level {
	case models.StatusOperational:
		sym = "●"
		style = greenStyle
	case models.StatusDegraded:
		sym = "◐"
		style = yellowStyle
	case models.StatusPartialOutage:
		sym = "◑"
		style = yellowStyle
	case models.StatusMajorOutage:
		sym = "○"
		style = redStyle
	default:
		style = dimStyle
	}

	if noColor {
		return sym
	}
	return style.Render(sym)
}

func FormatStatusUpdated(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	d := time.Since(*t)
	if d.Hours() >= 24 {
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	if d.Hours() >= 1 {
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	if d.Minutes() >= 1 {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	return "just now"
}
