package claude

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paceguard/paceguard/internal/config"
	"github.com/paceguard/paceguard/internal/costscan"
	"github.com/paceguard/paceguard/internal/fetch"
	"github.com/paceguard/paceguard/internal/models"
	"github.com/paceguard/paceguard/internal/ptysession"
	"github.com/paceguard/paceguard/internal/shell"
	"github.com/paceguard/paceguard/internal/textparse"
)

// cliSession is the process-wide PTY session shared by every CLI capture,
// matching the spec's rule that the PTY session is a per-process singleton
// reused or cleanly terminated across calls.
var cliSession = ptysession.New()

// claudeCLIPrompts are auto-responses to prompts the Claude CLI is known to
// paint before settling into its usage view.
var claudeCLIPrompts = []ptysession.PromptResponse{
	{Needle: "Do you trust the files in this folder", Response: "\r"},
	{Needle: "Press Enter to continue", Response: "\r"},
}

var usageStopSubstrings = []string{
	"Current week (all models)",
	"Current week (Opus)",
	"Current week (Sonnet only)",
	"Current session",
	"Failed to load usage data",
}

var statusStopSubstrings = []string{"Account", "Organization"}

// CLIStrategy drives the interactive `claude` binary's `/usage` (and,
// opportunistically, `/status`) commands over a pseudo-terminal. Neither is a
// scriptable CLI — both are TUI views — so this strategy scrapes the
// rendered panel instead of calling an API.
type CLIStrategy struct{}

func (s *CLIStrategy) Name() string { return "cli" }

func (s *CLIStrategy) IsAvailable() bool {
	_, err := shell.Find("claude")
	return err == nil
}

func (s *CLIStrategy) Fetch(ctx context.Context) (fetch.FetchResult, error) {
	binPath, err := shell.Find("claude")
	if err != nil {
		return fetch.ResultFail("claude CLI not found"), nil
	}

	usageOut, err := cliSession.Capture(ctx, ptysession.CaptureOptions{
		Subcommand:      "/usage",
		BinaryPath:      binPath,
		WorkDir:         scratchDir(),
		TotalTimeout:    20 * time.Second,
		IdleTimeout:     3 * time.Second,
		StopSubstrings:  usageStopSubstrings,
		SettleAfterStop: 2 * time.Second,
		Prompts:         claudeCLIPrompts,
	})
	if err != nil {
		return fetch.ResultFailKind(fetch.CommandFailed("claude CLI capture failed: " + err.Error())), nil
	}

	clean := textparse.StripANSI(usageOut)
	if strings.Contains(clean, "Failed to load usage data") {
		return fetch.ResultFailKind(fetch.APIError("claude CLI reported a failure loading usage data")), nil
	}

	snapshot := parseCLIUsageOutput(clean)
	if snapshot == nil {
		return fetch.ResultFailKind(fetch.ParseError("could not parse claude CLI usage output")), nil
	}

	// /status is best-effort identity enrichment; its failure doesn't fail
	// the overall fetch, since /usage already produced a usable snapshot.
	statusOut, statusErr := cliSession.Capture(ctx, ptysession.CaptureOptions{
		Subcommand:      "/status",
		BinaryPath:      binPath,
		WorkDir:         scratchDir(),
		TotalTimeout:    12 * time.Second,
		IdleTimeout:     2 * time.Second,
		StopSubstrings:  statusStopSubstrings,
		SettleAfterStop: 1 * time.Second,
		Prompts:         claudeCLIPrompts,
	})
	if statusErr == nil {
		applyStatusIdentity(snapshot, statusOut)
	}

	if costSnap, err := costscan.Scan("claude", false); err == nil {
		snapshot.Cost = costToProviderInfo(costSnap)
	}

	return fetch.ResultOK(*snapshot), nil
}

// latestUsagePanel returns the most recent full repaint of the usage view:
// the PTY scrollback accumulates every intermediate paint the CLI sent, and
// only the text from the last "Settings:" anchor onward reflects the final
// state.
func latestUsagePanel(clean string) string {
	idx := strings.LastIndex(clean, "Settings:")
	if idx < 0 {
		return clean
	}
	return clean[idx:]
}

func parseCLIUsageOutput(clean string) *models.UsageSnapshot {
	panel := latestUsagePanel(clean)
	now := time.Now().UTC()
	snap := &models.UsageSnapshot{ProviderID: "claude", UpdatedAt: now, Source: "cli"}

	if pct, ok := textparse.ExtractLabeledPercent(panel, "Current session"); ok {
		w := models.NewRateWindow(pct, "Session")
		mins := 5 * 60
		w.WindowMinutes = &mins
		if resetAt, ok := textparse.ExtractReset(labelWindow(panel, "Current session"), now); ok {
			w.ResetsAt = &resetAt
		}
		snap.Primary = &w
	}

	for _, label := range []string{"Current week (all models)", "Current week (Opus)", "Current week (Sonnet only)"} {
		pct, ok := textparse.ExtractLabeledPercent(panel, label)
		if !ok {
			continue
		}
		w := models.NewRateWindow(pct, weeklyLabel(label))
		mins := 7 * 24 * 60
		w.WindowMinutes = &mins
		if resetAt, ok := textparse.ExtractReset(labelWindow(panel, label), now); ok {
			w.ResetsAt = &resetAt
		}
		if snap.Secondary == nil {
			snap.Secondary = &w
		} else if snap.Tertiary == nil {
			snap.Tertiary = &w
		}
	}

	if snap.Primary == nil && snap.Secondary == nil && snap.Tertiary == nil {
		return nil
	}
	return snap
}

func weeklyLabel(rawLabel string) string {
	switch rawLabel {
	case "Current week (Opus)":
		return "Opus"
	case "Current week (Sonnet only)":
		return "Sonnet"
	default:
		return "All Models"
	}
}

// labelWindow returns a bounded lookahead window after label, the text a
// reset string is expected to appear within.
func labelWindow(text, label string) string {
	idx := strings.Index(text, label)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(label):]
	if len(rest) > 120 {
		rest = rest[:120]
	}
	return rest
}

func applyStatusIdentity(snap *models.UsageSnapshot, statusOut string) {
	clean := textparse.StripANSI(statusOut)
	email := firstFieldAfter(clean, "Email:")
	org := firstFieldAfter(clean, "Organization:")
	plan := firstFieldAfter(clean, "Plan:")
	if email == "" && org == "" && plan == "" {
		return
	}
	snap.Identity = &models.ProviderIdentity{Email: email, Organization: org, Plan: plan, AuthMethod: "cli"}
}

func firstFieldAfter(text, label string) string {
	idx := strings.Index(text, label)
	if idx < 0 {
		return ""
	}
	fields := strings.Fields(text[idx+len(label):])
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func costToProviderInfo(snap *models.CostSnapshot) *models.ProviderCostInfo {
	if snap == nil {
		return nil
	}
	daily := snap.Today.CostUSD
	monthly := snap.Last30Days.CostUSD
	return &models.ProviderCostInfo{
		DailyUSD:   &daily,
		MonthlyUSD: &monthly,
		Currency:   "USD",
	}
}

// scratchDir is the stable per-user working directory the CLI is spawned
// from, so relative paths it resolves (project config, trust markers) behave
// the same way run after run.
func scratchDir() string {
	dir := filepath.Join(config.CacheDir(), "cli-scratch")
	_ = os.MkdirAll(dir, 0o755)
	return dir
}
