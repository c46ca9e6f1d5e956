package models

import (
	"strconv"
	"time"
)

// RateWindow is one rate-limit bucket a provider reports against: a session
// quota, a weekly quota, a per-model sub-quota, and so on.
type RateWindow struct {
	UsedPercent   float64    `json:"used_percent"`
	UsedTokens    *int64     `json:"used_tokens,omitempty"`
	LimitTokens   *int64     `json:"limit_tokens,omitempty"`
	UsedMessages  *int64     `json:"used_messages,omitempty"`
	LimitMessages *int64     `json:"limit_messages,omitempty"`
	WindowMinutes *int       `json:"window_minutes,omitempty"`
	ResetsAt      *time.Time `json:"resets_at,omitempty"`
	Label         string     `json:"label,omitempty"`
	Model         string     `json:"model,omitempty"`
}

// NewRateWindow clamps usedPercent into [0, 100]; use it instead of a bare
// struct literal whenever the source value might fall outside that range.
func NewRateWindow(usedPercent float64, label string) RateWindow {
	return RateWindow{UsedPercent: ClampPercent(usedPercent), Label: label}
}

// ClampPercent clamps a float percentage to [0, 100].
func ClampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampPct clamps an integer percentage to [0, 100].
func ClampPct(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func (w RateWindow) RemainingPercent() float64 {
	return 100 - w.UsedPercent
}

func (w RateWindow) TimeToReset() *time.Duration {
	if w.ResetsAt == nil {
		return nil
	}
	d := time.Until(*w.ResetsAt)
	if d < 0 {
		d = 0
	}
	return &d
}

type OverageUsage struct {
	Used      float64 `json:"used"`
	Limit     float64 `json:"limit"`
	Currency  string  `json:"currency"`
	IsEnabled bool    `json:"is_enabled"`
}

func (o OverageUsage) Remaining() float64 {
	r := o.Limit - o.Used
	if r < 0 {
		return 0
	}
	return r
}

func (o OverageUsage) UtilizationPct() int {
	if o.Limit <= 0 {
		if o.Used > 0 {
			return 100
		}
		return 0
	}
	pct := int((o.Used / o.Limit) * 100)
	if pct > 100 {
		return 100
	}
	return pct
}

// ProviderCostInfo is optional spend/credit information attached to a
// snapshot. If both RemainingCredits and TotalCredits are present,
// 0 <= RemainingCredits <= TotalCredits.
type ProviderCostInfo struct {
	DailyUSD         *float64 `json:"daily_usd,omitempty"`
	MonthlyUSD       *float64 `json:"monthly_usd,omitempty"`
	RemainingCredits *float64 `json:"remaining_credits,omitempty"`
	TotalCredits     *float64 `json:"total_credits,omitempty"`
	Currency         string   `json:"currency,omitempty"`
	PeriodLabel      string   `json:"period_label,omitempty"`
}

type ProviderIdentity struct {
	Email        string `json:"email,omitempty"`
	Organization string `json:"organization,omitempty"`
	Plan         string `json:"plan,omitempty"`
	AuthMethod   string `json:"auth_method,omitempty"`
}

type StatusLevel string

const (
	StatusOperational   StatusLevel = "operational"
	StatusDegraded      StatusLevel = "degraded"
	StatusPartialOutage StatusLevel = "partial_outage"
	StatusMajorOutage   StatusLevel = "major_outage"
	StatusUnknown       StatusLevel = "unknown"
)

type ProviderStatus struct {
	Level       StatusLevel `json:"level"`
	Description string      `json:"description,omitempty"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
}

// UsageSnapshot is a provider's usage at one moment. Up to three RateWindows
// are carried: Primary (the tightest/shortest quota, e.g. a 5-hour session
// window), Secondary (e.g. a weekly window), and Tertiary (a model-specific
// sub-quota). UpdatedAt must be monotonic per (ProviderID, AccountID) within
// a process.
type UsageSnapshot struct {
	ProviderID string            `json:"provider_id"`
	AccountID  *string           `json:"account_id,omitempty"`
	Primary    *RateWindow       `json:"primary,omitempty"`
	Secondary  *RateWindow       `json:"secondary,omitempty"`
	Tertiary   *RateWindow       `json:"tertiary,omitempty"`
	Cost       *ProviderCostInfo `json:"cost,omitempty"`
	Overage    *OverageUsage     `json:"overage,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Identity   *ProviderIdentity `json:"identity,omitempty"`
	Status     *ProviderStatus   `json:"status,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Source     string            `json:"source,omitempty"`
}

// Windows returns the present RateWindows in Primary, Secondary, Tertiary
// order.
func (s UsageSnapshot) Windows() []RateWindow {
	var out []RateWindow
	for _, w := range []*RateWindow{s.Primary, s.Secondary, s.Tertiary} {
		if w != nil {
			out = append(out, *w)
		}
	}
	return out
}

// HighestUsagePercent returns the max UsedPercent over the present windows,
// or 0 if none are present.
func (s UsageSnapshot) HighestUsagePercent() float64 {
	best := 0.0
	for _, w := range s.Windows() {
		if w.UsedPercent > best {
			best = w.UsedPercent
		}
	}
	return best
}

func (s UsageSnapshot) IsDepleted() bool {
	return s.HighestUsagePercent() >= 99
}

func (s UsageSnapshot) IsApproaching() bool {
	return s.HighestUsagePercent() >= 80
}

func (s UsageSnapshot) IsStale(maxAgeMinutes int) bool {
	return time.Since(s.UpdatedAt).Minutes() > float64(maxAgeMinutes)
}

// PaceStage buckets the delta between actual and expected consumption into
// seven tiers.
type PaceStage string

const (
	StageOnTrack        PaceStage = "on-track"
	StageSlightlyAhead  PaceStage = "slightly-ahead"
	StageAhead          PaceStage = "ahead"
	StageFarAhead       PaceStage = "far-ahead"
	StageSlightlyBehind PaceStage = "slightly-behind"
	StageBehind         PaceStage = "behind"
	StageFarBehind      PaceStage = "far-behind"
)

// UsagePace is the derived pace indicator for a single RateWindow: how actual
// consumption compares to a linear expected schedule from window start to
// reset.
type UsagePace struct {
	ExpectedUsedPercent float64
	DeltaPercent        float64
	Stage               PaceStage
	ETASeconds          *float64
	WillLastToReset     bool
}

// CalculatePace implements the pace formula: expected usage assumes linear
// consumption across [window start, resetsAt], delta is actual minus
// expected, and stage buckets delta at the 5/10/20-point thresholds. Returns
// nil if resetsAt is not strictly in the future or the window hasn't started.
func CalculatePace(usedPercent float64, resetsAt time.Time, windowMinutes int, now time.Time) *UsagePace {
	if !resetsAt.After(now) {
		return nil
	}
	windowSeconds := float64(windowMinutes) * 60
	if windowSeconds <= 0 {
		return nil
	}
	secondsToReset := resetsAt.Sub(now).Seconds()
	elapsed := windowSeconds - secondsToReset
	if elapsed <= 0 {
		return nil
	}

	expected := elapsed / windowSeconds * 100
	delta := usedPercent - expected

	var stage PaceStage
	switch {
	case delta >= 20:
		stage = StageFarAhead
	case delta >= 10:
		stage = StageAhead
	case delta >= 5:
		stage = StageSlightlyAhead
	case delta <= -20:
		stage = StageFarBehind
	case delta <= -10:
		stage = StageBehind
	case delta <= -5:
		stage = StageSlightlyBehind
	default:
		stage = StageOnTrack
	}

	var eta *float64
	var willLast bool
	switch {
	case usedPercent >= 100:
		zero := 0.0
		eta = &zero
	case usedPercent <= 0:
		willLast = true
	default:
		rate := usedPercent / elapsed // percent consumed per second so far
		secondsToDeplete := (100 - usedPercent) / rate
		eta = &secondsToDeplete
		willLast = secondsToDeplete >= secondsToReset
	}

	return &UsagePace{
		ExpectedUsedPercent: expected,
		DeltaPercent:        delta,
		Stage:               stage,
		ETASeconds:          eta,
		WillLastToReset:     willLast,
	}
}

// DailyCost is one local-day aggregation bucket produced by the JSONL cost
// scanner for a provider. CostUSD equals the sum, over every (model, token
// class) pair seen that day, of price(model, class) * tokens(model, class).
type DailyCost struct {
	DayKey            string             `json:"day_key"`
	InputTokens       int64              `json:"input_tokens"`
	OutputTokens      int64              `json:"output_tokens"`
	CacheReadTokens   int64              `json:"cache_read_tokens"`
	CacheCreateTokens int64              `json:"cache_create_tokens"`
	ReasoningTokens   int64              `json:"reasoning_tokens,omitempty"`
	CostUSD           float64            `json:"cost_usd"`
	PerModelCostUSD   map[string]float64 `json:"per_model_cost_usd,omitempty"`
}

func (d DailyCost) TotalTokens() int64 {
	return d.InputTokens + d.OutputTokens + d.CacheReadTokens + d.CacheCreateTokens + d.ReasoningTokens
}

// CostSnapshot aggregates DailyCost rows into the three windows the scanner
// reports: today, last 7 days, last 30 days.
type CostSnapshot struct {
	ProviderID string      `json:"provider_id"`
	Today      DailyCost   `json:"today"`
	Last7Days  DailyCost   `json:"last_7_days"`
	Last30Days DailyCost   `json:"last_30_days"`
	Days       []DailyCost `json:"days"`
	ScannedAt  time.Time   `json:"scanned_at"`
}

func FormatResetCountdown(d *time.Duration) string {
	if d == nil {
		return ""
	}
	total := int(d.Seconds())
	if total <= 0 {
		return "now"
	}
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	if days > 0 {
		return formatDH(days, hours)
	}
	if hours > 0 {
		return formatHM(hours, minutes)
	}
	return formatM(minutes)
}

func formatDH(d, h int) string { return strconv.Itoa(d) + "d " + strconv.Itoa(h) + "h" }
func formatHM(h, m int) string { return strconv.Itoa(h) + "h " + strconv.Itoa(m) + "m" }
func formatM(m int) string     { return strconv.Itoa(m) + "m" }

func PaceToColor(paceRatio *float64, usedPercent float64) string {
	// Exhausted quota is always red — you're blocked regardless of pace.
	if usedPercent >= 100 {
		return "red"
	}
	if paceRatio == nil {
		if usedPercent < 50 {
			return "green"
		}
		if usedPercent < 80 {
			return "yellow"
		}
		return "red"
	}
	// Near-exhaustion floor: ≥90% used is always at least yellow. Pace can
	// still escalate near-exhaustion to red, but not rescue it to green.
	if usedPercent >= 90 {
		if *paceRatio > 1.15 {
			return "red"
		}
		return "yellow"
	}
	if *paceRatio <= 1.15 {
		return "green"
	}
	if *paceRatio <= 1.30 {
		return "yellow"
	}
	return "red"
}
