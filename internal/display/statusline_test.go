package display

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/paceguard/paceguard/internal/fetch"
	"github.com/paceguard/paceguard/internal/models"
)

func TestRenderStatusline(t *testing.T) {
	now := time.Now()
	resetAt := now.Add(24 * time.Hour)
	weeklyMinutes := 7 * 24 * 60

	tests := []struct {
		name         string
		opts         StatuslineOptions
		outcomes     map[string]fetch.FetchOutcome
		wantErr      bool
		wantContains []string
		wantMissing  []string
	}{
		{
			name: "pretty mode with single provider",
			opts: StatuslineOptions{Mode: StatuslineModePretty},
			outcomes: map[string]fetch.FetchOutcome{
				"claude": {
					ProviderID: "claude",
					Success:    true,
					Snapshot: &models.UsageSnapshot{
						ProviderID: "claude",
						UpdatedAt:  now,
						Primary:    &models.RateWindow{UsedPercent: 50, Label: "Weekly", ResetsAt: &resetAt, WindowMinutes: &weeklyMinutes},
					},
				},
			},
			wantContains: []string{"7d", "50%", "░", "█"},
			wantMissing:  []string{"Claude"},
		},
		{
			name: "pretty mode with multiple providers shows labels",
			opts: StatuslineOptions{Mode: StatuslineModePretty},
			outcomes: map[string]fetch.FetchOutcome{
				"claude": {
					ProviderID: "claude",
					Success:    true,
					Snapshot: &models.UsageSnapshot{
						ProviderID: "claude",
						UpdatedAt:  now,
						Primary:    &models.RateWindow{UsedPercent: 50, Label: "Weekly", ResetsAt: &resetAt, WindowMinutes: &weeklyMinutes},
					},
				},
				"codex": {
					ProviderID: "codex",
					Success:    true,
					Snapshot: &models.UsageSnapshot{
						ProviderID: "codex",
						UpdatedAt:  now,
						Primary:    &models.RateWindow{UsedPercent: 30, Label: "Weekly", ResetsAt: &resetAt, WindowMinutes: &weeklyMinutes},
					},
				},
			},
			wantContains: []string{"Claude", "Codex"},
		},
		{
			name: "short mode",
			opts: StatuslineOptions{Mode: StatuslineModeShort},
			outcomes: map[string]fetch.FetchOutcome{
				"claude": {
					ProviderID: "claude",
					Success:    true,
					Snapshot: &models.UsageSnapshot{
						ProviderID: "claude",
						UpdatedAt:  now,
						Primary:    &models.RateWindow{UsedPercent: 75, Label: "Weekly", ResetsAt: &resetAt, WindowMinutes: &weeklyMinutes},
					},
				},
			},
			wantContains: []string{"75%", "7d"},
			wantMissing:  []string{"█", "░"},
		},
		{
			name: "json mode",
			opts: StatuslineOptions{Mode: StatuslineModeJSON},
			outcomes: map[string]fetch.FetchOutcome{
				"claude": {
					ProviderID: "claude",
					Success:    true,
					Snapshot: &models.UsageSnapshot{
						ProviderID: "claude",
						UpdatedAt:  now,
						Primary:    &models.RateWindow{UsedPercent: 50, Label: "Weekly"},
					},
				},
			},
			wantContains: []string{"claude", "Weekly", "50"},
		},
		{
			name: "failed provider is omitted from table modes",
			opts: StatuslineOptions{Mode: StatuslineModeShort},
			outcomes: map[string]fetch.FetchOutcome{
				"claude": {
					ProviderID: "claude",
					Success:    false,
					Error:      "not configured",
				},
			},
			wantContains: []string{},
		},
		{
			name: "limit restricts windows",
			opts: StatuslineOptions{Mode: StatuslineModeShort, Limit: 1},
			outcomes: map[string]fetch.FetchOutcome{
				"claude": {
					ProviderID: "claude",
					Success:    true,
					Snapshot: &models.UsageSnapshot{
						ProviderID: "claude",
						UpdatedAt:  now,
						Primary:    &models.RateWindow{UsedPercent: 20, Label: "Session", ResetsAt: &resetAt},
						Secondary:  &models.RateWindow{UsedPercent: 50, Label: "Weekly", ResetsAt: &resetAt},
					},
				},
			},
			wantContains: []string{"20%"},
			wantMissing:  []string{"50%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := RenderStatusline(&buf, tt.outcomes, tt.opts)

			if (err != nil) != tt.wantErr {
				t.Errorf("RenderStatusline() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			got := buf.String()
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q, got:\n%s", want, got)
				}
			}
			for _, miss := range tt.wantMissing {
				if strings.Contains(got, miss) {
					t.Errorf("output should not contain %q, got:\n%s", miss, got)
				}
			}
		})
	}
}

func TestRenderStatuslineJSONStructure(t *testing.T) {
	now := time.Now()
	resetAt := now.Add(24 * time.Hour)

	outcomes := map[string]fetch.FetchOutcome{
		"claude": {
			ProviderID: "claude",
			Success:    true,
			Snapshot: &models.UsageSnapshot{
				ProviderID: "claude",
				UpdatedAt:  now,
				Primary:    &models.RateWindow{UsedPercent: 50, Label: "Weekly", ResetsAt: &resetAt},
				Overage:    &models.OverageUsage{Used: 10.5, Limit: 100.0, Currency: "USD", IsEnabled: true},
			},
		},
		"codex": {
			ProviderID: "codex",
			Success:    false,
			Error:      "not configured",
		},
	}

	var buf bytes.Buffer
	err := RenderStatusline(&buf, outcomes, StatuslineOptions{Mode: StatuslineModeJSON})
	if err != nil {
		t.Fatalf("RenderStatusline() error = %v", err)
	}

	var entries []StatuslineJSON
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v\nOutput: %s", err, buf.String())
	}

	if len(entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(entries))
	}

	for _, e := range entries {
		switch e.Provider {
		case "claude":
			if len(e.Periods) != 1 {
				t.Errorf("Expected 1 period for claude, got %d", len(e.Periods))
			}
			if e.Overage == nil {
				t.Error("Expected overage data for claude")
			}
			if e.Error != "" {
				t.Errorf("Expected no error for claude, got %q", e.Error)
			}
		case "codex":
			if e.Error != "not configured" {
				t.Errorf("Expected error for codex, got %q", e.Error)
			}
		default:
			t.Errorf("Unexpected provider: %s", e.Provider)
		}
	}
}

func TestFormatDurationCompact(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"days and hours", 7*24*time.Hour + 5*time.Hour, "7d5h"},
		{"days only", 3 * 24 * time.Hour, "3d"},
		{"hours only", 5 * time.Hour, "5h"},
		{"minutes only", 30 * time.Minute, "30m"},
		{"less than minute", 30 * time.Second, "<1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatDurationCompact(&tt.duration)
			if got != tt.want {
				t.Errorf("formatDurationCompact() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDurationCompactNil(t *testing.T) {
	got := formatDurationCompact(nil)
	if got != "" {
		t.Errorf("formatDurationCompact(nil) = %q, want empty string", got)
	}
}

func TestWindowDurationLabel(t *testing.T) {
	minutes := func(m int) *int { return &m }

	tests := []struct {
		name string
		w    models.RateWindow
		want string
	}{
		{"nil window minutes", models.RateWindow{}, ""},
		{"5 hour session", models.RateWindow{WindowMinutes: minutes(5 * 60)}, "5h"},
		{"24 hour daily", models.RateWindow{WindowMinutes: minutes(24 * 60)}, "24h"},
		{"7 day weekly", models.RateWindow{WindowMinutes: minutes(7 * 24 * 60)}, "7d"},
		{"30 day monthly", models.RateWindow{WindowMinutes: minutes(30 * 24 * 60)}, "30d"},
		{"under an hour", models.RateWindow{WindowMinutes: minutes(30)}, "30m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := windowDurationLabel(tt.w)
			if got != tt.want {
				t.Errorf("windowDurationLabel(%+v) = %q, want %q", tt.w, got, tt.want)
			}
		})
	}
}

func TestWindowNameParts(t *testing.T) {
	minutes := func(m int) *int { return &m }

	tests := []struct {
		name          string
		windowName    string
		w             models.RateWindow
		wantQualifier string
		wantDuration  string
	}{
		{"generic weekly", "Weekly", models.RateWindow{WindowMinutes: minutes(7 * 24 * 60)}, "", "7d"},
		{"model-qualified session", "Session", models.RateWindow{WindowMinutes: minutes(5 * 60), Model: "sonnet"}, "sonn", "5h"},
		{"no model, no qualifier", "All Models", models.RateWindow{WindowMinutes: minutes(7 * 24 * 60)}, "", "7d"},
		{"short model name not truncated", "Monthly", models.RateWindow{WindowMinutes: minutes(30 * 24 * 60), Model: "gpt"}, "gpt", "30d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotQ, gotD := windowNameParts(tt.windowName, tt.w)
			if gotQ != tt.wantQualifier || gotD != tt.wantDuration {
				t.Errorf("windowNameParts(%q, %+v) = (%q, %q), want (%q, %q)",
					tt.windowName, tt.w, gotQ, gotD, tt.wantQualifier, tt.wantDuration)
			}
		})
	}
}
