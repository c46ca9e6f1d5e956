package display

import (
	"encoding/json"
	"io"
	"time"

	"github.com/paceguard/paceguard/internal/fetch"
	"github.com/paceguard/paceguard/internal/models"
)

// OutputJSON writes pretty-printed JSON to the given writer.
func OutputJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// SnapshotToJSON converts a fetch outcome to a JSON-serializable value.
// Returns SnapshotErrorJSON for failures, SnapshotJSON for successes.
func SnapshotToJSON(outcome fetch.FetchOutcome) any {
	if !outcome.Success || outcome.Snapshot == nil {
		return SnapshotErrorJSON{
			Error: ErrorDetailJSON{
				Message:  outcome.Error,
				Provider: outcome.ProviderID,
			},
		}
	}
	return buildSnapshotJSON(outcome)
}

func buildSnapshotJSON(outcome fetch.FetchOutcome) SnapshotJSON {
	snap := outcome.Snapshot

	var overage *OverageJSON
	if snap.Overage != nil && snap.Overage.IsEnabled {
		o := snap.Overage
		overage = &OverageJSON{
			Used:      o.Used,
			Limit:     o.Limit,
			Remaining: o.Remaining(),
			Currency:  o.Currency,
		}
	}

	var identity *IdentityJSON
	if snap.Identity != nil {
		identity = &IdentityJSON{
			Email:        snap.Identity.Email,
			Organization: snap.Identity.Organization,
			Plan:         snap.Identity.Plan,
		}
	}

	var windows []WindowJSON
	for _, nw := range NamedWindows(*snap) {
		w := nw.Window
		wj := WindowJSON{
			Label:         nw.Name,
			UsedPercent:   w.UsedPercent,
			UsedTokens:    w.UsedTokens,
			LimitTokens:   w.LimitTokens,
			UsedMessages:  w.UsedMessages,
			LimitMessages: w.LimitMessages,
			Model:         w.Model,
		}
		if w.ResetsAt != nil {
			wj.ResetsAt = w.ResetsAt.Format(time.RFC3339)
		}
		windows = append(windows, wj)
	}

	var cost *CostJSON
	if snap.Cost != nil {
		cost = &CostJSON{
			DailyUSD:         snap.Cost.DailyUSD,
			MonthlyUSD:       snap.Cost.MonthlyUSD,
			RemainingCredits: snap.Cost.RemainingCredits,
			TotalCredits:     snap.Cost.TotalCredits,
			Currency:         snap.Cost.Currency,
			PeriodLabel:      snap.Cost.PeriodLabel,
		}
	}

	return SnapshotJSON{
		ProviderID: snap.ProviderID,
		Source:     outcome.Source,
		Cached:     outcome.Cached,
		Identity:   identity,
		Windows:    windows,
		Cost:       cost,
		Overage:    overage,
		UpdatedAt:  snap.UpdatedAt.Format(time.RFC3339),
	}
}

// OutputMultiProviderJSON outputs all outcomes as JSON.
func OutputMultiProviderJSON(w io.Writer, outcomes map[string]fetch.FetchOutcome) error {
	data := MultiProviderJSON{
		Providers: make(map[string]SnapshotJSON),
		Errors:    make(map[string]string),
		FetchedAt: time.Now().Format(time.RFC3339),
	}

	for pid, outcome := range outcomes {
		if outcome.Success && outcome.Snapshot != nil {
			data.Providers[pid] = buildSnapshotJSON(outcome)
		} else {
			errMsg := outcome.Error
			if errMsg == "" {
				errMsg = "Unknown error"
			}
			data.Errors[pid] = errMsg
		}
	}

	return OutputJSON(w, data)
}

// OutputStatusJSON outputs provider statuses as JSON.
func OutputStatusJSON(w io.Writer, statuses map[string]models.ProviderStatus) error {
	data := make(map[string]StatusEntryJSON)
	for pid, status := range statuses {
		entry := StatusEntryJSON{
			Level:       string(status.Level),
			Description: status.Description,
		}
		if status.UpdatedAt != nil {
			entry.UpdatedAt = status.UpdatedAt.Format(time.RFC3339)
		}
		data[pid] = entry
	}
	return OutputJSON(w, data)
}
