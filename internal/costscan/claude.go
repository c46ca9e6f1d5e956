package costscan

import (
	"encoding/json"
	"time"

	"github.com/paceguard/paceguard/internal/models"
)

type claudeLine struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId"`
	Message   struct {
		ID    string `json:"id"`
		Model string `json:"model"`
		Usage struct {
			InputTokens              int64 `json:"input_tokens"`
			OutputTokens             int64 `json:"output_tokens"`
			CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
			CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
		} `json:"usage"`
	} `json:"message"`
}

var claudeLineMarkers = []string{"input_tokens", "usage"}

func scanClaude(now time.Time) (*models.CostSnapshot, error) {
	roots := claudeRoots()
	if len(roots) == 0 {
		return nil, &Error{Message: "costscan: no Claude project roots found"}
	}

	agg := newAggregator()
	seen := map[string]bool{}

	for _, root := range roots {
		for _, path := range listJSONLFiles(root) {
			scanLines(path, func(line []byte) {
				if !quickFilter(line, claudeLineMarkers...) {
					return
				}
				var rec claudeLine
				if err := json.Unmarshal(line, &rec); err != nil {
					return
				}
				u := rec.Message.Usage
				if u.InputTokens == 0 && u.OutputTokens == 0 {
					return
				}

				key := claudeDedupKey(rec)
				if key != "" {
					if seen[key] {
						return
					}
					seen[key] = true
				}

				ts, err := time.Parse(time.RFC3339, rec.Timestamp)
				if err != nil {
					ts = now
				}
				model := rec.Message.Model
				agg.add(dayKey(ts.Local()), model, u.InputTokens, u.OutputTokens, u.CacheReadInputTokens, u.CacheCreationInputTokens, 0)
			})
		}
	}

	return agg.build("claude", now, claudeModelPrice), nil
}

// claudeDedupKey combines message.id and requestId; a record is only
// considered a true duplicate of another when both parts match, so a record
// missing either ID is treated as always distinct.
func claudeDedupKey(rec claudeLine) string {
	if rec.Message.ID == "" || rec.RequestID == "" {
		return ""
	}
	return rec.Message.ID + ":" + rec.RequestID
}
