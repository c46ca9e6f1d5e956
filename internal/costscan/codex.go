package costscan

import (
	"encoding/json"
	"time"

	"github.com/paceguard/paceguard/internal/models"
)

type codexLine struct {
	Timestamp string `json:"timestamp"`
	Model     string `json:"model"`
	Usage struct {
		InputTokens       int64 `json:"input_tokens"`
		OutputTokens      int64 `json:"output_tokens"`
		CachedInputTokens int64 `json:"cached_input_tokens"`
		ReasoningTokens   int64 `json:"reasoning_output_tokens"`
	} `json:"usage"`
}

var codexLineMarkers = []string{"input_tokens", "usage"}

type tokenPair struct{ input, output int64 }

func scanCodex(now time.Time) (*models.CostSnapshot, error) {
	roots := codexRoots()
	if len(roots) == 0 {
		return nil, &Error{Message: "costscan: no Codex session root found"}
	}

	agg := newAggregator()

	for _, root := range roots {
		for _, path := range listJSONLFiles(root) {
			last := tokenPair{}
			haveLast := false

			scanLines(path, func(line []byte) {
				if !quickFilter(line, codexLineMarkers...) {
					return
				}
				var rec codexLine
				if err := json.Unmarshal(line, &rec); err != nil {
					return
				}
				u := rec.Usage
				if u.InputTokens == 0 && u.OutputTokens == 0 {
					return
				}

				// Codex usage lines report cumulative session totals, so a
				// repeated identical pair means nothing new happened.
				cur := tokenPair{input: u.InputTokens, output: u.OutputTokens}
				if haveLast && cur == last {
					return
				}

				delta := tokenPair{input: cur.input, output: cur.output}
				if haveLast {
					delta.input -= last.input
					delta.output -= last.output
				}
				last = cur
				haveLast = true

				if delta.input < 0 || delta.output < 0 {
					delta = cur
				}

				ts, err := time.Parse(time.RFC3339, rec.Timestamp)
				if err != nil {
					ts = now
				}
				agg.add(dayKey(ts.Local()), rec.Model, delta.input, delta.output, u.CachedInputTokens, 0, u.ReasoningTokens)
			})
		}
	}

	return agg.build("codex", now, codexModelPrice), nil
}
