// Package costscan rebuilds a provider's token spend from the JSONL session
// logs Claude Code and Codex CLI already write to disk. It is the only
// source of cost data for providers with no billing API: every number comes
// from summing tokens across every session transcript and pricing them with
// a per-model table.
package costscan

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/paceguard/paceguard/internal/models"
)

const cacheTTL = 60 * time.Second

var (
	mu        sync.Mutex
	cache     = map[string]*models.CostSnapshot{}
	cachedAt  = map[string]time.Time{}
)

// Scan returns a cost snapshot for providerID ("claude" or "codex"),
// reusing a cached result younger than 60s unless forceRefresh is set.
func Scan(providerID string, forceRefresh bool) (*models.CostSnapshot, error) {
	mu.Lock()
	if !forceRefresh {
		if snap, ok := cache[providerID]; ok && time.Since(cachedAt[providerID]) < cacheTTL {
			mu.Unlock()
			return snap, nil
		}
	}
	mu.Unlock()

	var snap *models.CostSnapshot
	var err error
	switch providerID {
	case "claude":
		snap, err = scanClaude(time.Now())
	case "codex":
		snap, err = scanCodex(time.Now())
	default:
		return nil, &Error{Message: "costscan: unknown provider " + providerID}
	}
	if err != nil {
		return nil, err
	}

	mu.Lock()
	cache[providerID] = snap
	cachedAt[providerID] = time.Now()
	mu.Unlock()
	return snap, nil
}

// Error is a scan-level failure (roots not found, no readable files).
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// dayKeys returns today's key, the key 6 days back, and the key 29 days
// back, in the caller's local timezone — the three window boundaries every
// snapshot aggregates against.
func dayKeys(now time.Time) (today, minus6, minus29 string) {
	local := now.Local()
	return dayKey(local), dayKey(local.AddDate(0, 0, -6)), dayKey(local.AddDate(0, 0, -29))
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// aggregator accumulates per-day, per-model token totals as lines are
// scanned, keyed by day string.
type aggregator struct {
	days map[string]*dayBucket
}

type dayBucket struct {
	input, output, cacheRead, cacheCreate, reasoning int64
	perModel                                         map[string]*modelTokens
}

type modelTokens struct {
	input, output, cacheRead, cacheCreate, reasoning int64
}

func newAggregator() *aggregator {
	return &aggregator{days: map[string]*dayBucket{}}
}

func (a *aggregator) add(day, model string, input, output, cacheRead, cacheCreate, reasoning int64) {
	b, ok := a.days[day]
	if !ok {
		b = &dayBucket{perModel: map[string]*modelTokens{}}
		a.days[day] = b
	}
	b.input += input
	b.output += output
	b.cacheRead += cacheRead
	b.cacheCreate += cacheCreate
	b.reasoning += reasoning

	mt, ok := b.perModel[model]
	if !ok {
		mt = &modelTokens{}
		b.perModel[model] = mt
	}
	mt.input += input
	mt.output += output
	mt.cacheRead += cacheRead
	mt.cacheCreate += cacheCreate
	mt.reasoning += reasoning
}

// build turns accumulated per-day buckets into a CostSnapshot, pricing each
// model's tokens with price.
func (a *aggregator) build(providerID string, now time.Time, price func(model string) Price) *models.CostSnapshot {
	today, minus6, minus29 := dayKeys(now)

	var days []models.DailyCost
	for day, b := range a.days {
		dc := models.DailyCost{
			DayKey:            day,
			InputTokens:       b.input,
			OutputTokens:      b.output,
			CacheReadTokens:   b.cacheRead,
			CacheCreateTokens: b.cacheCreate,
			ReasoningTokens:   b.reasoning,
			PerModelCostUSD:   map[string]float64{},
		}
		var total float64
		for model, mt := range b.perModel {
			p := price(model)
			cost := p.cost(mt.input, mt.output, mt.cacheRead, mt.cacheCreate, mt.reasoning)
			dc.PerModelCostUSD[model] = cost
			total += cost
		}
		dc.CostUSD = total
		days = append(days, dc)
	}

	sortDaysDescending(days)

	snap := &models.CostSnapshot{
		ProviderID: providerID,
		Days:       days,
		ScannedAt:  now.UTC(),
	}
	for _, d := range days {
		switch {
		case d.DayKey == today:
			snap.Today = mergeDaily(snap.Today, d)
			fallthrough
		case d.DayKey >= minus6:
			snap.Last7Days = mergeDaily(snap.Last7Days, d)
			fallthrough
		case d.DayKey >= minus29:
			snap.Last30Days = mergeDaily(snap.Last30Days, d)
		}
	}
	return snap
}

func mergeDaily(acc, d models.DailyCost) models.DailyCost {
	acc.InputTokens += d.InputTokens
	acc.OutputTokens += d.OutputTokens
	acc.CacheReadTokens += d.CacheReadTokens
	acc.CacheCreateTokens += d.CacheCreateTokens
	acc.ReasoningTokens += d.ReasoningTokens
	acc.CostUSD += d.CostUSD
	return acc
}

func sortDaysDescending(days []models.DailyCost) {
	for i := 1; i < len(days); i++ {
		for j := i; j > 0 && days[j].DayKey > days[j-1].DayKey; j-- {
			days[j], days[j-1] = days[j-1], days[j]
		}
	}
}

// listJSONLFiles walks root for *.jsonl files, skipping hidden directories
// and any path containing a "node_modules"/vendored package directory.
func listJSONLFiles(root string) []string {
	var out []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		base := filepath.Base(path)
		if info.IsDir() {
			if base != filepath.Base(root) && strings.HasPrefix(base, ".") {
				return filepath.SkipDir
			}
			if base == "node_modules" || base == "package" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(base, ".jsonl") && !strings.HasPrefix(base, ".") {
			out = append(out, path)
		}
		return nil
	})
	return out
}

// scanLines opens path and calls fn with each raw line, skipping I/O errors
// by returning early — a partially-read transcript still contributes the
// lines it could read.
func scanLines(path string, fn func(line []byte)) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		fn(scanner.Bytes())
	}
}

// quickFilter reports whether line plausibly contains usage data, avoiding a
// full JSON decode of lines that can't matter (tool-call chatter, plain
// text turns with no token counts).
func quickFilter(line []byte, markers ...string) bool {
	for _, m := range markers {
		if bytes.Contains(line, []byte(m)) {
			return true
		}
	}
	return false
}
