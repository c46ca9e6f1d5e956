package costscan

import "strings"

// Price holds USD-per-million-token rates for one model. CacheRead and
// CacheCreate default to a discount/premium off Input when a model's exact
// rate isn't known, matching the ratios Anthropic publishes for prompt
// caching.
type Price struct {
	Input       float64
	Output      float64
	CacheRead   float64
	CacheCreate float64
	Reasoning   float64
}

const (
	cacheReadDiscount  = 0.10
	cacheCreatePremium = 1.25
)

func (p Price) cost(input, output, cacheRead, cacheCreate, reasoning int64) float64 {
	perToken := func(n int64, rate float64) float64 {
		return float64(n) / 1_000_000 * rate
	}
	return perToken(input, p.Input) +
		perToken(output, p.Output) +
		perToken(cacheRead, p.CacheRead) +
		perToken(cacheCreate, p.CacheCreate) +
		perToken(reasoning, p.Reasoning)
}

// claudePricing is USD-per-million-tokens by model substring, checked in
// order; the sonnet rate is the fallback default for an unrecognized model,
// since Sonnet is Claude Code's default model.
var claudePricing = []struct {
	substring string
	price     Price
}{
	{"opus", Price{Input: 15, Output: 75}},
	{"haiku", Price{Input: 0.80, Output: 4}},
	{"sonnet", Price{Input: 3, Output: 15}},
}

func claudeModelPrice(model string) Price {
	lower := strings.ToLower(model)
	for _, entry := range claudePricing {
		if strings.Contains(lower, entry.substring) {
			return withCacheDefaults(entry.price)
		}
	}
	return withCacheDefaults(claudePricing[len(claudePricing)-1].price)
}

func withCacheDefaults(p Price) Price {
	if p.CacheRead == 0 {
		p.CacheRead = p.Input * cacheReadDiscount
	}
	if p.CacheCreate == 0 {
		p.CacheCreate = p.Input * cacheCreatePremium
	}
	return p
}

// codexPricing is USD-per-million-tokens for OpenAI's Codex CLI models.
// Codex sessions are single-model, so unlike Claude there's no fallback
// waterfall — the session's own model name is priced directly, with the
// gpt-5 rate as the default for an unrecognized model.
var codexPricing = []struct {
	substring string
	price     Price
}{
	{"o4-mini", Price{Input: 1.10, Output: 4.40, CacheRead: 0.275, Reasoning: 4.40}},
	{"o3", Price{Input: 2, Output: 8, CacheRead: 0.5, Reasoning: 8}},
	{"gpt-5", Price{Input: 1.25, Output: 10, CacheRead: 0.125, Reasoning: 10}},
	{"gpt-4o", Price{Input: 2.5, Output: 10, CacheRead: 1.25, Reasoning: 10}},
}

func codexModelPrice(model string) Price {
	lower := strings.ToLower(model)
	for _, entry := range codexPricing {
		if strings.Contains(lower, entry.substring) {
			return entry.price
		}
	}
	return codexPricing[len(codexPricing)-2].price
}
