package modelmap

import "strings"

// aliases maps informal/shorthand names to canonical model IDs. A shortcut
// only makes it into the live registry (see buildRegistry) when its target
// canonical ID actually exists in that run's models.dev data.
var aliases = map[string]string{
	// Claude shortcuts
	"sonnet":        "claude-sonnet-4",
	"sonnet-4":      "claude-sonnet-4",
	"sonnet-4.5":    "claude-sonnet-4-5",
	"sonnet-4-5":    "claude-sonnet-4-5",
	"sonnet4.5":     "claude-sonnet-4-5",
	"opus":          "claude-opus-4",
	"opus-4":        "claude-opus-4",
	"haiku":         "claude-haiku-3-5",
	"haiku-3.5":     "claude-haiku-3-5",
	"haiku-3-5":     "claude-haiku-3-5",
	"claude-3-5":    "claude-haiku-3-5",
	"claude-sonnet": "claude-sonnet-4",
	"claude-opus":   "claude-opus-4",
	"claude-haiku":  "claude-haiku-3-5",

	// GPT shortcuts
	"4o":           "gpt-4o",
	"4o-mini":      "gpt-4o-mini",
	"gpt4o":        "gpt-4o",
	"gpt-4.1":      "gpt-4-1",
	"gpt4.1":       "gpt-4-1",
	"gpt-4.1-mini": "gpt-4-1-mini",
	"gpt-4.1-nano": "gpt-4-1-nano",

	// o-series
	"o3mini": "o3-mini",
	"o4mini": "o4-mini",

	// Gemini shortcuts
	"gemini":       "gemini-2-5-pro",
	"gemini-pro":   "gemini-2-5-pro",
	"gemini-flash": "gemini-2-5-flash",
	"flash":        "gemini-2-5-flash",
}

// modelsDevProviderAlias maps a models.dev provider slug to the paceguard
// provider IDs that serve models from it. Providers not listed here (e.g.
// models.dev entries for ecosystems paceguard doesn't track) are skipped
// when merging live data into the registry.
var modelsDevProviderAlias = map[string][]string{
	"anthropic": {"claude", "copilot", "cursor", "antigravity"},
	"openai":    {"codex", "copilot", "cursor"},
	"google":    {"gemini", "copilot", "cursor", "antigravity"},
}

// buildRegistry turns models.dev's per-provider data into the flat
// ID-keyed registry Lookup/Search/etc. query. A model's canonical ID is its
// normalized models.dev ID, so the same model re-sold through a reseller
// slug not in modelsDevProviderAlias (e.g. "github-copilot" reselling
// Anthropic/OpenAI/Google models) still resolves to the same canonical
// entry once normalize() folds "." and "-" the same way, without needing an
// explicit alias. Embedding models are dropped — they have no usage-window
// concept. The hardcoded aliases table above is layered on top, but only
// for shortcuts whose target actually exists in the live data, so a stale
// alias never leaves the registry in an inconsistent state.
func buildRegistry(data map[string]modelsDevProvider) (map[string]ModelInfo, map[string]string) {
	out := make(map[string]ModelInfo)

	for devID, prov := range data {
		paceguardProviders, ok := modelsDevProviderAlias[devID]
		if !ok {
			continue
		}
		for modelID, m := range prov.Models {
			if isEmbeddingModel(m) {
				continue
			}
			id := normalize(modelID)
			existing, found := out[id]
			if !found {
				out[id] = ModelInfo{ID: id, Name: m.Name, Providers: append([]string(nil), paceguardProviders...)}
				continue
			}
			existing.Providers = mergeProviderLists(existing.Providers, paceguardProviders)
			out[id] = existing
		}
	}

	aliasOut := make(map[string]string)
	for alias, canonical := range aliases {
		canonical = normalize(canonical)
		if _, ok := out[canonical]; ok {
			aliasOut[normalize(alias)] = canonical
		}
	}
	return out, aliasOut
}

// isEmbeddingModel reports whether a models.dev entry is an embedding model
// rather than a chat/completion model paceguard tracks usage windows for.
func isEmbeddingModel(m modelsDevModel) bool {
	return strings.Contains(strings.ToLower(m.Family), "embedding") ||
		strings.Contains(strings.ToLower(m.ID), "embedding")
}

func mergeProviderLists(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, p := range a {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range b {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
