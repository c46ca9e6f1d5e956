package fetch

import (
	"context"
	"time"
)

// ExecutePipeline tries each strategy in priority order until one succeeds,
// recording an attempt for every strategy tried (including unavailable ones).
// A ShouldFallback()==false failure stops the pipeline immediately — the
// credential itself is broken and trying the next strategy won't help. When
// every strategy fails or is unavailable, a cached snapshot is served if
// useCache is set: unconditionally when at least one strategy was actually
// attempted (the provider is probably just down), or only within the
// pipeline's stale threshold when nothing was attempted at all (no
// credentials anywhere — stale data with no way to refresh is misleading).
func ExecutePipeline(ctx context.Context, providerID string, strategies []Strategy, useCache bool, cfg PipelineConfig) FetchOutcome {
	var attempts []FetchAttempt

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	for _, strategy := range strategies {
		if !strategy.IsAvailable() {
			attempts = append(attempts, FetchAttempt{
				Strategy: strategy.Name(),
				Success:  false,
				Error:    "not configured",
			})
			continue
		}

		start := time.Now()
		resultCh := make(chan fetchAttemptResult, 1)
		go func() {
			result, err := strategy.Fetch(ctx)
			resultCh <- fetchAttemptResult{result: result, err: err}
		}()

		var result FetchResult
		var fetchErr error

		select {
		case <-ctx.Done():
			return FetchOutcome{
				ProviderID: providerID,
				Success:    false,
				Attempts:   attempts,
				Error:      "context cancelled",
			}
		case <-time.After(timeout):
			durationMs := int(time.Since(start).Milliseconds())
			attempts = append(attempts, FetchAttempt{
				Strategy:   strategy.Name(),
				Success:    false,
				Error:      "fetch timed out",
				DurationMs: durationMs,
			})
			continue
		case r := <-resultCh:
			result = r.result
			fetchErr = r.err
		}

		durationMs := int(time.Since(start).Milliseconds())

		if fetchErr != nil {
			attempts = append(attempts, FetchAttempt{
				Strategy:   strategy.Name(),
				Success:    false,
				Error:      fetchErr.Error(),
				DurationMs: durationMs,
			})
			continue
		}

		if result.Success && result.Snapshot != nil {
			if cfg.Cache != nil {
				_ = cfg.Cache.Save(*result.Snapshot)
			}
			return FetchOutcome{
				ProviderID: providerID,
				Success:    true,
				Snapshot:   result.Snapshot,
				Source:     strategy.Name(),
				Attempts:   attempts,
			}
		}

		attempts = append(attempts, FetchAttempt{
			Strategy:   strategy.Name(),
			Success:    false,
			Error:      result.Error(),
			DurationMs: durationMs,
		})

		if !result.ShouldFallback() {
			return FetchOutcome{
				ProviderID: providerID,
				Success:    false,
				Attempts:   attempts,
				Error:      result.Error(),
			}
		}
	}

	anyAttempted := false
	for _, a := range attempts {
		if a.Error != "not configured" {
			anyAttempted = true
			break
		}
	}

	if useCache && cfg.Cache != nil {
		if cached := cfg.Cache.Load(providerID); cached != nil {
			staleThreshold := time.Duration(cfg.StaleThresholdMinutes) * time.Minute
			if staleThreshold <= 0 {
				staleThreshold = 60 * time.Minute
			}
			if anyAttempted || time.Since(cached.UpdatedAt) < staleThreshold {
				return FetchOutcome{
					ProviderID: providerID,
					Success:    true,
					Snapshot:   cached,
					Source:     "cache",
					Attempts:   attempts,
					Cached:     true,
				}
			}
		}
	}

	lastErr := "no strategies available"
	if len(attempts) > 0 {
		lastErr = attempts[len(attempts)-1].Error
	}

	return FetchOutcome{
		ProviderID: providerID,
		Success:    false,
		Attempts:   attempts,
		Error:      lastErr,
	}
}

type fetchAttemptResult struct {
	result FetchResult
	err    error
}
