package cli

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/paceguard/paceguard/internal/config"
	"github.com/paceguard/paceguard/internal/history"
	"github.com/paceguard/paceguard/internal/logging"
	"github.com/paceguard/paceguard/internal/models"
)

var (
	historyOnce  sync.Once
	historyStore *history.Store
)

// historyDBPath is a package-level var so tests can redirect it.
var historyDBPath = func() string {
	return filepath.Join(config.DataDir(), "history.db")
}

func getHistoryStore(ctx context.Context) *history.Store {
	historyOnce.Do(func() {
		store, err := history.OpenStore(historyDBPath())
		if err != nil {
			logging.FromContext(ctx).Debug("history store unavailable", "err", err)
			return
		}
		historyStore = store
	})
	return historyStore
}

// recordSnapshotHistory persists snap as a usage_records row, best-effort:
// a history write failure never fails the command that produced the data.
func recordSnapshotHistory(ctx context.Context, snap models.UsageSnapshot) {
	store := getHistoryStore(ctx)
	if store == nil {
		return
	}

	rec := history.UsageRecord{
		Provider:  snap.ProviderID,
		Timestamp: snap.UpdatedAt,
	}
	if snap.AccountID != nil {
		rec.AccountID = snap.AccountID
	}
	if snap.Primary != nil {
		v := snap.Primary.UsedPercent
		rec.PrimaryUsedPercent = &v
	}
	if snap.Secondary != nil {
		v := snap.Secondary.UsedPercent
		rec.SecondaryUsedPercent = &v
	}
	if snap.Cost != nil && snap.Cost.DailyUSD != nil {
		v := *snap.Cost.DailyUSD
		rec.CostUSD = &v
	}

	if err := store.RecordUsage(ctx, rec); err != nil {
		logging.FromContext(ctx).Debug("recording usage history failed", "provider", snap.ProviderID, "err", err)
	}
}

// prunedHistoryRetention is how long usage_records/notification_history rows
// are kept before pruneHistory drops them.
const prunedHistoryRetention = 90 * 24 * time.Hour

func pruneHistory(ctx context.Context) {
	store := getHistoryStore(ctx)
	if store == nil {
		return
	}
	cutoff := time.Now().Add(-prunedHistoryRetention)
	if _, err := store.PruneUsageOlderThan(ctx, cutoff); err != nil {
		logging.FromContext(ctx).Debug("pruning usage history failed", "err", err)
	}
	if _, err := store.PruneNotificationsOlderThan(ctx, cutoff); err != nil {
		logging.FromContext(ctx).Debug("pruning notification history failed", "err", err)
	}
}
