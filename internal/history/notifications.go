package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Notification is one row of the notification_history table.
type Notification struct {
	ID           int64
	Type         string
	Provider     string
	Title        string
	Body         string
	Timestamp    time.Time
	WasDelivered bool
	Metadata     map[string]string
}

func (s *Store) RecordNotification(ctx context.Context, n Notification) error {
	var metaJSON []byte
	if len(n.Metadata) > 0 {
		var err error
		metaJSON, err = json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("history: marshal notification metadata: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_history (type, provider, title, body, timestamp, was_delivered, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		n.Type, n.Provider, n.Title, n.Body,
		n.Timestamp.UTC().Format(time.RFC3339),
		boolToInt(n.WasDelivered),
		nullableBytes(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("history: insert notification_history: %w", err)
	}
	return nil
}

// ListNotifications returns notification_history rows newest first, since
// the cutoff timestamp.
func (s *Store) ListNotifications(ctx context.Context, since time.Time) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, provider, title, body, timestamp, was_delivered, metadata_json
		FROM notification_history
		WHERE timestamp >= ?
		ORDER BY timestamp DESC
	`, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("history: query notification_history: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			n            Notification
			ts           string
			wasDelivered int
			metaJSON     *string
		)
		if err := rows.Scan(&n.ID, &n.Type, &n.Provider, &n.Title, &n.Body, &ts, &wasDelivered, &metaJSON); err != nil {
			return nil, fmt.Errorf("history: scan notification_history: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			n.Timestamp = parsed
		}
		n.WasDelivered = wasDelivered != 0
		if metaJSON != nil {
			m := map[string]string{}
			if json.Unmarshal([]byte(*metaJSON), &m) == nil {
				n.Metadata = m
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// PruneNotificationsOlderThan deletes notification_history rows whose
// timestamp precedes cutoff, returning the number of rows removed.
func (s *Store) PruneNotificationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notification_history WHERE timestamp < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("history: prune notification_history: %w", err)
	}
	return res.RowsAffected()
}
