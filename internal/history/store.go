// Package history persists usage snapshots, configured accounts, and
// delivered notifications to a local SQLite database, so trends and
// per-account state survive process restarts.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: creating DB dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: opening DB: %w", err)
	}
	if err := configureSQLiteConnection(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: configure sqlite: %w", err)
	}

	store := NewStore(db)
	if err := store.Init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func configureSQLiteConnection(db *sql.DB) error {
	if db == nil {
		return nil
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		return fmt.Errorf("set journal_mode WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL;`); err != nil {
		return fmt.Errorf("set synchronous NORMAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return fmt.Errorf("set foreign_keys ON: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	return nil
}

func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS usage_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			provider TEXT NOT NULL,
			account_id TEXT,
			timestamp TEXT NOT NULL,
			primary_used_percent REAL,
			secondary_used_percent REAL,
			cost_usd REAL,
			tokens_used INTEGER,
			models_json TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_usage_records_provider_timestamp ON usage_records(provider, timestamp);`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			email TEXT,
			display_name TEXT NOT NULL,
			auth_method TEXT NOT NULL,
			keychain_id TEXT,
			is_active INTEGER NOT NULL DEFAULT 0,
			added_at TEXT NOT NULL,
			last_used_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_provider ON accounts(provider);`,
		`CREATE TABLE IF NOT EXISTS notification_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			provider TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			was_delivered INTEGER NOT NULL,
			metadata_json TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_notification_history_timestamp ON notification_history(timestamp);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("history: init schema: %w", err)
		}
	}
	return nil
}

// UsageRecord is one row of the usage_records history table.
type UsageRecord struct {
	ID                    int64
	Provider              string
	AccountID             *string
	Timestamp             time.Time
	PrimaryUsedPercent    *float64
	SecondaryUsedPercent  *float64
	CostUSD               *float64
	TokensUsed            *int64
	Models                map[string]float64
}

func (s *Store) RecordUsage(ctx context.Context, r UsageRecord) error {
	var modelsJSON []byte
	if len(r.Models) > 0 {
		var err error
		modelsJSON, err = json.Marshal(r.Models)
		if err != nil {
			return fmt.Errorf("history: marshal models_json: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_records (
			provider, account_id, timestamp, primary_used_percent,
			secondary_used_percent, cost_usd, tokens_used, models_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.Provider,
		nullableStr(r.AccountID),
		r.Timestamp.UTC().Format(time.RFC3339),
		nullableFloat(r.PrimaryUsedPercent),
		nullableFloat(r.SecondaryUsedPercent),
		nullableFloat(r.CostUSD),
		nullableInt(r.TokensUsed),
		nullableBytes(modelsJSON),
	)
	if err != nil {
		return fmt.Errorf("history: insert usage_records: %w", err)
	}
	return nil
}

// ListUsage returns usage_records for provider ordered newest first, since
// the cutoff timestamp.
func (s *Store) ListUsage(ctx context.Context, provider string, since time.Time) ([]UsageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider, account_id, timestamp, primary_used_percent,
		       secondary_used_percent, cost_usd, tokens_used, models_json
		FROM usage_records
		WHERE provider = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`, provider, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("history: query usage_records: %w", err)
	}
	defer rows.Close()

	var out []UsageRecord
	for rows.Next() {
		var (
			rec          UsageRecord
			accountID    sql.NullString
			ts           string
			primaryPct   sql.NullFloat64
			secondaryPct sql.NullFloat64
			cost         sql.NullFloat64
			tokens       sql.NullInt64
			modelsJSON   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Provider, &accountID, &ts, &primaryPct, &secondaryPct, &cost, &tokens, &modelsJSON); err != nil {
			return nil, fmt.Errorf("history: scan usage_records: %w", err)
		}
		if accountID.Valid {
			v := accountID.String
			rec.AccountID = &v
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.Timestamp = parsed
		}
		if primaryPct.Valid {
			v := primaryPct.Float64
			rec.PrimaryUsedPercent = &v
		}
		if secondaryPct.Valid {
			v := secondaryPct.Float64
			rec.SecondaryUsedPercent = &v
		}
		if cost.Valid {
			v := cost.Float64
			rec.CostUSD = &v
		}
		if tokens.Valid {
			v := tokens.Int64
			rec.TokensUsed = &v
		}
		if modelsJSON.Valid {
			m := map[string]float64{}
			if json.Unmarshal([]byte(modelsJSON.String), &m) == nil {
				rec.Models = m
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneUsageOlderThan deletes usage_records rows whose timestamp precedes
// cutoff, returning the number of rows removed.
func (s *Store) PruneUsageOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM usage_records WHERE timestamp < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("history: prune usage_records: %w", err)
	}
	return res.RowsAffected()
}

func nullableStr(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
