package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Account is one configured credential set for a provider.
type Account struct {
	ID          string
	Provider    string
	Email       *string
	DisplayName string
	AuthMethod  string
	KeychainID  *string
	IsActive    bool
	AddedAt     time.Time
	LastUsedAt  *time.Time
}

func (s *Store) UpsertAccount(ctx context.Context, a Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, provider, email, display_name, auth_method, keychain_id, is_active, added_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			email = excluded.email,
			display_name = excluded.display_name,
			auth_method = excluded.auth_method,
			keychain_id = excluded.keychain_id,
			last_used_at = excluded.last_used_at
	`,
		a.ID, a.Provider, nullableStr(a.Email), a.DisplayName, a.AuthMethod,
		nullableStr(a.KeychainID), boolToInt(a.IsActive),
		a.AddedAt.UTC().Format(time.RFC3339), nullableTime(a.LastUsedAt),
	)
	if err != nil {
		return fmt.Errorf("history: upsert account: %w", err)
	}
	return nil
}

// ListAccounts returns every account configured for provider.
func (s *Store) ListAccounts(ctx context.Context, provider string) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider, email, display_name, auth_method, keychain_id, is_active, added_at, last_used_at
		FROM accounts WHERE provider = ? ORDER BY added_at ASC
	`, provider)
	if err != nil {
		return nil, fmt.Errorf("history: query accounts: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAccount(rows *sql.Rows) (Account, error) {
	var (
		a          Account
		email      sql.NullString
		keychainID sql.NullString
		isActive   int
		addedAt    string
		lastUsedAt sql.NullString
	)
	if err := rows.Scan(&a.ID, &a.Provider, &email, &a.DisplayName, &a.AuthMethod, &keychainID, &isActive, &addedAt, &lastUsedAt); err != nil {
		return Account{}, fmt.Errorf("history: scan account: %w", err)
	}
	if email.Valid {
		v := email.String
		a.Email = &v
	}
	if keychainID.Valid {
		v := keychainID.String
		a.KeychainID = &v
	}
	a.IsActive = isActive != 0
	if parsed, err := time.Parse(time.RFC3339, addedAt); err == nil {
		a.AddedAt = parsed
	}
	if lastUsedAt.Valid {
		if parsed, err := time.Parse(time.RFC3339, lastUsedAt.String); err == nil {
			a.LastUsedAt = &parsed
		}
	}
	return a, nil
}

// SetActiveAccount marks accountID as the sole active account for provider,
// deactivating every other account for that provider in the same
// transaction so exactly one account is ever active per provider.
func (s *Store) SetActiveAccount(ctx context.Context, provider, accountID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET is_active = 0 WHERE provider = ?`, provider); err != nil {
		return fmt.Errorf("history: clear active accounts: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE accounts SET is_active = 1, last_used_at = ? WHERE id = ? AND provider = ?`,
		time.Now().UTC().Format(time.RFC3339), accountID, provider)
	if err != nil {
		return fmt.Errorf("history: set active account: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("history: no account %q for provider %q", accountID, provider)
	}
	return tx.Commit()
}

// DedupeAccounts drops entries with an empty ID and keeps only the first
// entry for any repeated ID, the same normalize-then-uniq shape the config
// loader uses for its own account lists.
func DedupeAccounts(in []Account) []Account {
	filtered := lo.Filter(in, func(a Account, _ int) bool { return a.ID != "" })
	return lo.UniqBy(filtered, func(a Account) string { return a.ID })
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
