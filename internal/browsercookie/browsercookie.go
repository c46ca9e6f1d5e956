// Package browsercookie reads a named cookie out of a Chromium-family
// browser's cookie store. Chromium encrypts cookie values at rest using a
// key derived from an OS-specific "Safe Storage" password; this package
// locates the cookie database, derives that key, and decrypts the value the
// caller asked for.
package browsercookie

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Kind string

const (
	KindBrowserNotFound  Kind = "browser-not-found"
	KindAccessDenied     Kind = "access-denied"
	KindDecryptionFailed Kind = "decryption-failed"
	KindNoMatch          Kind = "no-match"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Record is one decrypted cookie row.
type Record struct {
	Name       string
	Value      string
	Domain     string
	Path       string
	ExpiresAt  *time.Time
	IsSecure   bool
	IsHTTPOnly bool
}

// Browser names a Chromium-family build, in the order they are tried.
type Browser struct {
	ID           string
	ProfileGlob  string
	safeStorage  string // macOS Keychain service name / Linux libsecret label
	linuxDefault string // historical fallback password Chromium used before libsecret
}

// Browsers lists the Chromium-family builds this package knows how to find,
// ordered roughly by how likely a developer is to have them installed.
var Browsers = []Browser{
	{ID: "chrome", ProfileGlob: "Google/Chrome", safeStorage: "Chrome Safe Storage", linuxDefault: "peanuts"},
	{ID: "chrome-beta", ProfileGlob: "Google/Chrome Beta", safeStorage: "Chrome Safe Storage", linuxDefault: "peanuts"},
	{ID: "chromium", ProfileGlob: "Chromium", safeStorage: "Chromium Safe Storage", linuxDefault: "peanuts"},
	{ID: "brave", ProfileGlob: "BraveSoftware/Brave-Browser", safeStorage: "Brave Safe Storage", linuxDefault: "peanuts"},
	{ID: "edge", ProfileGlob: "Microsoft Edge", safeStorage: "Microsoft Edge Safe Storage", linuxDefault: "peanuts"},
	{ID: "vivaldi", ProfileGlob: "Vivaldi", safeStorage: "Vivaldi Safe Storage", linuxDefault: "peanuts"},
	{ID: "arc", ProfileGlob: "Arc/User Data", safeStorage: "Arc Safe Storage", linuxDefault: "peanuts"},
	{ID: "opera", ProfileGlob: "com.operasoftware.Opera", safeStorage: "Opera Safe Storage", linuxDefault: "peanuts"},
}

// FindCookie searches every known Chromium-family browser profile for a
// cookie matching domain, trying each of names in order and returning the
// first match found across all profiles a browser exposes.
func FindCookie(domain string, names []string) (*Record, error) {
	var lastErr error
	found := false

	for _, b := range Browsers {
		dbPaths := cookieDBPaths(b)
		for _, dbPath := range dbPaths {
			if _, err := os.Stat(dbPath); err != nil {
				continue
			}
			found = true

			key, err := deriveKey(b)
			if err != nil {
				lastErr = err
				continue
			}

			rec, err := readCookie(dbPath, domain, names, key)
			if err != nil {
				lastErr = err
				continue
			}
			if rec != nil {
				return rec, nil
			}
		}
	}

	if !found {
		return nil, &Error{Kind: KindBrowserNotFound, Message: "no Chromium-family browser profile found"}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, &Error{Kind: KindNoMatch, Message: fmt.Sprintf("no cookie named %v found for domain %s", names, domain)}
}

// readCookie opens a copy of dbPath (SQLite holds a lock on the live file
// while the browser runs) and queries for the newest row matching domain and
// any of names.
func readCookie(dbPath, domain string, names []string, key []byte) (*Record, error) {
	tmpPath, err := copyToTemp(dbPath)
	if err != nil {
		return nil, &Error{Kind: KindAccessDenied, Message: "copying cookie database: " + err.Error()}
	}
	defer os.Remove(tmpPath)

	db, err := sql.Open("sqlite3", tmpPath+"?mode=ro&immutable=1")
	if err != nil {
		return nil, &Error{Kind: KindAccessDenied, Message: "opening cookie database: " + err.Error()}
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT name, hex(encrypted_value), host_key, path, is_secure, is_httponly, expires_utc
		FROM cookies
		WHERE host_key LIKE '%' || ? || '%'
		ORDER BY creation_utc DESC
	`, domain)
	if err != nil {
		return nil, &Error{Kind: KindAccessDenied, Message: "querying cookies table: " + err.Error()}
	}
	defer rows.Close()

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	for rows.Next() {
		var name, hexValue, hostKey, path string
		var isSecure, isHTTPOnly int
		var expiresUTC int64
		if err := rows.Scan(&name, &hexValue, &hostKey, &path, &isSecure, &isHTTPOnly, &expiresUTC); err != nil {
			continue
		}
		if !wanted[name] {
			continue
		}

		encrypted, err := decodeHex(hexValue)
		if err != nil {
			continue
		}
		value, err := decrypt(encrypted, key)
		if err != nil {
			return nil, &Error{Kind: KindDecryptionFailed, Message: err.Error()}
		}

		rec := &Record{
			Name:       name,
			Value:      value,
			Domain:     hostKey,
			Path:       path,
			IsSecure:   isSecure != 0,
			IsHTTPOnly: isHTTPOnly != 0,
		}
		if expiresUTC > 0 {
			t := chromiumEpochToTime(expiresUTC)
			rec.ExpiresAt = &t
		}
		return rec, nil
	}

	return nil, nil
}

// chromiumEpochToTime converts a Chromium expires_utc value (microseconds
// since 1601-01-01 UTC) into a standard time.Time.
func chromiumEpochToTime(expiresUTC int64) time.Time {
	const epochDeltaSeconds = 11644473600
	sec := expiresUTC/1_000_000 - epochDeltaSeconds
	return time.Unix(sec, 0).UTC()
}

func copyToTemp(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	tmp, err := os.CreateTemp("", "paceguard-cookies-*.sqlite")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, in); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, errors.New("odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, err := hexDigit(s[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexDigit(s[i*2+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexDigit(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit %q", c)
	}
}

func cookieDBPaths(b Browser) []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	var roots []string
	switch platform() {
	case "darwin":
		roots = []string{filepath.Join(home, "Library", "Application Support", b.ProfileGlob)}
	case "linux":
		roots = []string{filepath.Join(home, ".config", b.ProfileGlob)}
	case "windows":
		roots = []string{filepath.Join(home, "AppData", "Local", filepath.FromSlash(b.ProfileGlob), "User Data")}
	default:
		return nil
	}

	var paths []string
	for _, root := range roots {
		for _, profile := range []string{"Default", "Profile 1", "Profile 2"} {
			paths = append(paths, filepath.Join(root, profile, "Network", "Cookies"))
			paths = append(paths, filepath.Join(root, profile, "Cookies"))
		}
	}
	return paths
}
