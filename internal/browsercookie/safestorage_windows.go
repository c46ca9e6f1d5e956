//go:build windows

package browsercookie

// Windows Chromium builds protect cookies with DPAPI rather than a
// PBKDF2-derived Safe Storage password, a different scheme this package
// doesn't implement; callers see browser-not-found on this platform.
func safeStoragePassword(b Browser) (string, error) {
	return "", &Error{Kind: KindBrowserNotFound, Message: "windows DPAPI-protected cookies are not supported"}
}
