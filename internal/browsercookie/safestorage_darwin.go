//go:build darwin

package browsercookie

import "github.com/paceguard/paceguard/internal/keychain"

// safeStoragePassword reads the browser's Safe Storage password from the
// macOS Keychain, the same mechanism Chromium itself uses to decrypt cookies.
func safeStoragePassword(b Browser) (string, error) {
	password, err := keychain.ReadGenericPassword(b.safeStorage, "")
	if err != nil || password == "" {
		return "", &Error{Kind: KindAccessDenied, Message: "reading " + b.safeStorage + " from Keychain: " + errString(err)}
	}
	return password, nil
}

func errString(err error) string {
	if err == nil {
		return "empty password"
	}
	return err.Error()
}
