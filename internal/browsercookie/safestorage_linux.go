//go:build linux

package browsercookie

import "os/exec"

// safeStoragePassword reads the browser's Safe Storage password from the
// Secret Service (via secret-tool, the same libsecret backend Chromium
// uses), falling back to the documented default Chromium uses when no
// keyring backend is running.
func safeStoragePassword(b Browser) (string, error) {
	if out, err := exec.Command("secret-tool", "lookup", "application", b.ProfileGlob).Output(); err == nil {
		if pw := string(out); pw != "" {
			return pw, nil
		}
	}
	return b.linuxDefault, nil
}
