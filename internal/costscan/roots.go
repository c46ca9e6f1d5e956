package costscan

import (
	"os"
	"path/filepath"
	"strings"
)

// claudeRoots returns the directories to scan for Claude Code session
// transcripts: CLAUDE_CONFIG_DIR (comma-separated, each entry either already
// a "projects" dir or needing "/projects" appended), else the two
// conventional install locations.
func claudeRoots() []string {
	if raw := os.Getenv("CLAUDE_CONFIG_DIR"); raw != "" {
		var roots []string
		for _, entry := range strings.Split(raw, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			if filepath.Base(entry) == "projects" {
				roots = append(roots, entry)
			} else {
				roots = append(roots, filepath.Join(entry, "projects"))
			}
		}
		return roots
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".claude", "projects"),
		filepath.Join(home, ".config", "claude", "projects"),
	}
}

// codexRoots returns the directory to scan for Codex CLI session logs:
// CODEX_HOME/sessions, else ~/.codex/sessions.
func codexRoots() []string {
	if home := os.Getenv("CODEX_HOME"); home != "" {
		return []string{filepath.Join(home, "sessions")}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".codex", "sessions")}
}
