package ptysession

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeFakeCLI(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("pty sessions are not supported on windows")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fakecli")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCapture_StopsOnNeedle(t *testing.T) {
	bin := writeFakeCLI(t, "#!/usr/bin/env sh\n"+
		"read line\n"+
		"printf 'Current week (all models): 42%% used\\r\\n'\n"+
		"sleep 5\n")

	s := New()
	out, err := s.Capture(context.Background(), CaptureOptions{
		Subcommand:      "/usage",
		BinaryPath:      bin,
		TotalTimeout:    5 * time.Second,
		IdleTimeout:     2 * time.Second,
		StopSubstrings:  []string{"Current week (all models)"},
		SettleAfterStop: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if !strings.Contains(out, "42%") {
		t.Errorf("Capture() output = %q, want it to contain %q", out, "42%")
	}
	s.Reset()
}

func TestCapture_TimesOutWithNoOutput(t *testing.T) {
	bin := writeFakeCLI(t, "#!/usr/bin/env sh\nsleep 5\n")

	s := New()
	_, err := s.Capture(context.Background(), CaptureOptions{
		Subcommand:   "/usage",
		BinaryPath:   bin,
		TotalTimeout: 300 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("Capture() error = nil, want timed-out")
	}
	sessErr, ok := err.(*Error)
	if !ok || sessErr.Kind != KindTimedOut {
		t.Errorf("Capture() error = %v, want Kind %q", err, KindTimedOut)
	}
	s.Reset()
}

func TestCapture_ReportsProcessExited(t *testing.T) {
	bin := writeFakeCLI(t, "#!/usr/bin/env sh\nexit 0\n")

	s := New()
	_, err := s.Capture(context.Background(), CaptureOptions{
		Subcommand:   "/usage",
		BinaryPath:   bin,
		TotalTimeout: 2 * time.Second,
	})
	if err == nil {
		t.Fatal("Capture() error = nil, want process-exited")
	}
	sessErr, ok := err.(*Error)
	if !ok || sessErr.Kind != KindProcessExited {
		t.Errorf("Capture() error = %v, want Kind %q", err, KindProcessExited)
	}
	if s.State() != StateClosed {
		t.Errorf("State() = %q, want %q after a process-exited reset", s.State(), StateClosed)
	}
}
