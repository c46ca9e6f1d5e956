// Package ptysession drives an interactive CLI binary over a pseudo-terminal
// for providers whose usage data is only exposed through a TUI (Claude's
// `/usage` and `/status`), not a scriptable command. A Session is a
// per-process singleton: at most one capture runs at a time, and the
// underlying child is reused across calls that target the same binary while
// it's still alive.
package ptysession

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"

	"github.com/paceguard/paceguard/internal/textparse"
)

// State is a session's lifecycle stage.
type State string

const (
	StateIdle     State = "idle"
	StateStarted  State = "started"
	StateRunning  State = "running"
	StateDraining State = "draining"
	StateClosed   State = "closed"
)

// Kind classifies why a capture failed.
type Kind string

const (
	KindLaunchFailed  Kind = "launch-failed"
	KindIOFailed      Kind = "io-failed"
	KindProcessExited Kind = "process-exited"
	KindTimedOut      Kind = "timed-out"
	KindNotInstalled  Kind = "not-installed"
)

// Error is a typed capture failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

const (
	ptyRows = 50
	ptyCols = 160

	warmup      = 2 * time.Second
	readCadence = 60 * time.Millisecond
	killGrace   = 1 * time.Second

	dsrQuery = "\x1b[6n"
	dsrReply = "\x1b[1;1R"
)

// strippedEnvPrefixes are removed from the child's environment so a capture
// measures the CLI's own re-auth behavior instead of reusing credentials the
// parent process happens to carry.
var strippedEnvPrefixes = []string{
	"ANTHROPIC_", "CLAUDE_", "OPENAI_", "CODEX_", "GEMINI_", "GOOGLE_", "GITHUB_", "GH_",
}

// PromptResponse is a known terminal prompt — a folder-trust dialog, a
// press-enter banner, a command-palette entry — and the keystrokes sent in
// reply, at most once per session.
type PromptResponse struct {
	Needle   string
	Response string
}

// CaptureOptions configures one Capture call.
type CaptureOptions struct {
	Subcommand      string
	BinaryPath      string
	WorkDir         string
	TotalTimeout    time.Duration
	IdleTimeout     time.Duration
	StopSubstrings  []string
	SettleAfterStop time.Duration
	SendEnterEvery  time.Duration
	Prompts         []PromptResponse
}

// Session drives one interactive CLI binary over a pseudo-terminal.
type Session struct {
	mu         sync.Mutex
	state      State
	binaryPath string
	cmd        *exec.Cmd
	pty        *os.File
}

func New() *Session {
	return &Session{state: StateIdle}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Capture spawns (or reuses) the session's child process, sends subcommand,
// and scans its output until a stop substring is seen, the idle timeout
// elapses with a non-empty buffer, or TotalTimeout is reached.
func (s *Session) Capture(ctx context.Context, opts CaptureOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle && s.state != StateClosed {
		if s.binaryPath != opts.BinaryPath || !s.processAlive() {
			s.resetLocked()
		}
	}

	if s.state == StateIdle || s.state == StateClosed {
		if err := s.startLocked(opts); err != nil {
			return "", err
		}
	}

	out, err := s.runLocked(ctx, opts)
	if err != nil {
		var sessErr *Error
		if ok := errorsAs(err, &sessErr); ok && (sessErr.Kind == KindProcessExited || sessErr.Kind == KindIOFailed) {
			s.resetLocked()
		}
	}
	return out, err
}

// Reset tears the session down: writes /exit if RUNNING, SIGTERMs the
// process group, waits, then SIGKILLs, and always closes both PTY file
// descriptors.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) processAlive() bool {
	return s.cmd != nil && s.cmd.Process != nil && s.cmd.ProcessState == nil
}

func (s *Session) startLocked(opts CaptureOptions) error {
	path, err := exec.LookPath(opts.BinaryPath)
	if err != nil {
		path = opts.BinaryPath
		if _, statErr := os.Stat(path); statErr != nil {
			return &Error{Kind: KindNotInstalled, Message: "binary not found: " + opts.BinaryPath}
		}
	}

	cmd := exec.Command(path)
	cmd.Dir = opts.WorkDir
	cmd.Env = childEnv()
	setProcessGroup(cmd)

	f, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: ptyRows, Cols: ptyCols})
	if err != nil {
		return &Error{Kind: KindLaunchFailed, Message: err.Error()}
	}

	s.cmd = cmd
	s.pty = f
	s.binaryPath = opts.BinaryPath
	s.state = StateStarted
	return nil
}

func childEnv() []string {
	base := os.Environ()
	filtered := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if hasStrippedPrefix(kv) {
			continue
		}
		filtered = append(filtered, kv)
	}
	return append(filtered, "TERM=xterm-256color")
}

func hasStrippedPrefix(kv string) bool {
	for _, p := range strippedEnvPrefixes {
		if strings.HasPrefix(kv, p) {
			return true
		}
	}
	return false
}

func (s *Session) runLocked(ctx context.Context, opts CaptureOptions) (string, error) {
	time.Sleep(warmup)
	if _, err := s.pty.Write([]byte(opts.Subcommand + "\r")); err != nil {
		return "", &Error{Kind: KindIOFailed, Message: err.Error()}
	}
	s.state = StateRunning

	totalTimeout := opts.TotalTimeout
	if totalTimeout <= 0 {
		totalTimeout = 20 * time.Second
	}
	deadline := time.Now().Add(totalTimeout)

	readCh := make(chan []byte, 32)
	errCh := make(chan error, 1)
	go readLoop(s.pty, readCh, errCh)

	var buf bytes.Buffer
	sent := make(map[string]bool, len(opts.Prompts))
	lastData := time.Now()
	lastEnter := time.Now()
	var stopped bool
	var processExited bool

readLoop:
	for {
		select {
		case <-ctx.Done():
			return buf.String(), &Error{Kind: KindTimedOut, Message: "context cancelled"}

		case <-errCh:
			processExited = true
			break readLoop

		case chunk := <-readCh:
			buf.Write(chunk)
			lastData = time.Now()

			if bytes.Contains(chunk, []byte(dsrQuery)) {
				_, _ = s.pty.Write([]byte(dsrReply))
			}

			scanBuf := textparse.Normalize(buf.String())

			for _, p := range opts.Prompts {
				if sent[p.Needle] {
					continue
				}
				if strings.Contains(scanBuf, p.Needle) {
					_, _ = s.pty.Write([]byte(p.Response))
					sent[p.Needle] = true
				}
			}

			for _, needle := range opts.StopSubstrings {
				if strings.Contains(scanBuf, needle) {
					stopped = true
					break readLoop
				}
			}

		case <-time.After(readCadence):
			if buf.Len() > 0 && opts.IdleTimeout > 0 && time.Since(lastData) >= opts.IdleTimeout {
				stopped = true
				break readLoop
			}
			if opts.SendEnterEvery > 0 && time.Since(lastEnter) >= opts.SendEnterEvery {
				_, _ = s.pty.Write([]byte("\r"))
				lastEnter = time.Now()
			}
			if time.Now().After(deadline) {
				break readLoop
			}
		}
	}

	s.state = StateDraining
	if stopped && opts.SettleAfterStop > 0 {
		settleDeadline := time.Now().Add(opts.SettleAfterStop)
		for time.Now().Before(settleDeadline) {
			select {
			case chunk := <-readCh:
				buf.Write(chunk)
			case <-errCh:
				processExited = true
			case <-time.After(readCadence):
			}
		}
	}

	if processExited && buf.Len() == 0 {
		return "", &Error{Kind: KindProcessExited, Message: "process exited before producing output"}
	}

	s.state = StateRunning

	if buf.Len() == 0 {
		return "", &Error{Kind: KindTimedOut, Message: "timed out waiting for output"}
	}

	return buf.String(), nil
}

func readLoop(f *os.File, out chan<- []byte, errs chan<- error) {
	buf := make([]byte, 4096)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}
		if err != nil {
			errs <- err
			return
		}
	}
}

func (s *Session) resetLocked() {
	if s.cmd == nil {
		s.state = StateClosed
		return
	}

	if (s.state == StateRunning || s.state == StateDraining) && s.pty != nil {
		_, _ = s.pty.Write([]byte("/exit\r"))
		time.Sleep(200 * time.Millisecond)
	}

	if s.cmd.Process != nil {
		_ = terminateProcessGroup(s.cmd)
		done := make(chan struct{})
		go func() {
			_, _ = s.cmd.Process.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(killGrace):
			_ = killProcessGroup(s.cmd)
			<-done
		}
	}

	if s.pty != nil {
		_ = s.pty.Close()
	}

	s.cmd = nil
	s.pty = nil
	s.state = StateClosed
}

// errorsAs is a small local helper so this file doesn't need to import
// "errors" solely for a single *Error type assertion.
func errorsAs(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
