package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/inkgate/internal/errors"
	"github.com/Iron-Ham/inkgate/internal/logging"
	"github.com/Iron-Ham/inkgate/internal/payload"
	"github.com/Iron-Ham/inkgate/internal/session"
	"github.com/Iron-Ham/inkgate/internal/testutil"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// isolateConfig keeps the user's real config file out of the test
func isolateConfig(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "inkgate" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "inkgate")
	}

	expectedCmds := []string{"open", "close", "complete", "advance-chapter", "status", "reset", "config", "serve", "logs"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no active session", errors.NewSessionError("refused", errors.ErrNoActiveSession), ExitProtocol},
		{"already complete", errors.ErrAlreadyComplete, ExitProtocol},
		{"diverged", errors.NewGitError("merge", errors.ErrNonFastForward), ExitProtocol},
		{"git failure", errors.NewGitError("push failed", errors.New("rejected")), ExitError},
		{"validation", errors.NewValidationError("bad"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	writeError(&buf, errors.NewSessionError("close refused", errors.ErrNoActiveSession))

	var body errorBody
	if err := json.Unmarshal(buf.Bytes(), &body); err != nil {
		t.Fatalf("error output is not JSON: %v\n%s", err, buf.String())
	}
	if body.Status != "error" || body.Code != errors.CodeNoActiveSession {
		t.Errorf("error body = %+v", body)
	}
}

func TestReadProse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prose.md")
	if err := os.WriteFile(path, []byte("From a file."), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := readProse(nil, path)
	if err != nil || got != "From a file." {
		t.Errorf("readProse(file) = %q, %v", got, err)
	}

	got, err = readProse(strings.NewReader("From stdin."), "-")
	if err != nil || got != "From stdin." {
		t.Errorf("readProse(stdin) = %q, %v", got, err)
	}

	if _, err := readProse(nil, ""); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("readProse(\"\") error = %v, want ErrInvalidInput", err)
	}
	if _, err := readProse(nil, filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("readProse(missing) should fail")
	}
}

func TestRenderStatus(t *testing.T) {
	out := renderStatus("/books/novel", &session.StatusResult{
		CurrentChapter:          2,
		ChapterCount:            3,
		CurrentChapterWordCount: 2700,
		WordsPerChapter:         3000,
		ChapterProgressPct:      90,
		ChapterCloseSuggested:   true,
		WordCount:               payload.WordCount{Total: 5000, Target: 10000, Remaining: 5000},
		KillPending:             true,
		PendingInstructions:     2,
		Lock:                    session.LockStatus{Present: true, Active: true, AgeSeconds: 90},
	})

	for _, want := range []string{"/books/novel", "2 of 3", "90%", "close suggested", "5000 / 10000 words", "held for 1m30s", "2 pending", "requested"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered status missing %q:\n%s", want, out)
		}
	}
}

func TestLockSummary(t *testing.T) {
	tests := []struct {
		lock session.LockStatus
		want string
	}{
		{session.LockStatus{}, "free"},
		{session.LockStatus{Present: true, Malformed: true}, "unreadable"},
		{session.LockStatus{Present: true}, "stale"},
		{session.LockStatus{Present: true, Active: true, AgeSeconds: 5}, "held for 5s"},
	}
	for _, tt := range tests {
		if got := lockSummary(tt.lock); !strings.Contains(got, tt.want) {
			t.Errorf("lockSummary(%+v) = %q, want it to contain %q", tt.lock, got, tt.want)
		}
	}
}

func TestStatusCommand_JSON(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, testutil.BookFiles(map[string]string{
		".ink-state.yml": "current_chapter: 2\ncurrent_chapter_word_count: 300\n",
	}))

	output, err := executeCommand(rootCmd, "status", dir, "--json")
	if err != nil {
		t.Fatalf("status failed: %v\nOutput: %s", err, output)
	}

	var res session.StatusResult
	if err := json.Unmarshal([]byte(output), &res); err != nil {
		t.Fatalf("status output is not JSON: %v\n%s", err, output)
	}
	if res.CurrentChapter != 2 || res.ChapterProgressPct != 10 || res.Lock.Present {
		t.Errorf("status = %+v", res)
	}
}

func TestStatusCommand_InvalidConfig(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, testutil.BookFiles(map[string]string{
		"Global Material/Config.yml": "language: English\n",
	}))

	if _, err := executeCommand(rootCmd, "status", dir, "--json"); err == nil {
		t.Error("status should fail when required config keys are missing")
	}
}

func TestResetCommand_RequiresConfirmation(t *testing.T) {
	isolateConfig(t)

	_, err := executeCommand(rootCmd, "reset", t.TempDir(), "--yes=false")
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("reset without --yes error = %v, want ErrInvalidInput", err)
	}
}

func TestConfigCommand(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, testutil.BookFiles(nil))

	output, err := executeCommand(rootCmd, "config", dir)
	if err != nil {
		t.Fatalf("config failed: %v\nOutput: %s", err, output)
	}
	for _, want := range []string{"main_branch: main", "draft_branch: draft", "target_length: 10000", "words_per_page: 300"} {
		if !strings.Contains(output, want) {
			t.Errorf("config output missing %q:\n%s", want, output)
		}
	}
}

func TestConfigCommand_EnvOverride(t *testing.T) {
	isolateConfig(t)
	t.Setenv("INKGATE_GIT_REMOTE", "upstream")

	output, err := executeCommand(rootCmd, "config")
	if err != nil {
		t.Fatalf("config failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "remote: upstream") {
		t.Errorf("environment override not applied:\n%s", output)
	}
}

func TestLogsCommand(t *testing.T) {
	isolateConfig(t)
	logDir := t.TempDir()
	t.Setenv("INKGATE_LOGGING_DIR", logDir)
	testutil.WriteFiles(t, logDir, map[string]string{
		logging.LogFileName: `{"time":"2026-05-01T10:00:00Z","level":"INFO","msg":"session admitted","session_id":"s-1","operation":"open"}
{"time":"2026-05-01T10:05:00Z","level":"WARN","msg":"stale lock recovered","session_id":"s-2","operation":"open"}
`,
	})

	output, err := executeCommand(rootCmd, "logs", "--session", "s-2", "--format", "json")
	if err != nil {
		t.Fatalf("logs failed: %v\nOutput: %s", err, output)
	}
	var entries []logging.Entry
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		t.Fatalf("logs output is not JSON: %v\n%s", err, output)
	}
	if len(entries) != 1 || entries[0].Message != "stale lock recovered" {
		t.Errorf("entries = %+v", entries)
	}

	_, err = executeCommand(rootCmd, "logs", "--session", "", "--format", "xml")
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("unsupported format error = %v, want ErrInvalidInput", err)
	}
}

func TestLogsCommand_NoLogDir(t *testing.T) {
	isolateConfig(t)

	_, err := executeCommand(rootCmd, "logs", "--format", "text")
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("logs without logging.dir error = %v, want ErrInvalidInput", err)
	}
}
