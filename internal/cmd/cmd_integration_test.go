//go:build integration

package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Iron-Ham/inkgate/internal/payload"
	"github.com/Iron-Ham/inkgate/internal/session"
	"github.com/Iron-Ham/inkgate/internal/testutil"
)

func TestOpenCloseCommands(t *testing.T) {
	testutil.SkipIfNoGit(t)
	isolateConfig(t)

	repoDir, _ := testutil.SetupBookRepo(t, nil)

	output, err := executeCommand(rootCmd, "open", repoDir)
	if err != nil {
		t.Fatalf("open failed: %v\nOutput: %s", err, output)
	}
	var p payload.Payload
	if err := json.Unmarshal([]byte(output), &p); err != nil {
		t.Fatalf("open output is not a payload: %v\n%s", err, output)
	}
	if p.SessionID == "" || p.SessionAlreadyRun || p.KillRequested {
		t.Fatalf("open payload = %+v", p)
	}

	proseFile := filepath.Join(t.TempDir(), "prose.md")
	if err := os.WriteFile(proseFile, []byte("Five words of new prose."), 0644); err != nil {
		t.Fatal(err)
	}

	output, err = executeCommand(rootCmd, "close", repoDir, "--prose-file", proseFile, "--summary", "A test session.")
	if err != nil {
		t.Fatalf("close failed: %v\nOutput: %s", err, output)
	}
	var res session.CloseResult
	if err := json.Unmarshal([]byte(output), &res); err != nil {
		t.Fatalf("close output is not JSON: %v\n%s", err, output)
	}
	if res.Status != "closed" || res.SessionWordCount != 5 {
		t.Errorf("close result = %+v", res)
	}

	_, err = executeCommand(rootCmd, "close", repoDir, "--prose-file", proseFile)
	if ExitCode(err) != ExitProtocol {
		t.Errorf("second close error = %v, want a protocol error", err)
	}
}
