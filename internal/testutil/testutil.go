// Package testutil provides testing utilities for inkgate tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const (
	testUserName  = "Inkgate Test"
	testUserEmail = "test@inkgate.dev"
)

// SetupTestRepo creates a temporary git repository for testing.
// Returns the path to the repository. The repository is automatically
// cleaned up when the test completes.
func SetupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	if err := runGit(dir, "init"); err != nil {
		t.Fatalf("failed to init git repo: %v", err)
	}
	configureUser(t, dir)

	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, []byte("# Test Book\n"), 0644); err != nil {
		t.Fatalf("failed to create README: %v", err)
	}
	if err := runGit(dir, "add", "."); err != nil {
		t.Fatalf("failed to stage files: %v", err)
	}
	if err := runGit(dir, "commit", "-m", "Initial commit"); err != nil {
		t.Fatalf("failed to create initial commit: %v", err)
	}

	// Some systems default to master
	if err := runGit(dir, "branch", "-M", "main"); err != nil {
		t.Fatalf("failed to rename branch to main: %v", err)
	}

	return dir
}

// SetupTestRepoWithContent creates a test repository with specified files.
// The files map contains relative paths to file contents.
func SetupTestRepoWithContent(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := SetupTestRepo(t)
	WriteFiles(t, dir, files)

	if err := runGit(dir, "add", "."); err != nil {
		t.Fatalf("failed to stage files: %v", err)
	}
	if err := runGit(dir, "commit", "-m", "Add test files"); err != nil {
		t.Fatalf("failed to commit test files: %v", err)
	}

	return dir
}

// SetupTestRepoWithRemote creates a test repository with a bare "origin"
// remote that already holds main.
func SetupTestRepoWithRemote(t *testing.T) (repoDir, remoteDir string) {
	t.Helper()
	return SetupTestRepoWithContentAndRemote(t, nil)
}

// SetupTestRepoWithContentAndRemote is SetupTestRepoWithContent plus a bare
// "origin" remote that main has been pushed to.
func SetupTestRepoWithContentAndRemote(t *testing.T, files map[string]string) (repoDir, remoteDir string) {
	t.Helper()

	remoteDir = t.TempDir()
	if err := runGit(remoteDir, "init", "--bare"); err != nil {
		t.Fatalf("failed to init bare repo: %v", err)
	}

	if len(files) > 0 {
		repoDir = SetupTestRepoWithContent(t, files)
	} else {
		repoDir = SetupTestRepo(t)
	}

	if err := runGit(repoDir, "remote", "add", "origin", remoteDir); err != nil {
		t.Fatalf("failed to add remote: %v", err)
	}
	if err := runGit(repoDir, "push", "-u", "origin", "main"); err != nil {
		t.Fatalf("failed to push to remote: %v", err)
	}
	// Point the bare repository's HEAD at main so plain clones check it out.
	if err := runGit(remoteDir, "symbolic-ref", "HEAD", "refs/heads/main"); err != nil {
		t.Fatalf("failed to set remote HEAD: %v", err)
	}

	return repoDir, remoteDir
}

// CloneRemote clones remoteDir into a fresh temporary directory with main
// checked out, standing in for a second collaborator's working copy.
func CloneRemote(t *testing.T, remoteDir string) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "clone")
	if err := runGit(filepath.Dir(dir), "clone", "--quiet", "-b", "main", remoteDir, dir); err != nil {
		t.Fatalf("failed to clone remote: %v", err)
	}
	configureUser(t, dir)
	return dir
}

// WriteFiles writes files relative to dir without staging them.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for path, content := range files {
		fullPath := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", path, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write file %s: %v", path, err)
		}
	}
}

// CommitFile creates or updates a file and commits it.
func CommitFile(t *testing.T, repoDir, path, content, message string) {
	t.Helper()

	WriteFiles(t, repoDir, map[string]string{path: content})
	if err := runGit(repoDir, "add", path); err != nil {
		t.Fatalf("failed to stage file %s: %v", path, err)
	}
	if err := runGit(repoDir, "commit", "-m", message); err != nil {
		t.Fatalf("failed to commit file %s: %v", path, err)
	}
}

// RunGit runs git in dir, failing the test on error, and returns trimmed stdout.
func RunGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = gitEnv()
	output, err := cmd.Output()
	if err != nil {
		stderr := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = string(exitErr.Stderr)
		}
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, stderr)
	}
	return strings.TrimSpace(string(output))
}

// GetCurrentBranch returns the current branch name.
func GetCurrentBranch(t *testing.T, repoDir string) string {
	t.Helper()
	return RunGit(t, repoDir, "rev-parse", "--abbrev-ref", "HEAD")
}

// GetCommitCount returns the number of commits reachable from ref.
func GetCommitCount(t *testing.T, repoDir, ref string) int {
	t.Helper()

	out := RunGit(t, repoDir, "rev-list", "--count", ref)
	count, err := strconv.Atoi(out)
	if err != nil {
		t.Fatalf("failed to parse commit count %q: %v", out, err)
	}
	return count
}

// HeadCommit returns the full object name of ref.
func HeadCommit(t *testing.T, repoDir, ref string) string {
	t.Helper()
	return RunGit(t, repoDir, "rev-parse", ref)
}

// HasUncommittedChanges returns true if the repository has uncommitted changes.
func HasUncommittedChanges(t *testing.T, repoDir string) bool {
	t.Helper()
	return RunGit(t, repoDir, "status", "--porcelain") != ""
}

// PathInTree reports whether path exists in the tree of ref.
func PathInTree(t *testing.T, repoDir, ref, path string) bool {
	t.Helper()
	return RunGit(t, repoDir, "ls-tree", "--name-only", ref, "--", path) != ""
}

// SkipIfNoGit skips the test if git is not installed.
func SkipIfNoGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH, skipping test")
	}
}

func configureUser(t *testing.T, dir string) {
	t.Helper()

	if err := runGit(dir, "config", "user.email", testUserEmail); err != nil {
		t.Fatalf("failed to configure git email: %v", err)
	}
	if err := runGit(dir, "config", "user.name", testUserName); err != nil {
		t.Fatalf("failed to configure git name: %v", err)
	}
	if err := runGit(dir, "config", "commit.gpgsign", "false"); err != nil {
		t.Fatalf("failed to disable commit signing: %v", err)
	}
	if err := runGit(dir, "config", "tag.gpgsign", "false"); err != nil {
		t.Fatalf("failed to disable tag signing: %v", err)
	}
}

func gitEnv() []string {
	return append(os.Environ(),
		"GIT_AUTHOR_NAME="+testUserName,
		"GIT_AUTHOR_EMAIL="+testUserEmail,
		"GIT_COMMITTER_NAME="+testUserName,
		"GIT_COMMITTER_EMAIL="+testUserEmail,
	)
}

// runGit runs a git command in the specified directory.
func runGit(dir string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = gitEnv()
	output, err := cmd.CombinedOutput()
	if err != nil {
		return &gitError{args: args, output: output, err: err}
	}
	return nil
}

type gitError struct {
	args   []string
	output []byte
	err    error
}

func (e *gitError) Error() string {
	return "git " + strings.Join(e.args, " ") + ": " + e.err.Error() + "\n" + string(e.output)
}

func (e *gitError) Unwrap() error {
	return e.err
}
