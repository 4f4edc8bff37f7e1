package git

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/Iron-Ham/inkgate/internal/errors"
	"github.com/Iron-Ham/inkgate/internal/logging"
)

// Repo runs git operations against a single working tree.
type Repo struct {
	dir      string
	binary   string
	executor CommandExecutor
	logger   *logging.Logger
}

// NewRepo creates a Repo that shells out to binary (default "git").
// A nil logger discards output.
func NewRepo(dir, binary string, logger *logging.Logger) *Repo {
	return NewRepoWithExecutor(dir, binary, NewCLICommandExecutor(), logger)
}

// NewRepoWithExecutor creates a Repo with a custom executor.
// This is primarily useful for testing.
func NewRepoWithExecutor(dir, binary string, executor CommandExecutor, logger *logging.Logger) *Repo {
	if binary == "" {
		binary = "git"
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Repo{
		dir:      dir,
		binary:   binary,
		executor: executor,
		logger:   logger,
	}
}

// run executes git with args, naming op in any resulting error.
func (r *Repo) run(op string, args ...string) ([]byte, error) {
	r.logger.Debug("git", "op", op, "args", args)
	output, err := r.executor.Run(r.dir, r.binary, args...)
	if err != nil {
		return output, r.wrap(op, err, output)
	}
	return output, nil
}

func (r *Repo) wrap(op string, err error, output []byte) *errors.GitError {
	cause := err
	if errors.Is(err, exec.ErrNotFound) {
		cause = errors.Join(errors.ErrGitUnavailable, err)
	}
	return errors.NewGitError(fmt.Sprintf("git %s failed", op), cause).
		WithOperation(op).
		WithRepository(r.dir).
		WithGitOutput(string(output))
}

// exitCode extracts the process exit status from err, if it carries one.
func exitCode(err error) (int, bool) {
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode(), true
	}
	return 0, false
}

// EnsureRepository fails with ErrNotGitRepository unless dir is inside a work tree.
func (r *Repo) EnsureRepository() error {
	output, err := r.executor.Run(r.dir, r.binary, "rev-parse", "--is-inside-work-tree")
	if err != nil || strings.TrimSpace(string(output)) != "true" {
		if err != nil && errors.Is(err, exec.ErrNotFound) {
			return r.wrap("rev-parse", err, output)
		}
		return errors.NewGitError("not a git working tree", errors.ErrNotGitRepository).
			WithOperation("rev-parse").
			WithRepository(r.dir).
			WithGitOutput(string(output))
	}
	return nil
}

// Fetch downloads refs from remote.
func (r *Repo) Fetch(remote string) error {
	_, err := r.run("fetch", "fetch", "--quiet", remote)
	return err
}

// Checkout switches to an existing branch.
func (r *Repo) Checkout(branch string) error {
	_, err := r.run("checkout", "checkout", "--quiet", branch)
	if err != nil {
		if gitErr, ok := err.(*errors.GitError); ok {
			gitErr.WithBranch(branch)
		}
	}
	return err
}

// CheckoutOrCreate switches to branch, creating it from HEAD when it does not exist.
func (r *Repo) CheckoutOrCreate(branch string) error {
	if r.BranchExists(branch) {
		return r.Checkout(branch)
	}
	_, err := r.run("checkout", "checkout", "--quiet", "-b", branch)
	if err != nil {
		if gitErr, ok := err.(*errors.GitError); ok {
			gitErr.WithBranch(branch)
		}
	}
	return err
}

// BranchExists reports whether a local branch exists.
func (r *Repo) BranchExists(branch string) bool {
	return r.RefExists("refs/heads/" + branch)
}

// RefExists reports whether ref resolves to a commit.
func (r *Repo) RefExists(ref string) bool {
	return r.executor.RunQuiet(r.dir, r.binary, "rev-parse", "--verify", "--quiet", ref+"^{commit}") == nil
}

// MergeFastForward advances the current branch to ref, refusing anything but a
// fast-forward. A divergent history is reported as errors.ErrNonFastForward.
func (r *Repo) MergeFastForward(ref string) error {
	output, err := r.executor.Run(r.dir, r.binary, "merge", "--ff-only", "--quiet", ref)
	if err == nil {
		return nil
	}

	if strings.Contains(strings.ToLower(string(output)), "not possible to fast-forward") {
		return errors.NewGitError("cannot fast-forward onto "+ref, errors.ErrNonFastForward).
			WithOperation("merge").
			WithBranch(ref).
			WithRepository(r.dir).
			WithGitOutput(string(output))
	}
	return r.wrap("merge", err, output).WithBranch(ref)
}

// Rebase replays the current branch onto upstream, aborting on conflict so the
// working tree is never left mid-rebase.
func (r *Repo) Rebase(upstream string) error {
	output, err := r.executor.Run(r.dir, r.binary, "rebase", "--quiet", upstream)
	if err == nil {
		return nil
	}

	outputStr := string(output)
	if strings.Contains(outputStr, "CONFLICT") || strings.Contains(outputStr, "could not apply") {
		_, _ = r.executor.Run(r.dir, r.binary, "rebase", "--abort")
		return errors.NewGitError("rebase conflicts detected - manual resolution required", err).
			WithOperation("rebase").
			WithBranch(upstream).
			WithRepository(r.dir).
			WithGitOutput(outputStr)
	}
	return r.wrap("rebase", err, output).WithBranch(upstream)
}

// StatusPaths lists paths with working tree or index changes, untracked files
// included, in git's order. Renames report the new path.
func (r *Repo) StatusPaths() ([]string, error) {
	output, err := r.run("status", "status", "--porcelain", "-z", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	return parsePorcelainZ(output), nil
}

// parsePorcelainZ parses `git status --porcelain -z` records: "XY path\0",
// followed by "orig\0" for renames and copies.
func parsePorcelainZ(output []byte) []string {
	fields := strings.Split(string(output), "\x00")
	var paths []string
	for i := 0; i < len(fields); i++ {
		entry := fields[i]
		if len(entry) < 4 {
			continue
		}
		status := entry[:2]
		paths = append(paths, entry[3:])
		if strings.ContainsAny(status, "RC") {
			i++ // skip the source path
		}
	}
	return paths
}

// DiffNames lists paths that differ between the working tree and ref.
func (r *Repo) DiffNames(ref string) ([]string, error) {
	output, err := r.run("diff", "diff", "--name-only", "-z", ref, "--")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, p := range strings.Split(string(output), "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// AddAll stages every change in the working tree, deletions included.
func (r *Repo) AddAll() error {
	_, err := r.run("add", "add", "-A")
	return err
}

// Add stages the given paths.
func (r *Repo) Add(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	_, err := r.run("add", args...)
	return err
}

// Remove stages the deletion of paths and deletes them from the working tree.
// Paths git does not track are ignored.
func (r *Repo) Remove(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"rm", "-f", "--quiet", "--ignore-unmatch", "--"}, paths...)
	_, err := r.run("rm", args...)
	return err
}

// HasStagedChanges reports whether the index differs from HEAD.
func (r *Repo) HasStagedChanges() (bool, error) {
	err := r.executor.RunQuiet(r.dir, r.binary, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	if code, ok := exitCode(err); ok && code == 1 {
		return true, nil
	}
	return false, r.wrap("diff", err, nil)
}

// Commit records the index with message.
func (r *Repo) Commit(message string) error {
	_, err := r.run("commit", "commit", "--quiet", "-m", message)
	return err
}

// CommitStaged commits only when something is staged, so no empty commit is
// ever created. It reports whether a commit was made.
func (r *Repo) CommitStaged(message string) (bool, error) {
	staged, err := r.HasStagedChanges()
	if err != nil || !staged {
		return false, err
	}
	if err := r.Commit(message); err != nil {
		return false, err
	}
	return true, nil
}

// Push publishes branch to remote, optionally with all tags.
func (r *Repo) Push(remote, branch string, withTags bool) error {
	args := []string{"push", "--quiet", remote, branch}
	if withTags {
		args = append(args, "--tags")
	}
	_, err := r.run("push", args...)
	if err != nil {
		if gitErr, ok := err.(*errors.GitError); ok {
			gitErr.WithBranch(branch)
		}
	}
	return err
}

// CreateTag creates a lightweight tag at HEAD. A name collision is logged and
// reported as created=false rather than an error.
func (r *Repo) CreateTag(name string) (bool, error) {
	output, err := r.executor.Run(r.dir, r.binary, "tag", name)
	if err == nil {
		return true, nil
	}
	if strings.Contains(string(output), "already exists") {
		r.logger.Warn("tag already exists, continuing", "tag", name)
		return false, nil
	}
	return false, r.wrap("tag", err, output)
}

// PathExistsAt reports whether path is present in the tree of ref.
func (r *Repo) PathExistsAt(ref, path string) (bool, error) {
	output, err := r.run("ls-tree", "ls-tree", "--name-only", ref, "--", path)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(output)) != "", nil
}
