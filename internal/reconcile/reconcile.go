// Package reconcile preserves edits made outside a session before the local
// branch is fast-forwarded onto the shared remote.
package reconcile

import (
	"github.com/Iron-Ham/inkgate/internal/errors"
	"github.com/Iron-Ham/inkgate/internal/logging"
)

// CommitMessage labels the commit that captures human edits.
const CommitMessage = "chore: human updates"

// Repository is the subset of git operations reconciliation needs.
type Repository interface {
	StatusPaths() ([]string, error)
	DiffNames(ref string) ([]string, error)
	RefExists(ref string) bool
	AddAll() error
	CommitStaged(message string) (bool, error)
	MergeFastForward(ref string) error
}

// Result describes what reconciliation found and did.
type Result struct {
	// HumanEdits lists changed paths, working tree changes first, without duplicates.
	HumanEdits []string
	// Committed is true when a human-updates commit was created.
	Committed bool
}

// CollectHumanEdits returns the union of working tree changes and paths that
// differ from remoteRef. A missing remoteRef contributes nothing.
func CollectHumanEdits(repo Repository, remoteRef string) ([]string, error) {
	local, err := repo.StatusPaths()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list working tree changes")
	}

	var remote []string
	if repo.RefExists(remoteRef) {
		remote, err = repo.DiffNames(remoteRef)
		if err != nil {
			return nil, errors.Wrap(err, "failed to diff against remote")
		}
	}

	return union(local, remote), nil
}

// Sync commits any human edits and then fast-forwards onto remoteRef.
// A remote that cannot be fast-forwarded yields errors.ErrNonFastForward.
func Sync(repo Repository, remoteRef string, logger *logging.Logger) (Result, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	edits, err := CollectHumanEdits(repo, remoteRef)
	if err != nil {
		return Result{}, err
	}
	result := Result{HumanEdits: edits}

	if len(edits) > 0 {
		if err := repo.AddAll(); err != nil {
			return result, errors.Wrap(err, "failed to stage human edits")
		}
		// Remote-only divergence stages nothing and must not produce a commit
		result.Committed, err = repo.CommitStaged(CommitMessage)
		if err != nil {
			return result, errors.Wrap(err, "failed to commit human edits")
		}
		logger.Info("human edits detected",
			"files", len(edits),
			"committed", result.Committed,
		)
	}

	if !repo.RefExists(remoteRef) {
		logger.Warn("remote branch missing, skipping fast-forward", "ref", remoteRef)
		return result, nil
	}
	if err := repo.MergeFastForward(remoteRef); err != nil {
		return result, err
	}
	return result, nil
}

// union concatenates lists, dropping empty entries and repeats.
func union(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, p := range list {
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
