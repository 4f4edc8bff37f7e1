package lock

import (
	"time"

	"github.com/Iron-Ham/inkgate/internal/book"
	"github.com/Iron-Ham/inkgate/internal/errors"
	"github.com/Iron-Ham/inkgate/internal/logging"
)

// Commit messages written by the admission protocol.
const (
	KillCommitMessage = "chore: acknowledge kill request"
	LockCommitMessage = "chore: open session lock"
)

// Repository is the subset of git operations admission needs.
type Repository interface {
	Remove(paths ...string) error
	Add(paths ...string) error
	CommitStaged(message string) (bool, error)
	Push(remote, branch string, withTags bool) error
	RefExists(ref string) bool
	PathExistsAt(ref, path string) (bool, error)
	MergeFastForward(ref string) error
}

// Gate runs the admission protocol for one repository on its main branch.
type Gate struct {
	RepoPath string
	Repo     Repository
	Remote   string
	Branch   string
	Now      func() time.Time
	Logger   *logging.Logger
}

// Admission is the result of Gate.Admit.
type Admission struct {
	Outcome Outcome
	// Previous is the lock found before admission (zero when none).
	Previous Info
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Gate) logger() *logging.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return logging.NopLogger()
}

func (g *Gate) remoteRef() string {
	return g.Remote + "/" + g.Branch
}

// DetectKill reports whether a kill was requested, either in the working tree
// or on the fetched remote tip. A remote-only sentinel is brought into the
// working tree by fast-forwarding, which git refuses if it would overwrite
// uncommitted edits.
func (g *Gate) DetectKill() (bool, error) {
	if KillRequested(g.RepoPath) {
		return true, nil
	}

	ref := g.remoteRef()
	if !g.Repo.RefExists(ref) {
		return false, nil
	}
	onRemote, err := g.Repo.PathExistsAt(ref, book.KillRel)
	if err != nil || !onRemote {
		return false, err
	}

	g.logger().Info("kill request found on remote, fast-forwarding", "ref", ref)
	if err := g.Repo.MergeFastForward(ref); err != nil {
		return false, errors.Wrap(err, "failed to bring in remote kill request")
	}
	return true, nil
}

// AcknowledgeKill removes the lock and the kill sentinel, commits the removal
// and pushes it. Failures here are fatal.
func (g *Gate) AcknowledgeKill() error {
	log := g.logger()

	if err := g.Repo.Remove(book.LockRel, book.KillRel); err != nil {
		return errors.Wrap(err, "failed to stage kill acknowledgement")
	}
	// Untracked copies are not touched by git rm
	if err := RemoveLocal(g.RepoPath); err != nil {
		return err
	}
	if err := removeIfExists(book.KillPath(g.RepoPath)); err != nil {
		return err
	}

	committed, err := g.Repo.CommitStaged(KillCommitMessage)
	if err != nil {
		return errors.Wrap(err, "failed to commit kill acknowledgement")
	}
	if err := g.Repo.Push(g.Remote, g.Branch, false); err != nil {
		return errors.Wrap(err, "failed to push kill acknowledgement")
	}

	log.Warn("kill request acknowledged", "committed", committed)
	return nil
}

// Admit classifies the current lock and, unless another session is active,
// writes a fresh lock, commits it and pushes it so collaborators see the
// session immediately. A stale lock is removed locally first; the fresh lock
// commit is what corrects shared history.
func (g *Gate) Admit(timeout time.Duration) (Admission, error) {
	log := g.logger()
	now := g.now()

	info, err := Read(g.RepoPath, now)
	if err != nil {
		return Admission{}, err
	}

	adm := Admission{Outcome: Classify(info, timeout), Previous: info}
	switch adm.Outcome {
	case Active:
		log.Info("session already running", "lock_age", info.Age.Round(time.Second).String())
		return adm, nil
	case StaleRecovered:
		log.Warn("stale lock recovered",
			"lock_age", info.Age.Round(time.Second).String(),
			"malformed", info.Malformed,
			"timeout", timeout.String(),
		)
		if err := RemoveLocal(g.RepoPath); err != nil {
			return Admission{}, err
		}
	}

	if err := Write(g.RepoPath, now); err != nil {
		return Admission{}, err
	}
	if err := g.Repo.Add(book.LockRel); err != nil {
		return Admission{}, errors.Wrap(err, "failed to stage lock")
	}
	if _, err := g.Repo.CommitStaged(LockCommitMessage); err != nil {
		return Admission{}, errors.Wrap(err, "failed to commit lock")
	}
	if err := g.Repo.Push(g.Remote, g.Branch, false); err != nil {
		return Admission{}, errors.Wrap(err, "failed to push lock")
	}

	log.Info("session admitted", "outcome", adm.Outcome.String())
	return adm, nil
}
