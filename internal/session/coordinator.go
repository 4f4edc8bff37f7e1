// Package session coordinates the writing-session lifecycle of a book
// repository: opening a session behind the shared lock, closing it by
// persisting the agent's prose, and the maintenance operations around them.
//
// Every operation is a single sequential pass over one repository. Nothing
// is cached between calls; configuration and state are read fresh each time.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/inkgate/internal/config"
	"github.com/Iron-Ham/inkgate/internal/errors"
	"github.com/Iron-Ham/inkgate/internal/git"
	"github.com/Iron-Ham/inkgate/internal/logging"
)

// Commit messages written by the coordinator. Admission and reconciliation
// messages live in their own packages.
const (
	CloseCommitMessage    = "session: write prose"
	CompleteCommitMessage = "book: complete"
	ResetCommitMessage    = "chore: reset session state"
)

// SnapshotTagPrefix starts every pre-session snapshot tag.
const SnapshotTagPrefix = "ink-"

// snapshotTagFormat is minute resolution; two opens in the same minute share a tag.
const snapshotTagFormat = "2006-01-02-15-04"

// Coordinator runs session operations against book repositories.
type Coordinator struct {
	git    config.GitConfig
	logger *logging.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces the wall clock. Tests use it to age locks.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithIDGenerator replaces the session ID source.
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) {
		c.newID = newID
	}
}

// NewCoordinator creates a Coordinator using the git settings of s.
// A nil logger disables logging.
func NewCoordinator(s config.GitConfig, logger *logging.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	c := &Coordinator{
		git:    s,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call carries per-invocation context: the repository handle and a logger
// tagged with the session ID and repository path.
type call struct {
	id       string
	repoPath string
	repo     *git.Repo
	log      *logging.Logger
}

func (c *Coordinator) begin(op, repoPath string) *call {
	id := c.newID()
	log := c.logger.WithSession(id).WithRepository(repoPath).With("operation", op)
	return &call{
		id:       id,
		repoPath: repoPath,
		repo:     git.NewRepo(repoPath, c.git.Binary, log),
		log:      log,
	}
}

func (c *Coordinator) remoteRef(branch string) string {
	return c.git.Remote + "/" + branch
}

// fail annotates err with the step that produced it. Protocol refusals are
// wrapped in a SessionError so callers can report a stable code.
func (cl *call) fail(step string, err error) error {
	if err == nil {
		return nil
	}
	cl.log.Error("step failed", "step", step, "error", err.Error())
	if errors.IsProtocolError(err) {
		var sessErr *errors.SessionError
		if errors.As(err, &sessErr) {
			return err
		}
		return errors.NewSessionError(step+" refused", err).
			WithRepository(cl.repoPath).
			WithStep(step)
	}
	return errors.Wrap(err, step)
}
