// Package lock implements session admission: the kill sentinel, the
// timestamped lock file, and stale-lock recovery.
//
// The lock is advisory. Two callers that both read "no lock" before either
// pushes will both be admitted; the protocol assumes a single operator.
package lock

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Iron-Ham/inkgate/internal/book"
)

// Outcome is the result of an admission attempt.
type Outcome int

const (
	// Admitted means no lock was present and a fresh one was written.
	Admitted Outcome = iota
	// Killed means a kill sentinel was found and acknowledged.
	Killed
	// Active means another session holds a lock younger than the timeout.
	Active
	// StaleRecovered means an expired lock was replaced by a fresh one.
	StaleRecovered
)

// String returns the outcome name used in logs and payloads.
func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case Killed:
		return "killed"
	case Active:
		return "active"
	case StaleRecovered:
		return "stale_recovered"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Info describes the lock file as found on disk.
type Info struct {
	Present   bool
	Malformed bool
	StartedAt time.Time
	Age       time.Duration
}

// Read inspects the lock of the repository at repoPath, measuring its age at now.
// An unreadable timestamp is reported as Malformed rather than an error.
func Read(repoPath string, now time.Time) (Info, error) {
	data, err := os.ReadFile(book.LockPath(repoPath))
	if os.IsNotExist(err) {
		return Info{}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("failed to read lock: %w", err)
	}

	startedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return Info{Present: true, Malformed: true}, nil
	}
	return Info{
		Present:   true,
		StartedAt: startedAt,
		Age:       now.Sub(startedAt),
	}, nil
}

// IsActive reports whether the lock still guards a running session.
// The boundary is inclusive: a lock exactly timeout old is active.
func (i Info) IsActive(timeout time.Duration) bool {
	return i.Present && !i.Malformed && i.Age <= timeout
}

// Classify maps a lock to the admission outcome it implies, before any write.
func Classify(info Info, timeout time.Duration) Outcome {
	switch {
	case !info.Present:
		return Admitted
	case info.IsActive(timeout):
		return Active
	default:
		return StaleRecovered
	}
}

// Write records now as the start of a session, in UTC RFC 3339.
func Write(repoPath string, now time.Time) error {
	data := []byte(now.UTC().Format(time.RFC3339) + "\n")
	if err := book.WriteFileAtomic(book.LockPath(repoPath), data, 0644); err != nil {
		return fmt.Errorf("failed to write lock: %w", err)
	}
	return nil
}

// RemoveLocal deletes the lock from the working tree only.
func RemoveLocal(repoPath string) error {
	return removeIfExists(book.LockPath(repoPath))
}

// KillRequested reports whether the kill sentinel is present in the working tree.
func KillRequested(repoPath string) bool {
	return book.Exists(book.KillPath(repoPath))
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
