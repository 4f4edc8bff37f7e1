package session

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/inkgate/internal/book"
	"github.com/Iron-Ham/inkgate/internal/errors"
	"github.com/Iron-Ham/inkgate/internal/lock"
	"github.com/Iron-Ham/inkgate/internal/payload"
)

// CompleteResult reports the outcome of Complete. Status is "complete" or
// "needs_revision"; in the latter case nothing was written.
type CompleteResult struct {
	Status         string                `json:"status"`
	SessionID      string                `json:"session_id"`
	TotalWordCount int                   `json:"total_word_count"`
	Instructions   []payload.Instruction `json:"instructions,omitempty"`
}

// completionMarker is the content of the COMPLETE file.
type completionMarker struct {
	CompletedAt    string `yaml:"completed_at"`
	TotalWordCount int    `yaml:"total_word_count"`
}

// Complete finalises the book on main. It refuses when the book is already
// complete and defers while the review draft still carries author directives.
func (c *Coordinator) Complete(repoPath string) (*CompleteResult, error) {
	cl := c.begin("complete", repoPath)

	if err := cl.repo.EnsureRepository(); err != nil {
		return nil, cl.fail("verify repository", err)
	}
	if book.Exists(book.CompletePath(repoPath)) {
		return nil, cl.fail("check complete", errors.ErrAlreadyComplete)
	}

	review, err := book.ReadOptional(book.ReviewPath(repoPath))
	if err != nil {
		return nil, cl.fail("read review", err)
	}
	if payload.HasInstructions(review) {
		_, pending := payload.ExtractInstructions(review)
		cl.log.Info("completion deferred, review has pending instructions", "count", len(pending))
		return &CompleteResult{
			Status:       "needs_revision",
			SessionID:    cl.id,
			Instructions: pending,
		}, nil
	}

	if err := cl.repo.Checkout(c.git.MainBranch); err != nil {
		return nil, cl.fail("checkout main", err)
	}
	if err := cl.repo.Remove(book.LockRel); err != nil {
		return nil, cl.fail("remove lock", err)
	}
	if err := lock.RemoveLocal(repoPath); err != nil {
		return nil, cl.fail("remove lock", err)
	}

	wc, err := payload.LoadWordCount(repoPath, 0)
	if err != nil {
		return nil, cl.fail("count words", err)
	}
	marker, err := yaml.Marshal(completionMarker{
		CompletedAt:    c.now().UTC().Format(time.RFC3339),
		TotalWordCount: wc.Total,
	})
	if err != nil {
		return nil, cl.fail("write marker", fmt.Errorf("failed to encode completion marker: %w", err))
	}
	if err := book.WriteFileAtomic(book.CompletePath(repoPath), marker, 0644); err != nil {
		return nil, cl.fail("write marker", err)
	}

	if err := cl.repo.AddAll(); err != nil {
		return nil, cl.fail("stage completion", err)
	}
	if _, err := cl.repo.CommitStaged(CompleteCommitMessage); err != nil {
		return nil, cl.fail("commit completion", err)
	}
	if err := cl.repo.Push(c.git.Remote, c.git.MainBranch, false); err != nil {
		return nil, cl.fail("push completion", err)
	}

	cl.log.Info("book complete", "total_words", wc.Total)
	return &CompleteResult{
		Status:         "complete",
		SessionID:      cl.id,
		TotalWordCount: wc.Total,
	}, nil
}
