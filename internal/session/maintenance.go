package session

import (
	"fmt"
	"os"
	"time"

	"github.com/Iron-Ham/inkgate/internal/book"
	"github.com/Iron-Ham/inkgate/internal/config"
	"github.com/Iron-Ham/inkgate/internal/lock"
	"github.com/Iron-Ham/inkgate/internal/payload"
	"github.com/Iron-Ham/inkgate/internal/state"
)

// AdvanceResult reports the outcome of AdvanceChapter. Status is "advanced"
// or "needs_chapter_outline".
type AdvanceResult struct {
	Status          string   `json:"status"`
	SessionID       string   `json:"session_id"`
	PreviousChapter int      `json:"previous_chapter"`
	CurrentChapter  int      `json:"current_chapter"`
	MissingOutline  string   `json:"missing_outline,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

// AdvanceChapter moves the session state to the next chapter, resetting its
// word count, and commits the change without pushing; the next open or close
// publishes it. Nothing changes when the next chapter has no outline.
func (c *Coordinator) AdvanceChapter(repoPath string) (*AdvanceResult, error) {
	cl := c.begin("advance-chapter", repoPath)

	if err := cl.repo.EnsureRepository(); err != nil {
		return nil, cl.fail("verify repository", err)
	}
	st, err := state.Load(repoPath)
	if err != nil {
		return nil, cl.fail("load state", err)
	}

	prev := st.CurrentChapter
	next := prev + 1
	result := &AdvanceResult{SessionID: cl.id, PreviousChapter: prev}

	if !book.Exists(book.ChapterPath(repoPath, next)) {
		result.Status = "needs_chapter_outline"
		result.CurrentChapter = prev
		result.MissingOutline = book.ChapterRel(next)
		return result, nil
	}

	if cfg, err := config.LoadBook(repoPath); err == nil && next > cfg.ChapterCount {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("chapter %d exceeds chapter_count %d", next, cfg.ChapterCount))
	}

	st.CurrentChapter = next
	st.CurrentChapterWordCount = 0
	if err := state.Save(repoPath, st); err != nil {
		return nil, cl.fail("save state", err)
	}
	if err := cl.repo.Add(book.StateRel); err != nil {
		return nil, cl.fail("stage state", err)
	}
	if _, err := cl.repo.CommitStaged(fmt.Sprintf("chore: advance to chapter %d", next)); err != nil {
		return nil, cl.fail("commit state", err)
	}

	cl.log.Info("chapter advanced", "from", prev, "to", next)
	result.Status = "advanced"
	result.CurrentChapter = next
	return result, nil
}

// LockStatus describes the lock as seen by Status.
type LockStatus struct {
	Present    bool       `json:"present"`
	Active     bool       `json:"active"`
	Malformed  bool       `json:"malformed,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	AgeSeconds int64      `json:"age_seconds,omitempty"`
}

// StatusResult is a read-only snapshot of a book repository.
type StatusResult struct {
	CurrentChapter          int               `json:"current_chapter"`
	ChapterCount            int               `json:"chapter_count"`
	CurrentChapterWordCount int               `json:"current_chapter_word_count"`
	WordsPerChapter         int               `json:"words_per_chapter"`
	ChapterProgressPct      int               `json:"chapter_progress_pct"`
	ChapterCloseSuggested   bool              `json:"chapter_close_suggested"`
	WordCount               payload.WordCount `json:"word_count"`
	CompletionReady         bool              `json:"completion_ready"`
	Complete                bool              `json:"complete"`
	KillPending             bool              `json:"kill_pending"`
	PendingInstructions     int               `json:"pending_instructions"`
	Lock                    LockStatus        `json:"lock"`
	Config                  *config.Book      `json:"config"`
}

// Status reads the repository's current state from the working tree. It runs
// no git commands and writes nothing.
func (c *Coordinator) Status(repoPath string) (*StatusResult, error) {
	cl := c.begin("status", repoPath)

	cfg, err := config.LoadBook(repoPath)
	if err != nil {
		return nil, cl.fail("load config", err)
	}
	st, err := state.Load(repoPath)
	if err != nil {
		return nil, cl.fail("load state", err)
	}
	wc, err := payload.LoadWordCount(repoPath, cfg.TargetLength)
	if err != nil {
		return nil, cl.fail("count words", err)
	}
	review, err := book.ReadOptional(book.ReviewPath(repoPath))
	if err != nil {
		return nil, cl.fail("read review", err)
	}
	info, err := lock.Read(repoPath, c.now())
	if err != nil {
		return nil, cl.fail("read lock", err)
	}
	_, instructions := payload.ExtractInstructions(review)

	ls := LockStatus{
		Present:   info.Present,
		Active:    info.IsActive(cfg.SessionTimeout()),
		Malformed: info.Malformed,
	}
	if info.Present && !info.Malformed {
		started := info.StartedAt
		ls.StartedAt = &started
		ls.AgeSeconds = int64(info.Age / time.Second)
	}

	return &StatusResult{
		CurrentChapter:          st.CurrentChapter,
		ChapterCount:            cfg.ChapterCount,
		CurrentChapterWordCount: st.CurrentChapterWordCount,
		WordsPerChapter:         cfg.WordsPerChapter,
		ChapterProgressPct:      payload.ChapterProgressPct(st.CurrentChapterWordCount, cfg.WordsPerChapter),
		ChapterCloseSuggested:   payload.ChapterCloseSuggested(st.CurrentChapterWordCount, cfg.WordsPerChapter),
		WordCount:               wc,
		CompletionReady:         payload.CompletionReady(wc.Total, cfg.TargetLength),
		Complete:                book.Exists(book.CompletePath(repoPath)),
		KillPending:             lock.KillRequested(repoPath),
		PendingInstructions:     len(instructions),
		Lock:                    ls,
		Config:                  cfg,
	}, nil
}

// ResetResult reports what Reset removed.
type ResetResult struct {
	Status    string   `json:"status"`
	SessionID string   `json:"session_id"`
	Removed   []string `json:"removed"`
	Committed bool     `json:"committed"`
	Pushed    bool     `json:"pushed"`
	Warnings  []string `json:"warnings,omitempty"`
}

// resetPaths are the protocol files Reset clears.
var resetPaths = []string{book.LockRel, book.KillRel, book.StateRel, book.CompleteRel}

// Reset clears the lock, kill request, session state and completion marker on
// main and commits the removal. The push is best effort; a
// failure is reported as a warning.
func (c *Coordinator) Reset(repoPath string) (*ResetResult, error) {
	cl := c.begin("reset", repoPath)

	if err := cl.repo.EnsureRepository(); err != nil {
		return nil, cl.fail("verify repository", err)
	}
	if err := cl.repo.Checkout(c.git.MainBranch); err != nil {
		return nil, cl.fail("checkout main", err)
	}

	result := &ResetResult{Status: "reset", SessionID: cl.id, Removed: []string{}}
	for _, rel := range resetPaths {
		if book.Exists(book.Abs(repoPath, rel)) {
			result.Removed = append(result.Removed, rel)
		}
	}

	if err := cl.repo.Remove(resetPaths...); err != nil {
		return nil, cl.fail("remove files", err)
	}
	for _, rel := range resetPaths {
		if err := removeIfExists(book.Abs(repoPath, rel)); err != nil {
			return nil, cl.fail("remove files", err)
		}
	}

	committed, err := cl.repo.CommitStaged(ResetCommitMessage)
	if err != nil {
		return nil, cl.fail("commit reset", err)
	}
	result.Committed = committed
	if committed {
		if err := cl.repo.Push(c.git.Remote, c.git.MainBranch, false); err != nil {
			cl.log.Warn("reset push failed", "error", err.Error())
			result.Warnings = append(result.Warnings, "push failed: "+err.Error())
		} else {
			result.Pushed = true
		}
	}

	cl.log.Info("session state reset", "removed", result.Removed, "committed", result.Committed)
	return result, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
