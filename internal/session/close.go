package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/inkgate/internal/book"
	"github.com/Iron-Ham/inkgate/internal/config"
	"github.com/Iron-Ham/inkgate/internal/errors"
	"github.com/Iron-Ham/inkgate/internal/lock"
	"github.com/Iron-Ham/inkgate/internal/payload"
	"github.com/Iron-Ham/inkgate/internal/state"
)

// summaryTimeFormat is used in generated summary entries and changelog headings.
const summaryTimeFormat = "2006-01-02 15:04"

// CloseInput is what the agent hands back at the end of a session.
type CloseInput struct {
	Prose      string
	Summary    string
	HumanEdits []string
}

// CloseResult reports the persisted session.
type CloseResult struct {
	Status           string   `json:"status"`
	SessionID        string   `json:"session_id"`
	SessionWordCount int      `json:"session_word_count"`
	TotalWordCount   int      `json:"total_word_count"`
	TargetLength     int      `json:"target_length"`
	CompletionReady  bool     `json:"completion_ready"`
	ChapterWordCount int      `json:"current_chapter_word_count"`
	Changelog        string   `json:"changelog"`
	Warnings         []string `json:"warnings,omitempty"`
}

// Close persists the agent's prose and ends the session. The review draft is
// replaced, the summary, changelog and full text are extended, the lock is
// removed, and all of it lands in one commit on the draft branch which main
// is then fast-forwarded onto.
func (c *Coordinator) Close(repoPath string, in CloseInput) (*CloseResult, error) {
	cl := c.begin("close", repoPath)

	if err := cl.repo.EnsureRepository(); err != nil {
		return nil, cl.fail("verify repository", err)
	}
	if !book.Exists(book.LockPath(repoPath)) {
		return nil, cl.fail("check lock", errors.ErrNoActiveSession)
	}
	if strings.TrimSpace(in.Prose) == "" {
		return nil, cl.fail("validate input",
			errors.NewValidationError("prose must not be empty").WithField("prose"))
	}

	cfg, err := config.LoadBook(repoPath)
	if err != nil {
		return nil, cl.fail("load config", err)
	}
	st, err := state.Load(repoPath)
	if err != nil {
		return nil, cl.fail("load state", err)
	}

	if err := cl.repo.CheckoutOrCreate(c.git.DraftBranch); err != nil {
		return nil, cl.fail("checkout draft", err)
	}

	now := c.now()
	words := book.CountProseWords(in.Prose)
	cl.log.Info("closing session", "words", words)

	if err := book.WriteFileAtomic(book.ReviewPath(repoPath), []byte(in.Prose), 0644); err != nil {
		return nil, cl.fail("write review", err)
	}
	if err := appendSummary(repoPath, in.Summary, words, now); err != nil {
		return nil, cl.fail("append summary", err)
	}
	changelog, err := writeChangelog(repoPath, in, words, now)
	if err != nil {
		return nil, cl.fail("write changelog", err)
	}
	total, err := appendFullBook(repoPath, in.Prose)
	if err != nil {
		return nil, cl.fail("append full book", err)
	}

	st.CurrentChapterWordCount += words
	if err := state.Save(repoPath, st); err != nil {
		return nil, cl.fail("save state", err)
	}

	if err := cl.repo.Remove(book.LockRel); err != nil {
		return nil, cl.fail("remove lock", err)
	}
	if err := lock.RemoveLocal(repoPath); err != nil {
		return nil, cl.fail("remove lock", err)
	}
	if err := cl.repo.AddAll(); err != nil {
		return nil, cl.fail("stage session", err)
	}
	if _, err := cl.repo.CommitStaged(CloseCommitMessage); err != nil {
		return nil, cl.fail("commit session", err)
	}

	if err := cl.repo.Push(c.git.Remote, c.git.DraftBranch, false); err != nil {
		return nil, cl.fail("push draft", err)
	}
	if err := cl.repo.Checkout(c.git.MainBranch); err != nil {
		return nil, cl.fail("checkout main", err)
	}
	if err := cl.repo.MergeFastForward(c.git.DraftBranch); err != nil {
		return nil, cl.fail("merge draft", err)
	}
	if err := cl.repo.Push(c.git.Remote, c.git.MainBranch, false); err != nil {
		return nil, cl.fail("push main", err)
	}

	result := &CloseResult{
		Status:           "closed",
		SessionID:        cl.id,
		SessionWordCount: words,
		TotalWordCount:   total,
		TargetLength:     cfg.TargetLength,
		CompletionReady:  payload.CompletionReady(total, cfg.TargetLength),
		ChapterWordCount: st.CurrentChapterWordCount,
		Changelog:        changelog,
	}
	if st.CurrentChapter >= cfg.ChapterCount && payload.ChapterCloseSuggested(st.CurrentChapterWordCount, cfg.WordsPerChapter) {
		result.Warnings = append(result.Warnings, "final chapter has reached its word budget")
	}

	cl.log.Info("session closed",
		"total_words", total,
		"completion_ready", result.CompletionReady,
	)
	return result, nil
}

// appendSummary adds one paragraph to the summary: the agent's summary, or a
// generated one-liner that summary truncation later filters out.
func appendSummary(repoPath, summary string, words int, now time.Time) error {
	entry := strings.TrimSpace(summary)
	if entry == "" {
		entry = fmt.Sprintf("Session %s — %d words written.", now.Format(summaryTimeFormat), words)
	}

	path := book.SummaryPath(repoPath)
	existing, err := book.ReadOptional(path)
	if err != nil {
		return err
	}
	existing = strings.TrimRight(existing, "\n")
	if existing != "" {
		existing += "\n\n"
	}
	return book.WriteFileAtomic(path, []byte(existing+entry+"\n"), 0644)
}

// writeChangelog writes the session's changelog entry and returns its
// repository-relative path. A second close within the same minute gets a
// numeric suffix instead of overwriting the first entry.
func writeChangelog(repoPath string, in CloseInput, words int, now time.Time) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Session %s\n\n**Words written:** %d\n", now.Format(summaryTimeFormat), words)
	if len(in.HumanEdits) > 0 {
		sb.WriteString("\n**Human edits:**\n")
		for _, edit := range in.HumanEdits {
			fmt.Fprintf(&sb, "- %s\n", edit)
		}
	}
	if s := strings.TrimSpace(in.Summary); s != "" {
		fmt.Fprintf(&sb, "\n**Summary:**\n%s\n", s)
	}

	rel := book.ChangelogRel(now)
	base := strings.TrimSuffix(rel, ".md")
	for n := 2; book.Exists(book.Abs(repoPath, rel)); n++ {
		rel = fmt.Sprintf("%s-%d.md", base, n)
	}

	if err := book.WriteFileAtomic(book.Abs(repoPath, rel), []byte(sb.String()), 0644); err != nil {
		return "", err
	}
	return rel, nil
}

// appendFullBook appends prose to the permanent full text, separated from
// what is already there by a blank line, and returns the new total word count.
func appendFullBook(repoPath, prose string) (int, error) {
	path := book.FullBookPath(repoPath)
	content, err := book.ReadOptional(path)
	if err != nil {
		return 0, err
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += "\n" + strings.TrimLeft(prose, " \t\r\n")

	if err := book.WriteFileAtomic(path, []byte(content), 0644); err != nil {
		return 0, err
	}
	return book.CountProseWords(content), nil
}
