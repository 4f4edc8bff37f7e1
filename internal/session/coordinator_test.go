package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/inkgate/internal/config"
	"github.com/Iron-Ham/inkgate/internal/errors"
	"github.com/Iron-Ham/inkgate/internal/testutil"
)

var openedAt = time.Date(2026, 5, 1, 10, 0, 0, 0, time.Local)

func newTestCoordinator(now time.Time) *Coordinator {
	n := 0
	return NewCoordinator(config.DefaultSettings().Git, nil,
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("session-%d", n)
		}),
	)
}

func TestOpenClose_Integration(t *testing.T) {
	testutil.SkipIfNoGit(t)

	repoDir, remoteDir := testutil.SetupBookRepo(t, nil)
	c := newTestCoordinator(openedAt)

	p, err := c.Open(repoDir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if p.KillRequested || p.SessionAlreadyRun || p.StaleLockRecovered {
		t.Fatalf("Open() flags = killed:%v active:%v stale:%v, want a plain admission",
			p.KillRequested, p.SessionAlreadyRun, p.StaleLockRecovered)
	}
	if p.SessionID != "session-1" {
		t.Errorf("SessionID = %q", p.SessionID)
	}
	if p.SnapshotTag != "ink-2026-05-01-10-00" {
		t.Errorf("SnapshotTag = %q", p.SnapshotTag)
	}
	if p.Config == nil || p.Config.CurrentChapter != 1 {
		t.Errorf("Config = %+v", p.Config)
	}
	if p.Chapters.Current == nil || p.Chapters.Current.Content != "Mara finds the wreck.\n" {
		t.Errorf("current chapter = %+v", p.Chapters.Current)
	}
	if len(p.GlobalMaterial) != 3 {
		t.Errorf("GlobalMaterial has %d files, want Characters, Style and Summary", len(p.GlobalMaterial))
	}
	if branch := testutil.GetCurrentBranch(t, repoDir); branch != "draft" {
		t.Errorf("branch after open = %q, want draft", branch)
	}
	if !testutil.PathInTree(t, remoteDir, "main", ".ink-running") {
		t.Error("lock was not pushed to the remote")
	}
	if out := testutil.RunGit(t, remoteDir, "tag", "--list", "ink-*"); out != p.SnapshotTag {
		t.Errorf("remote tags = %q, want %q", out, p.SnapshotTag)
	}

	prose := "<!-- INK:NEW --> The lamp guttered. Mara climbed the last stair and looked out at the sea."
	res, err := c.Close(repoDir, CloseInput{Prose: prose, Summary: "Mara climbs the tower."})
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if res.Status != "closed" || res.SessionWordCount != 14 || res.TotalWordCount != 14 {
		t.Errorf("Close() = %+v", res)
	}
	if res.ChapterWordCount != 14 {
		t.Errorf("ChapterWordCount = %d, want 14", res.ChapterWordCount)
	}
	if res.CompletionReady {
		t.Error("14 of 10000 words should not be completion ready")
	}

	if branch := testutil.GetCurrentBranch(t, repoDir); branch != "main" {
		t.Errorf("branch after close = %q, want main", branch)
	}
	if testutil.HasUncommittedChanges(t, repoDir) {
		t.Error("working tree dirty after close")
	}
	mainTip := testutil.HeadCommit(t, repoDir, "main")
	for _, ref := range []string{"draft", "origin/main", "origin/draft"} {
		if tip := testutil.HeadCommit(t, repoDir, ref); tip != mainTip {
			t.Errorf("%s = %s, want main tip %s", ref, tip, mainTip)
		}
	}
	if msg := testutil.RunGit(t, repoDir, "log", "-1", "--format=%s", "main"); msg != CloseCommitMessage {
		t.Errorf("last commit = %q, want %q", msg, CloseCommitMessage)
	}
	if testutil.PathInTree(t, remoteDir, "main", ".ink-running") {
		t.Error("lock still present on remote main after close")
	}
	if readFile(t, repoDir, "Review/current.md") != prose {
		t.Error("review not replaced by the session prose")
	}
	if !strings.Contains(readFile(t, repoDir, "Global Material/Summary.md"), "Mara climbs the tower.") {
		t.Error("summary not appended")
	}
	if !testutil.PathInTree(t, repoDir, "main", res.Changelog) {
		t.Errorf("changelog %s not committed", res.Changelog)
	}
	if !strings.Contains(readFile(t, repoDir, ".ink-state.yml"), "current_chapter_word_count: 14") {
		t.Error("state not updated with session words")
	}

	// A following session opens cleanly on top of the closed one.
	next, err := newTestCoordinator(openedAt.Add(3 * time.Hour)).Open(repoDir)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	if next.SessionAlreadyRun || next.StaleLockRecovered {
		t.Errorf("second Open() flags = %+v", next)
	}
	if next.CurrentChapterWordCount != 14 || next.WordCount.Total != 14 {
		t.Errorf("second Open() counts = chapter %d, total %d", next.CurrentChapterWordCount, next.WordCount.Total)
	}
	if next.CurrentReview.Content != prose {
		t.Errorf("review = %q", next.CurrentReview.Content)
	}
}

func TestOpen_SessionAlreadyRunning(t *testing.T) {
	testutil.SkipIfNoGit(t)

	repoDir, _ := testutil.SetupBookRepo(t, nil)
	c := newTestCoordinator(openedAt)
	if _, err := c.Open(repoDir); err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	lockCommit := testutil.HeadCommit(t, repoDir, "origin/main")

	p, err := newTestCoordinator(openedAt.Add(30 * time.Minute)).Open(repoDir)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	if !p.SessionAlreadyRun {
		t.Fatal("second Open() should report session_already_run")
	}
	if p.Config == nil || len(p.GlobalMaterial) != 0 || p.Chapters.Current != nil {
		t.Errorf("active-lock payload should carry config only, got %+v", p)
	}
	if tip := testutil.HeadCommit(t, repoDir, "origin/main"); tip != lockCommit {
		t.Error("an active lock must not be rewritten")
	}
	if branch := testutil.GetCurrentBranch(t, repoDir); branch != "main" {
		t.Errorf("branch = %q, want main", branch)
	}
}

func TestOpen_SnapshotTagCollision(t *testing.T) {
	testutil.SkipIfNoGit(t)

	repoDir, _ := testutil.SetupBookRepo(t, nil)
	testutil.RunGit(t, repoDir, "tag", "ink-2026-05-01-10-00")

	p, err := newTestCoordinator(openedAt).Open(repoDir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if p.SnapshotTag != "ink-2026-05-01-10-00" || len(p.Warnings) != 1 {
		t.Errorf("Open() tag = %q, warnings = %v", p.SnapshotTag, p.Warnings)
	}
}

func TestOpen_StaleLockRecovered(t *testing.T) {
	testutil.SkipIfNoGit(t)

	repoDir, remoteDir := testutil.SetupBookRepo(t, nil)
	if _, err := newTestCoordinator(openedAt).Open(repoDir); err != nil {
		t.Fatalf("first Open() error = %v", err)
	}

	later := openedAt.Add(2 * time.Hour)
	p, err := newTestCoordinator(later).Open(repoDir)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	if !p.StaleLockRecovered || p.SessionAlreadyRun {
		t.Fatalf("flags = stale:%v active:%v, want stale recovery", p.StaleLockRecovered, p.SessionAlreadyRun)
	}

	want := later.UTC().Format(time.RFC3339)
	if got := strings.TrimSpace(testutil.RunGit(t, remoteDir, "show", "main:.ink-running")); got != want {
		t.Errorf("remote lock = %q, want replacement %q", got, want)
	}
	if branch := testutil.GetCurrentBranch(t, repoDir); branch != "draft" {
		t.Errorf("branch = %q, want draft", branch)
	}
}

func TestOpen_KillRequested(t *testing.T) {
	testutil.SkipIfNoGit(t)

	t.Run("kill pushed by a collaborator", func(t *testing.T) {
		repoDir, remoteDir := testutil.SetupBookRepo(t, nil)
		other := testutil.CloneRemote(t, remoteDir)
		testutil.CommitFile(t, other, ".ink-kill", "", "request kill")
		testutil.RunGit(t, other, "push", "origin", "main")

		p, err := newTestCoordinator(openedAt).Open(repoDir)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if !p.KillRequested {
			t.Fatal("Open() should report kill_requested")
		}
		if p.Config != nil || len(p.GlobalMaterial) != 0 || p.SnapshotTag != "" {
			t.Errorf("killed payload should load nothing, got %+v", p)
		}
		for _, path := range []string{".ink-kill", ".ink-running"} {
			if testutil.PathInTree(t, remoteDir, "main", path) {
				t.Errorf("%s still on remote main", path)
			}
			if _, err := os.Stat(filepath.Join(repoDir, path)); !os.IsNotExist(err) {
				t.Errorf("%s still in working tree", path)
			}
		}
		if out := testutil.RunGit(t, remoteDir, "tag", "--list"); out != "" {
			t.Errorf("killed open created tags %q", out)
		}
	})

	t.Run("kill alongside an active lock", func(t *testing.T) {
		repoDir, remoteDir := testutil.SetupBookRepo(t, nil)
		if _, err := newTestCoordinator(openedAt).Open(repoDir); err != nil {
			t.Fatalf("first Open() error = %v", err)
		}
		other := testutil.CloneRemote(t, remoteDir)
		testutil.CommitFile(t, other, ".ink-kill", "", "request kill")
		testutil.RunGit(t, other, "push", "origin", "main")

		p, err := newTestCoordinator(openedAt.Add(time.Minute)).Open(repoDir)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if !p.KillRequested || p.SessionAlreadyRun {
			t.Fatalf("flags = killed:%v active:%v", p.KillRequested, p.SessionAlreadyRun)
		}
		if testutil.PathInTree(t, remoteDir, "main", ".ink-running") {
			t.Error("lock should be removed by the kill")
		}
	})
}

func TestOpen_ChapterCloseSuggested(t *testing.T) {
	testutil.SkipIfNoGit(t)

	repoDir, _ := testutil.SetupBookRepo(t, map[string]string{
		".ink-state.yml": "current_chapter: 1\ncurrent_chapter_word_count: 2700\n",
	})

	p, err := newTestCoordinator(openedAt).Open(repoDir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !p.ChapterCloseSuggested || p.ChapterProgressPct != 90 {
		t.Errorf("close suggested = %v, progress = %d; want true, 90", p.ChapterCloseSuggested, p.ChapterProgressPct)
	}
	if p.Chapters.Next == nil || p.Chapters.Next.Content != "The survivor wakes.\n" {
		t.Errorf("next chapter = %+v", p.Chapters.Next)
	}
}

func TestOpen_HumanEdits(t *testing.T) {
	testutil.SkipIfNoGit(t)

	repoDir, remoteDir := testutil.SetupBookRepo(t, map[string]string{
		"Review/current.md": "Old line. <!-- INK: cut this -->\n",
	})
	other := testutil.CloneRemote(t, remoteDir)
	testutil.CommitFile(t, other, "Chapters material/Chapter_01.md", "Mara finds two wrecks.\n", "rework outline")
	testutil.RunGit(t, other, "push", "origin", "main")

	p, err := newTestCoordinator(openedAt).Open(repoDir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(p.HumanEdits) != 1 || p.HumanEdits[0] != "Chapters material/Chapter_01.md" {
		t.Errorf("HumanEdits = %q", p.HumanEdits)
	}
	if !p.Chapters.Current.ModifiedToday || p.Chapters.Current.Content != "Mara finds two wrecks.\n" {
		t.Errorf("current chapter = %+v", p.Chapters.Current)
	}
	if len(p.CurrentReview.Instructions) != 1 || p.CurrentReview.Instructions[0].Anchor != "Old line." {
		t.Errorf("instructions = %+v", p.CurrentReview.Instructions)
	}
}

func TestOpen_NotARepository(t *testing.T) {
	testutil.SkipIfNoGit(t)

	_, err := newTestCoordinator(openedAt).Open(t.TempDir())
	if !errors.Is(err, errors.ErrNotGitRepository) {
		t.Errorf("Open() error = %v, want ErrNotGitRepository", err)
	}
}

func TestClose_Refusals(t *testing.T) {
	testutil.SkipIfNoGit(t)

	t.Run("no active session", func(t *testing.T) {
		repoDir, _ := testutil.SetupBookRepo(t, nil)
		_, err := newTestCoordinator(openedAt).Close(repoDir, CloseInput{Prose: "Words."})
		if !errors.Is(err, errors.ErrNoActiveSession) {
			t.Fatalf("Close() error = %v, want ErrNoActiveSession", err)
		}
		if code := errors.Code(err); code != errors.CodeNoActiveSession {
			t.Errorf("Code() = %q", code)
		}
		var sessErr *errors.SessionError
		if !errors.As(err, &sessErr) || sessErr.Step != "check lock" {
			t.Errorf("error = %#v, want a SessionError at step check lock", err)
		}
	})

	t.Run("empty prose", func(t *testing.T) {
		repoDir, _ := testutil.SetupBookRepo(t, nil)
		c := newTestCoordinator(openedAt)
		if _, err := c.Open(repoDir); err != nil {
			t.Fatal(err)
		}
		_, err := c.Close(repoDir, CloseInput{Prose: " \n\t"})
		if !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("Close() error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestComplete_Integration(t *testing.T) {
	testutil.SkipIfNoGit(t)

	t.Run("completes once", func(t *testing.T) {
		repoDir, remoteDir := testutil.SetupBookRepo(t, map[string]string{
			"Current version/Full_Book.md": "The end came quietly.\n",
		})
		c := newTestCoordinator(openedAt)

		res, err := c.Complete(repoDir)
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if res.Status != "complete" || res.TotalWordCount != 4 {
			t.Errorf("Complete() = %+v", res)
		}
		if !testutil.PathInTree(t, remoteDir, "main", "COMPLETE") {
			t.Error("completion marker not pushed")
		}
		if !strings.Contains(readFile(t, repoDir, "COMPLETE"), "total_word_count: 4") {
			t.Error("marker does not record the final word count")
		}

		_, err = c.Complete(repoDir)
		if !errors.Is(err, errors.ErrAlreadyComplete) {
			t.Fatalf("second Complete() error = %v, want ErrAlreadyComplete", err)
		}
		if !errors.IsProtocolError(err) {
			t.Error("already complete should be a protocol error")
		}
	})

	t.Run("pending instructions", func(t *testing.T) {
		repoDir, _ := testutil.SetupBookRepo(t, map[string]string{
			"Review/current.md": "Almost. <!-- INK: rewrite the ending -->\n",
		})
		before := testutil.GetCommitCount(t, repoDir, "HEAD")

		res, err := newTestCoordinator(openedAt).Complete(repoDir)
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if res.Status != "needs_revision" || len(res.Instructions) != 1 {
			t.Errorf("Complete() = %+v", res)
		}
		if _, err := os.Stat(filepath.Join(repoDir, "COMPLETE")); !os.IsNotExist(err) {
			t.Error("marker written despite pending instructions")
		}
		if testutil.GetCommitCount(t, repoDir, "HEAD") != before {
			t.Error("needs_revision must not commit")
		}
	})
}

func TestAdvanceChapter_Integration(t *testing.T) {
	testutil.SkipIfNoGit(t)

	repoDir, _ := testutil.SetupBookRepo(t, map[string]string{
		".ink-state.yml": "current_chapter: 1\ncurrent_chapter_word_count: 2900\n",
	})
	c := newTestCoordinator(openedAt)
	originTip := testutil.HeadCommit(t, repoDir, "origin/main")

	res, err := c.AdvanceChapter(repoDir)
	if err != nil {
		t.Fatalf("AdvanceChapter() error = %v", err)
	}
	if res.Status != "advanced" || res.PreviousChapter != 1 || res.CurrentChapter != 2 {
		t.Errorf("AdvanceChapter() = %+v", res)
	}
	state := readFile(t, repoDir, ".ink-state.yml")
	if !strings.Contains(state, "current_chapter: 2") || !strings.Contains(state, "current_chapter_word_count: 0") {
		t.Errorf("state = %q", state)
	}
	if testutil.HasUncommittedChanges(t, repoDir) {
		t.Error("advance should commit the state change")
	}
	if testutil.HeadCommit(t, repoDir, "origin/main") != originTip {
		t.Error("advance must not push")
	}

	res, err = c.AdvanceChapter(repoDir)
	if err != nil {
		t.Fatalf("AdvanceChapter() error = %v", err)
	}
	if res.Status != "needs_chapter_outline" || res.CurrentChapter != 2 || res.MissingOutline != "Chapters material/Chapter_03.md" {
		t.Errorf("AdvanceChapter() without outline = %+v", res)
	}
}

func TestStatus(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, testutil.BookFiles(map[string]string{
		".ink-state.yml":               "current_chapter: 2\ncurrent_chapter_word_count: 1500\n",
		".ink-running":                 openedAt.Add(-10*time.Minute).UTC().Format(time.RFC3339) + "\n",
		".ink-kill":                    "",
		"Review/current.md":            "A <!-- INK: one --> B <!-- INK: two -->",
		"Current version/Full_Book.md": strings.Repeat("word ", 9000),
	}))

	res, err := newTestCoordinator(openedAt).Status(dir)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if res.CurrentChapter != 2 || res.ChapterProgressPct != 50 || res.ChapterCloseSuggested {
		t.Errorf("chapter status = %+v", res)
	}
	if !res.Lock.Present || !res.Lock.Active || res.Lock.AgeSeconds != 600 {
		t.Errorf("Lock = %+v", res.Lock)
	}
	if !res.KillPending || res.Complete || res.PendingInstructions != 2 {
		t.Errorf("flags = kill:%v complete:%v instructions:%d", res.KillPending, res.Complete, res.PendingInstructions)
	}
	if res.WordCount.Total != 9000 || !res.CompletionReady {
		t.Errorf("WordCount = %+v, ready = %v", res.WordCount, res.CompletionReady)
	}
}

func TestReset_Integration(t *testing.T) {
	testutil.SkipIfNoGit(t)

	repoDir, remoteDir := testutil.SetupBookRepo(t, nil)
	c := newTestCoordinator(openedAt)
	if _, err := c.Open(repoDir); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	res, err := c.Reset(repoDir)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if !res.Committed || !res.Pushed {
		t.Errorf("Reset() = %+v, want committed and pushed", res)
	}
	if len(res.Removed) != 1 || res.Removed[0] != ".ink-running" {
		t.Errorf("Removed = %v", res.Removed)
	}
	if testutil.PathInTree(t, remoteDir, "main", ".ink-running") {
		t.Error("lock still on remote main after reset")
	}

	again, err := c.Reset(repoDir)
	if err != nil {
		t.Fatalf("second Reset() error = %v", err)
	}
	if again.Committed || len(again.Removed) != 0 {
		t.Errorf("second Reset() = %+v, want a no-op", again)
	}
}
