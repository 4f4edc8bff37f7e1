// Package payload assembles the structured context handed to the writing
// agent when a session opens.
package payload

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/Iron-Ham/inkgate/internal/book"
	"github.com/Iron-Ham/inkgate/internal/config"
	"github.com/Iron-Ham/inkgate/internal/logging"
	"github.com/Iron-Ham/inkgate/internal/state"
)

// Payload is the open-session result. Outcome flags are always present; the
// material fields are only filled for admitted sessions.
type Payload struct {
	SessionID          string   `json:"session_id"`
	SessionAlreadyRun  bool     `json:"session_already_run"`
	KillRequested      bool     `json:"kill_requested"`
	StaleLockRecovered bool     `json:"stale_lock_recovered"`
	SnapshotTag        string   `json:"snapshot_tag,omitempty"`
	HumanEdits         []string `json:"human_edits"`

	Config         *ConfigSnapshot `json:"config,omitempty"`
	GlobalMaterial []File          `json:"global_material"`
	Chapters       Chapters        `json:"chapters"`
	CurrentReview  Review          `json:"current_review"`
	WordCount      WordCount       `json:"word_count"`

	ChapterCloseSuggested   bool `json:"chapter_close_suggested"`
	CurrentChapterWordCount int  `json:"current_chapter_word_count"`
	ChapterProgressPct      int  `json:"chapter_progress_pct"`

	Warnings []string `json:"warnings,omitempty"`
}

// ConfigSnapshot is the book configuration as seen by the agent, plus the
// chapter currently being written.
type ConfigSnapshot struct {
	Language              string `json:"language"`
	TargetLength          int    `json:"target_length"`
	ChapterCount          int    `json:"chapter_count"`
	ChapterStructure      string `json:"chapter_structure"`
	WordsPerSession       int    `json:"words_per_session"`
	WordsPerChapter       int    `json:"words_per_chapter"`
	WordsPerPage          int    `json:"words_per_page"`
	SummaryContextEntries int    `json:"summary_context_entries"`
	CurrentChapter        int    `json:"current_chapter"`
}

// File is one piece of reference material.
type File struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Chapter is a chapter outline.
type Chapter struct {
	Path          string `json:"path"`
	Content       string `json:"content"`
	ModifiedToday bool   `json:"modified_today"`
}

// Chapters holds the current outline and, when a chapter close is
// suggested, the next one.
type Chapters struct {
	Current *Chapter `json:"current"`
	Next    *Chapter `json:"next"`
}

// Review is the in-progress draft with author directives removed.
type Review struct {
	Content      string        `json:"content"`
	Instructions []Instruction `json:"instructions"`
	Truncated    bool          `json:"truncated,omitempty"`
}

// WordCount tracks progress of the permanent full text against the target.
type WordCount struct {
	Total     int `json:"total"`
	Target    int `json:"target"`
	Remaining int `json:"remaining"`
}

// Snapshot copies the agent-facing part of the book configuration.
func Snapshot(cfg *config.Book, currentChapter int) *ConfigSnapshot {
	return &ConfigSnapshot{
		Language:              cfg.Language,
		TargetLength:          cfg.TargetLength,
		ChapterCount:          cfg.ChapterCount,
		ChapterStructure:      cfg.ChapterStructure,
		WordsPerSession:       cfg.WordsPerSession,
		WordsPerChapter:       cfg.WordsPerChapter,
		WordsPerPage:          cfg.WordsPerPage,
		SummaryContextEntries: cfg.SummaryContextEntries,
		CurrentChapter:        currentChapter,
	}
}

// Builder loads payload material from a book repository.
type Builder struct {
	RepoPath string
	Config   *config.Book
	State    *state.State
	Logger   *logging.Logger
}

// Build assembles the material part of an admitted session's payload.
// humanEdits are the paths reported by reconciliation.
func (b *Builder) Build(humanEdits []string) (*Payload, error) {
	log := b.Logger
	if log == nil {
		log = logging.NopLogger()
	}

	material, err := LoadGlobalMaterial(b.RepoPath, b.Config.SummaryContextEntries)
	if err != nil {
		return nil, err
	}

	chapterWords := b.State.CurrentChapterWordCount
	closeSuggested := ChapterCloseSuggested(chapterWords, b.Config.WordsPerChapter)

	current, err := LoadChapter(b.RepoPath, b.State.CurrentChapter, humanEdits)
	if err != nil {
		return nil, err
	}
	var next *Chapter
	if closeSuggested {
		next, err = LoadChapter(b.RepoPath, b.State.CurrentChapter+1, humanEdits)
		if err != nil {
			return nil, err
		}
	}

	review, err := LoadReview(b.RepoPath, b.Config.ContextWindowTokens)
	if err != nil {
		return nil, err
	}
	if review.Truncated {
		log.Info("review truncated to fit context window",
			"context_window_tokens", b.Config.ContextWindowTokens,
			"words", book.CountWords(review.Content),
		)
	}

	wc, err := LoadWordCount(b.RepoPath, b.Config.TargetLength)
	if err != nil {
		return nil, err
	}

	if humanEdits == nil {
		humanEdits = []string{}
	}
	return &Payload{
		HumanEdits:              humanEdits,
		Config:                  Snapshot(b.Config, b.State.CurrentChapter),
		GlobalMaterial:          material,
		Chapters:                Chapters{Current: current, Next: next},
		CurrentReview:           review,
		WordCount:               wc,
		ChapterCloseSuggested:   closeSuggested,
		CurrentChapterWordCount: chapterWords,
		ChapterProgressPct:      ChapterProgressPct(chapterWords, b.Config.WordsPerChapter),
	}, nil
}

// LoadGlobalMaterial reads every regular file in the global material
// directory except the configuration, sorted by name. The summary is cut
// down to its last summaryEntries substantive paragraphs.
func LoadGlobalMaterial(repoPath string, summaryEntries int) ([]File, error) {
	dir := book.Abs(repoPath, book.GlobalMaterialDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []File{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", book.GlobalMaterialDir, err)
	}

	configName := path.Base(book.ConfigRel)
	summaryName := path.Base(book.SummaryRel)

	files := []File{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || entry.Name() == configName {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		content := string(data)
		if entry.Name() == summaryName {
			content = TruncateSummary(content, summaryEntries)
		}
		files = append(files, File{Filename: entry.Name(), Content: content})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Filename < files[j].Filename
	})
	return files, nil
}

// LoadChapter reads chapter n's outline, returning nil when it does not exist.
func LoadChapter(repoPath string, n int, humanEdits []string) (*Chapter, error) {
	rel := book.ChapterRel(n)
	data, err := os.ReadFile(book.Abs(repoPath, rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return &Chapter{
		Path:          rel,
		Content:       string(data),
		ModifiedToday: editedIn(rel, humanEdits),
	}, nil
}

// editedIn matches rel against reported edits by full relative path or, for
// callers that only report file names, by base name.
func editedIn(rel string, humanEdits []string) bool {
	base := path.Base(rel)
	for _, edit := range humanEdits {
		edit = filepath.ToSlash(edit)
		if edit == rel || path.Base(edit) == base {
			return true
		}
	}
	return false
}

// LoadReview reads the review draft, extracts author directives and fits the
// cleaned text into the context window budget.
func LoadReview(repoPath string, contextWindowTokens int) (Review, error) {
	text, err := book.ReadOptional(book.ReviewPath(repoPath))
	if err != nil {
		return Review{}, err
	}

	cleaned, instructions := ExtractInstructions(text)
	if instructions == nil {
		instructions = []Instruction{}
	}
	content, truncated := FitReview(cleaned, contextWindowTokens)
	return Review{Content: content, Instructions: instructions, Truncated: truncated}, nil
}

// LoadWordCount counts prose words in the permanent full text.
func LoadWordCount(repoPath string, target int) (WordCount, error) {
	text, err := book.ReadOptional(book.FullBookPath(repoPath))
	if err != nil {
		return WordCount{}, err
	}
	total := book.CountProseWords(text)
	return WordCount{
		Total:     total,
		Target:    target,
		Remaining: max(target-total, 0),
	}, nil
}
