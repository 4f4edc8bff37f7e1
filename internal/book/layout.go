// Package book describes the on-disk layout of a book repository and holds the
// prose word counter shared by session open and close.
package book

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Repository-relative paths, slash separated as git reports them.
const (
	GlobalMaterialDir = "Global Material"
	ChaptersDir       = "Chapters material"
	ChangelogDir      = "Changelog"

	ConfigRel   = GlobalMaterialDir + "/Config.yml"
	SummaryRel  = GlobalMaterialDir + "/Summary.md"
	ReviewRel   = "Review/current.md"
	FullBookRel = "Current version/Full_Book.md"

	LockRel     = ".ink-running"
	KillRel     = ".ink-kill"
	StateRel    = ".ink-state.yml"
	CompleteRel = "COMPLETE"
)

// ChangelogTimeFormat names changelog entries and snapshot tags.
const ChangelogTimeFormat = "2006-01-02-15-04"

// Abs joins a repository-relative slash path onto repoPath.
func Abs(repoPath, rel string) string {
	return filepath.Join(repoPath, filepath.FromSlash(rel))
}

// ChapterRel returns the relative path of chapter n's outline.
func ChapterRel(n int) string {
	return fmt.Sprintf("%s/Chapter_%02d.md", ChaptersDir, n)
}

// ChangelogRel returns the relative path of the changelog entry for t.
func ChangelogRel(t time.Time) string {
	return ChangelogDir + "/" + t.Format(ChangelogTimeFormat) + ".md"
}

// ConfigPath returns the absolute path of the book configuration.
func ConfigPath(repoPath string) string {
	return Abs(repoPath, ConfigRel)
}

// SummaryPath returns the absolute path of the running summary.
func SummaryPath(repoPath string) string {
	return Abs(repoPath, SummaryRel)
}

// ReviewPath returns the absolute path of the in-progress review draft.
func ReviewPath(repoPath string) string {
	return Abs(repoPath, ReviewRel)
}

// FullBookPath returns the absolute path of the permanent full text.
func FullBookPath(repoPath string) string {
	return Abs(repoPath, FullBookRel)
}

// LockPath returns the absolute path of the session lock.
func LockPath(repoPath string) string {
	return Abs(repoPath, LockRel)
}

// KillPath returns the absolute path of the kill sentinel.
func KillPath(repoPath string) string {
	return Abs(repoPath, KillRel)
}

// StatePath returns the absolute path of the session state file.
func StatePath(repoPath string) string {
	return Abs(repoPath, StateRel)
}

// CompletePath returns the absolute path of the completion marker.
func CompletePath(repoPath string) string {
	return Abs(repoPath, CompleteRel)
}

// ChapterPath returns the absolute path of chapter n's outline.
func ChapterPath(repoPath string, n int) string {
	return Abs(repoPath, ChapterRel(n))
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadOptional returns the file contents, or "" when the file does not exist.
func ReadOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
