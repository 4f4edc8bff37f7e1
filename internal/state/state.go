// Package state persists the session state file (.ink-state.yml): the chapter
// being written and how many words it has accumulated.
package state

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/inkgate/internal/book"
	"github.com/Iron-Ham/inkgate/internal/errors"
	"gopkg.in/yaml.v3"
)

// State is the coordinator-owned progress record. It changes only at session
// close and chapter advance.
type State struct {
	CurrentChapter          int `yaml:"current_chapter" json:"current_chapter"`
	CurrentChapterWordCount int `yaml:"current_chapter_word_count" json:"current_chapter_word_count"`
}

// Default returns the state of a book that has never closed a session.
func Default() *State {
	return &State{CurrentChapter: 1}
}

// Load reads the state of the repository at repoPath. A missing file yields
// Default; a chapter below 1 or a negative word count is rejected.
func Load(repoPath string) (*State, error) {
	path := book.StatePath(repoPath)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the state invariants.
func (s *State) Validate() error {
	if s.CurrentChapter < 1 {
		return errors.NewValidationError("current chapter must be at least 1").
			WithField("current_chapter").
			WithValue(s.CurrentChapter)
	}
	if s.CurrentChapterWordCount < 0 {
		return errors.NewValidationError("chapter word count must not be negative").
			WithField("current_chapter_word_count").
			WithValue(s.CurrentChapterWordCount)
	}
	return nil
}

// Save validates s and atomically replaces the state file.
func Save(repoPath string, s *State) error {
	if err := s.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := book.WriteFileAtomic(book.StatePath(repoPath), data, 0644); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}
