package config

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/inkgate/internal/book"
	"github.com/spf13/viper"
)

// Book is the per-repository configuration read from Global Material/Config.yml.
// It is loaded fresh on every coordinator call and never cached.
type Book struct {
	Language         string `mapstructure:"language" json:"language" yaml:"language"`
	TargetLength     int    `mapstructure:"target_length" json:"target_length" yaml:"target_length"`
	ChapterCount     int    `mapstructure:"chapter_count" json:"chapter_count" yaml:"chapter_count"`
	ChapterStructure string `mapstructure:"chapter_structure" json:"chapter_structure" yaml:"chapter_structure"`
	WordsPerSession  int    `mapstructure:"words_per_session" json:"words_per_session" yaml:"words_per_session"`
	WordsPerChapter  int    `mapstructure:"words_per_chapter" json:"words_per_chapter" yaml:"words_per_chapter"`
	WordsPerPage     int    `mapstructure:"words_per_page" json:"words_per_page" yaml:"words_per_page"`
	// SummaryContextEntries is how many summary paragraphs a payload carries
	SummaryContextEntries int `mapstructure:"summary_context_entries" json:"summary_context_entries" yaml:"summary_context_entries"`
	// SessionTimeoutMinutes is the lock age after which a lock is stale
	SessionTimeoutMinutes int `mapstructure:"session_timeout_minutes" json:"session_timeout_minutes" yaml:"session_timeout_minutes"`
	// ContextWindowTokens bounds the review text handed to the agent (0 = unbounded)
	ContextWindowTokens int `mapstructure:"context_window_tokens" json:"context_window_tokens" yaml:"context_window_tokens"`
}

// requiredBookKeys have no default and must appear in Config.yml
var requiredBookKeys = []string{"target_length", "chapter_count", "words_per_session"}

// DefaultBook returns a Book with every optional key at its default value.
// Required keys are left zero.
func DefaultBook() *Book {
	return &Book{
		Language:              "English",
		ChapterStructure:      "linear",
		WordsPerChapter:       3000,
		WordsPerPage:          300,
		SummaryContextEntries: 5,
		SessionTimeoutMinutes: 60,
		ContextWindowTokens:   200000,
	}
}

func setBookDefaults(v *viper.Viper) {
	defaults := DefaultBook()

	v.SetDefault("language", defaults.Language)
	v.SetDefault("chapter_structure", defaults.ChapterStructure)
	v.SetDefault("words_per_chapter", defaults.WordsPerChapter)
	v.SetDefault("words_per_page", defaults.WordsPerPage)
	v.SetDefault("summary_context_entries", defaults.SummaryContextEntries)
	v.SetDefault("session_timeout_minutes", defaults.SessionTimeoutMinutes)
	v.SetDefault("context_window_tokens", defaults.ContextWindowTokens)
}

// LoadBook reads and validates the book configuration of the repository at repoPath.
func LoadBook(repoPath string) (*Book, error) {
	path := book.ConfigPath(repoPath)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setBookDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var b Book
	if err := v.Unmarshal(&b); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var errs []ValidationError
	missing := make(map[string]bool)
	for _, key := range requiredBookKeys {
		if !v.IsSet(key) {
			missing[key] = true
			errs = append(errs, ValidationError{
				Field:   key,
				Value:   nil,
				Message: "is required",
			})
		}
	}
	for _, e := range b.Validate() {
		if !missing[e.Field] {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &b, nil
}

// SessionTimeout returns the lock staleness threshold as a duration
func (b *Book) SessionTimeout() time.Duration {
	return time.Duration(b.SessionTimeoutMinutes) * time.Minute
}
