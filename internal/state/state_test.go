package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Iron-Ham/inkgate/internal/errors"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.CurrentChapter != 1 || s.CurrentChapterWordCount != 0 {
		t.Errorf("Load() = %+v, want chapter 1 with 0 words", s)
	}
}

func TestSaveLoad(t *testing.T) {
	repo := t.TempDir()
	want := &State{CurrentChapter: 4, CurrentChapterWordCount: 1234}

	if err := Save(repo, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(repo, ".ink-state.yml"))
	if err != nil {
		t.Fatalf("state file not written: %v", err)
	}
	if !strings.Contains(string(data), "current_chapter: 4") {
		t.Errorf("state file = %q, want current_chapter: 4", data)
	}

	got, err := Load(repo)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *got != *want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	repo := t.TempDir()
	if err := os.WriteFile(filepath.Join(repo, ".ink-state.yml"), []byte("current_chapter_word_count: 50\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(repo)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.CurrentChapter != 1 || s.CurrentChapterWordCount != 50 {
		t.Errorf("Load() = %+v, want chapter 1 with 50 words", s)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		invalid bool
	}{
		{"chapter zero", "current_chapter: 0\n", true},
		{"negative words", "current_chapter: 2\ncurrent_chapter_word_count: -5\n", true},
		{"malformed yaml", "current_chapter: [\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := t.TempDir()
			if err := os.WriteFile(filepath.Join(repo, ".ink-state.yml"), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := Load(repo)
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if got := errors.Is(err, errors.ErrInvalidInput); got != tt.invalid {
				t.Errorf("Is(ErrInvalidInput) = %v, want %v (err: %v)", got, tt.invalid, err)
			}
		})
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	repo := t.TempDir()
	if err := Save(repo, &State{CurrentChapter: 0}); err == nil {
		t.Fatal("Save() should reject chapter 0")
	}
	if _, err := os.Stat(filepath.Join(repo, ".ink-state.yml")); !os.IsNotExist(err) {
		t.Error("Save() wrote an invalid state")
	}
}
