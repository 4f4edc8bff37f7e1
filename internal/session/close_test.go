package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/inkgate/internal/testutil"
)

func readFile(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("failed to read %s: %v", rel, err)
	}
	return string(data)
}

func TestAppendSummary(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)

	t.Run("generated entry into empty summary", func(t *testing.T) {
		dir := t.TempDir()
		if err := appendSummary(dir, "", 412, now); err != nil {
			t.Fatalf("appendSummary() error = %v", err)
		}
		want := "Session 2026-05-01 10:30 — 412 words written.\n"
		if got := readFile(t, dir, "Global Material/Summary.md"); got != want {
			t.Errorf("summary = %q, want %q", got, want)
		}
	})

	t.Run("explicit summary appended as a paragraph", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteFiles(t, dir, map[string]string{"Global Material/Summary.md": "Earlier events.\n\n\n"})
		if err := appendSummary(dir, "  Mara found the wreck.  ", 10, now); err != nil {
			t.Fatalf("appendSummary() error = %v", err)
		}
		want := "Earlier events.\n\nMara found the wreck.\n"
		if got := readFile(t, dir, "Global Material/Summary.md"); got != want {
			t.Errorf("summary = %q, want %q", got, want)
		}
	})
}

func TestWriteChangelog(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)
	in := CloseInput{
		Prose:      "ignored",
		Summary:    "The storm passed.",
		HumanEdits: []string{"Global Material/Style.md", "Review/current.md"},
	}

	rel, err := writeChangelog(dir, in, 250, now)
	if err != nil {
		t.Fatalf("writeChangelog() error = %v", err)
	}
	if rel != "Changelog/2026-05-01-10-30.md" {
		t.Errorf("path = %q", rel)
	}
	want := "# Session 2026-05-01 10:30\n\n**Words written:** 250\n" +
		"\n**Human edits:**\n- Global Material/Style.md\n- Review/current.md\n" +
		"\n**Summary:**\nThe storm passed.\n"
	if got := readFile(t, dir, rel); got != want {
		t.Errorf("changelog = %q, want %q", got, want)
	}

	second, err := writeChangelog(dir, CloseInput{}, 5, now)
	if err != nil {
		t.Fatalf("writeChangelog() error = %v", err)
	}
	if second != "Changelog/2026-05-01-10-30-2.md" {
		t.Errorf("colliding entry path = %q, want a -2 suffix", second)
	}
	if got := readFile(t, dir, second); got != "# Session 2026-05-01 10:30\n\n**Words written:** 5\n" {
		t.Errorf("minimal changelog = %q", got)
	}
	if readFile(t, dir, rel) != want {
		t.Error("first changelog entry was overwritten")
	}
}

func TestAppendFullBook(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		prose    string
		want     string
	}{
		{"empty book", "", "\n\nFirst words.", "\nFirst words."},
		{"ends with newline", "One.\n", "Two.", "One.\n\nTwo."},
		{"no trailing newline", "One.", "  Two.", "One.\n\nTwo."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			testutil.WriteFiles(t, dir, map[string]string{"Current version/Full_Book.md": tt.existing})

			total, err := appendFullBook(dir, tt.prose)
			if err != nil {
				t.Fatalf("appendFullBook() error = %v", err)
			}
			got := readFile(t, dir, "Current version/Full_Book.md")
			if got != tt.want {
				t.Errorf("full book = %q, want %q", got, tt.want)
			}
			if total != len(strings.Fields(tt.want)) {
				t.Errorf("total = %d, want %d", total, len(strings.Fields(tt.want)))
			}
		})
	}
}
