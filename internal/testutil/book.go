package testutil

import "testing"

// DefaultBookConfig is a minimal valid Global Material/Config.yml.
const DefaultBookConfig = `language: English
target_length: 10000
chapter_count: 3
chapter_structure: linear
words_per_session: 500
words_per_chapter: 3000
session_timeout_minutes: 60
`

// BookFiles returns the files of a freshly scaffolded book repository.
// Entries in overrides replace or extend the defaults.
func BookFiles(overrides map[string]string) map[string]string {
	files := map[string]string{
		"Global Material/Config.yml":      DefaultBookConfig,
		"Global Material/Summary.md":      "",
		"Global Material/Characters.md":   "Mara keeps the lighthouse on the northern cape.\n",
		"Global Material/Style.md":        "Close third person, past tense.\n",
		"Chapters material/Chapter_01.md": "Mara finds the wreck.\n",
		"Chapters material/Chapter_02.md": "The survivor wakes.\n",
		"Review/current.md":               "",
		"Current version/Full_Book.md":    "",
	}
	for path, content := range overrides {
		files[path] = content
	}
	return files
}

// SetupBookRepo creates a book repository on main with a bare origin remote.
func SetupBookRepo(t *testing.T, overrides map[string]string) (repoDir, remoteDir string) {
	t.Helper()
	return SetupTestRepoWithContentAndRemote(t, BookFiles(overrides))
}
