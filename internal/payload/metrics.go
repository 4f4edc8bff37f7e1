package payload

// ChapterCloseSuggested reports whether the chapter has reached 90% of its
// word budget.
func ChapterCloseSuggested(chapterWords, wordsPerChapter int) bool {
	if wordsPerChapter <= 0 {
		return false
	}
	return chapterWords*10 >= wordsPerChapter*9
}

// ChapterProgressPct is chapterWords as a percentage of wordsPerChapter,
// clamped to [0, 100]. A zero budget yields 0.
func ChapterProgressPct(chapterWords, wordsPerChapter int) int {
	if wordsPerChapter <= 0 || chapterWords <= 0 {
		return 0
	}
	return min(chapterWords*100/wordsPerChapter, 100)
}

// CompletionReady reports whether the book has reached 90% of its target length.
func CompletionReady(totalWords, targetLength int) bool {
	if targetLength <= 0 {
		return false
	}
	return totalWords*10 >= targetLength*9
}
