package payload

import (
	"strings"

	"github.com/Iron-Ham/inkgate/internal/book"
)

// MinSummaryParagraphWords filters auto-generated one-line session entries
// out of the summary so the retained paragraphs carry narrative.
const MinSummaryParagraphWords = 15

// Review window budget. OverheadTokens is reserved for the system prompt,
// reference material, chapters and the agent's own output.
const (
	OverheadTokens  = 60000
	TokensPerWord   = 1.35
	FallbackWordCap = 2000
)

// Paragraphs splits text on blank lines, trimming each paragraph and dropping
// empty ones.
func Paragraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// TruncateSummary keeps the last n paragraphs of at least
// MinSummaryParagraphWords words, oldest first. If no paragraph qualifies the
// unfiltered paragraphs are used instead.
func TruncateSummary(text string, n int) string {
	all := Paragraphs(text)

	var substantive []string
	for _, p := range all {
		if book.CountWords(p) >= MinSummaryParagraphWords {
			substantive = append(substantive, p)
		}
	}

	pool := substantive
	if len(pool) == 0 {
		pool = all
	}
	if n < 0 {
		n = 0
	}
	start := max(len(pool)-n, 0)
	return strings.Join(pool[start:], "\n\n")
}

// MaxReviewWords converts a context window budget into a review word cap.
// limited is false when contextWindowTokens is 0 (unbounded). Windows no
// larger than OverheadTokens get FallbackWordCap.
func MaxReviewWords(contextWindowTokens int) (maxWords int, limited bool) {
	if contextWindowTokens <= 0 {
		return 0, false
	}
	if contextWindowTokens <= OverheadTokens {
		return FallbackWordCap, true
	}
	return int(float64(contextWindowTokens-OverheadTokens) / TokensPerWord), true
}

// TruncateToLastWords keeps the trailing whole paragraphs of text that fit in
// maxWords. The final paragraph is always kept, even when it alone exceeds
// the cap, and no paragraph is ever split.
func TruncateToLastWords(text string, maxWords int) string {
	paras := Paragraphs(text)
	if len(paras) == 0 {
		return ""
	}

	start := len(paras) - 1
	total := book.CountWords(paras[start])
	for i := start - 1; i >= 0; i-- {
		words := book.CountWords(paras[i])
		if total+words > maxWords {
			break
		}
		total += words
		start = i
	}
	return strings.Join(paras[start:], "\n\n")
}

// FitReview applies the context window budget to review text, returning it
// unchanged when it already fits or the budget is unbounded.
func FitReview(text string, contextWindowTokens int) (string, bool) {
	maxWords, limited := MaxReviewWords(contextWindowTokens)
	if !limited || book.CountWords(text) <= maxWords {
		return text, false
	}
	return TruncateToLastWords(text, maxWords), true
}
