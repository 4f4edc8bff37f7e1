// Package util provides small text helpers for terminal output.
package util

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "..."

// TruncateANSI truncates s to maxWidth visual columns, adding "..." if truncated.
// Escape sequences and wide characters are accounted for, so styled values
// can be truncated after rendering.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= len(ellipsis) {
		return ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// ansi.Truncate counts the tail toward the final width
	return ansi.Truncate(s, maxWidth, ellipsis)
}

// ShortenPath fits a filesystem path into maxWidth columns by dropping its
// leading part, so the book directory name stays visible.
func ShortenPath(path string, maxWidth int) string {
	if maxWidth <= len(ellipsis) {
		return ellipsis
	}
	width := lipgloss.Width(path)
	if width <= maxWidth {
		return path
	}
	return ansi.TruncateLeft(path, width-maxWidth+len(ellipsis), ellipsis)
}
