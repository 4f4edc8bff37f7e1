package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/inkgate/internal/session"
	"github.com/Iron-Ham/inkgate/internal/util"
)

// Column budgets for the human-readable status view.
const (
	statusTitleWidth = 56
	statusValueWidth = 72
)

var statusCmd = &cobra.Command{
	Use:   "status <repo>",
	Short: "Show the book's current state",
	Long: `Display chapter progress, word counts, lock and completion state of the book
at <repo>. Reads local files only and runs no git commands.

Output is a styled summary on a terminal and JSON otherwise; --json forces JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "print JSON even on a terminal")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withCoordinator(func(coord *session.Coordinator) error {
		res, err := coord.Status(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON || !isTerminal(out) {
			return writeJSON(out, res)
		}
		_, err = fmt.Fprintln(out, renderStatus(args[0], res))
		return err
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// renderStatus formats a status snapshot for humans.
func renderStatus(repoPath string, s *session.StatusResult) string {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), util.TruncateANSI(value, statusValueWidth))
	}

	chapter := fmt.Sprintf("%d of %d", s.CurrentChapter, s.ChapterCount)
	progress := fmt.Sprintf("%s %d%% (%d / %d words)",
		progressBar(s.ChapterProgressPct, 20), s.ChapterProgressPct,
		s.CurrentChapterWordCount, s.WordsPerChapter)
	if s.ChapterCloseSuggested {
		progress += " " + warnStyle.Render("close suggested")
	}

	book := fmt.Sprintf("%d / %d words", s.WordCount.Total, s.WordCount.Target)
	if s.CompletionReady {
		book += " " + okStyle.Render("ready to complete")
	}

	rows := []string{
		titleStyle.Render(util.ShortenPath(repoPath, statusTitleWidth)),
		"",
		row("Chapter", chapter),
		row("Chapter progress", progress),
		row("Book", book),
		row("Session lock", lockSummary(s.Lock)),
	}
	if s.PendingInstructions > 0 {
		rows = append(rows, row("Instructions", warnStyle.Render(fmt.Sprintf("%d pending", s.PendingInstructions))))
	}
	if s.KillPending {
		rows = append(rows, row("Kill", errorStyle.Render("requested")))
	}
	if s.Complete {
		rows = append(rows, row("Book state", okStyle.Render("complete")))
	}

	return boxStyle.Render(strings.Join(rows, "\n"))
}

func lockSummary(l session.LockStatus) string {
	switch {
	case !l.Present:
		return okStyle.Render("free")
	case l.Malformed:
		return warnStyle.Render("unreadable (stale)")
	case l.Active:
		age := time.Duration(l.AgeSeconds) * time.Second
		return warnStyle.Render("held for " + age.String())
	default:
		return warnStyle.Render("stale")
	}
}

func progressBar(pct, width int) string {
	filled := pct * width / 100
	return okStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled))
}
