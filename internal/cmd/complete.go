package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/inkgate/internal/session"
)

var completeCmd = &cobra.Command{
	Use:   "complete <repo>",
	Short: "Mark the book as complete",
	Long: `Finalise the book at <repo> by committing and pushing the COMPLETE marker.

Reports needs_revision without changing anything while the review draft still
carries INK instructions.`,
	Args: cobra.ExactArgs(1),
	RunE: runComplete,
}

var advanceChapterCmd = &cobra.Command{
	Use:   "advance-chapter <repo>",
	Short: "Move on to the next chapter",
	Long: `Advance the session state of <repo> to the next chapter and reset its word
count. The change is committed but not pushed. Reports needs_chapter_outline
when the next chapter has no outline yet.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdvanceChapter,
}

func init() {
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(advanceChapterCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	return withCoordinator(func(coord *session.Coordinator) error {
		res, err := coord.Complete(args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	})
}

func runAdvanceChapter(cmd *cobra.Command, args []string) error {
	return withCoordinator(func(coord *session.Coordinator) error {
		res, err := coord.AdvanceChapter(args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	})
}
