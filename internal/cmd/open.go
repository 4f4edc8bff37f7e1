package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/inkgate/internal/session"
)

var openCmd = &cobra.Command{
	Use:   "open <repo>",
	Short: "Open a writing session",
	Long: `Open a writing session on the book repository at <repo>.

Syncs main with the remote, commits human edits, tags a snapshot, takes the
session lock and prints the session payload as JSON. If a kill was requested
or another session holds the lock, the payload says so and nothing is loaded.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	return withCoordinator(func(coord *session.Coordinator) error {
		p, err := coord.Open(args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), p)
	})
}
