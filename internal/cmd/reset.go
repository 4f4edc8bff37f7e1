package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/inkgate/internal/errors"
	"github.com/Iron-Ham/inkgate/internal/session"
)

var resetCmd = &cobra.Command{
	Use:   "reset <repo>",
	Short: "Clear session lock, kill request, state and completion marker",
	Long: `Remove .ink-running, .ink-kill, .ink-state.yml and COMPLETE from main in
<repo>, commit the removal and try to push it. Use this to recover a repository
left behind by an interrupted session. Requires --yes.`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	resetCmd.Flags().Bool("yes", false, "confirm the reset")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return errors.NewValidationError("reset discards session state; pass --yes to confirm").WithField("yes")
	}
	return withCoordinator(func(coord *session.Coordinator) error {
		res, err := coord.Reset(args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	})
}
