package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/inkgate/internal/errors"
	"github.com/Iron-Ham/inkgate/internal/session"
)

var closeCmd = &cobra.Command{
	Use:   "close <repo>",
	Short: "Close the open writing session",
	Long: `Close the open writing session on the book repository at <repo>.

The session prose is read from --prose-file ("-" reads stdin). It replaces the
review draft and is appended to the full text; the summary and changelog are
extended, the lock is released and both branches are pushed.

Examples:
  inkgate close ~/books/novel --prose-file session.md --summary "Mara reaches the wreck."
  cat session.md | inkgate close ~/books/novel --prose-file - --human-edit "Review/current.md"`,
	Args: cobra.ExactArgs(1),
	RunE: runClose,
}

func init() {
	closeCmd.Flags().String("prose-file", "", `file holding the session prose ("-" for stdin)`)
	closeCmd.Flags().String("summary", "", "one-paragraph summary of the session")
	closeCmd.Flags().StringArray("human-edit", nil, "path edited by a human since the last session (repeatable)")
	_ = closeCmd.MarkFlagRequired("prose-file")
	rootCmd.AddCommand(closeCmd)
}

func runClose(cmd *cobra.Command, args []string) error {
	proseFile, _ := cmd.Flags().GetString("prose-file")
	summary, _ := cmd.Flags().GetString("summary")
	humanEdits, _ := cmd.Flags().GetStringArray("human-edit")

	prose, err := readProse(cmd.InOrStdin(), proseFile)
	if err != nil {
		return err
	}

	return withCoordinator(func(coord *session.Coordinator) error {
		res, err := coord.Close(args[0], session.CloseInput{
			Prose:      prose,
			Summary:    summary,
			HumanEdits: humanEdits,
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	})
}

func readProse(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch path {
	case "":
		return "", errors.NewValidationError("--prose-file is required").WithField("prose-file")
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read prose: %w", err)
	}
	return string(data), nil
}
