package cmd

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/inkgate/internal/config"
	"github.com/Iron-Ham/inkgate/internal/errors"
	"github.com/Iron-Ham/inkgate/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show entries from inkgate.log",
	Long: `Read inkgate.log and its rotated backups from the configured log directory
(logging.dir) and print the entries that match the filters, oldest first.

Examples:
  inkgate logs -s 3f0c1d2e-... -n 0
  inkgate logs --level warn --since 24h
  inkgate logs --repo ~/books/novel --operation close --format json`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	f := logsCmd.Flags()
	f.StringP("session", "s", "", "only entries from this session ID")
	f.IntP("tail", "n", 50, "number of entries to show (0 for all)")
	f.String("level", "", "minimum level (debug, info, warn, error)")
	f.String("repo", "", "only entries for this repository path")
	f.String("operation", "", "only entries from this operation (open, close, complete, ...)")
	f.Duration("since", 0, "only entries newer than this (e.g. 2h)")
	f.String("grep", "", "only entries whose message contains this text")
	f.String("format", logging.FormatText, "output format: "+strings.Join(logging.ExportFormats(), ", "))
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	if settings.Logging.Dir == "" {
		return errors.NewValidationError("logging.dir is not set; logs are going to stderr").WithField("logging.dir")
	}

	f := cmd.Flags()
	format, _ := f.GetString("format")
	if !slices.Contains(logging.ExportFormats(), strings.ToLower(format)) {
		return errors.NewValidationError(fmt.Sprintf("must be one of: %s", strings.Join(logging.ExportFormats(), ", "))).
			WithField("format").
			WithValue(format)
	}

	var filter logging.Filter
	filter.SessionID, _ = f.GetString("session")
	filter.Level, _ = f.GetString("level")
	filter.Repo, _ = f.GetString("repo")
	filter.Operation, _ = f.GetString("operation")
	filter.MessageContains, _ = f.GetString("grep")
	if since, _ := f.GetDuration("since"); since > 0 {
		filter.Since = time.Now().Add(-since)
	}

	entries, err := logging.ReadLogs(settings.Logging.Dir)
	if err != nil {
		return err
	}
	entries = logging.FilterLogs(entries, filter)
	if tail, _ := f.GetInt("tail"); tail > 0 && len(entries) > tail {
		entries = entries[len(entries)-tail:]
	}
	return logging.WriteEntries(cmd.OutOrStdout(), entries, format)
}
