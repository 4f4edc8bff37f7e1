package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/inkgate/internal/config"
	"github.com/Iron-Ham/inkgate/internal/errors"
	"github.com/Iron-Ham/inkgate/internal/logging"
	"github.com/Iron-Ham/inkgate/internal/session"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Exit codes returned by ExitCode.
const (
	ExitError    = 1
	ExitProtocol = 2
)

var rootCmd = &cobra.Command{
	Use:   "inkgate",
	Short: "Session lifecycle coordinator for git-backed book repositories",
	Long: `inkgate coordinates writing sessions on a book kept in git.

A session is opened against the shared remote behind a lock, the writing agent
receives the book context as JSON, and closing the session persists the new
prose, releases the lock and publishes the result.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Failures are reported as a JSON error
// object on stdout.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		writeError(rootCmd.OutOrStdout(), err)
	}
	return err
}

// ExitCode maps an error to the process exit status: 2 for protocol
// refusals, 1 for everything else.
func ExitCode(err error) int {
	if errors.IsProtocolError(err) {
		return ExitProtocol
	}
	return ExitError
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.config/inkgate/config.yaml)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-dir", "", "directory for inkgate.log (default is stderr)")
	flags.String("remote", "", "git remote to sync with")
	flags.String("main-branch", "", "branch human editors work on")
	flags.String("draft-branch", "", "branch receiving session output")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logging.dir", flags.Lookup("log-dir"))
	_ = viper.BindPFlag("git.remote", flags.Lookup("remote"))
	_ = viper.BindPFlag("git.main_branch", flags.Lookup("main-branch"))
	_ = viper.BindPFlag("git.draft_branch", flags.Lookup("draft-branch"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/inkgate")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("INKGATE")
	// e.g. INKGATE_GIT_MAIN_BRANCH for git.main_branch
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newCoordinator builds a coordinator from the effective settings. The
// returned cleanup closes the log file.
func newCoordinator() (*session.Coordinator, func(), error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLoggerWithRotation(settings.Logging.Dir, settings.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  settings.Logging.MaxSizeMB,
		MaxBackups: settings.Logging.MaxBackups,
		Compress:   settings.Logging.Compress,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = logger.Close()
	}
	return session.NewCoordinator(settings.Git, logger), cleanup, nil
}

// withCoordinator runs fn with a freshly built coordinator.
func withCoordinator(fn func(*session.Coordinator) error) error {
	coord, cleanup, err := newCoordinator()
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(coord)
}

// errorBody is the JSON shape of a failed command.
type errorBody struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func writeError(w io.Writer, err error) {
	_ = writeJSON(w, errorBody{
		Status: "error",
		Code:   errors.Code(err),
		Error:  err.Error(),
	})
}
