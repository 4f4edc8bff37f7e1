package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/inkgate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [repo]",
	Short: "Show the effective configuration",
	Long: `Print the effective inkgate settings as YAML, after defaults, the config
file, INKGATE_* environment variables and flags have been applied.

With a repository path, the validated book configuration from
Global Material/Config.yml is printed as well, defaults included.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd)
}

// effectiveConfig is what `inkgate config` prints.
type effectiveConfig struct {
	ConfigFile string           `yaml:"config_file"`
	Settings   *config.Settings `yaml:"settings"`
	Book       *config.Book     `yaml:"book,omitempty"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	out := effectiveConfig{
		ConfigFile: viper.ConfigFileUsed(),
		Settings:   settings,
	}
	if out.ConfigFile == "" {
		out.ConfigFile = "(none - using defaults)"
	}
	if len(args) == 1 {
		book, err := config.LoadBook(args[0])
		if err != nil {
			return err
		}
		out.Book = book
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), config.ConfigFile())
	return err
}
