package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Settings represents the tool-level inkgate configuration. It controls how the
// coordinator talks to git and where it logs; per-book settings live in Book.
type Settings struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Git     GitConfig     `mapstructure:"git" yaml:"git"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the minimum level written (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the directory receiving inkgate.log. Empty means stderr.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB rotates inkgate.log once it would grow past this size (0 disables rotation)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files kept
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated files
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// GitConfig names the remote and branches the session protocol operates on
type GitConfig struct {
	// Remote is the shared remote every session syncs against
	Remote string `mapstructure:"remote" yaml:"remote"`
	// MainBranch is the permanent line human editors work on
	MainBranch string `mapstructure:"main_branch" yaml:"main_branch"`
	// DraftBranch receives session output before it is fast-forwarded onto MainBranch
	DraftBranch string `mapstructure:"draft_branch" yaml:"draft_branch"`
	// Binary is the git executable to invoke
	Binary string `mapstructure:"binary" yaml:"binary"`
}

// DefaultSettings returns the tool configuration used when nothing is overridden
func DefaultSettings() *Settings {
	return &Settings{
		Logging: LoggingConfig{
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
		Git: GitConfig{
			Remote:      "origin",
			MainBranch:  "main",
			DraftBranch: "draft",
			Binary:      "git",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := DefaultSettings()

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Git defaults
	viper.SetDefault("git.remote", defaults.Git.Remote)
	viper.SetDefault("git.main_branch", defaults.Git.MainBranch)
	viper.SetDefault("git.draft_branch", defaults.Git.DraftBranch)
	viper.SetDefault("git.binary", defaults.Git.Binary)
}

// LoadSettings reads the tool configuration from viper into a Settings struct and validates it
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, err
	}

	if errs := s.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &s, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "inkgate")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".inkgate"
	}
	return filepath.Join(home, ".config", "inkgate")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
