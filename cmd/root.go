package cmd

import (
	_ "embed"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sol-strategies/hookrunner/internal/config"
	"github.com/sol-strategies/hookrunner/internal/git"
)

//go:embed version.txt
var version string

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "hookrunner",
	Short:         "Runs the configured steps of a git hook",
	Version:       strings.TrimSpace(version),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		logLevel, _ := cmd.Flags().GetString("log-level")
		logDisableTimestamps, _ := cmd.Flags().GetBool("log-disable-timestamps")

		if configPath == "" {
			configPath = defaultConfigPath()
		}

		var err error
		cfg, err = config.NewFromConfigFile(configPath)
		if err != nil {
			return err
		}

		cfg.Log.ConfigureWithLevelString(logLevel, logDisableTimestamps)
		return nil
	},
}

// defaultConfigPath looks for the config at the repository root, falling
// back to the current directory outside a repository.
func defaultConfigPath() string {
	repo, err := git.Open(".")
	if err != nil {
		log.Debug("not inside a repository, using working directory for config", "error", err)
		return config.DefaultFilename
	}
	return filepath.Join(repo.Root(), config.DefaultFilename)
}

func init() {
	// Set logger defaults early so any errors before config loading are styled correctly.
	config.SetLoggerDefaults()

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (default: "+config.DefaultFilename+" at the repository root)")
	rootCmd.PersistentFlags().String("log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-disable-timestamps", false, "disable timestamps in log output (overrides log.disable_timestamps)")
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal("failed to execute", "error", err)
		return err
	}
	return nil
}
