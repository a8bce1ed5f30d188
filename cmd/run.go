package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sol-strategies/hookrunner/internal/constants"
	"github.com/sol-strategies/hookrunner/internal/git"
	"github.com/sol-strategies/hookrunner/internal/hookenv"
	"github.com/sol-strategies/hookrunner/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the steps configured for a git hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		hook, _ := cmd.Flags().GetString("hook")
		if !constants.IsValidHookType(hook) {
			return fmt.Errorf("invalid hook %q, must be one of: %v", hook, constants.ValidHookTypes)
		}

		var argsOverride *string
		if cmd.Flags().Changed("args") {
			v, _ := cmd.Flags().GetString("args")
			argsOverride = &v
		}
		env, err := hookenv.Load(os.LookupEnv, argsOverride)
		if err != nil {
			return fmt.Errorf("reading hook environment: %w", err)
		}

		repo, err := git.Open(".")
		if err != nil {
			return err
		}

		staged := env.StagedFiles
		if staged == nil {
			staged, err = repo.StagedFiles()
			if err != nil {
				return fmt.Errorf("collecting staged files: %w", err)
			}
		}

		var lockDir string
		if cfg.Run.Lock {
			lockDir, err = repo.GitDir()
			if err != nil {
				log.Warn("run lock disabled", "error", err)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := runner.New(cfg, os.Stdout).Run(ctx, runner.Invocation{
			Hook:        hook,
			Root:        repo.Root(),
			StagedFiles: staged,
			Env:         env,
			LockDir:     lockDir,
		})
		if err != nil {
			return err
		}

		runner.PrintFailures(os.Stdout, summary)
		if summary.Failed() {
			_, _, failed := summary.Counts()
			return fmt.Errorf("%s hook failed: %d step(s) failed", hook, failed)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringP("hook", "t", "", "git hook to run (e.g. pre-commit, commit-msg)")
	runCmd.Flags().String("args", "", "arguments forwarded to steps, overrides "+constants.EnvArgs)
	_ = runCmd.MarkFlagRequired("hook")
	rootCmd.AddCommand(runCmd)
}
