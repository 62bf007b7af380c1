package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conveyor-engine/conveyor/internal/config"
	"github.com/conveyor-engine/conveyor/internal/engine"
	"github.com/conveyor-engine/conveyor/internal/logging"
	"github.com/conveyor-engine/conveyor/internal/secrets"
	"github.com/conveyor-engine/conveyor/internal/tasks"
)

// passphraseEnv names the environment variable holding the vault
// passphrase. The vault stays closed when it is unset.
const passphraseEnv = "CONVEYOR_VAULT_PASSPHRASE"

func newRunCmd() *cobra.Command {
	var (
		configPath string
		pipeline   string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the active pipeline from the definition file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logging.Setup(verbose, logging.DefaultDir())
			if err != nil {
				return err
			}

			path, err := config.Locate(configPath)
			if err != nil {
				return err
			}
			file, err := config.Load(path)
			if err != nil {
				return err
			}
			if pipeline != "" {
				file.Use = pipeline
			}

			vault, err := openVault(cmd.Context(), defaultVaultPath())
			if err != nil {
				return err
			}
			if vault != nil {
				defer vault.Close()
			}

			registry := tasks.NewRegistry()
			if err := tasks.RegisterBuiltins(registry, tasks.BuiltinsConfig{
				Vault: vault,
			}); err != nil {
				return err
			}

			runner := engine.NewRunner(registry, log)
			result, err := runner.Run(cmd.Context(), file)
			if err != nil {
				log.Error("PIPELINE FAILED", "pipeline", file.Use, "error", err)
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "pipeline definition file (default: search for "+config.DefaultFileName+")")
	cmd.Flags().StringVarP(&pipeline, "pipeline", "p", "", "override the definition's use selector")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

// openVault opens the credential vault at path when a passphrase is
// configured. Pipelines that never touch credentials run fine with a nil
// vault; a configured vault that fails to open aborts the run.
func openVault(ctx context.Context, path string) (secrets.Vault, error) {
	passphrase := os.Getenv(passphraseEnv)
	if passphrase == "" {
		return nil, nil
	}
	return secrets.Open(ctx, path, passphrase)
}
