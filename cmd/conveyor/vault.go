package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conveyor-engine/conveyor/internal/secrets"
)

func defaultVaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vault.db"
	}
	return filepath.Join(home, ".conveyor", "vault.db")
}

func newVaultCmd() *cobra.Command {
	var vaultPath string

	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage the encrypted credential vault",
	}
	cmd.PersistentFlags().StringVar(&vaultPath, "vault", defaultVaultPath(), "vault file path")

	openVault := func(ctx context.Context) (secrets.Vault, error) {
		passphrase := os.Getenv(passphraseEnv)
		if passphrase == "" {
			return nil, fmt.Errorf("%s is not set", passphraseEnv)
		}
		return secrets.Open(ctx, vaultPath, passphrase)
	}

	setCmd := &cobra.Command{
		Use:   "set <target> <username>",
		Short: "Store a credential; the password is read from stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vault, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer vault.Close()

			var password string
			if _, err := fmt.Fscanln(cmd.InOrStdin(), &password); err != nil {
				return fmt.Errorf("read password from stdin: %w", err)
			}

			cred := secrets.Credential{Username: args[1], Password: password}
			if err := vault.StoreCredential(cmd.Context(), args[0], cred); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", args[0])
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored credential targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vault, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer vault.Close()

			targets, err := vault.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, target := range targets {
				fmt.Fprintln(cmd.OutOrStdout(), target)
			}
			return nil
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <target>",
		Short: "Delete a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vault, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer vault.Close()

			if err := vault.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(setCmd, listCmd, rmCmd)
	return cmd
}
