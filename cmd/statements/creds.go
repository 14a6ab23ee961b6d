package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/card-statements/internal/archive"
	"github.com/nhle/card-statements/internal/credential"
	"github.com/nhle/card-statements/internal/model"
)

// secretNames pairs every keyring key with the environment variable that
// takes precedence over it.
func secretNames() [][2]string {
	names := [][2]string{
		{credential.KeyEmailAddress, credential.EnvEmailAddress},
		{credential.KeyEmailPassword, credential.EnvEmailPassword},
	}
	for _, b := range []model.Bank{model.BankHDFC, model.BankIDFC} {
		names = append(names, [2]string{credential.PDFPasswordKey(b), credential.PDFPasswordEnv(b)})
	}
	return append(names, [2]string{archive.KeyringSecretKey, archive.EnvSecretKey})
}

func knownSecret(name string) bool {
	return slices.ContainsFunc(secretNames(), func(n [2]string) bool { return n[0] == name })
}

func newCredsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Manage secrets kept in the system keyring",
	}

	keys := make([]string, 0, len(secretNames()))
	for _, n := range secretNames() {
		keys = append(keys, n[0])
	}
	validNames := strings.Join(keys, ", ")

	cmd.AddCommand(
		&cobra.Command{
			Use:       "set <name>",
			Short:     "Prompt for a secret and store it (" + validNames + ")",
			Args:      cobra.ExactArgs(1),
			ValidArgs: keys,
			RunE: func(_ *cobra.Command, args []string) error {
				name := args[0]
				if !knownSecret(name) {
					return fmt.Errorf("unknown secret %q, expected one of %s", name, validNames)
				}

				var value string
				input := huh.NewInput().
					Title(name).
					Value(&value).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return errors.New("value cannot be empty")
						}
						return nil
					})
				if name != credential.KeyEmailAddress {
					input = input.EchoMode(huh.EchoModePassword)
				}
				if err := input.Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return nil
					}
					return err
				}

				if err := a.vault.Set(name, strings.TrimSpace(value)); err != nil {
					return err
				}
				a.logger.Info("secret stored", "name", name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Remove a secret from the keyring",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if !knownSecret(args[0]) {
					return fmt.Errorf("unknown secret %q, expected one of %s", args[0], validNames)
				}
				if err := a.vault.Delete(args[0]); err != nil {
					if errors.Is(err, credential.ErrNotFound) {
						fmt.Fprintf(cmd.OutOrStdout(), "%s is not stored\n", args[0])
						return nil
					}
					return err
				}
				a.logger.Info("secret removed", "name", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show which secrets are available",
			RunE: func(cmd *cobra.Command, _ []string) error {
				for _, n := range secretNames() {
					fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", n[0], a.secrets.Origin(n[1], n[0]))
				}
				return nil
			},
		},
	)

	return cmd
}
