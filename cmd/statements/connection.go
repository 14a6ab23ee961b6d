package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/card-statements/internal/credential"
	"github.com/nhle/card-statements/internal/source/email"
)

func newTestConnectionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Log in to the mail server and select the mailbox",
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds := a.secrets.Mailbox()
			a.logger.Info("credentials",
				"email_address", credential.Presence(creds.Address),
				"email_password", credential.Presence(creds.Password),
			)
			if !creds.Present() {
				return errNoCredentials
			}

			client := email.NewIMAPClient(a.cfg.IMAP, a.logger)
			if err := client.Probe(cmd.Context(), creds); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "connected to %s, mailbox %s\n", client.Addr(), a.cfg.IMAP.Mailbox)
			return nil
		},
	}
}
