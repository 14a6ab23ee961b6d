package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/card-statements/internal/model"
)

func newInitConfigCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(a.configPath); err == nil && !force {
				overwrite := false
				err := huh.NewConfirm().
					Title(fmt.Sprintf("%s exists. Overwrite it with defaults?", a.configPath)).
					Value(&overwrite).
					Run()
				if err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return nil
					}
					return err
				}
				if !overwrite {
					return nil
				}
			}

			if err := model.SaveConfig(a.configPath, model.DefaultConfig()); err != nil {
				return err
			}

			a.logger.Info("config written", "path", a.configPath)
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", a.configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file without asking")

	return cmd
}
