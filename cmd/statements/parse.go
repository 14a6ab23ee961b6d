package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/card-statements/internal/attachment"
	"github.com/nhle/card-statements/internal/credential"
	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/statement"
	"github.com/nhle/card-statements/internal/theme"
	"github.com/nhle/card-statements/internal/validate"
)

func newParseCmd(a *app) *cobra.Command {
	var bank string

	cmd := &cobra.Command{
		Use:   "parse <file.pdf>",
		Short: "Extract the fields of one saved statement without storing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			b := model.Bank(strings.ToUpper(bank))
			if bank == "" {
				b = attachment.IdentifyBank(filepath.Base(path))
			}

			password := a.secrets.PDFPassword(b)
			a.logger.Debug("pdf password", "bank", b, "pdf_password", credential.Presence(password))

			rec, err := statement.NewParser(a.logger).Parse(model.StatementDocument{
				Data:     data,
				Bank:     b,
				Password: password,
				FileName: filepath.Base(path),
				Path:     path,
				Size:     int64(len(data)),
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "bank:      %s\n", rec.Bank)
			fmt.Fprintf(w, "date:      %s (%s %d)\n", rec.Date, rec.Month, rec.Year)
			fmt.Fprintf(w, "due date:  %s\n", rec.DueDate)
			fmt.Fprintf(w, "amount:    %s\n", theme.FormatAmount(rec.Amount))

			outcome := validate.LimitsFromConfig(a.cfg.Filters).Validate(int64(len(data)), rec.Amount)
			if outcome.Accepted {
				fmt.Fprintln(w, "validation: accepted")
			} else {
				fmt.Fprintf(w, "validation: %v\n", outcome.Err())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bank, "bank", "", "bank tag (HDFC or IDFC); guessed from the file name when empty")

	return cmd
}
