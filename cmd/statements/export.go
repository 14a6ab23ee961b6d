package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/card-statements/internal/export"
	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/store"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		out    string
		bank   string
		year   int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored statements to CSV or XLSX",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := store.StatementFilter{}
			if bank != "" {
				b := model.Bank(strings.ToUpper(bank))
				filter.Bank = &b
			}
			if year > 0 {
				filter.Year = &year
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.GetStatements(cmd.Context(), filter)
			if err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "csv":
				if out == "" {
					out = "statements.csv"
				}
				err = export.WriteCSV(out, records)
			case "xlsx":
				if out == "" {
					out = "statements.xlsx"
				}
				err = export.WriteXLSX(out, records)
			default:
				return fmt.Errorf("unknown format %q, expected csv or xlsx", format)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d statements to %s\n", len(records), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	cmd.Flags().StringVar(&bank, "bank", "", "only this bank")
	cmd.Flags().IntVar(&year, "year", 0, "only this statement year")

	return cmd
}
