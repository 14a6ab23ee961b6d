package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/card-statements/internal/archive"
	"github.com/nhle/card-statements/internal/attachment"
	"github.com/nhle/card-statements/internal/export"
	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/pipeline"
	"github.com/nhle/card-statements/internal/progress"
	"github.com/nhle/card-statements/internal/source/email"
	"github.com/nhle/card-statements/internal/statement"
	"github.com/nhle/card-statements/internal/store"
	"github.com/nhle/card-statements/internal/theme"
	"github.com/nhle/card-statements/internal/validate"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		days int
		tui  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search the mailbox and process every statement found",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			return a.run(cmd, days, tui)
		},
	}

	cmd.Flags().IntVar(&days, "days", 365, "how many days back to search")
	cmd.Flags().BoolVar(&tui, "tui", false, "show a live progress view")

	return cmd
}

func (a *app) run(cmd *cobra.Command, days int, tui bool) error {
	ctx := cmd.Context()

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	opts := pipeline.Options{
		Connector:   email.NewIMAPClient(a.cfg.IMAP, a.logger),
		Secrets:     a.secrets,
		Parser:      statement.NewParser(a.logger),
		Store:       st,
		Criteria:    email.BuildCriteria(a.cfg.SearchCriteria),
		Limits:      validate.LimitsFromConfig(a.cfg.Filters),
		Namer:       attachment.NamerFromConfig(a.cfg.FileNaming),
		DownloadDir: a.cfg.DownloadFolder,
		Logger:      a.logger,
	}

	if a.cfg.Archive.Enabled {
		secret := a.secrets.Lookup(archive.EnvSecretKey, archive.KeyringSecretKey)
		arch, err := archive.New(a.cfg.Archive, secret, a.logger)
		if err != nil {
			return err
		}
		opts.Archiver = arch
	}

	var summary *model.RunSummary
	if tui {
		summary, err = runWithProgress(ctx, opts, days)
	} else {
		summary, err = pipeline.NewRunner(opts).Run(ctx, days)
	}
	if summary != nil {
		fmt.Fprintln(cmd.OutOrStdout(), theme.RenderSummary(summary))
	}
	if err != nil {
		return err
	}

	return a.writeExtracts(ctx, st)
}

// runWithProgress drives the run behind the progress view. Cancelling ctx
// cancels the run, and the view quits once the run has persisted its
// results.
func runWithProgress(
	ctx context.Context,
	opts pipeline.Options,
	days int,
	programOpts ...tea.ProgramOption,
) (*model.RunSummary, error) {
	m := progress.New(ctx, func(ctx context.Context, report func(pipeline.Event)) (*model.RunSummary, error) {
		opts.Progress = report
		return pipeline.NewRunner(opts).Run(ctx, days)
	})

	_, viewErr := tea.NewProgram(m, programOpts...).Run()
	res := m.Finish()
	if viewErr != nil {
		opts.Logger.Warn("progress view stopped", "err", viewErr)
		if res.Err == nil || errors.Is(res.Err, progress.ErrNotStarted) {
			res.Err = fmt.Errorf("running progress view: %w", viewErr)
		}
	}
	return res.Summary, res.Err
}

// writeExtracts refreshes the configured CSV and XLSX files from the
// full fact table.
func (a *app) writeExtracts(ctx context.Context, st store.Store) error {
	if a.cfg.Export.CSVPath == "" && a.cfg.Export.XLSXPath == "" {
		return nil
	}

	records, err := st.GetStatements(ctx, store.StatementFilter{})
	if err != nil {
		return err
	}

	if p := a.cfg.Export.CSVPath; p != "" {
		if err := export.WriteCSV(p, records); err != nil {
			return err
		}
		a.logger.Info("csv extract written", "path", p, "rows", len(records))
	}
	if p := a.cfg.Export.XLSXPath; p != "" {
		if err := export.WriteXLSX(p, records); err != nil {
			return err
		}
		a.logger.Info("xlsx extract written", "path", p, "rows", len(records))
	}

	return nil
}
