package main

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/card-statements/internal/attachment"
	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/pipeline"
	"github.com/nhle/card-statements/internal/source"
	"github.com/nhle/card-statements/internal/statement"
	"github.com/nhle/card-statements/internal/store"
	"github.com/nhle/card-statements/internal/testutil"
	"github.com/nhle/card-statements/internal/validate"
)

// interruptingMailbox cancels the run once the first message is fetched.
type interruptingMailbox struct {
	messages map[uint32][]byte
	cancel   context.CancelFunc
	closed   int
}

func (m *interruptingMailbox) Search(_ context.Context, _ []source.Criterion, _ time.Time) ([]uint32, []error) {
	var uids []uint32
	for uid := range m.messages {
		uids = append(uids, uid)
	}
	return source.MergeUIDs(uids), nil
}

func (m *interruptingMailbox) Fetch(_ context.Context, uid uint32) ([]byte, error) {
	m.cancel()
	return m.messages[uid], nil
}

func (m *interruptingMailbox) Close() error {
	m.closed++
	return nil
}

type staticConnector struct{ mb source.Mailbox }

func (c staticConnector) Connect(_ context.Context, _ source.Credentials) (source.Mailbox, error) {
	return c.mb, nil
}

type staticSecrets struct{}

func (staticSecrets) Mailbox() source.Credentials {
	return source.Credentials{Address: "me@example.com", Password: "app-password"}
}

func (staticSecrets) PDFPassword(model.Bank) string { return "" }

func TestRunWithProgress_InterruptKeepsRecords(t *testing.T) {
	pdf := testutil.BuildPDF([]string{
		"Statement Date:15/03/2024",
		"Payment Due Date:04/04/2024",
		"Total Dues Rs. 12,345.67",
	}, 2048)
	const date = "Wed, 20 Mar 2024 08:00:00 +0530"

	tests := []struct {
		name string
		// killOnCancel makes the view exit as soon as ctx is cancelled,
		// before the run has returned.
		killOnCancel bool
	}{
		{name: "view quits after run"},
		{name: "view killed by cancel", killOnCancel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			mb := &interruptingMailbox{
				messages: map[uint32][]byte{
					1: testutil.BuildMessage("alerts@hdfcbank.net", "statement", date,
						testutil.PDFAttachment("a.pdf", pdf)),
					2: testutil.BuildMessage("alerts@hdfcbank.net", "statement 2", date,
						testutil.PDFAttachment("b.pdf", pdf)),
				},
				cancel: cancel,
			}
			st := testutil.NewTestStore(t)
			logger := testutil.DiscardLogger()

			opts := pipeline.Options{
				Connector:   staticConnector{mb: mb},
				Secrets:     staticSecrets{},
				Parser:      statement.NewParser(logger),
				Store:       st,
				Limits:      validate.DefaultLimits(),
				Namer:       attachment.DefaultNamer(),
				DownloadDir: t.TempDir(),
				Logger:      logger,
			}

			programOpts := []tea.ProgramOption{
				tea.WithInput(nil),
				tea.WithOutput(io.Discard),
				tea.WithoutSignalHandler(),
			}
			if tt.killOnCancel {
				programOpts = append(programOpts, tea.WithContext(ctx))
			}

			summary, err := runWithProgress(ctx, opts, 30, programOpts...)
			assert.ErrorIs(t, err, context.Canceled)
			require.NotNil(t, summary)
			assert.Equal(t, 1, summary.RecordsExtracted)
			assert.Equal(t, 1, mb.closed)

			recs, err := st.GetStatements(context.Background(), store.StatementFilter{})
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, "15/03/2024", recs[0].Date)
		})
	}
}
