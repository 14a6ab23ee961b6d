// Package pipeline runs one statement collection pass: search the mailbox,
// save PDF attachments, parse and validate them, then persist the accepted
// records and the run summary. Messages and attachments are processed one
// at a time; a failing item is logged and skipped.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nhle/card-statements/internal/attachment"
	"github.com/nhle/card-statements/internal/credential"
	"github.com/nhle/card-statements/internal/export"
	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/source"
	"github.com/nhle/card-statements/internal/statement"
	"github.com/nhle/card-statements/internal/store"
	"github.com/nhle/card-statements/internal/validate"
)

// progressEvery is how many messages pass between progress log lines.
const progressEvery = 10

// Secrets supplies the mailbox login and per-bank PDF passwords.
type Secrets interface {
	Mailbox() source.Credentials
	PDFPassword(bank model.Bank) string
}

// StatementParser turns a saved document into a record.
type StatementParser interface {
	Parse(doc model.StatementDocument) (model.ExtractedRecord, error)
}

// Archiver copies saved files to long-term storage.
type Archiver interface {
	Upload(ctx context.Context, files []model.DownloadedFile) (int, error)
}

// Options configures a Runner. Store and Archiver are optional.
type Options struct {
	Connector   source.Connector
	Secrets     Secrets
	Parser      StatementParser
	Store       store.Store
	Archiver    Archiver
	Criteria    []source.Criterion
	Limits      validate.Limits
	Namer       attachment.Namer
	DownloadDir string
	Logger      *log.Logger

	// Progress, when set, receives an event after every processed message
	// and saved file.
	Progress func(Event)
}

// Runner executes collection passes.
type Runner struct {
	opts   Options
	logger *log.Logger
	now    func() time.Time
}

// NewRunner creates a Runner from opts.
func NewRunner(opts Options) *Runner {
	return &Runner{
		opts:   opts,
		logger: opts.Logger.WithPrefix("run"),
		now:    time.Now,
	}
}

// Run searches the trailing daysBack days and processes every match. Missing
// credentials or an empty search result yield an empty summary and no
// error. Rejected credentials abort the run with a *source.AuthError. The
// mailbox session is closed on every exit path.
func (r *Runner) Run(ctx context.Context, daysBack int) (*model.RunSummary, error) {
	start := r.now()
	summary := model.NewRunSummary(uuid.New().String(), daysBack, start)
	logger := r.logger.With("run_id", summary.RunID)

	creds := r.opts.Secrets.Mailbox()
	logger.Info("credentials",
		"email_address", credential.Presence(creds.Address),
		"email_password", credential.Presence(creds.Password),
	)
	if !creds.Present() {
		logger.Warn("email credentials not configured, nothing to do")
		return summary, nil
	}

	if r.opts.Store != nil {
		if err := r.opts.Store.CreateRun(ctx, summary); err != nil {
			return summary, fmt.Errorf("recording run: %w", err)
		}
	}

	mb, err := r.opts.Connector.Connect(ctx, creds)
	if err != nil {
		if source.IsAuthError(err) {
			logger.Error("authentication failed, aborting run", "err", err)
		} else {
			logger.Error("connection failed, aborting run", "err", err)
		}
		r.finishRun(ctx, logger, summary)
		return summary, err
	}
	defer func() {
		if err := mb.Close(); err != nil {
			logger.Warn("closing mailbox", "err", err)
		}
	}()

	since := start.AddDate(0, 0, -daysBack)
	uids, searchErrs := mb.Search(ctx, r.opts.Criteria, since)
	for _, serr := range searchErrs {
		logger.Warn("search criterion skipped", "err", serr)
		summary.AddSkip("search", "", serr.Error())
	}

	summary.TotalEmailsFound = len(uids)
	logger.Info("search complete",
		"criteria", len(r.opts.Criteria),
		"days", daysBack,
		"messages", len(uids),
	)
	r.emit(Event{Kind: EventSearch, Total: len(uids)})

	var runErr error
	for i, uid := range uids {
		if err := ctx.Err(); err != nil {
			runErr = err
			logger.Warn("run cancelled", "processed", i, "total", len(uids))
			break
		}

		r.processMessage(ctx, mb, logger, summary, uid)

		done := i + 1
		if done%progressEvery == 0 || done == len(uids) {
			logger.Info("progress",
				"processed", done,
				"total", len(uids),
				"pdfs", summary.TotalPDFsDownloaded,
			)
		}
		r.emit(Event{Kind: EventMessage, Done: done, Total: len(uids)})
	}

	// Whatever was collected before a cancellation is still recorded.
	finalCtx := context.WithoutCancel(ctx)
	if err := r.persist(finalCtx, logger, summary); err != nil && runErr == nil {
		runErr = err
	}

	r.finishRun(finalCtx, logger, summary)

	return summary, runErr
}

// processMessage fetches one message and handles each PDF attachment.
func (r *Runner) processMessage(
	ctx context.Context,
	mb source.Mailbox,
	logger *log.Logger,
	summary *model.RunSummary,
	uid uint32,
) {
	item := fmt.Sprintf("uid %d", uid)

	raw, err := mb.Fetch(ctx, uid)
	if err != nil {
		summary.FetchFailures++
		summary.AddSkip("fetch", item, err.Error())
		logger.Warn("fetch failed, skipping message", "uid", uid, "err", err)
		return
	}

	msg, err := attachment.Extract(raw)
	if err != nil {
		if msg == nil {
			summary.AddSkip("extract", item, err.Error())
			logger.Warn("unreadable message, skipping", "uid", uid, "err", err)
			return
		}
		logger.Warn("message partially read", "uid", uid, "err", err)
	}

	if len(msg.Attachments) == 0 {
		logger.Debug("no pdf attachments", "uid", uid, "subject", msg.Subject)
		return
	}

	bank := attachment.IdentifyBank(msg.Sender)
	for _, att := range msg.Attachments {
		r.processAttachment(logger, summary, msg, bank, att)
	}
}

// processAttachment saves one attachment, then parses and validates it.
func (r *Runner) processAttachment(
	logger *log.Logger,
	summary *model.RunSummary,
	msg *attachment.Message,
	bank model.Bank,
	att attachment.Attachment,
) {
	savedAt := r.now()
	path, err := r.opts.Namer.Save(r.opts.DownloadDir, bank, att.Filename, att.Data, savedAt)
	if err != nil {
		summary.AddSkip("save", att.Filename, err.Error())
		logger.Warn("saving attachment failed", "file", att.Filename, "err", err)
		return
	}

	file := model.DownloadedFile{
		Filename:          filepath.Base(path),
		Path:              path,
		Bank:              bank,
		Subject:           msg.Subject,
		Sender:            msg.Sender,
		Size:              int64(len(att.Data)),
		DownloadTimestamp: savedAt,
	}
	if !msg.Date.IsZero() {
		file.Date = msg.Date.Format(time.RFC1123Z)
	}
	summary.AddDownload(file)
	logger.Info("saved statement", "file", file.Filename, "bank", bank, "size", file.Size)
	r.emit(Event{Kind: EventFile, File: file.Filename, Bank: bank})

	password := r.opts.Secrets.PDFPassword(bank)
	logger.Debug("pdf password", "bank", bank, "pdf_password", credential.Presence(password))

	rec, err := r.opts.Parser.Parse(model.StatementDocument{
		Data:     att.Data,
		Bank:     bank,
		Password: password,
		FileName: file.Filename,
		Path:     path,
		Size:     file.Size,
	})
	if err != nil {
		summary.ParseFailures++
		summary.AddSkip("parse", file.Filename, err.Error())
		if statement.IsParseError(err) {
			logger.Warn("parse failed, excluding document", "file", file.Filename, "err", err)
		} else {
			logger.Error("parse failed", "file", file.Filename, "err", err)
		}
		return
	}

	outcome := r.opts.Limits.Validate(file.Size, rec.Amount)
	if !outcome.Accepted {
		summary.RecordsRejected++
		reason := outcome.Err().Error()
		summary.AddSkip("validate", file.Filename, reason)
		logger.Warn("record rejected",
			"file", file.Filename,
			"size", file.Size,
			"amount", rec.Amount.String(),
			"reason", reason,
		)
		return
	}

	rec.RunID = summary.RunID
	summary.Records = append(summary.Records, rec)
	summary.RecordsExtracted++
	logger.Info("record accepted",
		"file", file.Filename,
		"date", rec.Date,
		"amount", rec.Amount.String(),
	)
}

// persist stores the accepted records and downloads, then archives the
// saved files. Archive failures are logged only.
func (r *Runner) persist(ctx context.Context, logger *log.Logger, summary *model.RunSummary) error {
	if r.opts.Store != nil {
		if err := r.opts.Store.InsertStatements(ctx, summary.Records); err != nil {
			logger.Error("storing records failed", "err", err)
			return fmt.Errorf("storing records: %w", err)
		}
		if err := r.opts.Store.RecordDownloads(ctx, summary.RunID, summary.PDFFiles); err != nil {
			logger.Error("storing downloads failed", "err", err)
			return fmt.Errorf("storing downloads: %w", err)
		}
	}

	if r.opts.Archiver != nil && len(summary.PDFFiles) > 0 {
		if _, err := r.opts.Archiver.Upload(ctx, summary.PDFFiles); err != nil {
			logger.Warn("archiving failed", "err", err)
		}
	}

	return nil
}

// finishRun stamps the summary, records the final counts and writes
// download_summary.json.
func (r *Runner) finishRun(ctx context.Context, logger *log.Logger, summary *model.RunSummary) {
	summary.FinishedAt = r.now()

	if r.opts.Store != nil {
		if err := r.opts.Store.FinishRun(ctx, summary); err != nil {
			logger.Warn("recording run result failed", "err", err)
		}
	}

	path, err := export.WriteSummary(r.opts.DownloadDir, summary)
	if err != nil {
		logger.Error("writing summary failed", "err", err)
	} else {
		logger.Info("summary written", "path", path)
	}

	logger.Info("run finished",
		"emails_found", summary.TotalEmailsFound,
		"pdfs_downloaded", summary.TotalPDFsDownloaded,
		"records_extracted", summary.RecordsExtracted,
		"records_rejected", summary.RecordsRejected,
		"parse_failures", summary.ParseFailures,
		"fetch_failures", summary.FetchFailures,
	)
	r.emit(Event{Kind: EventDone})
}

func (r *Runner) emit(e Event) {
	if r.opts.Progress != nil {
		r.opts.Progress(e)
	}
}
