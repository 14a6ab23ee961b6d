// Package statement turns downloaded statement PDFs into extracted records.
// Documents are opened with a chain of PDF libraries, and the first library
// that yields text wins. Field extraction is selected by bank layout.
package statement

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nhle/card-statements/internal/model"
)

// Attempt records why one library failed to open a document.
type Attempt struct {
	Library string
	Err     error
}

// Reason returns the failure with any encryption material removed.
func (a Attempt) Reason() string { return failureReason(a.Err) }

// ParseError reports a document that could not be turned into a record.
type ParseError struct {
	FileName string

	// Attempts lists every library failure, decryption first, when no
	// library could open the document. It is empty when the failure
	// happened during extraction.
	Attempts []Attempt

	Err error
}

func (e *ParseError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("parse error (%s): %s", e.FileName, failureReason(e.Err))
	}
	reasons := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		reasons[i] = a.Library + ": " + a.Reason()
	}
	return fmt.Sprintf("parse error (%s): %v [%s]", e.FileName, e.Err, strings.Join(reasons, "; "))
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err (or any error in its chain) is a ParseError.
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}

var (
	// ErrUnreadable is wrapped by ParseError when every library failed.
	ErrUnreadable = errors.New("no library could open the document")

	// ErrNoLayout is wrapped by ParseError for banks without a layout.
	ErrNoLayout = errors.New("no statement layout for bank")
)

// Parser extracts records from statement documents.
type Parser struct {
	decrypter Decrypter
	openers   []Opener
	logger    *log.Logger
	now       func() time.Time
}

// NewParser creates a parser that decrypts documents with pdfcpu and then
// tries openers in order. With no openers the default chain is used.
func NewParser(logger *log.Logger, openers ...Opener) *Parser {
	if len(openers) == 0 {
		openers = DefaultOpeners()
	}
	return &Parser{
		decrypter: PDFCPUDecrypter{},
		openers:   openers,
		logger:    logger.WithPrefix("parser"),
		now:       time.Now,
	}
}

// ExtractText decrypts data, then reads it with each opener in turn and
// returns the text from the first one that succeeds. When decryption
// fails the openers get the original bytes and the password.
func (p *Parser) ExtractText(fileName string, data []byte, password string) (string, error) {
	var attempts []Attempt

	if p.decrypter != nil {
		plain, err := p.decrypter.Decrypt(data, password)
		switch {
		case err == nil:
			p.logger.Debug("decrypted document", "file", fileName, "library", p.decrypter.Name())
			data, password = plain, ""
		case errors.Is(err, ErrNotEncrypted):
		default:
			p.logger.Debug("decryption failed", "file", fileName,
				"library", p.decrypter.Name(), "reason", failureReason(err))
			attempts = append(attempts, Attempt{Library: p.decrypter.Name(), Err: err})
		}
	}

	for _, o := range p.openers {
		text, err := o.Open(data, password)
		if err == nil {
			p.logger.Debug("opened document", "file", fileName, "library", o.Name())
			return text, nil
		}
		p.logger.Debug("library failed", "file", fileName, "library", o.Name(), "reason", failureReason(err))
		attempts = append(attempts, Attempt{Library: o.Name(), Err: err})
	}

	return "", &ParseError{FileName: fileName, Attempts: attempts, Err: ErrUnreadable}
}

// Parse opens doc and extracts its statement date, due date and total
// amount using the layout of doc.Bank.
func (p *Parser) Parse(doc model.StatementDocument) (model.ExtractedRecord, error) {
	layout, ok := LayoutFor(doc.Bank)
	if !ok {
		return model.ExtractedRecord{}, &ParseError{
			FileName: doc.FileName,
			Err:      fmt.Errorf("%w %s", ErrNoLayout, doc.Bank),
		}
	}

	text, err := p.ExtractText(doc.FileName, doc.Data, doc.Password)
	if err != nil {
		return model.ExtractedRecord{}, err
	}

	fields, err := layout.Extract(text)
	if err != nil {
		return model.ExtractedRecord{}, &ParseError{FileName: doc.FileName, Err: err}
	}

	return model.ExtractedRecord{
		ID:            uuid.New().String(),
		Date:          fields.Date,
		Month:         fields.StatementDate.Month().String(),
		Year:          fields.StatementDate.Year(),
		Bank:          doc.Bank,
		Amount:        fields.Amount,
		DueDate:       fields.DueDate,
		FileName:      doc.FileName,
		ProcessedTime: p.now().UTC(),
	}, nil
}
