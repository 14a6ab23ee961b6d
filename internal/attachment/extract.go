// Package attachment pulls PDF statements out of raw email messages and
// stores them on disk under collision-resistant names.
package attachment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Attachment is one PDF part of a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message holds the headers used for bank identification and the PDF
// attachments of one email.
type Message struct {
	Subject     string
	Sender      string
	Date        time.Time
	Attachments []Attachment
}

// Extract parses a raw RFC 822 message and returns its PDF attachments.
// A part qualifies when its Content-Disposition contains "attachment" and
// its content type is application/pdf or its filename ends in ".pdf".
func Extract(raw []byte) (*Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("reading message: %w", err)
	}
	defer mr.Close()

	msg := &Message{}
	msg.Subject, _ = mr.Header.Subject()
	msg.Date, _ = mr.Header.Date()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.Sender = from[0].Address
	} else {
		msg.Sender = mr.Header.Get("From")
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return msg, fmt.Errorf("reading message part: %w", err)
		}

		disposition := strings.ToLower(part.Header.Get("Content-Disposition"))
		if !strings.Contains(disposition, "attachment") {
			continue
		}

		var filename, contentType string
		switch h := part.Header.(type) {
		case *mail.AttachmentHeader:
			filename, _ = h.Filename()
			contentType, _, _ = h.ContentType()
		case *mail.InlineHeader:
			contentType, _, _ = h.ContentType()
		}

		if !isPDF(contentType, filename) {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return msg, fmt.Errorf("reading attachment %q: %w", filename, err)
		}

		if filename == "" {
			filename = fmt.Sprintf("attachment_%d.pdf", len(msg.Attachments)+1)
		}

		msg.Attachments = append(msg.Attachments, Attachment{
			Filename:    filename,
			ContentType: contentType,
			Data:        body,
		})
	}

	return msg, nil
}

func isPDF(contentType, filename string) bool {
	return strings.EqualFold(contentType, "application/pdf") ||
		strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
