package testutil

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Part is one MIME part of a message built by BuildMessage.
type Part struct {
	ContentType string
	Disposition string
	Filename    string
	Body        []byte
}

// PDFAttachment returns an attachment part of type application/pdf.
func PDFAttachment(filename string, body []byte) Part {
	return Part{
		ContentType: "application/pdf",
		Disposition: "attachment",
		Filename:    filename,
		Body:        body,
	}
}

// BuildMessage returns a raw multipart/mixed RFC 822 message with a short
// text body followed by parts, all base64 encoded.
func BuildMessage(from, subject, date string, parts ...Part) []byte {
	const boundary = "statement-boundary-42"

	var sb strings.Builder
	header := func(k, v string) { fmt.Fprintf(&sb, "%s: %s\r\n", k, v) }

	header("From", from)
	header("To", "me@example.com")
	header("Subject", subject)
	header("Date", date)
	header("Message-ID", fmt.Sprintf("<%s@example.com>", strings.ReplaceAll(subject, " ", ".")))
	header("MIME-Version", "1.0")
	header("Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", boundary))
	sb.WriteString("\r\n")

	fmt.Fprintf(&sb, "--%s\r\n", boundary)
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString("Please find your statement attached.\r\n")

	for _, p := range parts {
		fmt.Fprintf(&sb, "--%s\r\n", boundary)
		if p.Filename != "" {
			header("Content-Type", fmt.Sprintf("%s; name=%q", p.ContentType, p.Filename))
		} else {
			header("Content-Type", p.ContentType)
		}
		if p.Disposition != "" {
			if p.Filename != "" {
				header("Content-Disposition", fmt.Sprintf("%s; filename=%q", p.Disposition, p.Filename))
			} else {
				header("Content-Disposition", p.Disposition)
			}
		}
		header("Content-Transfer-Encoding", "base64")
		sb.WriteString("\r\n")

		enc := base64.StdEncoding.EncodeToString(p.Body)
		for len(enc) > 76 {
			sb.WriteString(enc[:76] + "\r\n")
			enc = enc[76:]
		}
		sb.WriteString(enc + "\r\n")
	}

	fmt.Fprintf(&sb, "--%s--\r\n", boundary)
	return []byte(sb.String())
}
