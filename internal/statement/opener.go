package statement

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	dpdf "github.com/dslipak/pdf"
	lpdf "github.com/ledongthuc/pdf"
	rpdf "rsc.io/pdf"
)

// Opener decrypts a PDF and returns its plain text.
type Opener interface {
	// Name identifies the underlying library in logs and errors.
	Name() string

	// Open decrypts data with password and extracts the text of every page.
	Open(data []byte, password string) (string, error)
}

// ErrNoText is returned when a library opens a document but finds no text.
var ErrNoText = errors.New("no text extracted")

// DefaultOpeners returns the fallback chain in priority order.
func DefaultOpeners() []Opener {
	return []Opener{
		LedongthucOpener{},
		DslipakOpener{},
		RSCOpener{},
	}
}

// passwordOnce returns a password callback that yields password on the
// first call and "" afterwards. The PDF readers keep asking until they
// receive an empty string, so a wrong password fails instead of looping.
func passwordOnce(password string) func() string {
	asked := false
	return func() string {
		if asked {
			return ""
		}
		asked = true
		return password
	}
}

// guard runs fn and converts a panic inside a PDF library into an error.
func guard(name string, fn func() (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn()
}

// LedongthucOpener extracts text with github.com/ledongthuc/pdf.
type LedongthucOpener struct{}

func (LedongthucOpener) Name() string { return "ledongthuc/pdf" }

func (o LedongthucOpener) Open(data []byte, password string) (string, error) {
	return guard(o.Name(), func() (string, error) {
		r, err := lpdf.NewReaderEncrypted(
			bytes.NewReader(data), int64(len(data)), passwordOnce(password),
		)
		if err != nil {
			return "", fmt.Errorf("opening pdf: %w", err)
		}

		plain, err := r.GetPlainText()
		if err != nil {
			return "", fmt.Errorf("reading plain text: %w", err)
		}

		return readText(plain)
	})
}

// DslipakOpener extracts text with github.com/dslipak/pdf.
type DslipakOpener struct{}

func (DslipakOpener) Name() string { return "dslipak/pdf" }

func (o DslipakOpener) Open(data []byte, password string) (string, error) {
	return guard(o.Name(), func() (string, error) {
		r, err := dpdf.NewReaderEncrypted(
			bytes.NewReader(data), int64(len(data)), passwordOnce(password),
		)
		if err != nil {
			return "", fmt.Errorf("opening pdf: %w", err)
		}

		plain, err := r.GetPlainText()
		if err != nil {
			return "", fmt.Errorf("reading plain text: %w", err)
		}

		return readText(plain)
	})
}

// RSCOpener extracts text with rsc.io/pdf, rebuilding lines from the
// positioned glyphs of each page.
type RSCOpener struct{}

func (RSCOpener) Name() string { return "rsc.io/pdf" }

func (o RSCOpener) Open(data []byte, password string) (string, error) {
	return guard(o.Name(), func() (string, error) {
		r, err := rpdf.NewReaderEncrypted(
			bytes.NewReader(data), int64(len(data)), passwordOnce(password),
		)
		if err != nil {
			return "", fmt.Errorf("opening pdf: %w", err)
		}

		var sb strings.Builder
		for i := 1; i <= r.NumPage(); i++ {
			page := r.Page(i)
			if page.V.IsNull() {
				continue
			}
			sb.WriteString(joinGlyphs(page.Content().Text))
			sb.WriteByte('\n')
		}

		text := sb.String()
		if strings.TrimSpace(text) == "" {
			return "", ErrNoText
		}
		return text, nil
	})
}

func readText(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return "", ErrNoText
	}
	return string(b), nil
}

// joinGlyphs orders glyphs top to bottom, left to right, starting a new
// line whenever the baseline moves and inserting a space at visible gaps.
func joinGlyphs(glyphs []rpdf.Text) string {
	if len(glyphs) == 0 {
		return ""
	}

	sorted := make([]rpdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		yi, yj := math.Round(sorted[i].Y), math.Round(sorted[j].Y)
		if yi != yj {
			return yi > yj
		}
		return sorted[i].X < sorted[j].X
	})

	var sb strings.Builder
	prev := sorted[0]
	sb.WriteString(prev.S)
	for _, g := range sorted[1:] {
		switch {
		case math.Round(g.Y) != math.Round(prev.Y):
			sb.WriteByte('\n')
		case g.X-(prev.X+prev.W) > g.FontSize*0.2:
			sb.WriteByte(' ')
		}
		sb.WriteString(g.S)
		prev = g
	}

	return sb.String()
}
