package statement

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Decrypter removes the encryption of a PDF so the text openers can read
// it without a password.
type Decrypter interface {
	Name() string

	// Decrypt returns the plaintext document. It returns ErrNotEncrypted
	// when data carries no encryption dictionary.
	Decrypt(data []byte, password string) ([]byte, error)
}

var (
	// ErrNotEncrypted is returned by a Decrypter for plain documents.
	ErrNotEncrypted = errors.New("document is not encrypted")

	// ErrWrongPassword is returned by a Decrypter when the password does
	// not open the document.
	ErrWrongPassword = errors.New("wrong password")
)

var disableConfigDir sync.Once

// PDFCPUDecrypter decrypts with github.com/pdfcpu/pdfcpu, which handles
// RC4 and AES up to 256-bit keys.
type PDFCPUDecrypter struct{}

func (PDFCPUDecrypter) Name() string { return "pdfcpu" }

func (PDFCPUDecrypter) Decrypt(data []byte, password string) (plain []byte, err error) {
	disableConfigDir.Do(api.DisableConfigDir)

	defer func() {
		if r := recover(); r != nil {
			plain = nil
			err = fmt.Errorf("pdfcpu panicked: %v", r)
		}
	}()

	conf := pdfmodel.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password

	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &out, conf); err != nil {
		switch {
		case errors.Is(err, pdfcpu.ErrNotEncrypted):
			return nil, ErrNotEncrypted
		case errors.Is(err, pdfcpu.ErrWrongPassword):
			return nil, ErrWrongPassword
		}
		return nil, fmt.Errorf("decrypting pdf: %w", err)
	}
	return out.Bytes(), nil
}

// maxReasonLen caps the length of a failure reason.
const maxReasonLen = 120

// failureReason renders err for logs and summaries. PDF libraries quote
// the encryption dictionary in their errors, and its /O and /U entries
// are password verifiers, so everything from the first dictionary or
// verifier marker onwards is dropped along with unprintable bytes.
func failureReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrWrongPassword) {
		return ErrWrongPassword.Error()
	}

	msg := err.Error()
	for _, marker := range []string{"<<", "/O", "/U", "/Encrypt"} {
		if i := strings.Index(msg, marker); i >= 0 {
			msg = msg[:i]
		}
	}

	msg = strings.Map(func(r rune) rune {
		if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, msg)
	msg = strings.TrimRight(strings.TrimSpace(msg), ":")

	if r := []rune(msg); len(r) > maxReasonLen {
		msg = string(r[:maxReasonLen])
	}
	if msg == "" {
		return "unreadable document"
	}
	return msg
}
