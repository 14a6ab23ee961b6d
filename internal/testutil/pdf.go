package testutil

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/require"
)

// BuildPDF returns an unencrypted single-page PDF that shows lines in
// Helvetica, one per text line. The file is padded with an unreferenced
// object until it is at least minSize bytes long.
func BuildPDF(lines []string, minSize int) []byte {
	var content strings.Builder
	content.WriteString("BT\n/F1 11 Tf\n14 TL\n72 760 Td\n")
	for i, l := range lines {
		if i > 0 {
			content.WriteString("T*\n")
		}
		fmt.Fprintf(&content, "(%s) Tj\n", escapePDFString(l))
	}
	content.WriteString("ET\n")
	stream := content.String()

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	out := assemblePDF(objects)
	if len(out) < minSize {
		filler := fmt.Sprintf("(%s)", strings.Repeat("x", minSize-len(out)))
		out = assemblePDF(append(objects, filler))
	}
	return out
}

func assemblePDF(objects []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xref)

	return buf.Bytes()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// Cipher selects the encryption applied by EncryptPDF.
type Cipher struct {
	AES       bool
	KeyLength int
}

var (
	RC4Bits40  = Cipher{KeyLength: 40}
	RC4Bits128 = Cipher{KeyLength: 128}
	AESBits128 = Cipher{AES: true, KeyLength: 128}
	AESBits256 = Cipher{AES: true, KeyLength: 256}
)

func (c Cipher) String() string {
	if c.AES {
		return fmt.Sprintf("aes-%d", c.KeyLength)
	}
	return fmt.Sprintf("rc4-%d", c.KeyLength)
}

// EncryptPDF protects data with userPW using pdfcpu.
func EncryptPDF(t *testing.T, data []byte, userPW string, c Cipher) []byte {
	t.Helper()
	api.DisableConfigDir()

	var conf *pdfmodel.Configuration
	if c.AES {
		conf = pdfmodel.NewAESConfiguration(userPW, "owner-"+userPW, c.KeyLength)
	} else {
		conf = pdfmodel.NewRC4Configuration(userPW, "owner-"+userPW, c.KeyLength)
	}

	var out bytes.Buffer
	require.NoError(t, api.Encrypt(bytes.NewReader(data), &out, conf))
	return out.Bytes()
}
