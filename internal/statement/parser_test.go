package statement

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/testutil"
)

type fakeOpener struct {
	name  string
	text  string
	err   error
	panic bool
	calls int
}

func (f *fakeOpener) Name() string { return f.name }

func (f *fakeOpener) Open(_ []byte, _ string) (string, error) {
	f.calls++
	if f.panic {
		return guard(f.name, func() (string, error) { panic("corrupt xref") })
	}
	return f.text, f.err
}

const hdfcText = `HDFC Bank Credit Card Statement
Statement Date:15/03/2024
Payment Due Date:04/04/2024
Total Dues Rs. 12,345.67
Minimum Amount Due 620.00`

const idfcText = `IDFC FIRST Bank
Statement Date 15 Mar 2024
Payment Due Date 04-Apr-2024
Total Amount Due ₹ 8,910.00`

// newTestParser builds a parser over openers. Fake openers get no
// decryption stage.
func newTestParser(openers ...Opener) *Parser {
	p := NewParser(testutil.DiscardLogger(), openers...)
	if len(openers) > 0 {
		p.decrypter = nil
	}
	p.now = func() time.Time { return time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC) }
	return p
}

func TestParser_FirstSuccessfulOpenerWins(t *testing.T) {
	first := &fakeOpener{name: "a", err: errors.New("bad xref")}
	second := &fakeOpener{name: "b", text: hdfcText}
	third := &fakeOpener{name: "c", text: "unused"}

	p := newTestParser(first, second, third)
	rec, err := p.Parse(model.StatementDocument{Bank: model.BankHDFC, FileName: "s.pdf"})
	require.NoError(t, err)

	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls)

	assert.Equal(t, "15/03/2024", rec.Date)
	assert.Equal(t, "March", rec.Month)
	assert.Equal(t, 2024, rec.Year)
	assert.Equal(t, "04/04/2024", rec.DueDate)
	assert.True(t, rec.Amount.Equal(decimal.RequireFromString("12345.67")), rec.Amount.String())
	assert.Equal(t, model.BankHDFC, rec.Bank)
	assert.Equal(t, "s.pdf", rec.FileName)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC), rec.ProcessedTime)
}

func TestParser_AllOpenersFail(t *testing.T) {
	p := newTestParser(
		&fakeOpener{name: "a", err: errors.New("wrong password")},
		&fakeOpener{name: "b", panic: true},
		&fakeOpener{name: "c", err: ErrNoText},
	)

	_, err := p.Parse(model.StatementDocument{Bank: model.BankIDFC, FileName: "locked.pdf"})
	require.Error(t, err)
	assert.True(t, IsParseError(err))
	assert.ErrorIs(t, err, ErrUnreadable)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Len(t, parseErr.Attempts, 3)
	assert.Equal(t, "a", parseErr.Attempts[0].Library)
	assert.Contains(t, parseErr.Attempts[1].Err.Error(), "panicked")
	assert.ErrorIs(t, parseErr.Attempts[2].Err, ErrNoText)
	assert.Contains(t, err.Error(), "locked.pdf")
}

func TestParser_IDFCLayout(t *testing.T) {
	p := newTestParser(&fakeOpener{name: "a", text: idfcText})

	rec, err := p.Parse(model.StatementDocument{Bank: model.BankIDFC, FileName: "i.pdf"})
	require.NoError(t, err)

	assert.Equal(t, "15/03/2024", rec.Date)
	assert.Equal(t, "04/04/2024", rec.DueDate)
	assert.True(t, rec.Amount.Equal(decimal.NewFromInt(8910)))
}

func TestParser_UnsupportedBank(t *testing.T) {
	opener := &fakeOpener{name: "a", text: hdfcText}
	p := newTestParser(opener)

	_, err := p.Parse(model.StatementDocument{Bank: model.BankAxis, FileName: "a.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoLayout)
	assert.Equal(t, 0, opener.calls)
}

func TestParser_MissingAndAmbiguousAmount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{
			name: "missing",
			text: "Statement Date:15/03/2024\nPayment Due Date:04/04/2024",
			want: ErrAmountMissing,
		},
		{
			name: "ambiguous",
			text: "Statement Date:15/03/2024\nTotal Dues 1,000.00\nTotal Dues 2,000.00",
			want: ErrAmountAmbiguous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser(&fakeOpener{name: "a", text: tt.text})
			_, err := p.Parse(model.StatementDocument{Bank: model.BankHDFC, FileName: "x.pdf"})
			assert.True(t, IsParseError(err))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParser_RepeatedIdenticalTotalIsNotAmbiguous(t *testing.T) {
	text := hdfcText + "\nTotal Dues 12345.67"
	p := newTestParser(&fakeOpener{name: "a", text: text})

	rec, err := p.Parse(model.StatementDocument{Bank: model.BankHDFC, FileName: "x.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "12345.67", rec.Amount.StringFixed(2))
}

func TestParser_MissingStatementDate(t *testing.T) {
	p := newTestParser(&fakeOpener{name: "a", text: "Total Dues 100.00"})

	_, err := p.Parse(model.StatementDocument{Bank: model.BankHDFC, FileName: "x.pdf"})
	assert.True(t, IsParseError(err))
}

func TestDefaultOpeners_Order(t *testing.T) {
	var names []string
	for _, o := range DefaultOpeners() {
		names = append(names, o.Name())
	}
	assert.Equal(t, []string{"ledongthuc/pdf", "dslipak/pdf", "rsc.io/pdf"}, names)
}

func TestDefaultOpeners_GarbageFailsEveryLibrary(t *testing.T) {
	p := newTestParser()

	_, err := p.ExtractText("junk.pdf", []byte("this is not a pdf at all"), "secret")
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Len(t, parseErr.Attempts, 4)
	assert.Equal(t, "pdfcpu", parseErr.Attempts[0].Library)
}

func TestDefaultOpeners_ReadGeneratedPDF(t *testing.T) {
	data := testutil.BuildPDF([]string{
		"Statement Date:15/03/2024",
		"Payment Due Date:04/04/2024",
		"Total Dues Rs. 12,345.67",
	}, 2048)

	for _, o := range DefaultOpeners() {
		t.Run(o.Name(), func(t *testing.T) {
			text, err := o.Open(data, "")
			require.NoError(t, err)
			assert.Contains(t, text, "15/03/2024")
			assert.Contains(t, text, "12,345.67")
		})
	}
}

func TestPasswordOnce(t *testing.T) {
	pw := passwordOnce("s3cret")
	assert.Equal(t, "s3cret", pw())
	assert.Equal(t, "", pw())
	assert.Equal(t, "", pw())
}

func statementPDF() []byte {
	return testutil.BuildPDF([]string{
		"Statement Date:15/03/2024",
		"Payment Due Date:04/04/2024",
		"Total Dues Rs. 12,345.67",
	}, 2048)
}

func TestParser_EncryptedStatements(t *testing.T) {
	ciphers := []testutil.Cipher{
		testutil.RC4Bits40,
		testutil.RC4Bits128,
		testutil.AESBits128,
		testutil.AESBits256,
	}

	for _, c := range ciphers {
		t.Run(c.String(), func(t *testing.T) {
			data := testutil.EncryptPDF(t, statementPDF(), "user123", c)
			p := newTestParser()

			rec, err := p.Parse(model.StatementDocument{
				Data:     data,
				Bank:     model.BankHDFC,
				Password: "user123",
				FileName: "HDFC_locked.pdf",
			})
			require.NoError(t, err)
			assert.Equal(t, "15/03/2024", rec.Date)
			assert.Equal(t, "04/04/2024", rec.DueDate)
			assert.True(t, rec.Amount.Equal(decimal.RequireFromString("12345.67")), rec.Amount.String())
		})
	}
}

func TestParser_EncryptedWrongPassword(t *testing.T) {
	for _, c := range []testutil.Cipher{testutil.AESBits128, testutil.AESBits256} {
		t.Run(c.String(), func(t *testing.T) {
			data := testutil.EncryptPDF(t, statementPDF(), "user123", c)
			p := newTestParser()

			_, err := p.Parse(model.StatementDocument{
				Data:     data,
				Bank:     model.BankHDFC,
				Password: "not-it",
				FileName: "HDFC_locked.pdf",
			})
			require.Error(t, err)
			assert.True(t, IsParseError(err))
			assert.ErrorIs(t, err, ErrUnreadable)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			require.NotEmpty(t, parseErr.Attempts)
			assert.ErrorIs(t, parseErr.Attempts[0].Err, ErrWrongPassword)

			msg := err.Error()
			assert.NotContains(t, msg, "/U ")
			assert.NotContains(t, msg, "/O ")
			assert.NotContains(t, msg, "<<")
		})
	}
}

func TestParseError_HidesEncryptionDictionary(t *testing.T) {
	leak := errors.New("malformed PDF: invalid encryption dict <</Filter /Standard /O \"\xee\x8eH\" /U \"\x1e\x18\xb2\" /P -4>>")
	p := newTestParser(
		&fakeOpener{name: "a", err: leak},
		&fakeOpener{name: "b", err: fmt.Errorf("opening pdf: %w", leak)},
	)

	_, err := p.Parse(model.StatementDocument{Bank: model.BankHDFC, FileName: "locked.pdf"})
	require.Error(t, err)

	msg := err.Error()
	assert.NotContains(t, msg, "/U ")
	assert.NotContains(t, msg, "/O ")
	assert.NotContains(t, msg, "\xee")
	assert.Contains(t, msg, "a: malformed PDF: invalid encryption dict")
	assert.Contains(t, msg, "b: opening pdf: malformed PDF")
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "plain", err: errors.New("unsupported PDF: encryption version V=4"), want: "unsupported PDF: encryption version V=4"},
		{name: "wrong password", err: fmt.Errorf("decrypting: %w", ErrWrongPassword), want: "wrong password"},
		{name: "verifier only", err: errors.New("/U (\x01\x02)"), want: "unreadable document"},
		{name: "unprintable", err: errors.New("bad\x00 xref"), want: "bad xref"},
		{name: "long", err: errors.New(strings.Repeat("x", 300)), want: strings.Repeat("x", maxReasonLen)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, failureReason(tt.err))
		})
	}
}
