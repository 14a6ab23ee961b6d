package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bank identifies the card issuer a statement belongs to.
type Bank string

const (
	BankHDFC     Bank = "HDFC"
	BankIDFC     Bank = "IDFC"
	BankAxis     Bank = "AXIS"
	BankSBI      Bank = "SBI"
	BankICICI    Bank = "ICICI"
	BankKotak    Bank = "KOTAK"
	BankCiti     Bank = "CITI"
	BankAmex     Bank = "AMEX"
	BankYes      Bank = "YES"
	BankIndusInd Bank = "INDUSIND"
	BankUnknown  Bank = "UNKNOWN"
)

// KnownBanks lists every bank tag other than BankUnknown.
var KnownBanks = []Bank{
	BankHDFC, BankIDFC, BankAxis, BankSBI, BankICICI,
	BankKotak, BankCiti, BankAmex, BankYes, BankIndusInd,
}

// ProductCreditCard is the only product line recorded in the fact table.
const ProductCreditCard = "CREDIT_CARD"

// DateLayout is the canonical DD/MM/YYYY representation for statement dates.
const DateLayout = "02/01/2006"

// StatementDocument is a downloaded statement PDF awaiting parsing.
type StatementDocument struct {
	// Data is the raw PDF content.
	Data []byte

	// Bank is the tag assigned from the sender address.
	Bank Bank

	// Password unlocks the PDF. It is never logged.
	Password string `json:"-"`

	// FileName is the name the document was saved under.
	FileName string

	// Path is the location of the saved file.
	Path string

	// Size is the attachment size in bytes.
	Size int64
}

// ExtractedRecord is one parsed statement, appended to the fact table.
type ExtractedRecord struct {
	ID            string          `db:"id" csv:"id"`
	RunID         string          `db:"run_id" csv:"run_id"`
	Date          string          `db:"statement_date" csv:"date"`
	Month         string          `db:"month" csv:"month"`
	Year          int             `db:"year" csv:"year"`
	Bank          Bank            `db:"bank" csv:"bank"`
	Amount        decimal.Decimal `db:"amount" csv:"amount"`
	DueDate       string          `db:"due_date" csv:"due_date"`
	FileName      string          `db:"file_name" csv:"file_name"`
	ProcessedTime time.Time       `db:"processed_time" csv:"processed_time"`
}

// DownloadedFile holds the metadata of a saved attachment.
type DownloadedFile struct {
	Filename          string    `json:"filename" db:"file_name"`
	Path              string    `json:"path" db:"path"`
	Bank              Bank      `json:"bank" db:"bank"`
	Subject           string    `json:"subject" db:"subject"`
	Sender            string    `json:"sender" db:"sender"`
	Date              string    `json:"date" db:"email_date"`
	Size              int64     `json:"size" db:"size"`
	DownloadTimestamp time.Time `json:"download_timestamp" db:"downloaded_at"`
}
