package statement

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhle/card-statements/internal/model"
)

// Layout is the field pattern set for one bank's statement format.
type Layout struct {
	Bank          model.Bank
	statementDate *regexp.Regexp
	dueDate       *regexp.Regexp
	totalDue      *regexp.Regexp
	dateLayouts   []string
}

// Fields holds the values located in a statement's text.
type Fields struct {
	StatementDate time.Time
	Date          string
	DueDate       string
	Amount        decimal.Decimal
}

const amountToken = `(?:rs\.?|inr|₹)?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`

var hdfcLayout = Layout{
	Bank:          model.BankHDFC,
	statementDate: regexp.MustCompile(`(?i)statement\s+date\s*:?\s*(\d{2}/\d{2}/\d{4})`),
	dueDate:       regexp.MustCompile(`(?i)payment\s+due\s+date\s*:?\s*(\d{2}/\d{2}/\d{4})`),
	totalDue:      regexp.MustCompile(`(?i)total\s+dues\s*:?\s*` + amountToken),
	dateLayouts:   []string{"02/01/2006"},
}

const idfcDateToken = `(\d{1,2}[\s/-][A-Za-z]{3,9}[\s/-]\d{4}|\d{2}/\d{2}/\d{4})`

var idfcLayout = Layout{
	Bank:          model.BankIDFC,
	statementDate: regexp.MustCompile(`(?i)statement\s+date\s*:?\s*` + idfcDateToken),
	dueDate:       regexp.MustCompile(`(?i)payment\s+due\s+date\s*:?\s*` + idfcDateToken),
	totalDue:      regexp.MustCompile(`(?i)total\s+amount\s+due\s*:?\s*` + amountToken),
	dateLayouts: []string{
		"02 Jan 2006", "2 Jan 2006",
		"02-Jan-2006", "2-Jan-2006",
		"02/Jan/2006", "2/Jan/2006",
		"02 January 2006", "2 January 2006",
		"02-January-2006", "2-January-2006",
		"02/01/2006",
	},
}

// LayoutFor returns the layout registered for bank.
func LayoutFor(bank model.Bank) (Layout, bool) {
	switch bank {
	case model.BankHDFC:
		return hdfcLayout, true
	case model.BankIDFC:
		return idfcLayout, true
	default:
		return Layout{}, false
	}
}

// NormalizeDate normalizes a date written in this layout's native format.
func (l Layout) NormalizeDate(raw string) (string, time.Time, error) {
	return NormalizeDate(raw, l.dateLayouts)
}

// Extract locates the statement date, due date and total amount due in text.
// The due date is optional; a missing or ambiguous amount is an error.
func (l Layout) Extract(text string) (Fields, error) {
	var f Fields

	m := l.statementDate.FindStringSubmatch(text)
	if m == nil {
		return Fields{}, fmt.Errorf("%s statement date not found", l.Bank)
	}
	date, t, err := l.NormalizeDate(m[1])
	if err != nil {
		return Fields{}, fmt.Errorf("statement date: %w", err)
	}
	f.Date, f.StatementDate = date, t

	if m := l.dueDate.FindStringSubmatch(text); m != nil {
		due, _, err := l.NormalizeDate(m[1])
		if err != nil {
			return Fields{}, fmt.Errorf("due date: %w", err)
		}
		f.DueDate = due
	}

	amount, err := l.totalAmount(text)
	if err != nil {
		return Fields{}, err
	}
	f.Amount = amount

	return f, nil
}

// totalAmount parses every total-due match and requires them to agree.
func (l Layout) totalAmount(text string) (decimal.Decimal, error) {
	matches := l.totalDue.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return decimal.Decimal{}, ErrAmountMissing
	}

	var found []decimal.Decimal
	for _, m := range matches {
		d, err := ParseAmount(m[1])
		if err != nil {
			return decimal.Decimal{}, err
		}
		if !containsDecimal(found, d) {
			found = append(found, d)
		}
	}

	if len(found) > 1 {
		return decimal.Decimal{}, fmt.Errorf("%w: %d distinct totals", ErrAmountAmbiguous, len(found))
	}
	return found[0], nil
}

func containsDecimal(ds []decimal.Decimal, d decimal.Decimal) bool {
	for _, x := range ds {
		if x.Equal(d) {
			return true
		}
	}
	return false
}
