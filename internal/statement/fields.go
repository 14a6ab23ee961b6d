package statement

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhle/card-statements/internal/model"
)

var (
	// ErrAmountMissing is returned when no total amount can be located.
	ErrAmountMissing = errors.New("amount not found")

	// ErrAmountAmbiguous is returned when several distinct totals are found.
	ErrAmountAmbiguous = errors.New("amount ambiguous")
)

var (
	currencyMarkers = regexp.MustCompile(`(?i)(rs\.?|inr|₹)`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// ParseAmount strips currency markers and thousands separators and parses
// the remainder as a decimal.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := currencyMarkers.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return decimal.Decimal{}, ErrAmountMissing
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", raw, err)
	}
	return d, nil
}

// NormalizeDate parses raw with the first matching layout and returns it
// formatted as DD/MM/YYYY together with the parsed date.
func NormalizeDate(raw string, layouts []string) (string, time.Time, error) {
	s := whitespaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.Format(model.DateLayout), t, nil
		}
	}
	return "", time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// ParseNormalized parses a DD/MM/YYYY date produced by NormalizeDate.
func ParseNormalized(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing normalized date %q: %w", s, err)
	}
	return t, nil
}
