// Package validate enforces the size and amount bounds every persisted
// statement must satisfy.
package validate

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nhle/card-statements/internal/model"
)

// Reason is a machine-readable rejection code.
type Reason string

const (
	ReasonFileTooSmall  Reason = "file_too_small"
	ReasonFileTooLarge  Reason = "file_too_large"
	ReasonAmountTooLow  Reason = "amount_below_minimum"
	ReasonAmountTooHigh Reason = "amount_above_maximum"
)

// Limits holds the inclusive acceptance bounds.
type Limits struct {
	MinSize   int64
	MaxSize   int64
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}

// DefaultLimits returns [1 KiB, 10 MiB] for size and [50, 1 000 000] for amount.
func DefaultLimits() Limits {
	return Limits{
		MinSize:   1024,
		MaxSize:   10 * 1024 * 1024,
		MinAmount: decimal.NewFromInt(50),
		MaxAmount: decimal.NewFromInt(1_000_000),
	}
}

// LimitsFromConfig builds Limits from the filter section of the config.
// Zero values fall back to the defaults.
func LimitsFromConfig(cfg model.FilterConfig) Limits {
	l := DefaultLimits()
	if cfg.MinFileSize > 0 {
		l.MinSize = cfg.MinFileSize
	}
	if cfg.MaxFileSize > 0 {
		l.MaxSize = cfg.MaxFileSize
	}
	if cfg.MinAmount > 0 {
		l.MinAmount = decimal.NewFromFloat(cfg.MinAmount)
	}
	if cfg.MaxAmount > 0 {
		l.MaxAmount = decimal.NewFromFloat(cfg.MaxAmount)
	}
	return l
}

// Outcome is the result of validating one record.
type Outcome struct {
	Accepted bool
	Reasons  []Reason
}

// Err returns a *RejectedError for rejected outcomes and nil otherwise.
func (o Outcome) Err() error {
	if o.Accepted {
		return nil
	}
	return &RejectedError{Reasons: o.Reasons}
}

// RejectedError reports a record excluded for violating the bounds.
type RejectedError struct {
	Reasons []Reason
}

func (e *RejectedError) Error() string {
	codes := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		codes[i] = string(r)
	}
	return fmt.Sprintf("validation rejected: %s", strings.Join(codes, ", "))
}

// SizeOK reports whether size lies within the bounds.
func (l Limits) SizeOK(size int64) bool {
	return size >= l.MinSize && size <= l.MaxSize
}

// Validate checks size and amount against l. Every violated bound
// contributes one reason.
func (l Limits) Validate(size int64, amount decimal.Decimal) Outcome {
	var reasons []Reason

	switch {
	case size < l.MinSize:
		reasons = append(reasons, ReasonFileTooSmall)
	case size > l.MaxSize:
		reasons = append(reasons, ReasonFileTooLarge)
	}

	switch {
	case amount.LessThan(l.MinAmount):
		reasons = append(reasons, ReasonAmountTooLow)
	case amount.GreaterThan(l.MaxAmount):
		reasons = append(reasons, ReasonAmountTooHigh)
	}

	return Outcome{Accepted: len(reasons) == 0, Reasons: reasons}
}

// Validate checks size and amount against DefaultLimits.
func Validate(size int64, amount decimal.Decimal) Outcome {
	return DefaultLimits().Validate(size, amount)
}
