// =============================================================================
// RPS Batch Decoder - Field Codec
// =============================================================================
//
// This package converts raw fixed-width spans into typed values and back.
// Every decoder is pure and total: malformed input never aborts, it decodes
// to a documented default and returns a non-nil error describing why the
// default was substituted. Callers record that error as a warning.
//
// ENCODINGS:
//   - Numeric       : digits only, zero-padded on the left
//   - CurrencyCents : integer cents, zero-padded, two implied fraction digits
//   - Date          : YYYYMMDD
//   - Text          : left-aligned, space-padded, right-trimmed on decode
//
// WIDTHS:
//   Widths count characters (runes) of the normalised text. Government
//   layouts are single-byte, so a character position equals the byte
//   position of the original file.
//
// =============================================================================

package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmpty is returned when a numeric or currency span holds no digits.
	ErrEmpty = errors.New("no digits in span")

	// ErrOverflow is returned when a numeric span does not fit in an int64.
	ErrOverflow = errors.New("numeric value overflows int64")

	// ErrDateFormat is returned when a date span is not exactly YYYYMMDD.
	ErrDateFormat = errors.New("date is not in YYYYMMDD form")

	// ErrFieldTooWide is returned by encoders when the value does not fit the width.
	ErrFieldTooWide = errors.New("value wider than field")

	// ErrNegative is returned by encoders for negative numbers or amounts.
	ErrNegative = errors.New("negative values cannot be encoded")

	// ErrFractionalCents is returned when an amount has sub-cent precision.
	ErrFractionalCents = errors.New("amount has more than two fraction digits")
)

// DateWidth is the width of a YYYYMMDD span.
const DateWidth = 8

// hundred is the cents divisor.
var hundred = decimal.NewFromInt(100)

// =============================================================================
// DECODERS
// =============================================================================

// digits returns the ASCII digits of span in order.
func digits(span string) string {
	var b strings.Builder
	for i := 0; i < len(span); i++ {
		if c := span[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// DecodeNumeric strips every non-digit character and parses the rest as an
// unsigned integer. A span without digits decodes to 0 with ErrEmpty.
func DecodeNumeric(span string) (int64, error) {
	d := digits(span)
	if d == "" {
		return 0, ErrEmpty
	}
	n, err := strconv.ParseInt(d, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, d)
	}
	return n, nil
}

// DecodeCurrencyCents strips non-digits and reads the remaining digits as
// integer cents. The division by 100 is exact at any width.
func DecodeCurrencyCents(span string) (decimal.Decimal, error) {
	d := digits(span)
	if d == "" {
		return decimal.Zero, ErrEmpty
	}
	cents, err := decimal.NewFromString(d)
	if err != nil {
		// Unreachable for a digit-only string, kept for the contract.
		return decimal.Zero, fmt.Errorf("parse cents %q: %w", d, err)
	}
	return cents.Shift(-2), nil
}

// DecodeDate reads an 8-character YYYYMMDD span. Surrounding whitespace is
// ignored; any other shape decodes to the zero Date with ErrDateFormat.
// Calendar validity is not checked.
func DecodeDate(span string) (Date, error) {
	s := strings.TrimSpace(span)
	if len(s) != DateWidth || digits(s) != s {
		return Date{}, fmt.Errorf("%w: %q", ErrDateFormat, s)
	}
	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])
	return Date{Year: year, Month: month, Day: day}, nil
}

// DecodeText right-trims whitespace. Non-printable characters are kept.
func DecodeText(span string) string {
	return strings.TrimRightFunc(span, unicode.IsSpace)
}

// =============================================================================
// ENCODERS
// =============================================================================

// EncodeNumeric zero-pads v to width.
func EncodeNumeric(v int64, width int) (string, error) {
	if v < 0 {
		return "", fmt.Errorf("%w: %d", ErrNegative, v)
	}
	return padDigits(strconv.FormatInt(v, 10), width)
}

// EncodeCurrencyCents writes amount as zero-padded integer cents.
func EncodeCurrencyCents(amount decimal.Decimal, width int) (string, error) {
	if amount.IsNegative() {
		return "", fmt.Errorf("%w: %s", ErrNegative, amount)
	}
	cents := amount.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return "", fmt.Errorf("%w: %s", ErrFractionalCents, amount)
	}
	return padDigits(cents.Truncate(0).String(), width)
}

// EncodeDate writes d as YYYYMMDD, space-padded if the field is wider.
func EncodeDate(d Date, width int) (string, error) {
	if d.Year < 0 || d.Year > 9999 || d.Month < 0 || d.Month > 99 || d.Day < 0 || d.Day > 99 {
		return "", fmt.Errorf("%w: date %v", ErrFieldTooWide, d)
	}
	return EncodeText(d.Compact(), width)
}

// EncodeText left-aligns s and pads it with spaces to width.
func EncodeText(s string, width int) (string, error) {
	n := utf8.RuneCountInString(s)
	if n > width {
		return "", fmt.Errorf("%w: %d characters in a %d-wide field", ErrFieldTooWide, n, width)
	}
	return s + strings.Repeat(" ", width-n), nil
}

// padDigits left-pads a digit string with zeros.
func padDigits(d string, width int) (string, error) {
	if len(d) > width {
		return "", fmt.Errorf("%w: %d digits in a %d-wide field", ErrFieldTooWide, len(d), width)
	}
	return strings.Repeat("0", width-len(d)) + d, nil
}
