// =============================================================================
// RPS Batch Decoder - Decoded Records
// =============================================================================
//
// A Record is one decoded line: a map from field name to typed Value plus the
// field-level warnings raised while decoding it. Warnings never abort a line;
// the field keeps its default and decoding moves on.
//
// =============================================================================

package decoder

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rps-batch-decoder/internal/codec"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
)

// Value is a decoded field. Exactly one of Int, Amount, Date or Text is
// meaningful, selected by Encoding. Present is false when the field was
// absent or fell back to its default.
type Value struct {
	Encoding layout.Encoding
	Present  bool
	Int      int64
	Amount   decimal.Decimal
	Date     codec.Date
	Text     string
}

// String renders the value the way it is compared against conditional
// triggers: integers in base 10, amounts with two decimals, dates as
// YYYYMMDD, text as decoded.
func (v Value) String() string {
	switch v.Encoding {
	case layout.Numeric:
		return strconv.FormatInt(v.Int, 10)
	case layout.CurrencyCents:
		return v.Amount.StringFixed(2)
	case layout.Date:
		return v.Date.Compact()
	default:
		return v.Text
	}
}

// Interface returns the typed value for serialisation.
func (v Value) Interface() any {
	switch v.Encoding {
	case layout.Numeric:
		return v.Int
	case layout.CurrencyCents:
		return v.Amount
	case layout.Date:
		return v.Date
	default:
		return v.Text
	}
}

// Warning codes attached to FieldWarning.Code.
const (
	WarnTruncated       = "truncated"
	WarnEmpty           = "empty"
	WarnOverflow        = "overflow"
	WarnInvalidDate     = "invalid_date"
	WarnRequiredMissing = "required_missing"
)

// FieldWarning is a non-fatal problem decoding one field.
type FieldWarning struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Record is one decoded line.
type Record struct {
	LineNumber int
	Family     layout.FamilyID
	TypeCode   string
	Fields     map[string]Value
	Warnings   []FieldWarning
}

// Get returns the named field. Missing fields return the zero Value.
func (r *Record) Get(name string) Value {
	return r.Fields[name]
}

// Text returns the named field as text.
func (r *Record) Text(name string) string {
	return r.Fields[name].Text
}

// Int returns the named numeric field.
func (r *Record) Int(name string) int64 {
	return r.Fields[name].Int
}

// Amount returns the named currency field; absent fields are zero.
func (r *Record) Amount(name string) decimal.Decimal {
	return r.Fields[name].Amount
}

// Date returns the named date field.
func (r *Record) Date(name string) codec.Date {
	return r.Fields[name].Date
}

// Has reports whether the named field decoded to a present value.
func (r *Record) Has(name string) bool {
	return r.Fields[name].Present
}
