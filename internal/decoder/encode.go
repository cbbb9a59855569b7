package decoder

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rps-batch-decoder/internal/codec"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
)

// Encode writes fields as one line of record type rt, the inverse of Decode.
// The line is MinLength characters long, longer when an active conditional
// group reaches further, and starts with the type code; field names missing
// from fields are blank (spaces for text and dates, zeros for numbers and
// amounts). A group is active when the parent's value in fields equals its
// trigger; its sub-fields use the names Decode gives them. A value wider than
// its descriptor fails with codec.ErrFieldTooWide.
func Encode(rt *layout.RecordType, fields map[string]Value) (string, error) {
	type placed struct {
		fd layout.FieldDescriptor
		v  Value
	}
	var out []placed
	length := rt.MinLength()

	for i, fd := range rt.Fields {
		v, ok := fields[fd.Name]
		if !ok {
			if fd.Start == 0 {
				continue
			}
			v = Value{Encoding: fd.Encoding}
		}
		out = append(out, placed{fd, v})

		if !ok || !v.Present {
			continue
		}
		for _, g := range rt.Conditionals {
			if g.ParentOrdinal != i || g.Trigger != v.String() {
				continue
			}
			for _, sf := range g.Subfields {
				sub := sf.Field
				if sub.Name == "" {
					sub.Name = fd.Name + "." + sf.Letter
				}
				sv, ok := fields[sub.Name]
				if !ok {
					sv = Value{Encoding: sub.Encoding}
				}
				out = append(out, placed{sub, sv})
				if sub.End > length {
					length = sub.End
				}
			}
		}
	}

	line := []rune(strings.Repeat(" ", length))
	copy(line, []rune(rt.Code))
	for _, p := range out {
		s, err := encodeValue(p.fd, p.v)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", p.fd.Name, err)
		}
		copy(line[p.fd.Start:p.fd.End], []rune(s))
	}
	return string(line), nil
}

func encodeValue(fd layout.FieldDescriptor, v Value) (string, error) {
	switch fd.Encoding {
	case layout.Numeric:
		return codec.EncodeNumeric(v.Int, fd.Width())
	case layout.CurrencyCents:
		return codec.EncodeCurrencyCents(v.Amount, fd.Width())
	case layout.Date:
		if v.Date.IsZero() && !v.Present {
			return codec.EncodeText("", fd.Width())
		}
		return codec.EncodeDate(v.Date, fd.Width())
	default:
		return codec.EncodeText(v.Text, fd.Width())
	}
}

// TextValue, IntValue, AmountValue and DateValue build present values for Encode.

func TextValue(s string) Value { return Value{Encoding: layout.Text, Present: true, Text: s} }

func IntValue(n int64) Value { return Value{Encoding: layout.Numeric, Present: true, Int: n} }

func AmountValue(d decimal.Decimal) Value {
	return Value{Encoding: layout.CurrencyCents, Present: true, Amount: d}
}

func DateValue(d codec.Date) Value { return Value{Encoding: layout.Date, Present: true, Date: d} }
