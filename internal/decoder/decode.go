// =============================================================================
// RPS Batch Decoder - Record Decoder
// =============================================================================
//
// Decode applies every descriptor of a record type to one line. It is a pure
// function of (record type, line): no state is shared between calls, so lines
// can be decoded concurrently against the same catalog.
//
// TOLERANCE:
//   - A span entirely past the end of the line decodes as absent. Text fields
//     only warn when required, because editors strip trailing padding; other
//     encodings always warn "truncated".
//   - A span partially covered is absent for numbers, amounts and dates,
//     with "truncated". Text keeps the characters present and warns
//     "truncated" only when required.
//   - A required field that ends up absent (or empty text, or a zero date)
//     gets an extra "required_missing" warning.
//
// =============================================================================

package decoder

import (
	"errors"
	"fmt"

	"github.com/ginjaninja78/rps-batch-decoder/internal/codec"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
)

// Decode decodes line as record type rt.
//
// PARAMETERS:
//   - rt: The record type, normally the result of Classify.
//   - line: One physical line without its terminator.
//   - lineNumber: The 1-based physical line number, carried on the record.
//
// RETURNS:
//   - The decoded record. Decode never fails; problems become warnings.
func Decode(rt *layout.RecordType, line string, lineNumber int) Record {
	runes := []rune(line)
	rec := Record{
		LineNumber: lineNumber,
		Family:     rt.Family,
		TypeCode:   rt.Code,
		Fields:     make(map[string]Value, len(rt.Fields)+len(rt.Defaults)),
	}

	for i, fd := range rt.Fields {
		v := decodeField(&rec, fd, runes)
		rec.Fields[fd.Name] = v

		for _, g := range rt.Conditionals {
			if g.ParentOrdinal != i || !v.Present || g.Trigger != v.String() {
				continue
			}
			for _, sf := range g.Subfields {
				sub := sf.Field
				if sub.Name == "" {
					sub.Name = fd.Name + "." + sf.Letter
				}
				rec.Fields[sub.Name] = decodeField(&rec, sub, runes)
			}
		}
	}

	for name, text := range rt.Defaults {
		if _, ok := rec.Fields[name]; ok {
			continue
		}
		rec.Fields[name] = Value{Encoding: layout.Text, Present: true, Text: text}
	}

	return rec
}

// decodeField decodes one descriptor and appends its warnings to rec.
func decodeField(rec *Record, fd layout.FieldDescriptor, runes []rune) Value {
	v := Value{Encoding: fd.Encoding}
	warn := func(code, format string, args ...any) {
		rec.Warnings = append(rec.Warnings, FieldWarning{Field: fd.Name, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if fd.Start >= len(runes) {
		if fd.Encoding != layout.Text || fd.Required {
			warn(WarnTruncated, "line has %d characters, field starts at %d", len(runes), fd.Start+1)
		}
		if fd.Required {
			warn(WarnRequiredMissing, "required field is absent")
		}
		return v
	}

	end := fd.End
	if end > len(runes) {
		if fd.Encoding != layout.Text || fd.Required {
			warn(WarnTruncated, "line has %d characters, field ends at %d", len(runes), fd.End)
		}
		if fd.Encoding != layout.Text {
			// Leading digits of a cut-off number are not its value.
			if fd.Required {
				warn(WarnRequiredMissing, "required field is cut off")
			}
			return v
		}
		end = len(runes)
	}
	span := string(runes[fd.Start:end])

	var err error
	switch fd.Encoding {
	case layout.Numeric:
		v.Int, err = codec.DecodeNumeric(span)
	case layout.CurrencyCents:
		v.Amount, err = codec.DecodeCurrencyCents(span)
	case layout.Date:
		v.Date, err = codec.DecodeDate(span)
	default:
		v.Text = codec.DecodeText(span)
	}

	switch {
	case err == nil:
		v.Present = true
	case errors.Is(err, codec.ErrOverflow):
		warn(WarnOverflow, "%q: %v", span, err)
	case errors.Is(err, codec.ErrDateFormat):
		warn(WarnInvalidDate, "%q: %v", span, err)
	default:
		warn(WarnEmpty, "%q: %v", span, err)
	}

	if fd.Required && missing(v) {
		warn(WarnRequiredMissing, "required field is empty")
	}
	return v
}

// missing reports whether a required field holds nothing usable.
func missing(v Value) bool {
	if !v.Present {
		return true
	}
	switch v.Encoding {
	case layout.Text:
		return v.Text == ""
	case layout.Date:
		return v.Date.IsZero()
	}
	return false
}
