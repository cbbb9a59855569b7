package decoder

import (
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
)

// Classify reads the family's type-code prefix of line and looks it up.
// Lines shorter than the prefix, or with a code the family does not define,
// are unrecognised.
func Classify(family *layout.Family, line string) (*layout.RecordType, bool) {
	code, ok := prefix(line, family.CodeWidth)
	if !ok {
		return nil, false
	}
	return family.Lookup(code)
}

// prefix returns the first n runes of s.
func prefix(s string, n int) (string, bool) {
	if n <= 0 {
		return "", false
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	if count == n {
		return s, true
	}
	return "", false
}
