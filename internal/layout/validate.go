package layout

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"
)

// ErrInvalidLayout wraps every layout validation failure.
var ErrInvalidLayout = errors.New("invalid layout")

// Validate checks the structural invariants of a family:
//   - type codes are exactly CodeWidth characters and match their map key
//   - every descriptor has 0 <= Start < End
//   - descriptors of one record type do not overlap and have unique names
//   - conditional groups point at an existing parent, use unique letters,
//     do not reuse a field name, and a line can activate at most one group
//     per parent
//   - Reconciles is only set on footer fields
func (f *Family) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvalidLayout, f.ID, fmt.Sprintf(format, args...)))
	}

	if f.CodeWidth <= 0 {
		fail("code width must be positive, got %d", f.CodeWidth)
	}

	for code, rt := range f.Types {
		if rt.Code != code {
			fail("type %q: registered under code %q", rt.Code, code)
		}
	}

	for _, rt := range f.Ordered() {
		if utf8.RuneCountInString(rt.Code) != f.CodeWidth {
			fail("type %q: code must be %d characters", rt.Code, f.CodeWidth)
		}
		switch rt.Role {
		case RoleHeader, RoleDetail, RoleFooter, RoleIgnored:
		default:
			fail("type %q: unknown role %q", rt.Code, rt.Role)
		}

		for _, msg := range checkFields(rt.Fields) {
			fail("type %q: %s", rt.Code, msg)
		}
		for _, fd := range rt.Fields {
			if fd.Reconciles != "" && rt.Role != RoleFooter {
				fail("type %q: field %q reconciles outside a footer", rt.Code, fd.Name)
			}
		}

		triggers := make(map[string]bool)
		for _, g := range rt.Conditionals {
			if g.ParentOrdinal < 0 || g.ParentOrdinal >= len(rt.Fields) {
				fail("type %q: conditional parent ordinal %d out of range", rt.Code, g.ParentOrdinal)
				continue
			}
			key := fmt.Sprintf("%d/%s", g.ParentOrdinal, g.Trigger)
			if triggers[key] {
				fail("type %q: duplicate conditional group for field %d value %q", rt.Code, g.ParentOrdinal, g.Trigger)
			}
			triggers[key] = true

			letters := make(map[string]bool)
			spans := make([]FieldDescriptor, 0, len(g.Subfields))
			for _, sf := range g.Subfields {
				if sf.Letter == "" {
					fail("type %q: sub-field without letter in group %q", rt.Code, g.Trigger)
				}
				if letters[sf.Letter] {
					fail("type %q: duplicate sub-field letter %q in group %q", rt.Code, sf.Letter, g.Trigger)
				}
				letters[sf.Letter] = true
				name := sf.Field.Name
				if name == "" {
					name = rt.Fields[g.ParentOrdinal].Name + "." + sf.Letter
				}
				if _, clash := rt.Field(name); clash {
					fail("type %q: sub-field %q in group %q shadows a field", rt.Code, name, g.Trigger)
				}
				spans = append(spans, sf.Field)
			}
			for _, msg := range checkSpans(spans) {
				fail("type %q: group %q: %s", rt.Code, g.Trigger, msg)
			}
		}
	}
	return errors.Join(errs...)
}

// checkFields validates spans and name uniqueness of one descriptor list.
func checkFields(fields []FieldDescriptor) []string {
	msgs := checkSpans(fields)
	seen := make(map[string]bool, len(fields))
	for _, fd := range fields {
		if fd.Name == "" {
			msgs = append(msgs, fmt.Sprintf("field at %d has no name", fd.Start))
		}
		if seen[fd.Name] {
			msgs = append(msgs, fmt.Sprintf("duplicate field name %q", fd.Name))
		}
		seen[fd.Name] = true
	}
	return msgs
}

// checkSpans reports inverted and overlapping spans.
func checkSpans(fields []FieldDescriptor) []string {
	var msgs []string
	sorted := make([]FieldDescriptor, 0, len(fields))
	for _, fd := range fields {
		if fd.Start < 0 || fd.Start >= fd.End {
			msgs = append(msgs, fmt.Sprintf("field %q has invalid span [%d,%d)", fd.Name, fd.Start, fd.End))
			continue
		}
		sorted = append(sorted, fd)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End {
			msgs = append(msgs, fmt.Sprintf("field %q overlaps %q", sorted[i].Name, sorted[i-1].Name))
		}
	}
	return msgs
}
