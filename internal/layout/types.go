// =============================================================================
// RPS Batch Decoder - Layout Types
// =============================================================================
//
// A layout family is a closed set of record-type grammars sharing one
// type-code namespace. Each record type is an ordered list of field
// descriptors: offsets are data, not code, so a family can be versioned or
// overridden from a YAML or XLSX template without touching the decoder.
//
// OFFSETS:
//   FieldDescriptor.Start and End are 0-based, End exclusive, counted in
//   characters of one line. Template files written by people use the 1-based
//   inclusive positions printed in the government documents instead.
//
// =============================================================================

package layout

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// FAMILY IDENTIFIERS
// =============================================================================

// FamilyID addresses a layout family.
type FamilyID string

const (
	// General is the service-receipt family keyed by a two-character code.
	General FamilyID = "GENERAL"

	// Equipment is the equipment-receipt ("parking meter") family keyed by a
	// one-character code.
	Equipment FamilyID = "EQUIPMENT"
)

// ParseFamilyID normalises s into a FamilyID. It does not check that the
// catalog knows the family.
func ParseFamilyID(s string) (FamilyID, error) {
	id := FamilyID(strings.ToUpper(strings.TrimSpace(s)))
	if id == "" {
		return "", fmt.Errorf("%w: empty family id", ErrUnknownFamily)
	}
	return id, nil
}

// =============================================================================
// ENCODINGS
// =============================================================================

// Encoding selects the codec applied to a field span.
type Encoding int

const (
	Text Encoding = iota
	Numeric
	Date
	CurrencyCents
)

var encodingNames = map[Encoding]string{
	Text:          "text",
	Numeric:       "numeric",
	Date:          "date",
	CurrencyCents: "currency_cents",
}

// String returns the configuration name of e.
func (e Encoding) String() string {
	if name, ok := encodingNames[e]; ok {
		return name
	}
	return fmt.Sprintf("encoding(%d)", int(e))
}

// ParseEncoding accepts the configuration names plus a few aliases used in
// spreadsheet templates.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "texto", "alfanumerico", "alphanumeric", "x":
		return Text, nil
	case "numeric", "numerico", "n", "9":
		return Numeric, nil
	case "date", "data", "aaaammdd", "yyyymmdd":
		return Date, nil
	case "currency_cents", "currency", "valor", "money", "cents":
		return CurrencyCents, nil
	}
	return Text, fmt.Errorf("unknown encoding %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler for YAML overrides.
func (e *Encoding) UnmarshalText(b []byte) error {
	v, err := ParseEncoding(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (e Encoding) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// =============================================================================
// ROLES
// =============================================================================

// Role is the structural position of a record type within a batch.
type Role string

const (
	RoleHeader Role = "header"
	RoleDetail Role = "detail"
	RoleFooter Role = "footer"

	// RoleIgnored types are recognised but never decoded into the result.
	RoleIgnored Role = "ignored"
)

// StatCount is the Reconciles key for the number of detail records.
const StatCount = "count"

// =============================================================================
// DESCRIPTORS
// =============================================================================

// FieldDescriptor locates and types one field of a record.
type FieldDescriptor struct {
	Name     string
	Start    int
	End      int
	Encoding Encoding
	Required bool

	// Reconciles names the computed statistic a footer field declares:
	// StatCount or the name of a summed detail currency field.
	Reconciles string
}

// Width is the number of characters the field spans.
func (f FieldDescriptor) Width() int {
	return f.End - f.Start
}

// Subfield is one letter-coded member of a conditional group.
type Subfield struct {
	Letter string
	Field  FieldDescriptor
}

// ConditionalGroup adds sub-fields to a line when the field at
// ParentOrdinal decodes to Trigger.
type ConditionalGroup struct {
	ParentOrdinal int
	Trigger       string
	Subfields     []Subfield
}

// RecordType is the grammar of one record code within a family.
type RecordType struct {
	Family  FamilyID
	Code    string
	Name    string
	Role    Role
	Ordinal int
	Fields  []FieldDescriptor

	// Defaults fill logical fields the record type does not carry on the line.
	Defaults map[string]string

	Conditionals []ConditionalGroup
}

// MinLength is the shortest line that covers every descriptor.
func (rt *RecordType) MinLength() int {
	n := 0
	for _, f := range rt.Fields {
		if f.End > n {
			n = f.End
		}
	}
	return n
}

// Field returns the descriptor named name.
func (rt *RecordType) Field(name string) (FieldDescriptor, bool) {
	for _, f := range rt.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// clone deep-copies rt so catalog copies never share slices.
func (rt *RecordType) clone() *RecordType {
	c := *rt
	c.Fields = append([]FieldDescriptor(nil), rt.Fields...)
	if rt.Defaults != nil {
		c.Defaults = make(map[string]string, len(rt.Defaults))
		for k, v := range rt.Defaults {
			c.Defaults[k] = v
		}
	}
	c.Conditionals = make([]ConditionalGroup, len(rt.Conditionals))
	for i, g := range rt.Conditionals {
		g.Subfields = append([]Subfield(nil), g.Subfields...)
		c.Conditionals[i] = g
	}
	return &c
}

// Family is a complete, versioned set of record types.
type Family struct {
	ID        FamilyID
	Version   int
	CodeWidth int
	Types     map[string]*RecordType
}

// Lookup returns the record type for code.
func (f *Family) Lookup(code string) (*RecordType, bool) {
	rt, ok := f.Types[code]
	return rt, ok
}

// Ordered returns the record types sorted by ordinal, then code.
func (f *Family) Ordered() []*RecordType {
	out := make([]*RecordType, 0, len(f.Types))
	for _, rt := range f.Types {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ordinal != out[j].Ordinal {
			return out[i].Ordinal < out[j].Ordinal
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func (f *Family) clone() *Family {
	c := &Family{ID: f.ID, Version: f.Version, CodeWidth: f.CodeWidth, Types: make(map[string]*RecordType, len(f.Types))}
	for code, rt := range f.Types {
		c.Types[code] = rt.clone()
	}
	return c
}
