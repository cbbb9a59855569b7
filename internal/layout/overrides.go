// =============================================================================
// RPS Batch Decoder - Layout Overrides (YAML)
// =============================================================================
//
// Field widths are configuration. A YAML overrides file replaces record types
// of a family (or adds a new family) without a rebuild:
//
//   families:
//     - id: GENERAL
//       version: 2
//       record_types:
//         - code: "20"
//           fields:
//             - {name: numeroRps, start: 3, end: 14, encoding: numeric, required: true}
//             - {name: descricao, start: 170, end: 1169, encoding: text}
//
// POSITIONS:
//   start/end are 1-based and inclusive, as printed in the published
//   layouts. parent_field in conditional groups is the 1-based field number.
//
// INHERITANCE:
//   A listed record type replaces the base type's fields. name, role,
//   ordinal and defaults are kept from the base type when left out.
//
// =============================================================================

package layout

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// FILE STRUCTURE
// =============================================================================

// OverrideFile is the root of a YAML overrides document.
type OverrideFile struct {
	Families []FamilyOverride `yaml:"families"`
}

// FamilyOverride describes one family in an overrides file.
type FamilyOverride struct {
	ID          string               `yaml:"id"`
	Version     int                  `yaml:"version"`
	CodeWidth   int                  `yaml:"code_width"`
	RecordTypes []RecordTypeOverride `yaml:"record_types"`
}

// RecordTypeOverride describes one record type.
type RecordTypeOverride struct {
	Code         string                     `yaml:"code"`
	Name         string                     `yaml:"name"`
	Role         Role                       `yaml:"role"`
	Ordinal      int                        `yaml:"ordinal"`
	Fields       []FieldOverride            `yaml:"fields"`
	Defaults     map[string]string          `yaml:"defaults"`
	Conditionals []ConditionalGroupOverride `yaml:"conditionals"`
}

// FieldOverride is a descriptor with 1-based inclusive positions.
type FieldOverride struct {
	Name       string   `yaml:"name"`
	Start      int      `yaml:"start"`
	End        int      `yaml:"end"`
	Encoding   Encoding `yaml:"encoding"`
	Required   bool     `yaml:"required"`
	Reconciles string   `yaml:"reconciles"`
	Letter     string   `yaml:"letter"`
}

// ConditionalGroupOverride is a conditional group in an overrides file.
type ConditionalGroupOverride struct {
	ParentField int             `yaml:"parent_field"`
	Trigger     string          `yaml:"trigger"`
	Subfields   []FieldOverride `yaml:"subfields"`
}

// descriptor converts 1-based inclusive positions to a FieldDescriptor.
func (o FieldOverride) descriptor() FieldDescriptor {
	return FieldDescriptor{
		Name:       strings.TrimSpace(o.Name),
		Start:      o.Start - 1,
		End:        o.End,
		Encoding:   o.Encoding,
		Required:   o.Required,
		Reconciles: strings.TrimSpace(o.Reconciles),
	}
}

// =============================================================================
// LOADING
// =============================================================================

// LoadYAML reads an overrides file and applies it on top of base.
// The resulting catalog is validated.
func LoadYAML(path string, base *Catalog) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout overrides: %w", err)
	}

	var file OverrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse layout overrides: %w", err)
	}

	return Apply(base, file)
}

// Apply merges an overrides document into base and validates the result.
func Apply(base *Catalog, file OverrideFile) (*Catalog, error) {
	families := make([]*Family, 0, len(file.Families))
	for _, fo := range file.Families {
		f, err := mergeFamily(base, fo)
		if err != nil {
			return nil, err
		}
		families = append(families, f)
	}

	out := base.With(families...)
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func mergeFamily(base *Catalog, fo FamilyOverride) (*Family, error) {
	id, err := ParseFamilyID(fo.ID)
	if err != nil {
		return nil, err
	}

	var f *Family
	if existing, err := base.Family(id); err == nil {
		f = existing.clone()
	} else {
		if fo.CodeWidth <= 0 {
			return nil, fmt.Errorf("%w: new family %s needs code_width", ErrInvalidLayout, id)
		}
		f = &Family{ID: id, Version: 1, Types: make(map[string]*RecordType)}
	}
	if fo.Version > 0 {
		f.Version = fo.Version
	}
	if fo.CodeWidth > 0 {
		f.CodeWidth = fo.CodeWidth
	}

	for _, ro := range fo.RecordTypes {
		rt := &RecordType{Family: id, Code: ro.Code, Role: RoleDetail}
		if prev, ok := f.Types[ro.Code]; ok {
			rt = prev.clone()
		}
		if ro.Name != "" {
			rt.Name = ro.Name
		}
		if ro.Role != "" {
			rt.Role = ro.Role
		}
		if ro.Ordinal > 0 {
			rt.Ordinal = ro.Ordinal
		}
		if ro.Defaults != nil {
			rt.Defaults = ro.Defaults
		}
		if len(ro.Fields) > 0 {
			rt.Fields = make([]FieldDescriptor, len(ro.Fields))
			for i, fd := range ro.Fields {
				rt.Fields[i] = fd.descriptor()
			}
		}
		if ro.Conditionals != nil {
			rt.Conditionals = make([]ConditionalGroup, len(ro.Conditionals))
			for i, g := range ro.Conditionals {
				group := ConditionalGroup{ParentOrdinal: g.ParentField - 1, Trigger: g.Trigger}
				for _, sf := range g.Subfields {
					group.Subfields = append(group.Subfields, Subfield{Letter: sf.Letter, Field: sf.descriptor()})
				}
				rt.Conditionals[i] = group
			}
		}
		f.Types[ro.Code] = rt
	}
	return f, nil
}
