package layout

// FamilyInfo is a read-only description of a family for listings.
type FamilyInfo struct {
	ID          FamilyID         `json:"id" yaml:"id"`
	Version     int              `json:"version" yaml:"version"`
	CodeWidth   int              `json:"codeWidth" yaml:"code_width"`
	RecordTypes []RecordTypeInfo `json:"recordTypes" yaml:"record_types"`
}

// RecordTypeInfo describes one record type.
type RecordTypeInfo struct {
	Code      string      `json:"code" yaml:"code"`
	Name      string      `json:"name" yaml:"name"`
	Role      Role        `json:"role" yaml:"role"`
	MinLength int         `json:"minLength" yaml:"min_length"`
	Fields    []FieldInfo `json:"fields" yaml:"fields"`
}

// FieldInfo describes one field with 1-based inclusive positions, the way
// published layouts number columns.
type FieldInfo struct {
	Name       string   `json:"name" yaml:"name"`
	Start      int      `json:"start" yaml:"start"`
	End        int      `json:"end" yaml:"end"`
	Encoding   Encoding `json:"encoding" yaml:"encoding"`
	Required   bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Reconciles string   `json:"reconciles,omitempty" yaml:"reconciles,omitempty"`
}

// Describe returns the description of f, record types in ordinal order.
func Describe(f *Family) FamilyInfo {
	info := FamilyInfo{ID: f.ID, Version: f.Version, CodeWidth: f.CodeWidth}
	for _, rt := range f.Ordered() {
		rti := RecordTypeInfo{Code: rt.Code, Name: rt.Name, Role: rt.Role, MinLength: rt.MinLength()}
		for _, fd := range rt.Fields {
			rti.Fields = append(rti.Fields, FieldInfo{
				Name:       fd.Name,
				Start:      fd.Start + 1,
				End:        fd.End,
				Encoding:   fd.Encoding,
				Required:   fd.Required,
				Reconciles: fd.Reconciles,
			})
		}
		info.RecordTypes = append(info.RecordTypes, rti)
	}
	return info
}
