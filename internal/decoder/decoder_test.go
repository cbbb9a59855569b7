package decoder

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rps-batch-decoder/internal/codec"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
)

func family(t *testing.T, id layout.FamilyID) *layout.Family {
	t.Helper()
	f, err := layout.Default().Family(id)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func recordType(t *testing.T, id layout.FamilyID, code string) *layout.RecordType {
	t.Helper()
	rt, ok := family(t, id).Lookup(code)
	if !ok {
		t.Fatalf("no type %s in %s", code, id)
	}
	return rt
}

func hasWarning(rec Record, field, code string) bool {
	for _, w := range rec.Warnings {
		if w.Field == field && w.Code == code {
			return true
		}
	}
	return false
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Line
	}{
		{"lf", "a\nb\n", []Line{{1, "a"}, {2, "b"}}},
		{"crlf", "a\r\nb\r\n", []Line{{1, "a"}, {2, "b"}}},
		{"cr", "a\rb", []Line{{1, "a"}, {2, "b"}}},
		{"blank lines keep numbering", "a\n\n   \nb", []Line{{1, "a"}, {4, "b"}}},
		{"empty", "", []Line{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLines(tt.content)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines %v, want %v", len(got), got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("line %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestClassify(t *testing.T) {
	general := family(t, layout.General)
	equipment := family(t, layout.Equipment)

	tests := []struct {
		name   string
		family *layout.Family
		line   string
		code   string
		ok     bool
	}{
		{"general header", general, "10001", "10", true},
		{"general rps", general, "20000", "20", true},
		{"general intermediary", general, "21", "21", true},
		{"general unknown", general, "99xyz", "", false},
		{"general too short", general, "1", "", false},
		{"equipment header", equipment, "1abc", "1", true},
		{"equipment footer", equipment, "9", "9", true},
		{"equipment unknown", equipment, "2abc", "", false},
		{"empty", general, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, ok := Classify(tt.family, tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && rt.Code != tt.code {
				t.Fatalf("code = %s, want %s", rt.Code, tt.code)
			}
		})
	}
}

func TestDecodeGeneralHeader(t *testing.T) {
	rt := recordType(t, layout.General, "10")
	line := "10" + "001" + "03545887000191" + "123456         " + "20250801" + "20250802"

	rec := Decode(rt, line, 1)
	if len(rec.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", rec.Warnings)
	}
	if got := rec.Text("cnpj"); got != "03545887000191" {
		t.Fatalf("cnpj = %q", got)
	}
	if got := rec.Text("inscricaoMunicipal"); got != "123456" {
		t.Fatalf("inscricaoMunicipal = %q", got)
	}
	if got := rec.Date("dataInicio"); got != (codec.Date{Year: 2025, Month: 8, Day: 1}) {
		t.Fatalf("dataInicio = %v", got)
	}
	if got := rec.Date("dataFim"); got != (codec.Date{Year: 2025, Month: 8, Day: 2}) {
		t.Fatalf("dataFim = %v", got)
	}
	if rec.Int("versaoLayout") != 1 || rec.LineNumber != 1 || rec.TypeCode != "10" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestDecodeGeneralDetailAmounts(t *testing.T) {
	rt := recordType(t, layout.General, "20")
	line, err := Encode(rt, map[string]Value{
		"numeroRps":     IntValue(42),
		"dataEmissao":   DateValue(codec.Date{Year: 2025, Month: 8, Day: 1}),
		"valorServicos": AmountValue(decimal.RequireFromString("123.45")),
		"valorIss":      AmountValue(decimal.RequireFromString("6.17")),
		"descricao":     TextValue("Consultoria"),
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got := line[28:43]; got != "000000000012345" {
		t.Fatalf("valorServicos span = %q", got)
	}

	rec := Decode(rt, line, 2)
	if !rec.Amount("valorServicos").Equal(decimal.RequireFromString("123.45")) {
		t.Fatalf("valorServicos = %s", rec.Amount("valorServicos"))
	}
	if !rec.Amount("valorIss").Equal(decimal.RequireFromString("6.17")) {
		t.Fatalf("valorIss = %s", rec.Amount("valorIss"))
	}
	if rec.Int("numeroRps") != 42 || rec.Text("descricao") != "Consultoria" {
		t.Fatalf("record = %+v", rec.Fields)
	}
}

func TestDecodeTruncatedLine(t *testing.T) {
	rt := recordType(t, layout.General, "20")
	// Ends inside valorServicos; valorIss is never reached.
	line := "20" + "000000000042" + "A    " + "20250801" + "N" + "0000000"

	rec := Decode(rt, line, 3)

	if !hasWarning(rec, "valorServicos", WarnTruncated) || !hasWarning(rec, "valorServicos", WarnRequiredMissing) {
		t.Fatalf("valorServicos should warn truncated and required_missing: %+v", rec.Warnings)
	}
	if rec.Has("valorServicos") || !rec.Amount("valorServicos").IsZero() {
		t.Fatalf("cut-off valorServicos = %+v, want absent zero", rec.Get("valorServicos"))
	}
	if !hasWarning(rec, "valorIss", WarnTruncated) || !hasWarning(rec, "valorIss", WarnRequiredMissing) {
		t.Fatalf("valorIss should warn truncated and required_missing: %+v", rec.Warnings)
	}
	if rec.Has("valorIss") || !rec.Amount("valorIss").IsZero() {
		t.Fatalf("valorIss = %+v, want absent zero", rec.Get("valorIss"))
	}
	if hasWarning(rec, "descricao", WarnTruncated) {
		t.Fatal("optional text past end of line must not warn")
	}
	if rec.Int("numeroRps") != 42 || rec.Text("serieRps") != "A" {
		t.Fatalf("fields before the cut must decode: %+v", rec.Fields)
	}
}

func TestDecodePartialSpans(t *testing.T) {
	header := recordType(t, layout.General, "10")
	detail := recordType(t, layout.General, "20")
	tests := []struct {
		name  string
		rt    *layout.RecordType
		line  string
		field string
		codes []string
	}{
		{"required text cut off", header, "10001" + "0354588700019", "cnpj", []string{WarnTruncated}},
		{"numeric cut off", detail, "20" + "0000000", "numeroRps", []string{WarnTruncated, WarnRequiredMissing}},
		{"amount cut off", detail, "20" + "000000000042" + "A    " + "20250801" + "N" + "0000000000123", "valorServicos", []string{WarnTruncated, WarnRequiredMissing}},
		{"date cut off", detail, "20" + "000000000042" + "A    " + "2025", "dataEmissao", []string{WarnTruncated, WarnRequiredMissing}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Decode(tt.rt, tt.line, 1)
			for _, code := range tt.codes {
				if !hasWarning(rec, tt.field, code) {
					t.Fatalf("missing %s on %s: %+v", code, tt.field, rec.Warnings)
				}
			}
			if tt.rt.Code == "10" {
				if got := rec.Text("cnpj"); got != "0354588700019" {
					t.Fatalf("partial text = %q", got)
				}
				return
			}
			if rec.Has(tt.field) {
				t.Fatalf("%s = %+v, want absent", tt.field, rec.Get(tt.field))
			}
		})
	}
}

func TestDecodeFieldWarnings(t *testing.T) {
	rt := recordType(t, layout.General, "10")
	tests := []struct {
		name  string
		line  string
		field string
		code  string
	}{
		{"invalid date", "10001" + "03545887000191" + "123456         " + "2025-8-1" + "20250802", "dataInicio", WarnInvalidDate},
		{"blank numeric", "10   " + "03545887000191" + "123456         " + "20250801" + "20250802", "versaoLayout", WarnEmpty},
		{"blank required text", "10001" + "              " + "123456         " + "20250801" + "20250802", "cnpj", WarnRequiredMissing},
		{"zero required date", "10001" + "03545887000191" + "123456         " + "00000000" + "20250802", "dataInicio", WarnRequiredMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Decode(rt, tt.line, 1)
			if !hasWarning(rec, tt.field, tt.code) {
				t.Fatalf("missing %s on %s: %+v", tt.code, tt.field, rec.Warnings)
			}
		})
	}
}

func TestDecodeOverflow(t *testing.T) {
	rt := &layout.RecordType{Family: "TEST", Code: "1", Fields: []layout.FieldDescriptor{
		{Name: "big", Start: 1, End: 25, Encoding: layout.Numeric},
	}}
	rec := Decode(rt, "1"+strings.Repeat("9", 24), 1)
	if !hasWarning(rec, "big", WarnOverflow) || rec.Has("big") {
		t.Fatalf("want overflow: %+v", rec)
	}
}

func TestDecodeCupomDefaults(t *testing.T) {
	rt := recordType(t, layout.General, "30")
	line, err := Encode(rt, map[string]Value{
		"numeroRps":     IntValue(7),
		"dataEmissao":   DateValue(codec.Date{Year: 2025, Month: 8, Day: 3}),
		"valorServicos": AmountValue(decimal.RequireFromString("10")),
		"valorIss":      AmountValue(decimal.RequireFromString("0.50")),
	})
	if err != nil {
		t.Fatal(err)
	}
	rec := Decode(rt, line, 5)
	if got := rec.Text("descricao"); got != layout.FixedCupomDescription {
		t.Fatalf("descricao = %q", got)
	}
	if got := rec.Text("tipoEquipamento"); got != "ECF" {
		t.Fatalf("tipoEquipamento = %q", got)
	}
}

func conditionalType() *layout.RecordType {
	return &layout.RecordType{
		Family: "TEST", Code: "5",
		Fields: []layout.FieldDescriptor{
			{Name: "tipoRegistro", Start: 0, End: 1},
			{Name: "modalidade", Start: 1, End: 2},
		},
		Conditionals: []layout.ConditionalGroup{
			{ParentOrdinal: 1, Trigger: "A", Subfields: []layout.Subfield{
				{Letter: "A", Field: layout.FieldDescriptor{Start: 2, End: 6, Encoding: layout.Numeric}},
				{Letter: "B", Field: layout.FieldDescriptor{Name: "obra", Start: 6, End: 10}},
			}},
			{ParentOrdinal: 1, Trigger: "B", Subfields: []layout.Subfield{
				{Letter: "A", Field: layout.FieldDescriptor{Start: 2, End: 10}},
			}},
		},
	}
}

func TestDecodeConditionalGroup(t *testing.T) {
	rt := conditionalType()

	rec := Decode(rt, "5A0042CASA", 1)
	if got := rec.Int("modalidade.A"); got != 42 {
		t.Fatalf("modalidade.A = %d", got)
	}
	if got := rec.Text("obra"); got != "CASA" {
		t.Fatalf("obra = %q", got)
	}

	rec = Decode(rt, "5C0042CASA", 1)
	if _, ok := rec.Fields["modalidade.A"]; ok {
		t.Fatal("group must not activate for an unmatched trigger")
	}
}

func TestEncodeConditionalGroup(t *testing.T) {
	rt := conditionalType()
	tests := []struct {
		name   string
		fields map[string]Value
		want   string
	}{
		{"active group", map[string]Value{
			"modalidade":   TextValue("A"),
			"modalidade.A": IntValue(42),
			"obra":         TextValue("CASA"),
		}, "5A0042CASA"},
		{"other trigger", map[string]Value{
			"modalidade":   TextValue("B"),
			"modalidade.A": TextValue("LOTE"),
		}, "5BLOTE    "},
		{"inactive group", map[string]Value{
			"modalidade":   TextValue("C"),
			"modalidade.A": IntValue(42),
		}, "5C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := Encode(rt, tt.fields)
			if err != nil {
				t.Fatal(err)
			}
			if line != tt.want {
				t.Fatalf("line = %q, want %q", line, tt.want)
			}
		})
	}

	line, err := Encode(rt, map[string]Value{"modalidade": TextValue("A"), "modalidade.A": IntValue(7), "obra": TextValue("RUA")})
	if err != nil {
		t.Fatal(err)
	}
	rec := Decode(rt, line, 1)
	if rec.Int("modalidade.A") != 7 || rec.Text("obra") != "RUA" || len(rec.Warnings) != 0 {
		t.Fatalf("round trip = %+v", rec.Fields)
	}
}

func TestEncodeRejectsTooWide(t *testing.T) {
	rt := recordType(t, layout.General, "90")
	_, err := Encode(rt, map[string]Value{"quantidadeLinhas": IntValue(123456789)})
	if err == nil {
		t.Fatal("expected ErrFieldTooWide")
	}
}

func TestEncodeDecodeEquipment(t *testing.T) {
	rt := recordType(t, layout.Equipment, "3")
	fields := map[string]Value{
		"tipoEquipamento":        TextValue("PQ"),
		"numeroSerieEquipamento": TextValue("SN-0001"),
		"numeroRps":              IntValue(1001),
		"dataEmissao":            DateValue(codec.Date{Year: 2025, Month: 7, Day: 31}),
		"situacao":               IntValue(1),
		"valorServicos":          AmountValue(decimal.RequireFromString("4.00")),
		"valorIss":               AmountValue(decimal.RequireFromString("0.20")),
		"valorPis":               AmountValue(decimal.RequireFromString("0.03")),
	}
	line, err := Encode(rt, fields)
	if err != nil {
		t.Fatal(err)
	}
	if len([]rune(line)) != rt.MinLength() {
		t.Fatalf("line length = %d, want %d", len([]rune(line)), rt.MinLength())
	}

	rec := Decode(rt, line, 2)
	if len(rec.Warnings) != 0 {
		t.Fatalf("warnings: %+v", rec.Warnings)
	}
	for name, want := range fields {
		if got := rec.Get(name).String(); got != want.String() {
			t.Errorf("%s = %q, want %q", name, got, want.String())
		}
	}
}
