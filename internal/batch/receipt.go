// =============================================================================
// RPS Batch Decoder - Receipt Adapters
// =============================================================================
//
// Detail record types differ per family and per type code, but persistence
// and reports want one canonical shape. Receipt is that shape. Adapters read
// fields by their layout names; a field the record type does not define
// stays at its zero value.
//
// =============================================================================

package batch

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rps-batch-decoder/internal/codec"
	"github.com/ginjaninja78/rps-batch-decoder/internal/decoder"
)

// Party identifies a taker (tomador) or provider (prestador).
type Party struct {
	TipoDocumento      string `json:"tipoDocumento,omitempty"`
	Documento          string `json:"documento,omitempty"`
	Nome               string `json:"nome,omitempty"`
	InscricaoMunicipal string `json:"inscricaoMunicipal,omitempty"`
}

// Equipment identifies the device that issued a receipt.
type Equipment struct {
	Tipo        string `json:"tipo"`
	NumeroSerie string `json:"numeroSerie,omitempty"`
}

// Retencoes are the federal withholdings carried by equipment receipts.
type Retencoes struct {
	Pis    decimal.Decimal `json:"pis"`
	Cofins decimal.Decimal `json:"cofins"`
	Inss   decimal.Decimal `json:"inss"`
	Ir     decimal.Decimal `json:"ir"`
	Csll   decimal.Decimal `json:"csll"`
	Outras decimal.Decimal `json:"outras"`
}

// Total is the sum of all withholdings.
func (r Retencoes) Total() decimal.Decimal {
	return r.Pis.Add(r.Cofins).Add(r.Inss).Add(r.Ir).Add(r.Csll).Add(r.Outras)
}

// Receipt is one detail record in canonical form.
type Receipt struct {
	LineNumber    int             `json:"lineNumber"`
	TypeCode      string          `json:"typeCode"`
	NumeroRps     int64           `json:"numeroRps"`
	Serie         string          `json:"serie,omitempty"`
	DataEmissao   codec.Date      `json:"dataEmissao"`
	Situacao      string          `json:"situacao,omitempty"`
	ValorServicos decimal.Decimal `json:"valorServicos"`
	ValorDeducoes decimal.Decimal `json:"valorDeducoes"`
	ValorIss      decimal.Decimal `json:"valorIss"`

	// Aliquota is the effective tax rate in percent, rounded to two decimals.
	Aliquota decimal.Decimal `json:"aliquota"`

	IssRetido     bool       `json:"issRetido"`
	CodigoServico int64      `json:"codigoServico,omitempty"`
	NumeroCupom   int64      `json:"numeroCupom,omitempty"`
	Retencoes     Retencoes  `json:"retencoes"`
	Descricao     string     `json:"descricao,omitempty"`
	Tomador       *Party     `json:"tomador,omitempty"`
	Prestador     *Party     `json:"prestador,omitempty"`
	Equipamento   *Equipment `json:"equipamento,omitempty"`

	Warnings []decoder.FieldWarning `json:"warnings,omitempty"`
}

// Header is the batch header in canonical form.
type Header struct {
	LineNumber         int        `json:"lineNumber"`
	Cnpj               string     `json:"cnpj"`
	InscricaoMunicipal string     `json:"inscricaoMunicipal"`
	VersaoLayout       int64      `json:"versaoLayout,omitempty"`
	NumeroLote         int64      `json:"numeroLote,omitempty"`
	DataInicio         codec.Date `json:"dataInicio"`
	DataFim            codec.Date `json:"dataFim"`
}

var percent = decimal.NewFromInt(100)

// Aliquota returns tax / services * 100 rounded to two decimals, or zero when
// services is zero.
func Aliquota(services, tax decimal.Decimal) decimal.Decimal {
	if services.IsZero() {
		return decimal.Zero
	}
	return tax.Mul(percent).DivRound(services, 2)
}

// NewReceipt adapts a decoded detail record.
func NewReceipt(rec *decoder.Record) Receipt {
	r := Receipt{
		LineNumber:    rec.LineNumber,
		TypeCode:      rec.TypeCode,
		NumeroRps:     rec.Int("numeroRps"),
		Serie:         rec.Text("serieRps"),
		DataEmissao:   rec.Date("dataEmissao"),
		ValorServicos: rec.Amount(FieldServiceValue),
		ValorDeducoes: rec.Amount(FieldDeductionValue),
		ValorIss:      rec.Amount(FieldTaxValue),
		IssRetido:     retained(rec.Text("issRetido")),
		CodigoServico: rec.Int("codigoServico"),
		NumeroCupom:   rec.Int("numeroCupom"),
		Descricao:     rec.Text("descricao"),
		Retencoes: Retencoes{
			Pis:    rec.Amount("valorPis"),
			Cofins: rec.Amount("valorCofins"),
			Inss:   rec.Amount("valorInss"),
			Ir:     rec.Amount("valorIr"),
			Csll:   rec.Amount("valorCsll"),
			Outras: rec.Amount("valorOutrasRetencoes"),
		},
		Warnings: rec.Warnings,
	}
	r.Aliquota = Aliquota(r.ValorServicos, r.ValorIss)

	switch {
	case rec.Has("situacaoRps"):
		r.Situacao = rec.Text("situacaoRps")
	case rec.Has("situacao"):
		r.Situacao = rec.Get("situacao").String()
	}

	if p := party(rec.Text("tomadorTipoDocumento"), rec.Text("tomadorCpfCnpj"), rec.Text("tomadorNome"), ""); p != nil {
		r.Tomador = p
	}
	if p := party("", rec.Text("prestadorCpfCnpj"), rec.Text("prestadorNome"), rec.Text("prestadorInscricaoMunicipal")); p != nil {
		r.Prestador = p
	}
	if tipo, serie := rec.Text("tipoEquipamento"), rec.Text("numeroSerieEquipamento"); tipo != "" || serie != "" {
		r.Equipamento = &Equipment{Tipo: tipo, NumeroSerie: serie}
	}
	return r
}

// NewHeader adapts a decoded header record.
func NewHeader(rec *decoder.Record) *Header {
	if rec == nil {
		return nil
	}
	return &Header{
		LineNumber:         rec.LineNumber,
		Cnpj:               rec.Text("cnpj"),
		InscricaoMunicipal: rec.Text("inscricaoMunicipal"),
		VersaoLayout:       rec.Int("versaoLayout"),
		NumeroLote:         rec.Int("numeroLote"),
		DataInicio:         rec.Date("dataInicio"),
		DataFim:            rec.Date("dataFim"),
	}
}

func party(tipo, documento, nome, inscricao string) *Party {
	if documento == "" && nome == "" && inscricao == "" {
		return nil
	}
	return &Party{TipoDocumento: tipo, Documento: documento, Nome: nome, InscricaoMunicipal: inscricao}
}

// retained reads the issRetido flag: "S", "1" or "T" mean withheld.
func retained(flag string) bool {
	switch strings.ToUpper(strings.TrimSpace(flag)) {
	case "S", "1", "T":
		return true
	}
	return false
}
