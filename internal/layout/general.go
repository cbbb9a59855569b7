package layout

// =============================================================================
// GENERAL SERVICE-RECEIPT FAMILY
// =============================================================================
//
// Two-character type codes:
//
//	10  header        prestador CNPJ, municipal registration, period
//	20  RPS           standard detail, taker-side identity, long description
//	21  intermediary  recognised, never decoded
//	30  cupom         equipment-issued receipt, fixed description
//	40  conventional  invoice detail, prestador-side identity
//	90  footer        declared line count and totals
//
// Every amount is 15 digits of integer cents.

// descricaoWidth is the width of the type 20 description field. It is far
// wider than any other field; overrides can narrow it once confirmed against
// the municipality's published layout.
const descricaoWidth = 4000

// FixedCupomDescription is the description assigned to type 30 receipts,
// which carry none on the line.
const FixedCupomDescription = "CUPOM FISCAL EMITIDO POR EQUIPAMENTO"

func generalFamily() *Family {
	types := []*RecordType{
		{
			Code: "10", Name: "Cabecalho", Role: RoleHeader, Ordinal: 1,
			Fields: []FieldDescriptor{
				text("tipoRegistro", 0, 2),
				num("versaoLayout", 2, 5),
				req(text("cnpj", 5, 19)),
				req(text("inscricaoMunicipal", 19, 34)),
				req(date("dataInicio", 34, 42)),
				req(date("dataFim", 42, 50)),
			},
		},
		{
			Code: "20", Name: "RPS", Role: RoleDetail, Ordinal: 2,
			Fields: []FieldDescriptor{
				text("tipoRegistro", 0, 2),
				req(num("numeroRps", 2, 14)),
				text("serieRps", 14, 19),
				req(date("dataEmissao", 19, 27)),
				text("situacaoRps", 27, 28),
				req(money("valorServicos", 28, 43)),
				money("valorDeducoes", 43, 58),
				req(money("valorIss", 58, 73)),
				text("issRetido", 73, 74),
				num("codigoServico", 74, 79),
				text("tomadorTipoDocumento", 79, 80),
				text("tomadorCpfCnpj", 80, 94),
				text("tomadorNome", 94, 169),
				text("descricao", 169, 169+descricaoWidth),
			},
		},
		{
			Code: "21", Name: "Intermediario", Role: RoleIgnored, Ordinal: 2,
			Fields: []FieldDescriptor{
				text("tipoRegistro", 0, 2),
				text("intermediarioCpfCnpj", 2, 16),
				text("intermediarioNome", 16, 91),
			},
		},
		{
			Code: "30", Name: "Cupom", Role: RoleDetail, Ordinal: 2,
			Fields: []FieldDescriptor{
				text("tipoRegistro", 0, 2),
				req(num("numeroRps", 2, 14)),
				text("serieRps", 14, 19),
				req(date("dataEmissao", 19, 27)),
				num("numeroCupom", 27, 39),
				text("numeroSerieEquipamento", 39, 59),
				req(money("valorServicos", 59, 74)),
				money("valorDeducoes", 74, 89),
				req(money("valorIss", 89, 104)),
				text("tomadorCpfCnpj", 104, 118),
			},
			Defaults: map[string]string{
				"descricao":       FixedCupomDescription,
				"tipoEquipamento": "ECF",
			},
		},
		{
			Code: "40", Name: "Nota Convencional", Role: RoleDetail, Ordinal: 2,
			Fields: []FieldDescriptor{
				text("tipoRegistro", 0, 2),
				req(num("numeroRps", 2, 14)),
				text("serieRps", 14, 19),
				req(date("dataEmissao", 19, 27)),
				req(money("valorServicos", 27, 42)),
				money("valorDeducoes", 42, 57),
				req(money("valorIss", 57, 72)),
				text("prestadorCpfCnpj", 72, 86),
				text("prestadorInscricaoMunicipal", 86, 101),
				text("prestadorNome", 101, 176),
				text("descricao", 176, 1176),
			},
		},
		{
			Code: "90", Name: "Rodape", Role: RoleFooter, Ordinal: 3,
			Fields: []FieldDescriptor{
				text("tipoRegistro", 0, 2),
				reconciles(req(num("quantidadeLinhas", 2, 10)), StatCount),
				reconciles(req(money("valorTotalServicos", 10, 25)), "valorServicos"),
				reconciles(req(money("valorTotalDeducoes", 25, 40)), "valorDeducoes"),
			},
		},
	}
	return newFamily(General, 1, 2, types)
}

// =============================================================================
// DESCRIPTOR HELPERS
// =============================================================================

func text(name string, start, end int) FieldDescriptor {
	return FieldDescriptor{Name: name, Start: start, End: end, Encoding: Text}
}

func num(name string, start, end int) FieldDescriptor {
	return FieldDescriptor{Name: name, Start: start, End: end, Encoding: Numeric}
}

func date(name string, start, end int) FieldDescriptor {
	return FieldDescriptor{Name: name, Start: start, End: end, Encoding: Date}
}

func money(name string, start, end int) FieldDescriptor {
	return FieldDescriptor{Name: name, Start: start, End: end, Encoding: CurrencyCents}
}

func req(f FieldDescriptor) FieldDescriptor {
	f.Required = true
	return f
}

func reconciles(f FieldDescriptor, stat string) FieldDescriptor {
	f.Reconciles = stat
	return f
}

func newFamily(id FamilyID, version, codeWidth int, types []*RecordType) *Family {
	f := &Family{ID: id, Version: version, CodeWidth: codeWidth, Types: make(map[string]*RecordType, len(types))}
	for _, rt := range types {
		rt.Family = id
		f.Types[rt.Code] = rt
	}
	return f
}
