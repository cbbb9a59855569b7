package layout

// =============================================================================
// EQUIPMENT-RECEIPT FAMILY
// =============================================================================
//
// One-character type codes: 1 header, 3 detail, 9 footer. Details carry the
// issuing equipment and up to nine monetary fields.

func equipmentFamily() *Family {
	types := []*RecordType{
		{
			Code: "1", Name: "Cabecalho", Role: RoleHeader, Ordinal: 1,
			Fields: []FieldDescriptor{
				text("tipoRegistro", 0, 1),
				req(text("cnpj", 1, 15)),
				req(text("inscricaoMunicipal", 15, 30)),
				req(num("numeroLote", 30, 40)),
				req(date("dataInicio", 40, 48)),
				req(date("dataFim", 48, 56)),
			},
		},
		{
			Code: "3", Name: "Recibo de Equipamento", Role: RoleDetail, Ordinal: 2,
			Fields: []FieldDescriptor{
				text("tipoRegistro", 0, 1),
				req(text("tipoEquipamento", 1, 3)),
				req(text("numeroSerieEquipamento", 3, 23)),
				req(num("numeroRps", 23, 35)),
				req(date("dataEmissao", 35, 43)),
				num("situacao", 43, 45),
				req(money("valorServicos", 45, 60)),
				money("valorDeducoes", 60, 75),
				req(money("valorIss", 75, 90)),
				money("valorPis", 90, 105),
				money("valorCofins", 105, 120),
				money("valorInss", 120, 135),
				money("valorIr", 135, 150),
				money("valorCsll", 150, 165),
				money("valorOutrasRetencoes", 165, 180),
				text("descricao", 180, 680),
			},
		},
		{
			Code: "9", Name: "Rodape", Role: RoleFooter, Ordinal: 3,
			Fields: []FieldDescriptor{
				text("tipoRegistro", 0, 1),
				reconciles(req(num("quantidadeRegistros", 1, 9)), StatCount),
				num("quantidadeCancelados", 9, 17),
				reconciles(req(money("valorTotalServicos", 17, 32)), "valorServicos"),
				reconciles(money("valorTotalDeducoes", 32, 47), "valorDeducoes"),
				reconciles(money("valorTotalIss", 47, 62), "valorIss"),
				reconciles(money("valorTotalPis", 62, 77), "valorPis"),
				reconciles(money("valorTotalCofins", 77, 92), "valorCofins"),
			},
		},
	}
	return newFamily(Equipment, 1, 1, types)
}
