// Package batchtest builds well-formed batch files for tests of the packages
// that sit on top of the decoder.
package batchtest

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rps-batch-decoder/internal/codec"
	"github.com/ginjaninja78/rps-batch-decoder/internal/decoder"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
)

// MustEncode encodes one record of the built-in catalog and panics on error.
func MustEncode(family layout.FamilyID, code string, fields map[string]decoder.Value) string {
	f, err := layout.Default().Family(family)
	if err != nil {
		panic(err)
	}
	rt, ok := f.Lookup(code)
	if !ok {
		panic(fmt.Sprintf("family %s has no record type %s", family, code))
	}
	line, err := decoder.Encode(rt, fields)
	if err != nil {
		panic(err)
	}
	return line
}

func amount(d decimal.Decimal) decoder.Value { return decoder.AmountValue(d) }

var august1 = decoder.DateValue(codec.Date{Year: 2025, Month: 8, Day: 1})

// General returns a clean GENERAL batch with n receipts of 100.00 services
// and 5.00 tax each, CRLF terminated.
func General(n int) string {
	value := decimal.RequireFromString("100.00")
	tax := decimal.RequireFromString("5.00")

	lines := []string{MustEncode(layout.General, "10", map[string]decoder.Value{
		"versaoLayout":       decoder.IntValue(1),
		"cnpj":               decoder.TextValue("03545887000191"),
		"inscricaoMunicipal": decoder.TextValue("123456"),
		"dataInicio":         august1,
		"dataFim":            august1,
	})}
	for i := 1; i <= n; i++ {
		lines = append(lines, MustEncode(layout.General, "20", map[string]decoder.Value{
			"numeroRps":     decoder.IntValue(int64(i)),
			"serieRps":      decoder.TextValue("A"),
			"dataEmissao":   august1,
			"situacaoRps":   decoder.TextValue("N"),
			"valorServicos": amount(value),
			"valorDeducoes": amount(decimal.Zero),
			"valorIss":      amount(tax),
			"issRetido":     decoder.TextValue("N"),
			"tomadorNome":   decoder.TextValue("CLIENTE"),
		}))
	}
	lines = append(lines, MustEncode(layout.General, "90", map[string]decoder.Value{
		"quantidadeLinhas":   decoder.IntValue(int64(n)),
		"valorTotalServicos": amount(value.Mul(decimal.NewFromInt(int64(n)))),
		"valorTotalDeducoes": amount(decimal.Zero),
	}))
	return strings.Join(lines, "\r\n") + "\r\n"
}
