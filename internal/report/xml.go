package report

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// XML REPORT
// =============================================================================
//
// STRUCTURE:
//
//   <?xml version="1.0" encoding="UTF-8"?>
//   <loteRps familia="GENERAL" versao="1" estado="done">
//     <cabecalho>
//       <cnpj>12345678000199</cnpj>
//       ...
//     </cabecalho>
//     <rps n="1">                      <!-- n counts receipts from 1 -->
//       <linha>2</linha>
//       <numeroRps>1</numeroRps>
//       <valorServicos>123.45</valorServicos>
//       ...
//     </rps>
//     <totais>...</totais>
//     <avisos>
//       <aviso linha="3" nivel="line" codigo="unrecognized">...</aviso>
//     </avisos>
//   </loteRps>
//
// Empty optional values are left out; amounts always carry two decimals.
// =============================================================================

const xmlIndent = "  "

type element struct {
	name     string
	attrs    []xml.Attr
	value    string
	children []element
}

func leaf(name, value string) element {
	return element{name: name, value: value}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// add appends a leaf unless value is empty.
func (e *element) add(name, value string) {
	if value != "" {
		e.children = append(e.children, leaf(name, value))
	}
}

// WriteXML writes doc as an XML document.
func WriteXML(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	writeElement(bw, buildXMLDocument(doc), 0)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write XML report: %w", err)
	}
	return nil
}

func buildXMLDocument(doc *Document) element {
	root := element{
		name: "loteRps",
		attrs: []xml.Attr{
			attr("familia", doc.Family),
			attr("versao", strconv.Itoa(doc.LayoutVersion)),
			attr("estado", doc.State),
		},
	}

	if h := doc.Header; h != nil {
		cab := element{name: "cabecalho"}
		cab.add("cnpj", h.Cnpj)
		cab.add("inscricaoMunicipal", h.InscricaoMunicipal)
		if !h.DataInicio.IsZero() {
			cab.add("dataInicio", h.DataInicio.String())
		}
		if !h.DataFim.IsZero() {
			cab.add("dataFim", h.DataFim.String())
		}
		root.children = append(root.children, cab)
	}

	for i, r := range doc.Receipts {
		rps := element{name: "rps", attrs: []xml.Attr{attr("n", strconv.Itoa(i+1))}}
		rps.add("linha", strconv.Itoa(r.LineNumber))
		rps.add("tipo", r.TypeCode)
		rps.add("numeroRps", strconv.FormatInt(r.NumeroRps, 10))
		rps.add("serie", r.Serie)
		if !r.DataEmissao.IsZero() {
			rps.add("dataEmissao", r.DataEmissao.String())
		}
		rps.add("situacao", r.Situacao)
		rps.add("valorServicos", money(r.ValorServicos))
		rps.add("valorDeducoes", money(r.ValorDeducoes))
		rps.add("valorIss", money(r.ValorIss))
		rps.add("aliquota", money(r.Aliquota))
		rps.add("issRetido", strconv.FormatBool(r.IssRetido))
		if r.NumeroCupom != 0 {
			rps.add("numeroCupom", strconv.FormatInt(r.NumeroCupom, 10))
		}
		if total := r.Retencoes.Total(); !total.IsZero() {
			rps.add("valorRetencoes", money(total))
		}
		if r.Tomador != nil {
			tom := element{name: "tomador"}
			tom.add("documento", r.Tomador.Documento)
			tom.add("nome", r.Tomador.Nome)
			rps.children = append(rps.children, tom)
		}
		rps.add("descricao", r.Descricao)
		root.children = append(root.children, rps)
	}

	tot := element{name: "totais"}
	tot.add("quantidadeRps", strconv.Itoa(doc.Totals.Receipts))
	tot.add("valorServicos", money(doc.Totals.ValorServicos))
	tot.add("valorIss", money(doc.Totals.ValorIss))
	tot.add("valorDeducoes", money(doc.Totals.ValorDeducoes))
	root.children = append(root.children, tot)

	if len(doc.Warnings) > 0 {
		avisos := element{name: "avisos"}
		for _, w := range doc.Warnings {
			a := element{name: "aviso", value: w.Message, attrs: []xml.Attr{attr("nivel", w.Level), attr("codigo", w.Code)}}
			if w.LineNumber > 0 {
				a.attrs = append([]xml.Attr{attr("linha", strconv.Itoa(w.LineNumber))}, a.attrs...)
			}
			if w.Field != "" {
				a.attrs = append(a.attrs, attr("campo", w.Field))
			}
			avisos.children = append(avisos.children, a)
		}
		root.children = append(root.children, avisos)
	}
	return root
}

// writeElement writes e and its children, one element per line.
func writeElement(w *bufio.Writer, e element, level int) {
	for i := 0; i < level; i++ {
		w.WriteString(xmlIndent)
	}
	w.WriteString("<" + e.name)
	for _, a := range e.attrs {
		w.WriteString(" " + a.Name.Local + `="`)
		xml.EscapeText(w, []byte(a.Value))
		w.WriteString(`"`)
	}

	if len(e.children) == 0 && e.value == "" {
		w.WriteString("/>\n")
		return
	}
	w.WriteString(">")

	if len(e.children) == 0 {
		xml.EscapeText(w, []byte(e.value))
	} else {
		w.WriteString("\n")
		for _, c := range e.children {
			writeElement(w, c, level+1)
		}
		for i := 0; i < level; i++ {
			w.WriteString(xmlIndent)
		}
	}
	w.WriteString("</" + e.name + ">\n")
}
