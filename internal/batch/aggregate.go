package batch

import (
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rps-batch-decoder/internal/decoder"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
)

// Well-known detail currency fields shared by every built-in detail type.
const (
	FieldServiceValue   = "valorServicos"
	FieldTaxValue       = "valorIss"
	FieldDeductionValue = "valorDeducoes"
)

// Statistics are the totals computed from a batch's detail records.
type Statistics struct {
	TotalCount int                        `json:"totalCount"`
	Sums       map[string]decimal.Decimal `json:"sums"`
}

// Sum returns the total of the named currency field. Fields no detail
// carried sum to zero.
func (s Statistics) Sum(field string) decimal.Decimal {
	return s.Sums[field]
}

// TotalServiceValue is the sum of valorServicos.
func (s Statistics) TotalServiceValue() decimal.Decimal { return s.Sum(FieldServiceValue) }

// TotalTaxValue is the sum of valorIss.
func (s Statistics) TotalTaxValue() decimal.Decimal { return s.Sum(FieldTaxValue) }

// TotalDeductionValue is the sum of valorDeducoes.
func (s Statistics) TotalDeductionValue() decimal.Decimal { return s.Sum(FieldDeductionValue) }

// Statistic resolves a footer Reconciles key: layout.StatCount or a field sum.
func (s Statistics) Statistic(key string) decimal.Decimal {
	if key == layout.StatCount {
		return decimal.NewFromInt(int64(s.TotalCount))
	}
	return s.Sum(key)
}

// Aggregator folds detail records into Statistics with exact decimal
// addition. Add and Merge are order independent, so partial aggregators
// from parallel partitions can be merged in any order.
type Aggregator struct {
	count int
	sums  map[string]decimal.Decimal
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{sums: make(map[string]decimal.Decimal)}
}

// Add counts rec and sums each of its present currency fields.
func (a *Aggregator) Add(rec *decoder.Record) {
	a.count++
	for name, v := range rec.Fields {
		if v.Encoding == layout.CurrencyCents && v.Present {
			a.sums[name] = a.sums[name].Add(v.Amount)
		}
	}
}

// Merge adds the totals of o into a.
func (a *Aggregator) Merge(o *Aggregator) {
	a.count += o.count
	for name, sum := range o.sums {
		a.sums[name] = a.sums[name].Add(sum)
	}
}

// Statistics returns a snapshot of the totals.
func (a *Aggregator) Statistics() Statistics {
	sums := make(map[string]decimal.Decimal, len(a.sums))
	for name, sum := range a.sums {
		sums[name] = sum
	}
	return Statistics{TotalCount: a.count, Sums: sums}
}
