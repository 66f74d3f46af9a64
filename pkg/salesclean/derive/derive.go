// Package derive adds computed columns to a cleaned table.
package derive

import (
	"github.com/cognicore/salesclean/pkg/salesclean/clean"
	"github.com/cognicore/salesclean/pkg/salesclean/config"
	"github.com/cognicore/salesclean/pkg/salesclean/table"
)

// Totals adds total_ventas = cantidad × precio_unitario × (1 − descuento/100)
// when the table has quantity and unit price but no total. The discount
// factor is applied only when a descuento column exists. Operands are
// coerced again so the result does not depend on earlier stages; a null
// operand gives a null total. When c is non-nil the totals are clamped and
// rounded by its number rule. Totals reports whether the column was added.
func Totals(t *table.Table, c *clean.Cleaner) bool {
	if t.Has(config.FieldTotal) {
		return false
	}
	qi, pi := t.Index(config.FieldQuantity), t.Index(config.FieldUnitPrice)
	if qi < 0 || pi < 0 {
		return false
	}
	di := t.Index(config.FieldDiscount)

	coerceColumn(t, qi)
	coerceColumn(t, pi)
	if di >= 0 {
		coerceColumn(t, di)
	}

	totals := make([]table.Value, t.Len())
	for r, row := range t.Rows {
		q, qok := row[qi].Float()
		p, pok := row[pi].Float()
		if !qok || !pok {
			continue
		}
		total := q * p
		if di >= 0 {
			d, ok := row[di].Float()
			if !ok {
				continue
			}
			total *= 1 - d/100
		}
		if c != nil {
			total = c.Bound(total)
		}
		totals[r] = table.Number(total)
	}
	t.AddColumn(config.FieldTotal, totals)
	return true
}

func coerceColumn(t *table.Table, ci int) {
	for _, row := range t.Rows {
		if row[ci].IsNumber() {
			continue
		}
		if f, ok := clean.Coerce(row[ci]); ok {
			row[ci] = table.Number(f)
		} else {
			row[ci] = table.Null()
		}
	}
}
