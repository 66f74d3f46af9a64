// Package repair detects structurally broken layouts and remaps them into
// the canonical positional scheme.
//
// The only strategy shipped today, ShiftedSalesLayout, is a blunt,
// dataset-specific heuristic: it assumes that any table with ten or more
// columns is the known shifted export of the sales tool and remaps it by
// position, ignoring the header. New corruption shapes are added as new
// Strategy values, not as conditionals inside existing ones.
package repair

import (
	"fmt"

	"github.com/cognicore/salesclean/pkg/salesclean/config"
	"github.com/cognicore/salesclean/pkg/salesclean/table"
)

// Strategy is one known corrupted-layout shape.
type Strategy interface {
	// Name identifies the strategy in reports and run history.
	Name() string
	// Applies reports whether t looks like this corruption shape.
	Applies(t *table.Table) bool
	// Repair returns the remapped table. It must not modify t.
	Repair(t *table.Table) *table.Table
}

// Repairer tries its strategies in order; the first one that applies wins.
type Repairer struct {
	strategies []Strategy
}

// New creates a repairer over the given strategies.
func New(strategies ...Strategy) *Repairer {
	return &Repairer{strategies: strategies}
}

// Default returns a repairer with the shifted sales layout strategy.
func Default(cfg config.Config) *Repairer {
	return New(ShiftedSalesLayout{Country: cfg.RepairCountry})
}

// Repair returns the repaired table and the name of the applied strategy.
// When no strategy applies, or the applicable one fails, t is returned
// unchanged with an empty name and, on failure, the recovered error.
func (r *Repairer) Repair(t *table.Table) (out *table.Table, applied string, err error) {
	for _, s := range r.strategies {
		if !s.Applies(t) {
			continue
		}
		repaired, rerr := run(s, t)
		if rerr != nil {
			return t, "", rerr
		}
		return repaired, s.Name(), nil
	}
	return t, "", nil
}

func run(s Strategy, t *table.Table) (out *table.Table, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("repair %s: %v", s.Name(), rec)
		}
	}()
	return s.Repair(t), nil
}

// ShiftedSlots is the positional order of the shifted sales export.
var ShiftedSlots = []string{
	config.FieldCity,
	config.FieldDate,
	config.FieldProduct,
	config.FieldProductType,
	config.FieldQuantity,
	config.FieldUnitPrice,
	config.FieldSaleType,
	config.FieldCustomer,
	config.FieldDiscount,
	config.FieldShipping,
}

// ShiftedSalesLayout remaps a table with at least len(ShiftedSlots) columns
// by position into ShiftedSlots plus a constant country column. Columns
// beyond the tenth are discarded and every value is stringified, so numbers
// must be re-parsed downstream.
type ShiftedSalesLayout struct {
	Country string
}

// Name implements Strategy.
func (ShiftedSalesLayout) Name() string { return "shifted_sales_layout" }

// Applies implements Strategy.
func (ShiftedSalesLayout) Applies(t *table.Table) bool {
	return t.Width() >= len(ShiftedSlots)
}

// Repair implements Strategy.
func (s ShiftedSalesLayout) Repair(t *table.Table) *table.Table {
	country := s.Country
	if country == "" {
		country = "Colombia"
	}

	cols := append(append([]string{}, ShiftedSlots...), config.FieldCountry)
	out := table.New(cols)
	out.Rows = make([][]table.Value, len(t.Rows))
	for r, row := range t.Rows {
		nr := make([]table.Value, len(cols))
		for i := range ShiftedSlots {
			if v := row[i]; !v.IsNull() {
				nr[i] = table.Text(v.String())
			}
		}
		nr[len(ShiftedSlots)] = table.Text(country)
		out.Rows[r] = nr
	}
	return out
}
