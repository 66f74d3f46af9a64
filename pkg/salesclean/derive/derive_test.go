package derive

import (
	"math"
	"testing"

	"github.com/cognicore/salesclean/pkg/salesclean/clean"
	"github.com/cognicore/salesclean/pkg/salesclean/config"
	"github.com/cognicore/salesclean/pkg/salesclean/table"
)

func TestTotalsWithDiscount(t *testing.T) {
	tbl := table.FromStrings(
		[]string{"cantidad", "precio_unitario", "descuento"},
		[][]string{{"10", "5.00", "10"}, {"2", "x", "0"}, {"3", "4", ""}},
	)

	if !Totals(tbl, nil) {
		t.Fatal("Totals should derive total_ventas")
	}

	ti := tbl.Index("total_ventas")
	if ti != 3 {
		t.Fatalf("total_ventas index = %d, want 3", ti)
	}
	got, ok := tbl.Rows[0][ti].Float()
	if !ok || math.Abs(got-45) > 1e-9 {
		t.Errorf("total = %v, want 45", tbl.Rows[0][ti])
	}
	if !tbl.Rows[1][ti].IsNull() {
		t.Error("unparseable price should give a null total")
	}
	if !tbl.Rows[2][ti].IsNull() {
		t.Error("null discount should give a null total")
	}
	if !tbl.Rows[0][0].IsNumber() {
		t.Error("cantidad should have been coerced to a number")
	}
}

func TestTotalsWithoutDiscount(t *testing.T) {
	tbl := table.FromStrings([]string{"cantidad", "precio_unitario"}, [][]string{{"3", "2.5"}})

	if !Totals(tbl, nil) {
		t.Fatal("Totals should derive total_ventas")
	}
	if got := tbl.Rows[0][2].String(); got != "7.5" {
		t.Errorf("total = %q, want 7.5", got)
	}
}

func TestTotalsBounded(t *testing.T) {
	tbl := table.FromStrings([]string{"cantidad", "precio_unitario"}, [][]string{{"3", "0.333"}, {"1000", "5000"}})

	if !Totals(tbl, clean.New(config.Default())) {
		t.Fatal("Totals should derive total_ventas")
	}
	if got := tbl.Rows[0][2].String(); got != "1" {
		t.Errorf("total = %q, want 1", got)
	}
	if got := tbl.Rows[1][2].String(); got != "1000000" {
		t.Errorf("total = %q, want 1000000", got)
	}
}

func TestTotalsNoop(t *testing.T) {
	tests := map[string][]string{
		"existing total": {"cantidad", "precio_unitario", "total_ventas"},
		"no price":       {"cantidad", "descuento"},
		"no quantity":    {"precio_unitario"},
	}
	for name, cols := range tests {
		t.Run(name, func(t *testing.T) {
			row := make([]string, len(cols))
			for i := range row {
				row[i] = "1"
			}
			tbl := table.FromStrings(cols, [][]string{row})

			if Totals(tbl, nil) {
				t.Error("Totals should not derive")
			}
			if tbl.Width() != len(cols) {
				t.Errorf("width = %d, want %d", tbl.Width(), len(cols))
			}
		})
	}
}
