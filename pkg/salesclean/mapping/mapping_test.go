package mapping

import (
	"testing"

	"github.com/cognicore/salesclean/pkg/salesclean/config"
	"github.com/cognicore/salesclean/pkg/salesclean/table"
)

func defaultMatcher() *Heuristic {
	return NewHeuristic(config.Default().Schema)
}

func assertTarget(t *testing.T, m Mapping, source, want string, method Method) {
	t.Helper()
	got, ok := m.Lookup(source)
	if !ok {
		t.Fatalf("no assignment for %q", source)
	}
	if got != want {
		t.Errorf("%q → %q, want %q", source, got, want)
	}
	for _, a := range m.Assignments {
		if a.Source == source && a.Method != method {
			t.Errorf("%q method = %s, want %s", source, a.Method, method)
		}
	}
}

func TestExactMatches(t *testing.T) {
	m := defaultMatcher().Match([]string{"Fecha", "Product", "Qty", "Precio", " City ", "País"})

	assertTarget(t, m, "Fecha", "fecha", MethodExact)
	assertTarget(t, m, "Product", "producto", MethodExact)
	assertTarget(t, m, "Qty", "cantidad", MethodExact)
	assertTarget(t, m, "Precio", "precio_unitario", MethodExact)
	assertTarget(t, m, " City ", "ciudad", MethodExact)
	assertTarget(t, m, "País", "pais", MethodExact)
}

func TestFuzzyMatches(t *testing.T) {
	m := defaultMatcher().Match([]string{"Fecha de Venta", "Precio Unitario (USD)", "categoria_venta"})

	assertTarget(t, m, "Fecha de Venta", "fecha", MethodFuzzy)
	assertTarget(t, m, "Precio Unitario (USD)", "precio_unitario", MethodFuzzy)
	assertTarget(t, m, "categoria_venta", "tipo_producto", MethodFuzzy)
}

func TestFuzzyFirstFieldWins(t *testing.T) {
	m := defaultMatcher().Match([]string{"producto_tipo"})
	assertTarget(t, m, "producto_tipo", "producto", MethodFuzzy)
}

func TestFuzzySkipsClaimedFields(t *testing.T) {
	m := defaultMatcher().Match([]string{"Producto", "producto_tipo"})

	assertTarget(t, m, "Producto", "producto", MethodExact)
	assertTarget(t, m, "producto_tipo", "tipo_producto", MethodFuzzy)
}

func TestExactClaimsWin(t *testing.T) {
	m := defaultMatcher().Match([]string{"fecha", "date"})

	assertTarget(t, m, "fecha", "fecha", MethodExact)
	assertTarget(t, m, "date", "columna_1", MethodFallback)
}

func TestShortNamesSkipFuzzy(t *testing.T) {
	m := defaultMatcher().Match([]string{"id", "x"})

	assertTarget(t, m, "id", "columna_1", MethodFallback)
	assertTarget(t, m, "x", "columna_2", MethodFallback)
}

func TestFallbackSkipsUsedNames(t *testing.T) {
	schema := []config.Field{{Name: "columna_1", Synonyms: []string{"foo"}}}
	m := NewHeuristic(schema).Match([]string{"foo", "zzz1", "zzz2"})

	assertTarget(t, m, "foo", "columna_1", MethodExact)
	assertTarget(t, m, "zzz1", "columna_2", MethodFallback)
	assertTarget(t, m, "zzz2", "columna_3", MethodFallback)
}

func TestEmptySynonymsIgnored(t *testing.T) {
	schema := []config.Field{{Name: "x", Synonyms: []string{"", "  ", "!!"}}}
	m := NewHeuristic(schema).Match([]string{"anything"})

	assertTarget(t, m, "anything", "columna_1", MethodFallback)
}

func TestMappingTotalityAndUniqueness(t *testing.T) {
	inputs := [][]string{
		{},
		{"fecha", "fecha", "fecha"},
		{"Fecha", "date", "timestamp", "fecha_venta", "Fecha Compra"},
		{"a", "b", "c", "columna_1", "columna_2"},
		{"ciudad", "city", "municipio", "pais", "country", "region", "state", "sku", "product_id"},
		{"", " ", "???", "Total", "total_ventas", "Monto Total", "importe"},
		{"qty", "quantity", "units", "cantidad_vendida", "precio", "precio_lista", "price"},
	}

	for _, names := range inputs {
		m := defaultMatcher().Match(names)

		distinct := make(map[string]struct{})
		for _, n := range names {
			distinct[n] = struct{}{}
		}
		if m.Len() != len(distinct) {
			t.Errorf("%v: %d assignments, want %d", names, m.Len(), len(distinct))
		}
		for n := range distinct {
			if _, ok := m.Lookup(n); !ok {
				t.Errorf("%v: %q has no assignment", names, n)
			}
		}

		targets := make(map[string]string)
		for _, a := range m.Assignments {
			if prev, dup := targets[a.Target]; dup {
				t.Errorf("%v: target %q used by %q and %q", names, a.Target, prev, a.Source)
			}
			targets[a.Target] = a.Source
		}
	}
}

func TestApplyRenamesColumns(t *testing.T) {
	tbl := table.FromStrings([]string{"Fecha", "Qty", "Fecha"}, [][]string{{"2024-01-01", "3", "x"}})
	m := defaultMatcher().Match(tbl.Columns)
	m.Apply(tbl)

	want := []string{"fecha", "cantidad", "fecha"}
	for i, c := range want {
		if tbl.Columns[i] != c {
			t.Errorf("column %d = %q, want %q", i, tbl.Columns[i], c)
		}
	}
}

func TestFixedMatcher(t *testing.T) {
	m := Fixed{"A": "fecha"}.Match([]string{"A", "B", "B"})

	if m.Len() != 2 {
		t.Fatalf("len = %d, want 2", m.Len())
	}
	assertTarget(t, m, "A", "fecha", MethodFixed)
	assertTarget(t, m, "B", "B", MethodKeep)
	if r := m.Renamed(); len(r) != 1 || r[0].Source != "A" {
		t.Errorf("Renamed() = %+v", r)
	}
}
