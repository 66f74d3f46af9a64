// Package geo resolves free-text city values to countries.
package geo

import (
	"sort"
	"strings"

	"github.com/cognicore/salesclean/pkg/salesclean/config"
	"github.com/cognicore/salesclean/pkg/salesclean/table"
	"github.com/cognicore/salesclean/pkg/salesclean/textnorm"
)

// Unknown is the country returned when no city matches.
const Unknown = "Desconocido"

// Resolver maps a city to a country.
type Resolver interface {
	Country(city string) string
}

type entry struct {
	key     string
	country string
}

// Table resolves cities against an ordered city → country list.
//
// A city listed twice keeps the position of its first entry and the country
// of its last, so "valencia" resolves to España even though the Colombian
// entry comes first. Duplicates reports the affected keys.
type Table struct {
	entries    []entry
	duplicates []string
	unknown    string
}

// New builds a Table. An empty unknown falls back to Unknown.
func New(cities []config.City, unknown string) *Table {
	if unknown == "" {
		unknown = Unknown
	}
	t := &Table{unknown: unknown}
	pos := make(map[string]int, len(cities))
	for _, c := range cities {
		key := textnorm.Fold(c.City)
		if key == "" {
			continue
		}
		if i, ok := pos[key]; ok {
			if t.entries[i].country != c.Country {
				t.duplicates = append(t.duplicates, key)
			}
			t.entries[i].country = c.Country
			continue
		}
		pos[key] = len(t.entries)
		t.entries = append(t.entries, entry{key: key, country: c.Country})
	}
	return t
}

// FromConfig builds a Table from cfg.Cities and cfg.UnknownCountry.
func FromConfig(cfg config.Config) *Table {
	return New(cfg.Cities, cfg.UnknownCountry)
}

// Duplicates lists the city keys whose country was overwritten by a later
// entry, in the order the overwrites happened.
func (t *Table) Duplicates() []string {
	return append([]string(nil), t.duplicates...)
}

// Len returns the number of distinct city keys.
func (t *Table) Len() int { return len(t.entries) }

// Country implements Resolver. The first entry whose key equals the city,
// is contained in it, or contains it wins.
func (t *Table) Country(city string) string {
	c := textnorm.Fold(city)
	if c == "" {
		return t.unknown
	}
	for _, e := range t.entries {
		if e.key == c || strings.Contains(c, e.key) || strings.Contains(e.key, c) {
			return e.country
		}
	}
	return t.unknown
}

// CountryCount is the number of rows resolved to one country.
type CountryCount struct {
	Country string
	Rows    int
}

// ResolveTable writes the pais column from the ciudad column, overwriting
// any existing country values. It returns the per-country row counts in
// descending order, or nil when t has no ciudad column.
func ResolveTable(t *table.Table, r Resolver) []CountryCount {
	ci := t.Index(config.FieldCity)
	if ci < 0 {
		return nil
	}

	values := make([]table.Value, t.Len())
	counts := make(map[string]int)
	var order []string
	for i, row := range t.Rows {
		city := ""
		if v := row[ci]; !v.IsNull() {
			city = v.String()
		}
		country := r.Country(city)
		values[i] = table.Text(country)
		if _, ok := counts[country]; !ok {
			order = append(order, country)
		}
		counts[country]++
	}
	t.AddColumn(config.FieldCountry, values)

	out := make([]CountryCount, len(order))
	for i, c := range order {
		out[i] = CountryCount{Country: c, Rows: counts[c]}
	}
	// ties keep first-seen order
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rows > out[j].Rows })
	return out
}
