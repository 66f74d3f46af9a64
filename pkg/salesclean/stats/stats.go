// Package stats computes completeness figures for a cleaned table.
package stats

import "github.com/cognicore/salesclean/pkg/salesclean/table"

// ColumnNulls is the null count of one output column.
type ColumnNulls struct {
	Column string `json:"column"`
	Nulls  int    `json:"nulls"`
}

// Stats summarizes a cleaning run.
type Stats struct {
	OriginalRows  int           `json:"original_rows"`
	FinalRows     int           `json:"final_rows"`
	FinalColumns  int           `json:"final_columns"`
	NullsByColumn []ColumnNulls `json:"nulls_by_column"`
	RemovedRows   int           `json:"removed_rows"`
	Completeness  float64       `json:"completeness"` // percent of non-null cells
}

// Compute reads t without modifying it. Completeness is
// (1 - nulls/(rows*columns)) * 100, or 0 for an empty table.
func Compute(originalRows int, t *table.Table) Stats {
	s := Stats{
		OriginalRows:  originalRows,
		FinalRows:     t.Len(),
		FinalColumns:  t.Width(),
		NullsByColumn: make([]ColumnNulls, t.Width()),
		RemovedRows:   originalRows - t.Len(),
	}

	total := 0
	for i, name := range t.Columns {
		n := 0
		for _, row := range t.Rows {
			if row[i].IsNull() {
				n++
			}
		}
		s.NullsByColumn[i] = ColumnNulls{Column: name, Nulls: n}
		total += n
	}

	if cells := s.FinalRows * s.FinalColumns; cells > 0 {
		s.Completeness = (1 - float64(total)/float64(cells)) * 100
	}
	return s
}

// Nulls returns the total number of null cells.
func (s Stats) Nulls() int {
	n := 0
	for _, c := range s.NullsByColumn {
		n += c.Nulls
	}
	return n
}

// Validity is the share of non-null values in one column.
type Validity struct {
	Column  string
	Valid   int
	Total   int
	Percent float64
}

// ColumnValidity reports valid/total per column in output order. Percent is
// 0 when the table has no rows.
func (s Stats) ColumnValidity() []Validity {
	out := make([]Validity, len(s.NullsByColumn))
	for i, c := range s.NullsByColumn {
		v := Validity{Column: c.Column, Valid: s.FinalRows - c.Nulls, Total: s.FinalRows}
		if s.FinalRows > 0 {
			v.Percent = float64(v.Valid) / float64(v.Total) * 100
		}
		out[i] = v
	}
	return out
}
