package table

import (
	"math"
	"strconv"
)

type kind uint8

const (
	kindNull kind = iota
	kindText
	kindNumber
)

// Value is a single cell: null, text or number.
type Value struct {
	k kind
	s string
	n float64
}

// Null returns the null value.
func Null() Value { return Value{} }

// Text wraps a string. The empty string is kept as text; callers decide
// whether it means null.
func Text(s string) Value { return Value{k: kindText, s: s} }

// Number wraps a float. NaN and infinities become null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{k: kindNumber, n: f}
}

// IsNull reports whether the cell is empty.
func (v Value) IsNull() bool { return v.k == kindNull }

// IsText reports whether the cell holds a string.
func (v Value) IsText() bool { return v.k == kindText }

// IsNumber reports whether the cell holds a number.
func (v Value) IsNumber() bool { return v.k == kindNumber }

// Float returns the numeric value when the cell is a number.
func (v Value) Float() (float64, bool) {
	if v.k != kindNumber {
		return 0, false
	}
	return v.n, true
}

// String renders the cell the way it is written to a delimited file.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.k {
	case kindText:
		return v.s
	case kindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	default:
		return ""
	}
}

// Table is an in-memory, column-ordered table. Column names may repeat
// until the pipeline deduplicates them.
type Table struct {
	Columns []string
	Rows    [][]Value
}

// New creates an empty table with the given header.
func New(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// FromStrings builds a table from a header and string records. Empty cells
// become null and short records are padded.
func FromStrings(header []string, records [][]string) *Table {
	t := New(header)
	t.Rows = make([][]Value, 0, len(records))
	for _, rec := range records {
		row := make([]Value, len(header))
		for i := range header {
			if i < len(rec) && rec[i] != "" {
				row[i] = Text(rec[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.Columns) }

// Index returns the position of the first column with the given name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether a column with the given name exists.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// Column returns the values of the column at position i.
func (t *Table) Column(i int) []Value {
	out := make([]Value, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// Set replaces the value at row r, column i.
func (t *Table) Set(r, i int, v Value) { t.Rows[r][i] = v }

// AddColumn appends a column, or overwrites an existing one with the same
// name. values must have one entry per row.
func (t *Table) AddColumn(name string, values []Value) {
	if i := t.Index(name); i >= 0 {
		for r := range t.Rows {
			t.Rows[r][i] = values[r]
		}
		return
	}
	t.Columns = append(t.Columns, name)
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r], values[r])
	}
}

// Select returns a new table holding the columns at the given positions, in
// that order.
func (t *Table) Select(idx []int) *Table {
	out := &Table{Columns: make([]string, len(idx)), Rows: make([][]Value, len(t.Rows))}
	for j, i := range idx {
		out.Columns[j] = t.Columns[i]
	}
	for r, row := range t.Rows {
		nr := make([]Value, len(idx))
		for j, i := range idx {
			nr[j] = row[i]
		}
		out.Rows[r] = nr
	}
	return out
}

// Head returns a copy of the first n rows.
func (t *Table) Head(n int) *Table {
	n = max(0, min(n, len(t.Rows)))
	out := t.Clone()
	out.Rows = out.Rows[:n]
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := New(t.Columns)
	out.Rows = make([][]Value, len(t.Rows))
	for r, row := range t.Rows {
		nr := make([]Value, len(row))
		copy(nr, row)
		out.Rows[r] = nr
	}
	return out
}

// Records renders every row as strings, nulls as "".
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = v.String()
		}
		out[r] = rec
	}
	return out
}

// DropDuplicateColumns keeps the first occurrence of each column name and
// returns the names that were dropped.
func (t *Table) DropDuplicateColumns() []string {
	seen := make(map[string]struct{}, len(t.Columns))
	keep := make([]int, 0, len(t.Columns))
	var dropped []string
	for i, c := range t.Columns {
		if _, ok := seen[c]; ok {
			dropped = append(dropped, c)
			continue
		}
		seen[c] = struct{}{}
		keep = append(keep, i)
	}
	if len(dropped) == 0 {
		return nil
	}
	*t = *t.Select(keep)
	return dropped
}
