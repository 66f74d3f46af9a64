// Package mapping matches arbitrary input column names against the canonical
// schema.
//
// The Heuristic matcher tries an exact match on normalized names, then
// first-match-wins substring matching. It has no confidence scores; callers
// depend on the Matcher interface so a scored matcher can replace it.
package mapping

import (
	"strconv"
	"strings"

	"github.com/cognicore/salesclean/pkg/salesclean/config"
	"github.com/cognicore/salesclean/pkg/salesclean/table"
	"github.com/cognicore/salesclean/pkg/salesclean/textnorm"
)

// Method records how a column got its output name.
type Method string

const (
	MethodExact    Method = "exact"
	MethodFuzzy    Method = "fuzzy"
	MethodFallback Method = "fallback"
	MethodFixed    Method = "fixed"
	MethodKeep     Method = "keep"
)

// FallbackPrefix is prepended to the position of unmatched columns.
const FallbackPrefix = "columna_"

// Assignment is the output name chosen for one input column.
type Assignment struct {
	Source string
	Target string
	Method Method
}

// Mapping assigns an output name to every distinct input column name, in
// first-seen order.
type Mapping struct {
	Assignments []Assignment
	index       map[string]int
}

func newMapping(n int) Mapping {
	return Mapping{
		Assignments: make([]Assignment, 0, n),
		index:       make(map[string]int, n),
	}
}

func (m *Mapping) add(a Assignment) {
	m.index[a.Source] = len(m.Assignments)
	m.Assignments = append(m.Assignments, a)
}

// Lookup returns the output name for an input column.
func (m Mapping) Lookup(source string) (string, bool) {
	i, ok := m.index[source]
	if !ok {
		return "", false
	}
	return m.Assignments[i].Target, true
}

// Len returns the number of assignments.
func (m Mapping) Len() int { return len(m.Assignments) }

// Renamed returns the assignments whose target differs from the source.
func (m Mapping) Renamed() []Assignment {
	var out []Assignment
	for _, a := range m.Assignments {
		if a.Source != a.Target {
			out = append(out, a)
		}
	}
	return out
}

// Apply renames the columns of t in place. Columns without an assignment
// keep their name.
func (m Mapping) Apply(t *table.Table) {
	for i, c := range t.Columns {
		if target, ok := m.Lookup(c); ok {
			t.Columns[i] = target
		}
	}
}

// Matcher proposes a mapping for a list of input column names.
type Matcher interface {
	Match(names []string) Mapping
}

type field struct {
	name     string
	synonyms []string // normalized, empty ones dropped
}

// Heuristic is the default two-pass matcher.
type Heuristic struct {
	fields []field
}

// NewHeuristic prepares a matcher for the given schema. Field order is the
// tie-break order of the fuzzy pass.
func NewHeuristic(schema []config.Field) *Heuristic {
	h := &Heuristic{fields: make([]field, 0, len(schema))}
	for _, f := range schema {
		nf := field{name: f.Name}
		for _, s := range f.Synonyms {
			if n := textnorm.Normalize(s); n != "" {
				nf.synonyms = append(nf.synonyms, n)
			}
		}
		h.fields = append(h.fields, nf)
	}
	return h
}

// Match implements Matcher.
//
//  1. exact: the normalized name equals a normalized synonym of an unclaimed field
//  2. fuzzy: for normalized names longer than 2 characters, a synonym is a
//     substring of the name or the name a substring of a synonym; the first
//     unclaimed field in schema order wins
//  3. fallback: columna_N, where N starts at the column's position among the
//     unmatched columns and skips names already in use
//
// Repeated input names collapse into one assignment.
func (h *Heuristic) Match(names []string) Mapping {
	var unique []string
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}

	normalized := make([]string, len(unique))
	for i, n := range unique {
		normalized[i] = textnorm.Normalize(n)
	}

	targets := make([]string, len(unique))
	methods := make([]Method, len(unique))
	claimed := make(map[string]struct{}, len(h.fields))

	for i, norm := range normalized {
		for _, f := range h.fields {
			if _, taken := claimed[f.name]; taken {
				continue
			}
			if f.exact(norm) {
				targets[i], methods[i] = f.name, MethodExact
				claimed[f.name] = struct{}{}
				break
			}
		}
	}

	for i, norm := range normalized {
		if targets[i] != "" || len(norm) <= 2 {
			continue
		}
		for _, f := range h.fields {
			if _, taken := claimed[f.name]; taken {
				continue
			}
			if f.fuzzy(norm) {
				targets[i], methods[i] = f.name, MethodFuzzy
				claimed[f.name] = struct{}{}
				break
			}
		}
	}

	used := make(map[string]struct{}, len(unique))
	for _, t := range targets {
		if t != "" {
			used[t] = struct{}{}
		}
	}

	pos := 0
	for i := range unique {
		if targets[i] != "" {
			continue
		}
		pos++
		n := pos
		name := FallbackPrefix + strconv.Itoa(n)
		for {
			if _, taken := used[name]; !taken {
				break
			}
			n++
			name = FallbackPrefix + strconv.Itoa(n)
		}
		targets[i], methods[i] = name, MethodFallback
		used[name] = struct{}{}
	}

	m := newMapping(len(unique))
	for i, src := range unique {
		m.add(Assignment{Source: src, Target: targets[i], Method: methods[i]})
	}
	return m
}

func (f field) exact(norm string) bool {
	for _, s := range f.synonyms {
		if s == norm {
			return true
		}
	}
	return false
}

func (f field) fuzzy(norm string) bool {
	for _, s := range f.synonyms {
		if strings.Contains(norm, s) || strings.Contains(s, norm) {
			return true
		}
	}
	return false
}

// Fixed renames only the columns listed in names; every other column keeps
// its name. It is used when the caller supplies its own mapping.
type Fixed map[string]string

// Match implements Matcher.
func (f Fixed) Match(names []string) Mapping {
	m := newMapping(len(names))
	for _, n := range names {
		if _, dup := m.index[n]; dup {
			continue
		}
		if target, ok := f[n]; ok {
			m.add(Assignment{Source: n, Target: target, Method: MethodFixed})
			continue
		}
		m.add(Assignment{Source: n, Target: n, Method: MethodKeep})
	}
	return m
}
