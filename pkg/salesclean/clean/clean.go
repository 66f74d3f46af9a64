// Package clean normalizes cell values column by column: numeric columns are
// coerced, clamped and rounded; every other column holding text is filtered
// to a safe character set and re-cased.
package clean

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cognicore/salesclean/pkg/salesclean/config"
	"github.com/cognicore/salesclean/pkg/salesclean/table"
)

var (
	disallowed = regexp.MustCompile(`[^a-zA-Z0-9áéíóúÁÉÍÓÚñÑüÜ\s\-_\.]`)
	spaces     = regexp.MustCompile(`\s+`)
)

// decimal or exponent notation, or an infinity; no digit separators or hex
// literals
var numeric = regexp.MustCompile(`^[+-]?((\d+\.?\d*|\.\d+)([eE][+-]?\d+)?|(?i:inf|infinity))$`)

// Cleaner applies the number and text rules of a configuration.
type Cleaner struct {
	Number         config.NumberRule
	Text           config.TextRule
	NumericColumns []string
}

// New returns a Cleaner for cfg.
func New(cfg config.Config) *Cleaner {
	return &Cleaner{
		Number:         cfg.Rules.Number,
		Text:           cfg.Rules.Text,
		NumericColumns: cfg.NumericColumns,
	}
}

// Report summarizes one Clean call.
type Report struct {
	NumericColumns []string
	TextColumns    []string
	Unparseable    int // numeric cells that became null
	Clamped        int
	Emptied        int // text cells that became null
}

// Clean runs CleanNumeric then CleanText on t in place.
func (c *Cleaner) Clean(t *table.Table) Report {
	var r Report
	c.cleanNumeric(t, &r)
	c.cleanText(t, &r)
	return r
}

// CleanNumeric coerces the numeric columns of t in place.
func (c *Cleaner) CleanNumeric(t *table.Table) Report {
	var r Report
	c.cleanNumeric(t, &r)
	return r
}

// CleanText filters the text columns of t in place.
func (c *Cleaner) CleanText(t *table.Table) Report {
	var r Report
	c.cleanText(t, &r)
	return r
}

func (c *Cleaner) cleanNumeric(t *table.Table, r *Report) {
	for _, name := range c.NumericColumns {
		ci := t.Index(name)
		if ci < 0 {
			continue
		}
		r.NumericColumns = append(r.NumericColumns, name)
		for _, row := range t.Rows {
			v := row[ci]
			if v.IsNull() {
				continue
			}
			f, ok := Coerce(v)
			if !ok {
				row[ci] = table.Null()
				r.Unparseable++
				continue
			}
			clamped := c.clamp(f)
			if clamped != f {
				r.Clamped++
			}
			row[ci] = table.Number(Round(clamped, c.Number.Decimals))
		}
	}
}

// Bound clamps f to the number rule's range and rounds it.
func (c *Cleaner) Bound(f float64) float64 {
	return Round(c.clamp(f), c.Number.Decimals)
}

func (c *Cleaner) clamp(f float64) float64 {
	if f < c.Number.Min {
		return c.Number.Min
	}
	if f > c.Number.Max {
		return c.Number.Max
	}
	return f
}

// Coerce converts a cell to a float. Text is trimmed and must be a plain
// decimal or exponent literal; NaN and Go-only syntax such as "1_000" or
// "0x1p4" fail. Infinities are returned as-is so the clamp can bound them.
func Coerce(v table.Value) (float64, bool) {
	if f, ok := v.Float(); ok {
		return f, true
	}
	if !v.IsText() {
		return 0, false
	}
	text := strings.TrimSpace(v.String())
	if !numeric.MatchString(text) {
		return 0, false
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Round rounds half away from zero to the given number of decimals. A
// negative count leaves f unchanged.
func Round(f float64, decimals int) float64 {
	if decimals < 0 {
		return f
	}
	p := math.Pow(10, float64(decimals))
	r := math.Round(f*p) / p
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return f
	}
	return r
}

func (c *Cleaner) cleanText(t *table.Table, r *Report) {
	caser, recase := c.caser()
	for ci, name := range t.Columns {
		if slices.Contains(c.NumericColumns, name) || !hasText(t, ci) {
			continue
		}
		r.TextColumns = append(r.TextColumns, name)
		for _, row := range t.Rows {
			if row[ci].IsNull() {
				continue
			}
			s, ok := c.Filter(row[ci].String())
			if !ok {
				row[ci] = table.Null()
				r.Emptied++
				continue
			}
			if recase {
				s = caser.String(s)
			}
			row[ci] = table.Text(s)
		}
	}
}

// Filter applies the character filter and, when enforced, the length and
// digit rules. It reports false when nothing is left.
func (c *Cleaner) Filter(s string) (string, bool) {
	s = disallowed.ReplaceAllString(strings.TrimSpace(s), " ")
	s = collapse(s)

	if c.Text.Enforce {
		if !c.Text.AllowDigits {
			s = collapse(strings.Map(func(r rune) rune {
				if unicode.IsDigit(r) {
					return -1
				}
				return r
			}, s))
		}
		if limit := c.Text.MaxLength; limit > 0 {
			if runes := []rune(s); len(runes) > limit {
				s = strings.TrimSpace(string(runes[:limit]))
			}
		}
		if len([]rune(s)) < c.Text.MinLength {
			return "", false
		}
	}
	return s, s != ""
}

func collapse(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

func (c *Cleaner) caser() (cases.Caser, bool) {
	switch c.Text.Case {
	case "lower":
		return cases.Lower(language.Spanish), true
	case "upper":
		return cases.Upper(language.Spanish), true
	case "title":
		return cases.Title(language.Spanish), true
	}
	return cases.Caser{}, false
}

// hasText reports whether column ci holds at least one text value. Columns
// that are entirely numeric or null are left alone.
func hasText(t *table.Table, ci int) bool {
	for _, row := range t.Rows {
		if row[ci].IsText() {
			return true
		}
	}
	return false
}
