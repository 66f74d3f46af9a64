package classify

import (
	"math/rand/v2"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/cognicore/salesclean/pkg/salesclean/config"
	"github.com/cognicore/salesclean/pkg/salesclean/table"
)

// Kind is the inferred semantic type of a column.
type Kind string

const (
	KindDate    Kind = "date"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindText    Kind = "text"
	KindUnknown Kind = "unknown"
)

// Thresholds are strict: the share must be greater than the value.
const (
	dateShare    = 0.5
	numericShare = 0.8
	boolShare    = 0.8
)

// DefaultLayouts are the explicit date layouts tried after the flexible parser.
var DefaultLayouts = []string{"2006-01-02", "02/01/2006", "01/02/2006", "2006-01-02 15:04:05"}

var numericPattern = regexp.MustCompile(`^-?\d*\.?\d+$`)

var boolTokens = map[string]struct{}{
	"true": {}, "false": {}, "1": {}, "0": {}, "si": {}, "no": {},
	"sí": {}, "yes": {}, "verdadero": {}, "falso": {},
}

// IsNumeric reports whether v is an integer or decimal literal: optional
// leading minus, digits, optional single decimal point. No thousands
// separators, no exponent.
func IsNumeric(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	return numericPattern.MatchString(v)
}

// IsBoolean reports whether v is one of the recognized boolean tokens.
func IsBoolean(v string) bool {
	_, ok := boolTokens[strings.TrimSpace(strings.ToLower(v))]
	return ok
}

// IsValidDate reports whether v parses as a date with the default layouts.
func IsValidDate(v string) bool {
	_, ok := ParseDate(v, DefaultLayouts)
	return ok
}

// ParseDate tries the flexible parser first, then each layout in order.
//
// Bare numbers are only accepted in the compact yyyymmdd form: the flexible
// parser would otherwise read quantities and prices as dates.
func ParseDate(v string, layouts []string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if IsNumeric(v) {
		t, err := time.Parse("20060102", v)
		return t, err == nil
	}
	if t, ok := parseAny(v); ok {
		return t, true
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseAny(v string) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	t, err := dateparse.ParseIn(v, time.UTC)
	return t, err == nil
}

// DateRule checks dates against the configured layouts and, when enforced,
// the valid range.
type DateRule struct {
	Layouts []string
	Min     time.Time // zero = unbounded
	Max     time.Time // zero = unbounded
	Enforce bool
}

// NewDateRule builds a DateRule from configuration.
func NewDateRule(r config.DateRule) (DateRule, error) {
	lo, hi, err := r.Range()
	if err != nil {
		return DateRule{}, err
	}
	layouts := r.Formats
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}
	return DateRule{Layouts: layouts, Min: lo, Max: hi, Enforce: r.EnforceRange}, nil
}

// Valid reports whether v is a date accepted by the rule.
func (r DateRule) Valid(v string) bool {
	layouts := r.Layouts
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}
	t, ok := ParseDate(v, layouts)
	if !ok {
		return false
	}
	if !r.Enforce {
		return true
	}
	if !r.Min.IsZero() && t.Before(r.Min) {
		return false
	}
	// Max is a calendar day; anything on that day is still in range.
	if !r.Max.IsZero() && !t.Before(r.Max.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// Classifier infers column kinds from a deterministic sample of values.
type Classifier struct {
	SampleSize int
	Seed       uint64
	Dates      DateRule
}

// New returns a classifier with the default sample size, seed and layouts.
func New() *Classifier {
	return &Classifier{SampleSize: 1000, Seed: 42, Dates: DateRule{Layouts: DefaultLayouts}}
}

// ClassifyColumn classifies values with the default classifier.
func ClassifyColumn(values []string) Kind {
	return New().Classify(values)
}

// Classify decides the kind of a column from its non-null values, in
// priority order date > number > boolean > text.
func (c *Classifier) Classify(values []string) Kind {
	if len(values) == 0 {
		return KindUnknown
	}
	sample := Sample(values, c.SampleSize, c.Seed)
	n := float64(len(sample))

	dates := 0
	for _, v := range sample {
		if c.Dates.Valid(v) {
			dates++
		}
	}
	if float64(dates)/n > dateShare {
		return KindDate
	}

	nums := 0
	for _, v := range sample {
		if IsNumeric(v) {
			nums++
		}
	}
	if float64(nums)/n > numericShare {
		return KindNumber
	}

	bools := 0
	for _, v := range sample {
		if IsBoolean(v) {
			bools++
		}
	}
	if float64(bools)/n > boolShare {
		return KindBoolean
	}

	return KindText
}

// Sample returns up to n values. When len(values) > n the selection is a
// seeded random sample, so the same input and seed always give the same
// result. Selected values keep their original relative order.
func Sample(values []string, n int, seed uint64) []string {
	if n <= 0 || len(values) <= n {
		return values
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	// partial Fisher-Yates: only the first n slots are needed
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	picked := idx[:n]
	sort.Ints(picked)

	out := make([]string, n)
	for i, p := range picked {
		out[i] = values[p]
	}
	return out
}

// ColumnProfile describes one column for the structure report.
type ColumnProfile struct {
	Name     string
	Kind     Kind
	Samples  []string // up to 5 distinct non-null values
	Examples []string // first 3 of Samples
	Nulls    int
}

// Profile classifies every column of t.
func (c *Classifier) Profile(t *table.Table) []ColumnProfile {
	out := make([]ColumnProfile, 0, t.Width())
	for i, name := range t.Columns {
		var values []string
		nulls := 0
		for _, v := range t.Column(i) {
			if v.IsNull() {
				nulls++
				continue
			}
			values = append(values, v.String())
		}

		samples := distinct(values, 5)
		examples := samples
		if len(examples) > 3 {
			examples = examples[:3]
		}
		out = append(out, ColumnProfile{
			Name:     name,
			Kind:     c.Classify(values),
			Samples:  samples,
			Examples: examples,
			Nulls:    nulls,
		})
	}
	return out
}

func distinct(values []string, limit int) []string {
	seen := make(map[string]struct{}, limit)
	out := make([]string, 0, limit)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}
