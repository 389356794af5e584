// Package dataset holds the row-oriented application decision table that
// audits are run against.
package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Well-known column names.
const (
	ColumnApplicationID = "application_id"
	ColumnDecision      = "decision"
	ColumnGroundTruth   = "ground_truth"
)

// UnknownGroup labels rows that carry no value for a protected attribute.
const UnknownGroup = "unknown"

// Row is one application decision keyed by column name.
type Row map[string]any

// Table is an ordered collection of rows. Columns are the union of row keys.
type Table struct {
	Rows []Row `json:"rows"`
}

// New wraps rows in a table.
func New(rows []Row) *Table {
	return &Table{Rows: rows}
}

// Len returns the number of rows; a nil table is empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether any row carries the column.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, r := range t.Rows {
		if _, ok := r[name]; ok {
			return true
		}
	}
	return false
}

// Columns returns the sorted union of column names.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, r := range t.Rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// ValueError reports a cell that could not be converted.
type ValueError struct {
	Column string
	Row    int
	Value  any
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("column %q row %d: %s (value %v)", e.Column, e.Row, e.Reason, e.Value)
}

// Ints converts a column to integer outcomes. Every row must carry a value.
func (t *Table) Ints(name string) ([]int, error) {
	out := make([]int, t.Len())
	for i, r := range t.Rows {
		raw, ok := r[name]
		if !ok || raw == nil {
			return nil, &ValueError{Column: name, Row: i, Value: raw, Reason: "missing value"}
		}
		v, err := toOutcome(raw)
		if err != nil {
			return nil, &ValueError{Column: name, Row: i, Value: raw, Reason: err.Error()}
		}
		out[i] = v
	}
	return out, nil
}

// Strings stringifies a column for grouping. Missing cells become UnknownGroup.
func (t *Table) Strings(name string) []string {
	out := make([]string, t.Len())
	for i, r := range t.Rows {
		out[i] = Stringify(r[name])
	}
	return out
}

// Stringify renders a cell the way group keys are reported.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return UnknownGroup
	case string:
		if strings.TrimSpace(val) == "" {
			return UnknownGroup
		}
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) <= maxExactInt {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// maxExactInt is the largest magnitude a float64 holds without losing integers.
const maxExactInt = 1 << 53

func floatOutcome(f float64) (int, error) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, fmt.Errorf("non-finite outcome")
	case math.Abs(f) > maxExactInt:
		return 0, fmt.Errorf("outcome out of range")
	case f != math.Trunc(f):
		return 0, fmt.Errorf("non-integer outcome")
	}
	return int(f), nil
}

var outcomeWords = map[string]int{
	"true": 1, "yes": 1, "hired": 1, "accepted": 1, "selected": 1, "offer": 1, "pass": 1,
	"false": 0, "no": 0, "rejected": 0, "declined": 0, "not_selected": 0, "fail": 0,
}

func toOutcome(v any) (int, error) {
	switch val := v.(type) {
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return floatOutcome(val)
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0, fmt.Errorf("non-integer outcome")
		}
		return int(n), nil
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		if n, ok := outcomeWords[s]; ok {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatOutcome(f)
		}
		return 0, fmt.Errorf("unrecognized outcome")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
