package ingest

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Values reads typed fields out of one row through the resolved columns.
// Tolerated problems are recorded on the report the Values came from.
type Values struct {
	row    Row
	cols   Columns
	report *Report
}

func newValues(row Row, cols Columns, report *Report) Values {
	return Values{row: row, cols: cols, report: report}
}

func (v Values) Line() int {
	return v.row.Line
}

// Resolved reports whether the sheet has a column for field at all.
func (v Values) Resolved(field string) bool {
	_, ok := v.cols[field]
	return ok
}

func (v Values) raw(field string) (string, bool) {
	col, ok := v.cols[field]
	if !ok {
		return "", false
	}
	return Clean(v.row.Values[col])
}

// Text returns the trimmed value of field, or "" when it is absent.
func (v Values) Text(field string) string {
	s, _ := v.raw(field)
	return s
}

// Decimal parses field, falling back to zero when it is absent or malformed.
func (v Values) Decimal(field string) decimal.Decimal {
	s, ok := v.raw(field)
	if !ok {
		return decimal.Zero
	}
	d, ok := ParseDecimal(s)
	if !ok {
		v.report.add(Anomaly{Line: v.row.Line, Field: field, Kind: InvalidNumber, Value: s})
	}
	return d
}

// Percent parses field as a whole number in [0, 100]. Fractions are rounded
// and out of range values clamped. Absent or malformed values yield def.
func (v Values) Percent(field string, def int) int {
	s, ok := v.raw(field)
	if !ok {
		return def
	}
	d, ok := ParseDecimal(s)
	if !ok {
		v.report.add(Anomaly{Line: v.row.Line, Field: field, Kind: InvalidNumber, Value: s})
		return def
	}
	p := ClampPercent(d)
	if !d.Round(0).Equal(decimal.NewFromInt(int64(p))) {
		v.report.add(Anomaly{Line: v.row.Line, Field: field, Kind: ClampedNumber, Value: s})
	}
	return p
}

var hundred = decimal.NewFromInt(100)

// ClampPercent rounds d to a whole number in [0, 100].
func ClampPercent(d decimal.Decimal) int {
	d = d.Round(0)
	switch {
	case d.LessThan(decimal.Zero):
		return 0
	case d.GreaterThan(hundred):
		return 100
	}
	return int(d.IntPart())
}

// Coerced records that the value of field was replaced by a default.
func (v Values) Coerced(field, value string) {
	v.report.add(Anomaly{Line: v.row.Line, Field: field, Kind: CoercedValue, Value: value})
}

// Clean trims s and reports whether anything meaningful is left. Blank
// cells and the "nan" placeholder some spreadsheet tools write for empty
// numeric cells count as absent.
func Clean(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return "", false
	}
	return s, true
}

// ParseDecimal parses s as a decimal number. Blank and "nan" values give
// zero and are not reported as failures. Anything else that does not parse
// gives zero and false.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s, ok := Clean(s)
	if !ok {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
