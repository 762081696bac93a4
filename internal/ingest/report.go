package ingest

import (
	"fmt"
	"slices"
)

type AnomalyKind string

const (
	// SkippedRow marks a row whose identity fields were all blank.
	SkippedRow AnomalyKind = "skipped_row"
	// InvalidNumber marks numeric text that could not be parsed and was read as zero.
	InvalidNumber AnomalyKind = "invalid_number"
	// ClampedNumber marks a value moved into its allowed range.
	ClampedNumber AnomalyKind = "clamped_number"
	// CoercedValue marks an enum value replaced by its default.
	CoercedValue AnomalyKind = "coerced_value"
	// DuplicateKey marks a row whose key already appeared earlier in the same file.
	DuplicateKey AnomalyKind = "duplicate_key"
)

// Anomaly is a tolerated row-level problem. None of them abort an import.
type Anomaly struct {
	Line  int
	Field string
	Kind  AnomalyKind
	Value string
}

func (a Anomaly) String() string {
	if a.Field == "" {
		return fmt.Sprintf("line %d: %s", a.Line, a.Kind)
	}
	return fmt.Sprintf("line %d: %s %s %q", a.Line, a.Field, a.Kind, a.Value)
}

type Report struct {
	Created   int
	Updated   int
	Skipped   int
	Anomalies []Anomaly
}

// Empty reports whether the import touched no rows at all.
func (r Report) Empty() bool {
	return r.Created == 0 && r.Updated == 0
}

// Count returns the number of anomalies of the given kinds.
func (r Report) Count(kinds ...AnomalyKind) int {
	n := 0
	for _, a := range r.Anomalies {
		if slices.Contains(kinds, a.Kind) {
			n++
		}
	}
	return n
}

func (r *Report) add(a Anomaly) {
	r.Anomalies = append(r.Anomalies, a)
}
