package ingest

import "strings"

// Field is a logical record field with the literal header names accepted
// for it, in priority order.
type Field struct {
	Name    string
	Headers []string
}

// Columns maps a logical field name to the actual header resolved for it.
type Columns map[string]string

// Resolve picks the header matching one of names. An exact match on any
// name beats a substring match on any name. Within each pass names are
// tried in priority order and, for substrings, the first header in sheet
// order wins. Matching ignores case and surrounding whitespace.
func Resolve(headers []string, names ...string) (string, bool) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	for _, name := range names {
		want := normalizeHeader(name)
		if want == "" {
			continue
		}
		for i, h := range normalized {
			if h == want {
				return headers[i], true
			}
		}
	}

	for _, name := range names {
		want := normalizeHeader(name)
		if want == "" {
			continue
		}
		for i, h := range normalized {
			if strings.Contains(h, want) {
				return headers[i], true
			}
		}
	}
	return "", false
}

// ResolveAll resolves every field once for the whole sheet. Fields with no
// matching header are left out of the result.
func ResolveAll(headers []string, fields []Field) Columns {
	cols := make(Columns, len(fields))
	for _, f := range fields {
		if h, ok := Resolve(headers, f.Headers...); ok {
			cols[f.Name] = h
		}
	}
	return cols
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
