package challenge

import "github.com/projtrack/tracker/internal/ingest"

var importFields = []ingest.Field{
	{Name: "challenge", Headers: []string{"challenge"}},
	{Name: "action", Headers: []string{"action", "agreed action"}},
	{Name: "responsible", Headers: []string{"responsible"}},
	{Name: "timeline", Headers: []string{"timeline"}},
	{Name: "status", Headers: []string{"status"}},
}

var pipeline = ingest.Pipeline[Challenge, Key]{
	Fields: importFields,
	Map:    fromRow,
	Policy: ingest.Policy[Challenge, Key]{
		Key: func(c Challenge) (Key, bool) {
			return c.Key(), true
		},
		Merge: func(existing, incoming Challenge) Challenge {
			existing.Responsible = incoming.Responsible
			existing.Timeline = incoming.Timeline
			existing.Status = incoming.Status
			return existing
		},
	},
}

// fromRow needs both the challenge and the action text.
func fromRow(v ingest.Values) (Challenge, bool) {
	c := Challenge{
		Challenge:   v.Text("challenge"),
		Action:      v.Text("action"),
		Responsible: v.Text("responsible"),
		Timeline:    v.Text("timeline"),
	}
	if !c.valid() {
		return Challenge{}, false
	}

	raw := v.Text("status")
	status, ok := ParseStatus(raw)
	if !ok {
		v.Coerced("status", raw)
	}
	c.Status = status
	return c, true
}
