package challenge

import (
	"errors"
	"strings"

	"github.com/projtrack/tracker/internal/csvexport"
)

var ErrChallengeNotFound = errors.New("challenge not found")
var ErrChallengeRequired = errors.New("challenge and action are required")

type Status string

const (
	Pending   Status = "pending"
	Completed Status = "completed"
	Canceled  Status = "canceled"
)

var statuses = []Status{Pending, Completed, Canceled}

// ParseStatus reads a status case-insensitively. Blank text is pending.
// Unknown values are coerced to pending and reported with false.
func ParseStatus(s string) (Status, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Pending, true
	}
	for _, status := range statuses {
		if string(status) == s {
			return status, true
		}
	}
	return Pending, false
}

// Challenge is an implementation problem and the action agreed to solve it.
type Challenge struct {
	Id          int
	Challenge   string
	Action      string
	Responsible string
	Timeline    string
	Status      Status
}

// Key identifies a challenge during import.
type Key struct {
	Challenge string
	Action    string
}

// Key folds line breaks into spaces so a record still matches itself after
// a CSV export and re-import.
func (c Challenge) Key() Key {
	return Key{Challenge: csvexport.Flatten(c.Challenge), Action: csvexport.Flatten(c.Action)}
}

// normalized trims the text fields and settles the status.
func (c Challenge) normalized() Challenge {
	c.Challenge = strings.TrimSpace(c.Challenge)
	c.Action = strings.TrimSpace(c.Action)
	c.Responsible = strings.TrimSpace(c.Responsible)
	c.Timeline = strings.TrimSpace(c.Timeline)
	c.Status, _ = ParseStatus(string(c.Status))
	return c
}

func (c Challenge) valid() bool {
	return c.Challenge != "" && c.Action != ""
}
