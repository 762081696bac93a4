package challenge

import (
	"io"

	"github.com/projtrack/tracker/internal/csvexport"
)

var ExportHeader = []string{"challenge", "action", "responsible", "timeline", "status"}

func WriteCSV(w io.Writer, challenges []Challenge) error {
	cw, err := csvexport.NewWriter(w, ExportHeader...)
	if err != nil {
		return err
	}
	for _, c := range challenges {
		if err := cw.Write(c.Challenge, c.Action, c.Responsible, c.Timeline, string(c.Status)); err != nil {
			return err
		}
	}
	return cw.Close()
}
