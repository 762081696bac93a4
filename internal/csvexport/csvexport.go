package csvexport

import (
	"encoding/csv"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Writer writes one CSV line per record. Line breaks inside text cells are
// replaced with a space.
type Writer struct {
	w *csv.Writer
}

func NewWriter(w io.Writer, header ...string) (*Writer, error) {
	cw := &Writer{w: csv.NewWriter(w)}
	if err := cw.w.Write(header); err != nil {
		log.Errorf("Error writing csv header: %v", err)
		return nil, err
	}
	return cw, nil
}

func (c *Writer) Write(cells ...string) error {
	row := make([]string, len(cells))
	for i, cell := range cells {
		row[i] = Flatten(cell)
	}
	if err := c.w.Write(row); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return err
	}
	return nil
}

func (c *Writer) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return err
	}
	return nil
}

// Flatten replaces every line break in s with a single space.
func Flatten(s string) string {
	return lineBreaks.Replace(s)
}
