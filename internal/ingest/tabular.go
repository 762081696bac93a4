package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFile = errors.New("unsupported file type")
var ErrEmptyUpload = errors.New("uploaded file is empty")

// excelize reads only OOXML workbooks, so legacy BIFF .xls files are refused.
var supportedExtensions = []string{".xlsx", ".csv"}

// Row is one data row of a sheet. Cells missing from the source row are
// absent from Values rather than present with an empty string.
type Row struct {
	// Line is the 1-based line in the source, the header being line 1.
	Line   int
	Values map[string]string
}

func (r Row) Get(column string) (string, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Table is the first sheet of a workbook (or a whole CSV file) with its
// header row kept verbatim.
type Table struct {
	Headers []string
	Rows    []Row
}

// Supported reports whether the file name has an extension Read can parse.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range supportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Read parses the uploaded file into a Table. The file format is picked
// from the extension of filename. Cell values are never coerced, so codes
// like "007" reach the normalizer unchanged.
func Read(r io.Reader, filename string) (Table, error) {
	if !Supported(filename) {
		return Table{}, ErrUnsupportedFile
	}

	var records [][]string
	var err error
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		records, err = readCSV(r)
	} else {
		records, err = readWorkbook(r)
	}
	if err != nil {
		return Table{}, err
	}
	return newTable(records)
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return records, nil
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warnf("failed to close workbook: %v", err)
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyUpload
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func newTable(records [][]string) (Table, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return Table{}, ErrEmptyUpload
	}

	headers := uniqueHeaders(records[0])
	table := Table{Headers: headers, Rows: make([]Row, 0, len(records)-1)}
	for i, record := range records[1:] {
		values := make(map[string]string, len(headers))
		for c, cell := range record {
			if c >= len(headers) {
				break
			}
			values[headers[c]] = cell
		}
		table.Rows = append(table.Rows, Row{Line: i + 2, Values: values})
	}
	log.Debugf("Read table with %d columns and %d rows", len(headers), len(table.Rows))
	return table, nil
}

// uniqueHeaders names blank headers "Unnamed: <index>" and suffixes repeated
// ones with ".1", ".2"... so every column stays addressable.
func uniqueHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		used[name] = true
		headers[i] = name
	}
	return headers
}
