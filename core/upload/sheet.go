package upload

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/mutabaa-app/mutabaa/core"
)

// readRows loads the raw cell grid of the uploaded file. Excel workbooks are
// read from their first sheet; .csv files are read as a single sheet.
func readRows(path string) ([][]string, error) {
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return readCSV(path)
	}
	return readWorkbook(path)
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "reading sheet")
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening csv")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows are padded during normalization
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	return rows, nil
}

// normalize validates the header row for the upload kind and converts the
// remaining rows into the canonical logical-key representation. Row numbers
// are 1-based over data rows; fully empty rows are dropped.
func normalize(raw [][]string, kind Kind) ([]Row, error) {
	if len(raw) == 0 {
		return nil, ErrEmptySheet
	}

	headers := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		headers[i] = core.CleanString(h)
	}
	if err := validateHeaders(kind, headers); err != nil {
		return nil, err
	}

	// resolve each column to its logical field once, at parse time
	fields := make([]string, len(headers))
	for i, h := range headers {
		fields[i] = headerFields[h] // unknown columns resolve to ""
	}

	var rows []Row
	num := 0
	for _, cells := range raw[1:] {
		num++
		values := make(map[string]string, len(fields))
		empty := true
		for i, field := range fields {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			if strings.TrimSpace(cell) != "" {
				empty = false
			}
			if field != "" {
				values[field] = cell
			}
		}
		if empty {
			num-- // blank padding rows do not count
			continue
		}
		rows = append(rows, Row{Number: num, values: values})
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	return rows, nil
}
