package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/tealeg/xlsx/v3"
)

// ReadXLSX reads the first sheet of a workbook the same way ReadCSV reads
// a file: row 0 is the header, every later row is data. Trailing rows
// with no values at all are dropped.
func ReadXLSX(r io.Reader) ([]string, []Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read workbook: %w", err)
	}
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	if len(xlFile.Sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := xlFile.Sheets[0]
	if sheet.MaxRow == 0 {
		return nil, nil, fmt.Errorf("missing header")
	}

	headerRow, err := sheet.Row(0)
	if err != nil {
		return nil, nil, fmt.Errorf("read header row: %w", err)
	}
	header := make([]string, sheet.MaxCol)
	for col := 0; col < sheet.MaxCol; col++ {
		header[col] = FieldName(headerRow.GetCell(col).String())
	}
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}

	var rows []Row
	lastNonEmpty := -1
	for rowIdx := 1; rowIdx < sheet.MaxRow; rowIdx++ {
		row, err := sheet.Row(rowIdx)
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", rowIdx+1, err)
		}
		rec := make([]string, len(header))
		empty := true
		for col := range header {
			rec[col] = strings.TrimSpace(row.GetCell(col).String())
			if rec[col] != "" {
				empty = false
			}
		}
		rows = append(rows, makeRow(header, rec))
		if !empty {
			lastNonEmpty = len(rows) - 1
		}
	}
	return header, rows[:lastNonEmpty+1], nil
}
