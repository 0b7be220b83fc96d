package files

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/safeshare/safeshare/internal/dataset"
)

// ReadXLSX parses the first sheet of an XLSX workbook. The first row
// is the header; empty cells become missing values.
func ReadXLSX(r io.Reader) (*dataset.Dataset, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer book.Close()

	sheetName := book.GetSheetName(0)
	if sheetName == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("no sheets found in xlsx file")
		}
		sheetName = sheets[0]
	}

	rows, err := book.Rows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("xlsx file is empty")
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var data [][]string
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			// Skip malformed rows.
			continue
		}
		data = append(data, cols)
	}

	return dataset.FromRows(header, data), nil
}

// WriteXLSX saves a dataset as a single-sheet workbook.
func WriteXLSX(ds *dataset.Dataset, path string) error {
	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)

	header := make([]interface{}, len(ds.Columns))
	for i, name := range ds.Names() {
		header[i] = name
	}
	cell, err := excelize.CoordinatesToCellName(1, 1)
	if err != nil {
		return err
	}
	if err := book.SetSheetRow(sheet, cell, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r := 0; r < ds.Rows(); r++ {
		values := ds.Row(r)
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}

	if err := book.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save xlsx: %w", err)
	}
	return nil
}
