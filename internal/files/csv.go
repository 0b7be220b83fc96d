package files

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/safeshare/safeshare/internal/dataset"
)

// ReadCSV parses a comma-separated file. The first record is the
// header; empty fields become missing values.
func ReadCSV(r io.Reader) (*dataset.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var data [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		data = append(data, record)
	}

	return dataset.FromRows(header, data), nil
}

// WriteCSV saves a dataset as a comma-separated file.
func WriteCSV(ds *dataset.Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(ds.Names()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for r := 0; r < ds.Rows(); r++ {
		if err := writer.Write(ds.Row(r)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
