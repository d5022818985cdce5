// Package sources resolves scrape targets from the source configuration
// table, a CSV file with one row per listing site.
package sources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Column names required in the configuration table header.
const (
	ColumnCode = "source_code"
	ColumnName = "source_name"
	ColumnURL  = "source_url"
)

// Custom errors for source resolution
var (
	ErrConfigNotFound = errors.New("source configuration not found")
	ErrMissingColumn  = errors.New("source table is missing a required column")
	ErrEmptyTable     = errors.New("source table has no header row")
)

// Source describes one configured listing site. It is never modified once
// resolved.
type Source struct {
	Code string `json:"source_code"`
	Name string `json:"source_name"`
	URL  string `json:"source_url"`
}

// newReader returns a CSV reader using the loose dialect of the source table:
// spaces after a delimiter are dropped and rows may carry extra columns.
func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	return reader
}

// columnIndex maps the required column names to their position in header.
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	for _, required := range []string{ColumnCode, ColumnName, ColumnURL} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	return index, nil
}

// valueAt returns the field for column, or "" when the row is short.
func valueAt(row []string, index map[string]int, column string) string {
	i := index[column]
	if i >= len(row) {
		return ""
	}
	return row[i]
}

// readHeader reads the header row and builds the column index.
func readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	return columnIndex(header)
}

// LoadCSV reads every row of the configuration table in file order.
func LoadCSV(r io.Reader) ([]Source, error) {
	reader := newReader(r)

	index, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	sources := []Source{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		sources = append(sources, Source{
			Code: valueAt(row, index, ColumnCode),
			Name: valueAt(row, index, ColumnName),
			URL:  valueAt(row, index, ColumnURL),
		})
	}

	return sources, nil
}

// Resolve scans the table in file order and returns the first row whose
// source_code equals code. Rows after the match are not read.
func Resolve(r io.Reader, code string) (*Source, error) {
	reader := newReader(r)

	index, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		if valueAt(row, index, ColumnCode) != code {
			continue
		}

		return &Source{
			Code: code,
			Name: valueAt(row, index, ColumnName),
			URL:  valueAt(row, index, ColumnURL),
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, code)
}

// ResolveFile opens the table at path and resolves code from it.
func ResolveFile(path, code string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source table: %w", err)
	}
	defer f.Close()

	return Resolve(f, code)
}

// FileResolver resolves sources from a fixed table path.
type FileResolver struct {
	Path string
}

// Resolve implements the crawler's resolver contract.
func (f FileResolver) Resolve(code string) (*Source, error) {
	return ResolveFile(f.Path, code)
}
