package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTable = `source_code, source_name, source_url
UK_MWL, UK Most Wanted, https://www.nationalcrimeagency.gov.uk/most-wanted-search
EU_MW, Europe's Most Wanted, https://eumostwanted.eu/
UK_MWL, Duplicate Row, https://example.com/other
`

// TestResolve_Found verifies the matching row is projected into a Source
func TestResolve_Found(t *testing.T) {
	source, err := Resolve(strings.NewReader(sampleTable), "EU_MW")
	require.NoError(t, err)

	assert.Equal(t, "EU_MW", source.Code)
	assert.Equal(t, "Europe's Most Wanted", source.Name)
	assert.Equal(t, "https://eumostwanted.eu/", source.URL)
}

// TestResolve_FirstMatchWins verifies rows are scanned in file order
func TestResolve_FirstMatchWins(t *testing.T) {
	source, err := Resolve(strings.NewReader(sampleTable), "UK_MWL")
	require.NoError(t, err)

	assert.Equal(t, "UK Most Wanted", source.Name)
	assert.Equal(t, "https://www.nationalcrimeagency.gov.uk/most-wanted-search", source.URL)
}

// TestResolve_NotFound verifies ErrConfigNotFound for an absent code
func TestResolve_NotFound(t *testing.T) {
	_, err := Resolve(strings.NewReader(sampleTable), "US_FBI")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
	assert.Contains(t, err.Error(), "US_FBI")
}

// TestResolve_TrimsLeadingSpace verifies whitespace after delimiters is dropped
func TestResolve_TrimsLeadingSpace(t *testing.T) {
	table := "source_code,source_name,source_url\nA,   Spaced Name,    http://a.example\n"

	source, err := Resolve(strings.NewReader(table), "A")
	require.NoError(t, err)
	assert.Equal(t, "Spaced Name", source.Name)
	assert.Equal(t, "http://a.example", source.URL)
}

// TestResolve_ColumnOrderAndExtras verifies columns are found by header name
func TestResolve_ColumnOrderAndExtras(t *testing.T) {
	table := "notes,source_url,source_code,source_name\nignored,http://b.example,B,Bee\n"

	source, err := Resolve(strings.NewReader(table), "B")
	require.NoError(t, err)
	assert.Equal(t, &Source{Code: "B", Name: "Bee", URL: "http://b.example"}, source)
}

// TestResolve_MissingColumn verifies the header is validated
func TestResolve_MissingColumn(t *testing.T) {
	table := "source_code,source_name\nA,Name\n"

	_, err := Resolve(strings.NewReader(table), "A")
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), ColumnURL)
}

// TestResolve_EmptyTable verifies an empty file is rejected
func TestResolve_EmptyTable(t *testing.T) {
	_, err := Resolve(strings.NewReader(""), "A")
	assert.ErrorIs(t, err, ErrEmptyTable)
}

// TestResolve_ShortRow verifies a short row yields empty fields, not a panic
func TestResolve_ShortRow(t *testing.T) {
	table := "source_code,source_name,source_url\nA\n"

	source, err := Resolve(strings.NewReader(table), "A")
	require.NoError(t, err)
	assert.Equal(t, "", source.Name)
	assert.Equal(t, "", source.URL)
}

// TestLoadCSV_AllRows verifies every row is returned in order
func TestLoadCSV_AllRows(t *testing.T) {
	all, err := LoadCSV(strings.NewReader(sampleTable))
	require.NoError(t, err)

	require.Len(t, all, 3)
	assert.Equal(t, "UK_MWL", all[0].Code)
	assert.Equal(t, "EU_MW", all[1].Code)
	assert.Equal(t, "Duplicate Row", all[2].Name)
}

// TestLoadCSV_HeaderOnly verifies an empty, non-nil slice
func TestLoadCSV_HeaderOnly(t *testing.T) {
	all, err := LoadCSV(strings.NewReader("source_code,source_name,source_url\n"))
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

// TestResolveFile_ReadsTable verifies the file convenience wrapper
func TestResolveFile_ReadsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad_people_lists.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleTable), 0o600))

	source, err := FileResolver{Path: path}.Resolve("EU_MW")
	require.NoError(t, err)
	assert.Equal(t, "EU_MW", source.Code)
}

// TestResolveFile_MissingFile verifies the open error is surfaced
func TestResolveFile_MissingFile(t *testing.T) {
	_, err := ResolveFile(filepath.Join(t.TempDir(), "missing.csv"), "A")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfigNotFound)
	assert.Contains(t, err.Error(), "failed to open source table")
}
