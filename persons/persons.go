package persons

import (
	"encoding/json"
	"fmt"
	"os"
)

// Person is a single record extracted from a detail page. The Crime, About
// and Other groups have no fixed key set; keys come from the labels found on
// the page.
type Person struct {
	Firstname string            `json:"firstname"`
	Lastname  string            `json:"lastname"`
	General   string            `json:"general"`
	Crime     map[string]string `json:"crime"`
	About     map[string]string `json:"about"`
	Other     map[string]string `json:"other"`
}

// Result is the aggregate produced by one crawl of a source. Persons is kept
// in the order the detail links appeared on the list page.
type Result struct {
	SourceCode string   `json:"source_code"`
	SourceName string   `json:"source_name"`
	SourceURL  string   `json:"source_url"`
	Persons    []Person `json:"persons"`
}

// NewResult creates an empty result for the given source.
func NewResult(code, name, url string) *Result {
	return &Result{
		SourceCode: code,
		SourceName: name,
		SourceURL:  url,
		Persons:    []Person{},
	}
}

// Add appends a person to the result.
func (r *Result) Add(p Person) {
	r.Persons = append(r.Persons, p)
}

// Len returns the number of persons collected so far.
func (r *Result) Len() int {
	return len(r.Persons)
}

// DefaultPath returns the output file name used when no path is configured.
func DefaultPath(sourceCode string) string {
	return sourceCode + "_persons.json"
}

// Save writes the result as indented JSON to path.
func Save(path string, result *Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	return nil
}

// Load reads a result previously written by Save.
func Load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	if result.Persons == nil {
		result.Persons = []Person{}
	}

	return &result, nil
}
