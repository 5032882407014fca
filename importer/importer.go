// Package importer parses bulk flashcard uploads. Tabular input needs
// Question and Answer columns (matched case-insensitively), with optional
// Category and Difficulty; rows missing a required field are dropped and
// reported rather than failing the import.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrMissingColumns = errors.New("input must have Question and Answer columns")

// Row is one parsed flashcard row.
type Row struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// Result reports what happened to each processed row.
type Result struct {
	TotalProcessed int      `json:"totalProcessed"`
	Imported       int      `json:"imported"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors,omitempty"`
}

// Parse reads rows from a CSV or Excel upload, chosen by file extension.
func Parse(filename string, r io.Reader) ([]Row, *Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".xlsx" || ext == ".xlsm" {
		return parseExcel(r)
	}
	return parseCSV(r)
}

func parseCSV(r io.Reader) ([]Row, *Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, ErrMissingColumns
	}

	cols, err := headerIndex(records[0])
	if err != nil {
		return nil, nil, err
	}

	return collectRows(records[1:], cols)
}

func parseExcel(r io.Reader) ([]Row, *Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrMissingColumns
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get rows: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, ErrMissingColumns
	}

	cols, err := headerIndex(records[0])
	if err != nil {
		return nil, nil, err
	}

	return collectRows(records[1:], cols)
}

// headerIndex maps the header row onto column positions, case-insensitively.
func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	if _, ok := cols["question"]; !ok {
		return nil, ErrMissingColumns
	}
	if _, ok := cols["answer"]; !ok {
		return nil, ErrMissingColumns
	}
	return cols, nil
}

func collectRows(records [][]string, cols map[string]int) ([]Row, *Result, error) {
	result := &Result{Errors: make([]string, 0)}
	rows := make([]Row, 0, len(records))

	for i, record := range records {
		result.TotalProcessed++

		row := Row{
			Question:   cell(record, cols, "question"),
			Answer:     cell(record, cols, "answer"),
			Category:   cell(record, cols, "category"),
			Difficulty: cell(record, cols, "difficulty"),
		}

		if row.Question == "" || row.Answer == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: missing question or answer", i+2))
			continue
		}

		rows = append(rows, row)
		result.Imported++
	}

	return rows, result, nil
}

func cell(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
