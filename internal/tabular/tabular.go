// Package tabular reads candidate-uploaded CSV and XLSX files into a simple
// string table and computes the monthly aggregation hands-on grading checks
// against.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"
)

// Table is a parsed spreadsheet: a header row and data rows as strings.
// Rows may be ragged; missing trailing cells read as empty.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Parse reads a table from r, picking the format from the file name
// extension (.csv or .xlsx).
func Parse(filename string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx":
		return ParseXLSX(r)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrParse, filepath.Ext(filename))
	}
}

// ParseCSV reads a CSV table. The first record is the header.
func ParseCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrParse)
	}
	return &Table{Columns: records[0], Rows: records[1:]}, nil
}

// ParseXLSX reads the first sheet of an XLSX workbook. The first row is the
// header.
func ParseXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrParse)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty sheet %q", ErrParse, sheets[0])
	}
	return &Table{Columns: rows[0], Rows: rows[1:]}, nil
}

// FindColumn returns the index of the first column whose name contains any of
// the given substrings, case-insensitively.
func (t *Table) FindColumn(substrings []string) (int, bool) {
	for i, col := range t.Columns {
		name := strings.ToLower(strings.TrimSpace(col))
		for _, sub := range substrings {
			if strings.Contains(name, strings.ToLower(sub)) {
				return i, true
			}
		}
	}
	return 0, false
}

func (t *Table) cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// MonthTotal is the summed value column for one calendar month.
type MonthTotal struct {
	Month time.Time
	Total float64
}

// Pivot is a by-month aggregation of a table, sorted by month ascending.
type Pivot struct {
	Months []MonthTotal
}

// FirstMonthTotal returns the total for the earliest month.
func (p *Pivot) FirstMonthTotal() (float64, bool) {
	if len(p.Months) == 0 {
		return 0, false
	}
	return p.Months[0].Total, true
}

// GrandTotal returns the sum over all months.
func (p *Pivot) GrandTotal() float64 {
	var sum float64
	for _, m := range p.Months {
		sum += m.Total
	}
	return sum
}

// MonthlyPivot locates a date column and a value column by name substrings,
// parses dates leniently, and sums the value column per calendar month.
// Rows whose date or value cannot be parsed are skipped; a table where no
// date at all parses is an ErrParse. A missing column is an ErrMissingColumn
// naming the column that was not found.
func MonthlyPivot(t *Table, dateSubstrings, valueSubstrings []string) (*Pivot, error) {
	dateCol, ok := t.FindColumn(dateSubstrings)
	if !ok {
		return nil, fmt.Errorf("%w: no date column matching %v", ErrMissingColumn, dateSubstrings)
	}
	valueCol, ok := t.FindColumn(valueSubstrings)
	if !ok {
		return nil, fmt.Errorf("%w: no value column matching %v", ErrMissingColumn, valueSubstrings)
	}

	totals := make(map[time.Time]float64)
	parsedDates := 0
	for _, row := range t.Rows {
		rawDate := t.cell(row, dateCol)
		if rawDate == "" {
			continue
		}
		date, err := dateparse.ParseAny(rawDate)
		if err != nil {
			continue
		}
		parsedDates++

		value, err := strconv.ParseFloat(strings.ReplaceAll(t.cell(row, valueCol), ",", ""), 64)
		if err != nil {
			continue
		}

		month := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
		totals[month] += value
	}
	if parsedDates == 0 {
		return nil, fmt.Errorf("%w: no date values could be parsed", ErrParse)
	}

	months := make([]MonthTotal, 0, len(totals))
	for month, total := range totals {
		months = append(months, MonthTotal{Month: month, Total: total})
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month.Before(months[j].Month) })
	return &Pivot{Months: months}, nil
}

// Preview returns the first n rows as column-keyed records, for inclusion in
// the transcript.
func (t *Table) Preview(n int) []map[string]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	records := make([]map[string]string, 0, n)
	for _, row := range t.Rows[:n] {
		rec := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			rec[col] = t.cell(row, i)
		}
		records = append(records, rec)
	}
	return records
}
