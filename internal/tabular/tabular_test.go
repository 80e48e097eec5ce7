package tabular

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const salesCSV = `Date,Region,Sales
2024-02-09,North,20
2024-01-05,North,10.5
2024-01-19,South,4.5
not-a-date,East,99
2024-03-01,East,7
`

func TestParseCSV(t *testing.T) {
	tbl, err := ParseCSV(strings.NewReader(salesCSV))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(tbl.Columns) != 3 || tbl.Columns[0] != "Date" {
		t.Errorf("columns = %v, want [Date Region Sales]", tbl.Columns)
	}
	if len(tbl.Rows) != 5 {
		t.Errorf("rows = %d, want 5", len(tbl.Rows))
	}
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	if !errors.Is(err, ErrParse) {
		t.Errorf("error = %v, want ErrParse", err)
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Date", "Amount"},
		{"2024-01-05", 10.5},
		{"2024-02-09", 20},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	tbl, err := ParseXLSX(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ParseXLSX: %v", err)
	}
	if len(tbl.Columns) != 2 || tbl.Columns[1] != "Amount" {
		t.Errorf("columns = %v, want [Date Amount]", tbl.Columns)
	}
	if len(tbl.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(tbl.Rows))
	}
}

func TestParseXLSXGarbage(t *testing.T) {
	_, err := ParseXLSX(strings.NewReader("definitely not a zip archive"))
	if !errors.Is(err, ErrParse) {
		t.Errorf("error = %v, want ErrParse", err)
	}
}

func TestParseDispatch(t *testing.T) {
	if _, err := Parse("upload.CSV", strings.NewReader(salesCSV)); err != nil {
		t.Errorf("Parse(.CSV): %v", err)
	}
	_, err := Parse("notes.txt", strings.NewReader("hello"))
	if !errors.Is(err, ErrParse) {
		t.Errorf("Parse(.txt) error = %v, want ErrParse", err)
	}
}

func TestFindColumn(t *testing.T) {
	tbl := &Table{Columns: []string{"Order Date ", "Region", "Total Revenue"}}

	tests := []struct {
		name string
		subs []string
		want int
		ok   bool
	}{
		{"date by substring", []string{"date"}, 0, true},
		{"value by any substring", []string{"sales", "amount", "revenue"}, 2, true},
		{"case insensitive", []string{"REGION"}, 1, true},
		{"absent", []string{"profit"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tbl.FindColumn(tt.subs)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("FindColumn(%v) = (%d, %v), want (%d, %v)", tt.subs, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestMonthlyPivot(t *testing.T) {
	tbl, err := ParseCSV(strings.NewReader(salesCSV))
	if err != nil {
		t.Fatal(err)
	}

	p, err := MonthlyPivot(tbl, []string{"date"}, []string{"sales"})
	if err != nil {
		t.Fatalf("MonthlyPivot: %v", err)
	}
	if len(p.Months) != 3 {
		t.Fatalf("months = %d, want 3", len(p.Months))
	}
	// Sorted ascending; the unparseable-date row is dropped.
	if got := p.Months[0].Month.Format("2006-01"); got != "2024-01" {
		t.Errorf("first month = %s, want 2024-01", got)
	}

	first, ok := p.FirstMonthTotal()
	if !ok || math.Abs(first-15.0) > 1e-9 {
		t.Errorf("FirstMonthTotal = (%v, %v), want (15, true)", first, ok)
	}
	if got := p.GrandTotal(); math.Abs(got-42.0) > 1e-9 {
		t.Errorf("GrandTotal = %v, want 42", got)
	}
}

func TestMonthlyPivotMissingColumn(t *testing.T) {
	tbl := &Table{
		Columns: []string{"When", "HowMuch"},
		Rows:    [][]string{{"2024-01-05", "10"}},
	}

	_, err := MonthlyPivot(tbl, []string{"date"}, []string{"howmuch"})
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("date lookup error = %v, want ErrMissingColumn", err)
	}

	_, err = MonthlyPivot(tbl, []string{"when"}, []string{"sales"})
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("value lookup error = %v, want ErrMissingColumn", err)
	}
}

func TestMonthlyPivotNoParseableDates(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Date", "Sales"},
		Rows:    [][]string{{"soon", "10"}, {"later", "20"}},
	}
	_, err := MonthlyPivot(tbl, []string{"date"}, []string{"sales"})
	if !errors.Is(err, ErrParse) {
		t.Errorf("error = %v, want ErrParse", err)
	}
}

func TestMonthlyPivotSkipsBadValues(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Date", "Sales"},
		Rows: [][]string{
			{"2024-01-05", "1,500.25"},
			{"2024-01-12", "n/a"},
			{"2024-01-19"}, // ragged row, no value cell
		},
	}
	p, err := MonthlyPivot(tbl, []string{"date"}, []string{"sales"})
	if err != nil {
		t.Fatalf("MonthlyPivot: %v", err)
	}
	first, _ := p.FirstMonthTotal()
	if math.Abs(first-1500.25) > 1e-9 {
		t.Errorf("FirstMonthTotal = %v, want 1500.25", first)
	}
}

func TestPreview(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Date", "Sales"},
		Rows: [][]string{
			{"2024-01-05", "10"},
			{"2024-01-12"},
		},
	}

	recs := tbl.Preview(50)
	if len(recs) != 2 {
		t.Fatalf("preview rows = %d, want 2", len(recs))
	}
	if recs[0]["Sales"] != "10" {
		t.Errorf("recs[0][Sales] = %q, want 10", recs[0]["Sales"])
	}
	if recs[1]["Sales"] != "" {
		t.Errorf("ragged cell = %q, want empty", recs[1]["Sales"])
	}
}
