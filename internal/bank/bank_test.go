package bank

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xlmock/xlmock/internal/model"
)

func TestLoadEmbedded(t *testing.T) {
	b, err := Load("")
	if err != nil {
		t.Fatalf("Load embedded bank: %v", err)
	}
	if b.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", b.Len())
	}

	qs := b.Questions()
	if qs[0].ID != "q1" || qs[len(qs)-1].ID != "q10" {
		t.Errorf("bank order = %s..%s, want q1..q10", qs[0].ID, qs[len(qs)-1].ID)
	}

	counts := map[model.Kind]int{}
	for _, q := range qs {
		counts[q.Kind]++
	}
	want := map[model.Kind]int{
		model.KindFormula: 5,
		model.KindDebug:   2,
		model.KindConcept: 2,
		model.KindHandsOn: 1,
	}
	for kind, n := range want {
		if counts[kind] != n {
			t.Errorf("kind %s count = %d, want %d", kind, counts[kind], n)
		}
	}

	last, ok := b.Question("q10")
	if !ok {
		t.Fatal("Question(q10) not found")
	}
	if last.Table == nil {
		t.Fatal("q10 has no table check")
	}
	if last.Table.Metric != model.MetricFirstMonthTotal {
		t.Errorf("q10 metric = %q, want %q", last.Table.Metric, model.MetricFirstMonthTotal)
	}
	if last.Keywords.Need != 4 || len(last.Keywords.Groups) != 8 {
		t.Errorf("q10 keyword rule = need %d over %d groups, want 4 over 8",
			last.Keywords.Need, len(last.Keywords.Groups))
	}
}

func TestParseRejectsInvalidBanks(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed json", `{"not": "a list"`},
		{"empty list", `[]`},
		{"missing id", `[{"kind":"formula","label":"x","prompt":"p","weight":1,"keywords":{"groups":[{"label":"g","terms":["a"]}]}}]`},
		{"duplicate id", `[
			{"id":"q1","kind":"formula","label":"x","prompt":"p","weight":1,"keywords":{"groups":[{"label":"g","terms":["a"]}]}},
			{"id":"q1","kind":"formula","label":"y","prompt":"p","weight":1,"keywords":{"groups":[{"label":"g","terms":["a"]}]}}
		]`},
		{"unknown kind", `[{"id":"q1","kind":"essay","label":"x","prompt":"p","weight":1,"keywords":{"groups":[{"label":"g","terms":["a"]}]}}]`},
		{"missing prompt", `[{"id":"q1","kind":"formula","label":"x","weight":1,"keywords":{"groups":[{"label":"g","terms":["a"]}]}}]`},
		{"missing label", `[{"id":"q1","kind":"formula","prompt":"p","weight":1,"keywords":{"groups":[{"label":"g","terms":["a"]}]}}]`},
		{"zero weight", `[{"id":"q1","kind":"formula","label":"x","prompt":"p","keywords":{"groups":[{"label":"g","terms":["a"]}]}}]`},
		{"no keyword groups", `[{"id":"q1","kind":"concept","label":"x","prompt":"p","weight":1}]`},
		{"group without terms", `[{"id":"q1","kind":"formula","label":"x","prompt":"p","weight":1,"keywords":{"groups":[{"label":"g"}]}}]`},
		{"need out of range", `[{"id":"q1","kind":"formula","label":"x","prompt":"p","weight":1,"keywords":{"need":3,"groups":[{"label":"g","terms":["a"]}]}}]`},
		{"alternate credit out of range", `[{"id":"q1","kind":"formula","label":"x","prompt":"p","weight":1,"keywords":{"groups":[{"label":"g","terms":["a"]}],"alternates":[{"label":"b","terms":["b"],"credit":1.5}]}}]`},
		{"hands-on without table", `[{"id":"q1","kind":"hands_on","label":"x","prompt":"p","weight":1,"keywords":{"groups":[{"label":"g","terms":["a"]}]}}]`},
		{"unknown metric", `[{"id":"q1","kind":"hands_on","label":"x","prompt":"p","weight":1,"table":{"date_columns":["date"],"value_columns":["sales"],"metric":"median","expected":1}}]`},
		{"missing dataset", `[{"id":"q1","kind":"hands_on","label":"x","prompt":"p","weight":1,"table":{"date_columns":["date"],"value_columns":["sales"],"metric":"grand_total","expected":1,"dataset":"nope.csv"}}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadExternalFile(t *testing.T) {
	const small = `[{"id":"c1","kind":"concept","label":"tables","prompt":"What is a structured reference?","weight":1,"keywords":{"groups":[{"label":"tables","terms":["table"]}]}}]`

	path := filepath.Join(t.TempDir(), "bank.json")
	if err := os.WriteFile(path, []byte(small), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s): %v", path, err)
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
	if _, ok := b.Question("c1"); !ok {
		t.Error("Question(c1) not found")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}

func TestDataset(t *testing.T) {
	data, err := Dataset("sales_2024.csv")
	if err != nil {
		t.Fatalf("Dataset(sales_2024.csv): %v", err)
	}
	if !strings.HasPrefix(string(data), "Date,Region,Sales") {
		t.Errorf("dataset header = %q, want Date,Region,Sales", strings.SplitN(string(data), "\n", 2)[0])
	}

	if _, err := Dataset("absent.csv"); err == nil {
		t.Error("Dataset(absent.csv) succeeded, want error")
	}
}
