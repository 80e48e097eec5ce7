// Package bank loads and validates the interview question bank.
//
// The default bank ships embedded in the binary together with the sample
// datasets referenced by hands-on questions; an external JSON file can be
// supplied to replace it. Question order in the file is the interview order.
package bank

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/xlmock/xlmock/internal/model"
)

//go:embed questions.json
var embeddedBank []byte

//go:embed data/*.csv
var datasetFS embed.FS

// ErrInvalid reports a malformed question bank.
var ErrInvalid = errors.New("invalid question bank")

// Bank is an ordered, validated list of interview questions.
type Bank struct {
	questions []model.Question
	byID      map[string]int
}

// Load returns the embedded bank, or the bank read from path when path is
// non-empty.
func Load(path string) (*Bank, error) {
	data := embeddedBank
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read question bank: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes and validates a question bank from JSON.
func Parse(data []byte) (*Bank, error) {
	var qs []model.Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrInvalid)
	}

	byID := make(map[string]int, len(qs))
	for i, q := range qs {
		if q.ID == "" {
			return nil, fmt.Errorf("%w: question %d has no id", ErrInvalid, i)
		}
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %q", ErrInvalid, q.ID)
		}
		byID[q.ID] = i
		if err := validateQuestion(q); err != nil {
			return nil, fmt.Errorf("%w: question %q: %v", ErrInvalid, q.ID, err)
		}
	}
	return &Bank{questions: qs, byID: byID}, nil
}

func validateQuestion(q model.Question) error {
	if !q.Kind.Valid() {
		return fmt.Errorf("unknown kind %q", q.Kind)
	}
	if q.Prompt == "" {
		return errors.New("no prompt")
	}
	if q.Label == "" {
		return errors.New("no label")
	}
	if q.Weight <= 0 {
		return fmt.Errorf("weight %d out of range", q.Weight)
	}

	if q.Kind == model.KindHandsOn {
		if q.Table == nil {
			return errors.New("hands-on question without table check")
		}
		if err := validateTable(*q.Table); err != nil {
			return err
		}
		// Keyword rule optional on hands-on: it is the fallback for
		// answers without an upload.
		if len(q.Keywords.Groups) > 0 {
			return validateKeywords(q.Keywords)
		}
		return nil
	}

	if len(q.Keywords.Groups) == 0 {
		return errors.New("no keyword groups")
	}
	return validateKeywords(q.Keywords)
}

func validateKeywords(r model.KeywordRule) error {
	for _, g := range r.Groups {
		if len(g.Terms) == 0 {
			return fmt.Errorf("keyword group %q has no terms", g.Label)
		}
	}
	if r.Need < 0 || r.Need > len(r.Groups) {
		return fmt.Errorf("need %d out of range for %d groups", r.Need, len(r.Groups))
	}
	for _, a := range r.Alternates {
		if len(a.Terms) == 0 {
			return fmt.Errorf("alternate %q has no terms", a.Label)
		}
		if a.Credit <= 0 || a.Credit > 1 {
			return fmt.Errorf("alternate %q credit %v out of range", a.Label, a.Credit)
		}
	}
	return nil
}

func validateTable(t model.TableCheck) error {
	if len(t.DateColumns) == 0 || len(t.ValueColumns) == 0 {
		return errors.New("table check needs date and value column names")
	}
	switch t.Metric {
	case model.MetricFirstMonthTotal, model.MetricGrandTotal:
	default:
		return fmt.Errorf("unknown metric %q", t.Metric)
	}
	if t.Dataset != "" {
		if _, err := datasetFS.ReadFile("data/" + t.Dataset); err != nil {
			return fmt.Errorf("missing dataset %q", t.Dataset)
		}
	}
	return nil
}

// Questions returns a copy of the ordered question list.
func (b *Bank) Questions() []model.Question {
	qs := make([]model.Question, len(b.questions))
	copy(qs, b.questions)
	return qs
}

// Question returns the question with the given id.
func (b *Bank) Question(id string) (model.Question, bool) {
	i, ok := b.byID[id]
	if !ok {
		return model.Question{}, false
	}
	return b.questions[i], true
}

// Len returns the number of questions in the bank.
func (b *Bank) Len() int { return len(b.questions) }

// Dataset returns an embedded sample dataset by file name.
func Dataset(name string) ([]byte, error) {
	data, err := datasetFS.ReadFile("data/" + name)
	if err != nil {
		return nil, fmt.Errorf("read dataset %q: %w", name, err)
	}
	return data, nil
}
