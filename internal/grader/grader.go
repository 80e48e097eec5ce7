// Package grader scores interview answers with deterministic, auditable
// rules: keyword and formula-name checks for text answers, and a computed
// monthly-pivot comparison for hands-on uploads. Scores are in [0,1]; notes
// record what the rules saw, in a fixed format downstream consumers rely on.
package grader

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/xlmock/xlmock/internal/model"
	"github.com/xlmock/xlmock/internal/tabular"
)

// NoteSkipped is the single note recorded for a skipped question.
const NoteSkipped = "skipped"

// noteNoUpload marks a hands-on answer graded from text because no file came
// with it.
const noteNoUpload = "no table uploaded; graded from answer text"

// Upload is a candidate file attachment, parsed or failed. A parse failure is
// a grading outcome, not a transport error: the answer scores 0 with the
// failure as its note.
type Upload struct {
	Filename string
	Table    *tabular.Table
	Err      error
}

// Grade scores an answer to q. A hands-on upload may accompany the text
// answer; every other kind grades the text alone.
func Grade(q model.Question, answer string, up *Upload) (float64, []string) {
	switch q.Kind {
	case model.KindHandsOn:
		return gradeHandsOn(q, answer, up)
	case model.KindFormula:
		return matchKeywords(q.Keywords, answer, normalizeFormula)
	default:
		return matchKeywords(q.Keywords, answer, strings.ToLower)
	}
}

// Skip returns the recorded outcome for a skipped question.
func Skip() (float64, []string) {
	return 0, []string{NoteSkipped}
}

// matchKeywords scores an answer as matched groups over the needed count,
// capped at 1. Notes carry one "found: <label>" or "missing: <label>" entry
// per group, in group order. When nothing matched, alternates may award
// reduced credit.
func matchKeywords(rule model.KeywordRule, answer string, norm func(string) string) (float64, []string) {
	text := norm(answer)
	need := rule.Need
	if need <= 0 {
		need = len(rule.Groups)
	}

	hits := 0
	notes := make([]string, 0, len(rule.Groups))
	for _, g := range rule.Groups {
		if groupMatches(g, text, norm) {
			hits++
			notes = append(notes, "found: "+g.Label)
		} else {
			notes = append(notes, "missing: "+g.Label)
		}
	}

	if hits == 0 {
		for _, alt := range rule.Alternates {
			if containsAny(text, alt.Terms, norm) {
				notes = append(notes, "found: "+alt.Label+" (accepted alternative)")
				return alt.Credit, notes
			}
		}
	}

	if need == 0 {
		return 0, notes
	}
	return math.Min(1, float64(hits)/float64(need)), notes
}

func groupMatches(g model.KeywordGroup, text string, norm func(string) string) bool {
	if len(g.Terms) == 0 {
		return false
	}
	if g.All {
		for _, term := range g.Terms {
			if !strings.Contains(text, norm(term)) {
				return false
			}
		}
		return true
	}
	return containsAny(text, g.Terms, norm)
}

func containsAny(text string, terms []string, norm func(string) string) bool {
	for _, term := range terms {
		if strings.Contains(text, norm(term)) {
			return true
		}
	}
	return false
}

func gradeHandsOn(q model.Question, answer string, up *Upload) (float64, []string) {
	if up == nil {
		if len(q.Keywords.Groups) == 0 {
			return 0, []string{noteNoUpload}
		}
		score, notes := matchKeywords(q.Keywords, answer, strings.ToLower)
		return score, append(notes, noteNoUpload)
	}
	if up.Err != nil {
		return 0, []string{up.Err.Error()}
	}
	if q.Table == nil {
		// Bank validation rejects this; grade the text as a fallback.
		return matchKeywords(q.Keywords, answer, strings.ToLower)
	}
	return gradeTable(*q.Table, up.Table)
}

// gradeTable pivots the upload by month and compares the configured metric
// against the expected value: inside the tolerance band scores 1, inside the
// looser near band 0.5, anything else 0. Missing columns and unparseable
// tables score 0 with the failure as the note.
func gradeTable(check model.TableCheck, tbl *tabular.Table) (float64, []string) {
	pivot, err := tabular.MonthlyPivot(tbl, check.DateColumns, check.ValueColumns)
	if err != nil {
		return 0, []string{err.Error()}
	}

	var value float64
	switch check.Metric {
	case model.MetricGrandTotal:
		value = pivot.GrandTotal()
	default:
		value, _ = pivot.FirstMonthTotal()
	}

	summary := fmt.Sprintf("pivot: %d months, %s %.2f", len(pivot.Months), metricName(check.Metric), value)
	diff := math.Abs(value - check.Expected)
	switch {
	case inBand(diff, check.Expected, check.Tolerance):
		return 1, []string{summary, fmt.Sprintf("matches expected %.2f", check.Expected)}
	case inBand(diff, check.Expected, check.Near):
		return 0.5, []string{summary, fmt.Sprintf("close to expected %.2f", check.Expected)}
	default:
		return 0, []string{summary, fmt.Sprintf("does not match expected %.2f", check.Expected)}
	}
}

func metricName(m model.Metric) string {
	if m == model.MetricGrandTotal {
		return "grand total"
	}
	return "first month total"
}

// inBand reports whether a difference from the expected value falls inside a
// tolerance band. An exact match always passes, even with an empty band.
func inBand(diff, expected float64, b model.Band) bool {
	if diff == 0 {
		return true
	}
	if b.Abs > 0 && diff <= b.Abs {
		return true
	}
	return b.Rel > 0 && diff <= b.Rel*math.Abs(expected)
}

// normalizeFormula strips all whitespace and uppercases, so formula matching
// ignores spacing: "= SUMIFS (" and "=SUMIFS(" read the same.
func normalizeFormula(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
