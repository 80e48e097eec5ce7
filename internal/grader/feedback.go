package grader

import (
	"context"
	"strings"

	"github.com/xlmock/xlmock/internal/i18n"
	"github.com/xlmock/xlmock/internal/model"
)

// Feedback renders a candidate-facing tip line from grading notes: up to two
// localized tips keyed off what the rules matched, or a kind-appropriate
// generic hint when nothing matched. Only positive notes drive tips, so a
// "missing: SUMIFS" never reads as praise for SUMIFS.
func Feedback(ctx context.Context, q model.Question, notes []string) string {
	found := strings.ToLower(strings.Join(matchedNotes(notes), " "))

	var ids []string
	if strings.Contains(found, "sumifs") {
		ids = append(ids, "TipSumifs")
	} else if strings.Contains(found, "sumif") {
		ids = append(ids, "TipSumifPartial")
	}
	if anyOf(found, "xlookup", "index") {
		ids = append(ids, "TipLookup")
	}
	if anyOf(found, "countif", "counta") {
		ids = append(ids, "TipCount")
	}
	if strings.Contains(found, "average") {
		ids = append(ids, "TipAverage")
	}
	if strings.Contains(found, "year") {
		ids = append(ids, "TipYear")
	}
	if anyOf(found, "divide", "zero") {
		ids = append(ids, "TipDivide")
	}
	if anyOf(found, "pivot", "chart") {
		ids = append(ids, "TipPivot")
	}

	if len(ids) == 0 {
		if q.Kind == model.KindFormula {
			return i18n.T(ctx, "TipFormulaGeneric")
		}
		return i18n.T(ctx, "TipGeneric")
	}
	if len(ids) > 2 {
		ids = ids[:2]
	}

	tips := make([]string, len(ids))
	for i, id := range ids {
		tips[i] = i18n.T(ctx, id)
	}
	return strings.Join(tips, " ")
}

// matchedNotes keeps the notes that report something the rules matched.
func matchedNotes(notes []string) []string {
	var out []string
	for _, n := range notes {
		switch {
		case strings.HasPrefix(n, "found: "),
			strings.HasPrefix(n, "pivot: "),
			strings.Contains(n, "matches expected"),
			strings.Contains(n, "close to expected"):
			out = append(out, n)
		}
	}
	return out
}

func anyOf(text string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}
