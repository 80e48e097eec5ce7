package model

import "time"

// Kind identifies the grading rule family for a question.
type Kind string

const (
	// KindFormula is a formula-recall question graded by formula-name detection.
	KindFormula Kind = "formula"
	// KindConcept is a conceptual question graded by keyword matching.
	KindConcept Kind = "concept"
	// KindDebug is a debugging question graded by cause-keyword matching.
	KindDebug Kind = "debug"
	// KindHandsOn is a practical task graded against an uploaded table.
	KindHandsOn Kind = "hands_on"
)

// Valid reports whether k is a known question kind.
func (k Kind) Valid() bool {
	switch k {
	case KindFormula, KindConcept, KindDebug, KindHandsOn:
		return true
	}
	return false
}

// Confidence is the discretized trust level derived from a score.
// Low results are flagged for human review.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Score thresholds shared by confidence labels and the report: a score at or
// above HighThreshold counts as a strength, below MediumThreshold as a
// weakness (and as Low confidence, which queues the answer for review).
const (
	HighThreshold   = 0.7
	MediumThreshold = 0.4
)

// ConfidenceForScore maps a score in [0,1] to its confidence label.
func ConfidenceForScore(score float64) Confidence {
	switch {
	case score >= HighThreshold:
		return ConfidenceHigh
	case score >= MediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// KeywordGroup is one expected concept in an answer. A group matches when any
// of its terms appears in the normalized answer, or all of them when All is
// set (INDEX together with MATCH counts as a single lookup concept).
type KeywordGroup struct {
	Label string   `json:"label"`
	Terms []string `json:"terms"`
	All   bool     `json:"all,omitempty"`
}

// Alternate awards reduced credit when no keyword group matched but an
// acceptable substitute did (SUMIF instead of SUMIFS).
type Alternate struct {
	Label  string   `json:"label"`
	Terms  []string `json:"terms"`
	Credit float64  `json:"credit"`
}

// KeywordRule configures keyword grading for a question.
// Score is min(1, matched groups / need); need defaults to len(Groups).
type KeywordRule struct {
	Groups     []KeywordGroup `json:"groups"`
	Need       int            `json:"need,omitempty"`
	Alternates []Alternate    `json:"alternates,omitempty"`
}

// Metric selects which pivot figure a hands-on check compares.
type Metric string

const (
	MetricFirstMonthTotal Metric = "first_month_total"
	MetricGrandTotal      Metric = "grand_total"
)

// Band is an absolute/relative tolerance pair. A difference is inside the
// band when it is at most Abs, or at most Rel times the expected value.
type Band struct {
	Abs float64 `json:"abs,omitempty"`
	Rel float64 `json:"rel,omitempty"`
}

// TableCheck configures hands-on grading: how to locate the date and value
// columns, which aggregate to compute, and what value to expect.
type TableCheck struct {
	DateColumns  []string `json:"date_columns"`
	ValueColumns []string `json:"value_columns"`
	Metric       Metric   `json:"metric"`
	Expected     float64  `json:"expected"`
	Tolerance    Band     `json:"tolerance"`
	Near         Band     `json:"near"`
	Dataset      string   `json:"dataset,omitempty"`
}

// Question is one interview question with its grading configuration.
type Question struct {
	ID            string      `json:"id"`
	Kind          Kind        `json:"kind"`
	Label         string      `json:"label"`
	Prompt        string      `json:"prompt"`
	ExampleAnswer string      `json:"example_answer"`
	Weight        int         `json:"weight"`
	Keywords      KeywordRule `json:"keywords"`
	Table         *TableCheck `json:"table,omitempty"`
}

// QuestionResult records the graded outcome for a single question.
type QuestionResult struct {
	QuestionID string     `json:"question_id"`
	Answer     string     `json:"answer"`
	Upload     string     `json:"upload,omitempty"`
	Skipped    bool       `json:"skipped,omitempty"`
	Score      float64    `json:"score"`
	Notes      []string   `json:"notes"`
	Confidence Confidence `json:"confidence"`
	Feedback   string     `json:"feedback,omitempty"`
}

// Session is one interview run. Results are recorded in question order and
// the index only advances; a restart creates a fresh Session instead of
// rewinding this one.
type Session struct {
	ID            string              `json:"id"`
	Candidate     string              `json:"candidate"`
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    *time.Time          `json:"finished_at,omitempty"`
	Questions     []Question          `json:"-"`
	CurrentIndex  int                 `json:"current_index"`
	Results       []QuestionResult    `json:"results"`
	Completed     bool                `json:"completed"`
	UploadPreview []map[string]string `json:"-"`
}

// CurrentQuestion returns the question at the current index. ok is false once
// the interview has moved past the last question.
func (s *Session) CurrentQuestion() (Question, bool) {
	if s.CurrentIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// IsComplete reports whether every question has been answered or skipped.
func (s *Session) IsComplete() bool {
	return s.CurrentIndex >= len(s.Questions)
}

// RecordResult stores the result for the current question and advances the
// index. Recording on a completed session is a no-op: past-the-end access
// means the interview is over, not an error.
func (s *Session) RecordResult(r QuestionResult) {
	if s.IsComplete() {
		return
	}
	if s.CurrentIndex < len(s.Results) {
		s.Results[s.CurrentIndex] = r
	} else {
		s.Results = append(s.Results, r)
	}
	s.CurrentIndex++
	if s.IsComplete() {
		s.Completed = true
		now := time.Now().UTC()
		s.FinishedAt = &now
	}
}

// Config holds runtime server parameters set via CLI flags.
type Config struct {
	Addr           string
	Lang           string
	QuestionsPath  string // external bank file; empty means the embedded bank
	TranscriptsDir string // when set, completed transcripts are also written here
}
