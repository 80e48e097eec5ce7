package model

import "time"

// Transcript is the top-level JSON structure for interview result export.
type Transcript struct {
	SessionID     string               `json:"session_id"`
	Candidate     string               `json:"candidate"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    *time.Time           `json:"finished_at,omitempty"`
	Questions     []TranscriptQuestion `json:"questions"`
	Summary       Summary              `json:"summary"`
	UploadPreview []map[string]string  `json:"upload_preview,omitempty"`
}

// TranscriptQuestion holds one question together with its graded result.
type TranscriptQuestion struct {
	QuestionID string     `json:"question_id"`
	Label      string     `json:"label"`
	Kind       Kind       `json:"kind"`
	Prompt     string     `json:"prompt"`
	Weight     int        `json:"weight"`
	Answer     string     `json:"answer"`
	Skipped    bool       `json:"skipped,omitempty"`
	Score      float64    `json:"score"`
	Notes      []string   `json:"notes"`
	Confidence Confidence `json:"confidence"`
	Feedback   string     `json:"feedback,omitempty"`
}

// Weakness is a low-scoring question paired with a suggested next step.
type Weakness struct {
	Question string `json:"question"`
	Tip      string `json:"tip"`
}

// ReviewItem is a low-confidence result queued for human review.
type ReviewItem struct {
	QuestionID string   `json:"question_id"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Score      float64  `json:"score"`
	Notes      []string `json:"notes"`
}

// ScoreStats summarizes the distribution of per-question scores.
type ScoreStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}

// Summary aggregates a session's results for the transcript.
type Summary struct {
	OverallScore  float64      `json:"overall_score"`
	WeightedScore float64      `json:"weighted_score"`
	QuestionCount int          `json:"question_count"`
	Answered      int          `json:"answered"`
	Skipped       int          `json:"skipped"`
	Strengths     []string     `json:"strengths"`
	Weaknesses    []Weakness   `json:"weaknesses"`
	ReviewQueue   []ReviewItem `json:"review_queue"`
	Stats         *ScoreStats  `json:"score_stats,omitempty"`
	NextSteps     []string     `json:"next_steps"`
}
