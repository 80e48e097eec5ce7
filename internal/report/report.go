// Package report turns a finished (or in-flight) interview session into the
// exported transcript: per-question rows plus the constructive summary with
// strengths, weaknesses, the human-review queue, and score statistics.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/montanaflynn/stats"

	"github.com/xlmock/xlmock/internal/grader"
	"github.com/xlmock/xlmock/internal/i18n"
	"github.com/xlmock/xlmock/internal/model"
)

// BuildTranscript assembles the transcript for a session. Only recorded
// results produce question rows; a session with none still yields a valid
// transcript with an overall score of 0.
func BuildTranscript(ctx context.Context, sess model.Session) model.Transcript {
	n := len(sess.Results)
	if n > len(sess.Questions) {
		n = len(sess.Questions)
	}

	rows := make([]model.TranscriptQuestion, 0, n)
	scores := make([]float64, 0, n)
	var strengths []string
	var weaknesses []model.Weakness
	var review []model.ReviewItem
	answered, skipped := 0, 0

	for i := 0; i < n; i++ {
		q := sess.Questions[i]
		r := sess.Results[i]

		conf := r.Confidence
		if conf == "" {
			conf = model.ConfidenceForScore(r.Score)
		}
		feedback := r.Feedback
		if feedback == "" {
			feedback = grader.Feedback(ctx, q, r.Notes)
		}

		rows = append(rows, model.TranscriptQuestion{
			QuestionID: q.ID,
			Label:      q.Label,
			Kind:       q.Kind,
			Prompt:     q.Prompt,
			Weight:     q.Weight,
			Answer:     r.Answer,
			Skipped:    r.Skipped,
			Score:      r.Score,
			Notes:      r.Notes,
			Confidence: conf,
			Feedback:   feedback,
		})
		scores = append(scores, r.Score)
		if r.Skipped {
			skipped++
		} else {
			answered++
		}

		if r.Score >= model.HighThreshold {
			strengths = append(strengths, q.Label)
		}
		if r.Score < model.MediumThreshold {
			weaknesses = append(weaknesses, model.Weakness{Question: q.Prompt, Tip: feedback})
		}
		if conf == model.ConfidenceLow {
			review = append(review, model.ReviewItem{
				QuestionID: q.ID,
				Question:   q.Prompt,
				Answer:     r.Answer,
				Score:      r.Score,
				Notes:      r.Notes,
			})
		}
	}

	overall := 0.0
	if len(scores) > 0 {
		overall, _ = stats.Mean(scores)
	}

	return model.Transcript{
		SessionID:  sess.ID,
		Candidate:  sess.Candidate,
		StartedAt:  sess.StartedAt,
		FinishedAt: sess.FinishedAt,
		Questions:  rows,
		Summary: model.Summary{
			OverallScore:  overall,
			WeightedScore: weightedScore(sess),
			QuestionCount: len(sess.Questions),
			Answered:      answered,
			Skipped:       skipped,
			Strengths:     strengths,
			Weaknesses:    weaknesses,
			ReviewQueue:   review,
			Stats:         scoreStats(scores),
			NextSteps: []string{
				i18n.T(ctx, "NextStepTables"),
				i18n.T(ctx, "NextStepPivots"),
				i18n.T(ctx, "NextStepFormulas"),
			},
		},
		UploadPreview: sess.UploadPreview,
	}
}

// weightedScore is the headline 0-100 number: per-question scores weighted by
// question weight over the weight of the whole bank, so unanswered questions
// count as zero. Rounded to one decimal.
func weightedScore(sess model.Session) float64 {
	var totalWeight, weightedSum float64
	for _, q := range sess.Questions {
		totalWeight += float64(q.Weight)
	}
	for i, r := range sess.Results {
		if i >= len(sess.Questions) {
			break
		}
		weightedSum += r.Score * float64(sess.Questions[i].Weight)
	}
	if totalWeight == 0 {
		return 0
	}
	return math.Round(1000*weightedSum/totalWeight) / 10
}

func scoreStats(scores []float64) *model.ScoreStats {
	if len(scores) == 0 {
		return nil
	}
	mean, _ := stats.Mean(scores)
	median, _ := stats.Median(scores)
	lowest, _ := stats.Min(scores)
	highest, _ := stats.Max(scores)
	stddev, _ := stats.StandardDeviation(scores)
	return &model.ScoreStats{
		Mean:   mean,
		Median: median,
		Min:    lowest,
		Max:    highest,
		StdDev: stddev,
	}
}

// FileName returns the canonical transcript file name for a session.
func FileName(sessionID string) string {
	return "transcript_" + sessionID + ".json"
}

// Export writes the transcript as indented JSON under dir and returns the
// full path.
func Export(dir string, tr model.Transcript) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcripts dir: %w", err)
	}
	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}
	path := filepath.Join(dir, FileName(tr.SessionID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

// Load reads a transcript JSON file previously produced by Export or the
// transcript endpoint.
func Load(path string) (model.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	var tr model.Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return model.Transcript{}, fmt.Errorf("decode transcript %s: %w", path, err)
	}
	return tr, nil
}
