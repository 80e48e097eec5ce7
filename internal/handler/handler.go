// Package handler exposes the interview flow over a JSON HTTP API: start a
// session, fetch the current question, submit or skip answers, download the
// transcript.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xlmock/xlmock/internal/bank"
	"github.com/xlmock/xlmock/internal/grader"
	"github.com/xlmock/xlmock/internal/i18n"
	"github.com/xlmock/xlmock/internal/model"
	"github.com/xlmock/xlmock/internal/report"
	"github.com/xlmock/xlmock/internal/store"
	"github.com/xlmock/xlmock/internal/tabular"
)

// maxUploadBytes caps hands-on uploads.
const maxUploadBytes = 10 << 20

// previewRows is how many upload rows the transcript keeps.
const previewRows = 50

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store          *store.Store
	bank           *bank.Bank
	metrics        *Metrics
	transcriptsDir string
}

// New creates a new Handler. transcriptsDir may be empty; when set, completed
// sessions are also exported there as JSON files.
func New(s *store.Store, b *bank.Bank, m *Metrics, transcriptsDir string) *Handler {
	return &Handler{store: s, bank: b, metrics: m, transcriptsDir: transcriptsDir}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/interview", h.handleStart)
	r.Get("/interview/{sessionID}", h.handleProgress)
	r.Get("/interview/{sessionID}/question", h.handleQuestion)
	r.Post("/interview/{sessionID}/answer", h.handleAnswer)
	r.Post("/interview/{sessionID}/skip", h.handleSkip)
	r.Post("/interview/{sessionID}/restart", h.handleRestart)
	r.Get("/interview/{sessionID}/transcript", h.handleTranscript)
	r.Get("/questions", h.handleQuestions)
	r.Get("/questions/{questionID}/dataset", h.handleDataset)
	r.Get("/healthz", h.handleHealthz)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type introCard struct {
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	Welcome       string `json:"welcome"`
	QuestionCount string `json:"question_count"`
	Instructions  string `json:"instructions"`
	EstimatedTime string `json:"estimated_time"`
	WhatNext      string `json:"what_next"`
}

type questionView struct {
	ID            string     `json:"id"`
	Kind          model.Kind `json:"kind"`
	Label         string     `json:"label"`
	Index         int        `json:"index"`
	Total         int        `json:"total"`
	Prompt        string     `json:"prompt"`
	ExampleAnswer string     `json:"example_answer,omitempty"`
	Weight        int        `json:"weight"`
	AcceptsUpload bool       `json:"accepts_upload,omitempty"`
	DatasetURL    string     `json:"dataset_url,omitempty"`
}

type resultView struct {
	QuestionID string           `json:"question_id"`
	Skipped    bool             `json:"skipped,omitempty"`
	Score      float64          `json:"score"`
	Notes      []string         `json:"notes"`
	Confidence model.Confidence `json:"confidence"`
	Feedback   string           `json:"feedback,omitempty"`
}

type sessionResponse struct {
	SessionID string        `json:"session_id"`
	Candidate string        `json:"candidate"`
	Intro     introCard     `json:"intro"`
	Question  *questionView `json:"question,omitempty"`
}

type progressResponse struct {
	SessionID    string       `json:"session_id"`
	Candidate    string       `json:"candidate"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
	CurrentIndex int          `json:"current_index"`
	Total        int          `json:"total"`
	Completed    bool         `json:"completed"`
	Results      []resultView `json:"results"`
}

type questionResponse struct {
	Completed bool          `json:"completed"`
	Question  *questionView `json:"question,omitempty"`
}

type answerResponse struct {
	Result    resultView    `json:"result"`
	Completed bool          `json:"completed"`
	Next      *questionView `json:"next,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeStoreError maps store failures to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	slog.Error("store error", "error", err)
	writeError(w, http.StatusInternalServerError, "internal", "internal error")
}

func (h *Handler) questionView(q model.Question, index int) *questionView {
	v := &questionView{
		ID:            q.ID,
		Kind:          q.Kind,
		Label:         q.Label,
		Index:         index + 1,
		Total:         h.bank.Len(),
		Prompt:        q.Prompt,
		ExampleAnswer: q.ExampleAnswer,
		Weight:        q.Weight,
	}
	if q.Kind == model.KindHandsOn {
		v.AcceptsUpload = true
		if q.Table != nil && q.Table.Dataset != "" {
			v.DatasetURL = "/questions/" + q.ID + "/dataset"
		}
	}
	return v
}

func resultViewOf(r model.QuestionResult) resultView {
	return resultView{
		QuestionID: r.QuestionID,
		Skipped:    r.Skipped,
		Score:      r.Score,
		Notes:      r.Notes,
		Confidence: r.Confidence,
		Feedback:   r.Feedback,
	}
}

func (h *Handler) sessionResponse(ctx context.Context, sess model.Session) sessionResponse {
	resp := sessionResponse{
		SessionID: sess.ID,
		Candidate: sess.Candidate,
		Intro: introCard{
			Title:         i18n.T(ctx, "AppTitle"),
			Subtitle:      i18n.T(ctx, "AppSubtitle"),
			Welcome:       i18n.T(ctx, "IntroWelcome"),
			QuestionCount: i18n.Tp(ctx, "IntroQuestionCount", h.bank.Len()),
			Instructions:  i18n.T(ctx, "IntroInstructions"),
			EstimatedTime: i18n.T(ctx, "IntroEstimatedTime"),
			WhatNext:      i18n.T(ctx, "IntroWhatNext"),
		},
	}
	if q, ok := sess.CurrentQuestion(); ok {
		resp.Question = h.questionView(q, sess.CurrentIndex)
	}
	return resp
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Candidate string `json:"candidate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	sess := h.store.Start(req.Candidate)
	h.metrics.InterviewsStarted.Inc()
	slog.Info("interview started", "session", sess.ID, "candidate", sess.Candidate)

	writeJSON(w, http.StatusCreated, h.sessionResponse(r.Context(), sess))
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	results := make([]resultView, 0, len(sess.Results))
	for _, res := range sess.Results {
		results = append(results, resultViewOf(res))
	}
	writeJSON(w, http.StatusOK, progressResponse{
		SessionID:    sess.ID,
		Candidate:    sess.Candidate,
		StartedAt:    sess.StartedAt,
		FinishedAt:   sess.FinishedAt,
		CurrentIndex: sess.CurrentIndex,
		Total:        len(sess.Questions),
		Completed:    sess.Completed,
		Results:      results,
	})
}

func (h *Handler) handleQuestion(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	q, ok := sess.CurrentQuestion()
	if !ok {
		writeJSON(w, http.StatusOK, questionResponse{Completed: true})
		return
	}
	writeJSON(w, http.StatusOK, questionResponse{Question: h.questionView(q, sess.CurrentIndex)})
}

// readAnswer pulls the answer text and optional upload out of the request.
// A file that cannot be parsed still produces an Upload, carrying the parse
// error: malformed uploads are grading outcomes, not HTTP errors.
func (h *Handler) readAnswer(r *http.Request, sessionID string) (string, *grader.Upload, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return "", nil, fmt.Errorf("parse form: %w", err)
		}
		return r.FormValue("answer"), nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, fmt.Errorf("parse multipart form: %w", err)
	}
	answer := r.FormValue("answer")

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return answer, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}

	up := &grader.Upload{Filename: header.Filename}
	tbl, err := tabular.Parse(header.Filename, bytes.NewReader(data))
	if err != nil {
		up.Err = err
		h.metrics.UploadsRejected.WithLabelValues("parse_error").Inc()
		return answer, up, nil
	}
	up.Table = tbl
	if err := h.store.SetUploadPreview(sessionID, tbl.Preview(previewRows)); err != nil {
		return "", nil, err
	}
	return answer, up, nil
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	q, ok, err := h.store.CurrentQuestion(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "conflict", "interview already complete")
		return
	}

	answer, upload, err := h.readAnswer(r, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeStoreError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	score, notes := grader.Grade(q, answer, upload)
	if upload != nil && upload.Err == nil {
		for _, note := range notes {
			if strings.HasPrefix(note, "missing column") {
				h.metrics.UploadsRejected.WithLabelValues("missing_column").Inc()
				break
			}
		}
	}

	result := model.QuestionResult{
		QuestionID: q.ID,
		Answer:     answer,
		Score:      score,
		Notes:      notes,
		Confidence: model.ConfidenceForScore(score),
		Feedback:   grader.Feedback(r.Context(), q, notes),
	}
	if upload != nil {
		result.Upload = upload.Filename
	}

	h.recordAndRespond(w, r, id, q, result)
}

func (h *Handler) handleSkip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	q, ok, err := h.store.CurrentQuestion(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "conflict", "interview already complete")
		return
	}

	score, notes := grader.Skip()
	result := model.QuestionResult{
		QuestionID: q.ID,
		Skipped:    true,
		Score:      score,
		Notes:      notes,
		Confidence: model.ConfidenceForScore(score),
		Feedback:   grader.Feedback(r.Context(), q, notes),
	}

	h.recordAndRespond(w, r, id, q, result)
}

// recordAndRespond stores a result, updates metrics, exports the transcript
// on completion, and answers with the graded result plus the next question.
func (h *Handler) recordAndRespond(w http.ResponseWriter, r *http.Request, id string, q model.Question, result model.QuestionResult) {
	sess, err := h.store.RecordResult(id, result)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.metrics.AnswersGraded.WithLabelValues(string(q.Kind), string(result.Confidence)).Inc()
	h.metrics.AnswerScore.Observe(result.Score)
	slog.Info("answer recorded",
		"session", id, "question", q.ID, "skipped", result.Skipped,
		"score", result.Score, "confidence", result.Confidence)

	resp := answerResponse{Result: resultViewOf(result), Completed: sess.Completed}
	if next, ok := sess.CurrentQuestion(); ok {
		resp.Next = h.questionView(next, sess.CurrentIndex)
	}
	if sess.Completed {
		h.metrics.InterviewsCompleted.Inc()
		h.exportTranscript(r.Context(), sess)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Restart(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.metrics.InterviewsStarted.Inc()
	slog.Info("interview restarted", "session", sess.ID, "candidate", sess.Candidate)

	writeJSON(w, http.StatusCreated, h.sessionResponse(r.Context(), sess))
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !sess.Completed {
		writeError(w, http.StatusConflict, "incomplete", "interview not complete yet")
		return
	}

	tr := report.BuildTranscript(r.Context(), sess)
	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		slog.Error("encode transcript", "session", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(sess.ID)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("write transcript", "session", sess.ID, "error", err)
	}
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	qs := h.bank.Questions()
	views := make([]*questionView, 0, len(qs))
	for i, q := range qs {
		views = append(views, h.questionView(q, i))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "questionID")
	q, ok := h.bank.Question(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown question "+id)
		return
	}
	if q.Table == nil || q.Table.Dataset == "" {
		writeError(w, http.StatusNotFound, "not_found", "question "+id+" has no sample dataset")
		return
	}

	data, err := bank.Dataset(q.Table.Dataset)
	if err != nil {
		slog.Error("read dataset", "question", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", q.Table.Dataset))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("write dataset", "question", id, "error", err)
	}
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) exportTranscript(ctx context.Context, sess model.Session) {
	if h.transcriptsDir == "" {
		return
	}
	tr := report.BuildTranscript(ctx, sess)
	path, err := report.Export(h.transcriptsDir, tr)
	if err != nil {
		slog.Error("export transcript", "session", sess.ID, "error", err)
		return
	}
	slog.Info("transcript exported", "session", sess.ID, "path", path)
}
