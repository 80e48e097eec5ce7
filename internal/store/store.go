// Package store keeps interview sessions in memory. Sessions live for the
// process lifetime; the exported transcript is the only persistent artifact.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xlmock/xlmock/internal/model"
)

// ErrNotFound reports an unknown session id.
var ErrNotFound = errors.New("session not found")

// DefaultCandidate names sessions started without a candidate name.
const DefaultCandidate = "Candidate"

// Store is a concurrency-safe registry of interview sessions sharing one
// question list.
type Store struct {
	mu        sync.RWMutex
	questions []model.Question
	sessions  map[string]*model.Session
}

// New creates a store whose sessions all run the given question list.
func New(questions []model.Question) *Store {
	return &Store{
		questions: questions,
		sessions:  make(map[string]*model.Session),
	}
}

// Start creates a new session for candidate with an empty result set.
func (s *Store) Start(candidate string) model.Session {
	if candidate == "" {
		candidate = DefaultCandidate
	}
	sess := &model.Session{
		ID:        uuid.NewString(),
		Candidate: candidate,
		StartedAt: time.Now().UTC(),
		Questions: s.questions,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return clone(sess)
}

// Get returns a copy of the session with the given id.
func (s *Store) Get(id string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return clone(sess), nil
}

// CurrentQuestion returns the session's current question; ok is false once
// the interview is complete.
func (s *Store) CurrentQuestion(id string) (model.Question, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Question{}, false, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	q, ok := sess.CurrentQuestion()
	return q, ok, nil
}

// RecordResult records r for the session's current question and advances the
// index. Recording on a completed session changes nothing. The updated
// session copy is returned.
func (s *Store) RecordResult(id string, r model.QuestionResult) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	sess.RecordResult(r)
	return clone(sess), nil
}

// SetUploadPreview stores the first rows of the candidate's latest hands-on
// upload for inclusion in the transcript.
func (s *Store) SetUploadPreview(id string, preview []map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	sess.UploadPreview = preview
	return nil
}

// Restart starts a fresh session (new id, clean results) for the same
// candidate. The old session stays readable.
func (s *Store) Restart(id string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.sessions[id]
	if !ok {
		return model.Session{}, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	sess := &model.Session{
		ID:        uuid.NewString(),
		Candidate: old.Candidate,
		StartedAt: time.Now().UTC(),
		Questions: s.questions,
	}
	s.sessions[sess.ID] = sess
	return clone(sess), nil
}

// clone copies a session so callers cannot mutate stored state. The question
// list and note slices are shared; both are immutable once recorded.
func clone(sess *model.Session) model.Session {
	out := *sess
	out.Results = append([]model.QuestionResult(nil), sess.Results...)
	out.UploadPreview = append([]map[string]string(nil), sess.UploadPreview...)
	return out
}
