package memory

import (
	"context"
	"sync"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore with real
// transaction semantics: each RunInTx works on a deep copy of the state and
// swaps it in only when fn succeeds, so a failed transaction leaves nothing
// behind.
type SessionStore struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	nextSessionID int64
	nextAttemptID int64
	nextResultID  int64
	sessions      map[int64]domain.Session
	assignments   map[int64][]int64 // sessionID -> quizID per order index
	attempts      map[int64][]domain.Attempt
	results       map[int64]domain.Result // keyed by sessionID
}

func NewSessionStore() *SessionStore {
	return &SessionStore{state: &state{
		nextSessionID: 1,
		nextAttemptID: 1,
		nextResultID:  1,
		sessions:      make(map[int64]domain.Session),
		assignments:   make(map[int64][]int64),
		attempts:      make(map[int64][]domain.Attempt),
		results:       make(map[int64]domain.Result),
	}}
}

func (s *SessionStore) RunInTx(_ context.Context, fn func(tx app.SessionTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&sessionTx{state: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// Session returns a snapshot of a session record, for tests and the watch feed.
func (s *SessionStore) Session(sessionID int64) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.state.sessions[sessionID]
	return session, ok
}

// Result returns the stored aggregate for a session, if finalized.
func (s *SessionStore) Result(sessionID int64) (domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.state.results[sessionID]
	return result, ok
}

func (st *state) clone() *state {
	next := &state{
		nextSessionID: st.nextSessionID,
		nextAttemptID: st.nextAttemptID,
		nextResultID:  st.nextResultID,
		sessions:      make(map[int64]domain.Session, len(st.sessions)),
		assignments:   make(map[int64][]int64, len(st.assignments)),
		attempts:      make(map[int64][]domain.Attempt, len(st.attempts)),
		results:       make(map[int64]domain.Result, len(st.results)),
	}
	for id, session := range st.sessions {
		if session.CompletedAt != nil {
			at := *session.CompletedAt
			session.CompletedAt = &at
		}
		next.sessions[id] = session
	}
	for id, quizIDs := range st.assignments {
		next.assignments[id] = append([]int64(nil), quizIDs...)
	}
	for id, attempts := range st.attempts {
		next.attempts[id] = append([]domain.Attempt(nil), attempts...)
	}
	for id, result := range st.results {
		result.AttemptIDs = append([]int64(nil), result.AttemptIDs...)
		next.results[id] = result
	}
	return next
}

type sessionTx struct {
	state *state
}

func (t *sessionTx) CreateSession(_ context.Context, s *domain.Session) error {
	s.ID = t.state.nextSessionID
	t.state.nextSessionID++
	t.state.sessions[s.ID] = *s
	return nil
}

func (t *sessionTx) SessionForUpdate(_ context.Context, sessionID, userID int64) (domain.Session, error) {
	session, ok := t.state.sessions[sessionID]
	if !ok || session.UserID != userID {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (t *sessionTx) CreateAssignments(_ context.Context, sessionID int64, quizIDs []int64) error {
	t.state.assignments[sessionID] = append([]int64(nil), quizIDs...)
	return nil
}

func (t *sessionTx) AssignmentOrder(_ context.Context, sessionID, quizID int64) (int, bool, error) {
	for order, id := range t.state.assignments[sessionID] {
		if id == quizID {
			return order, true, nil
		}
	}
	return 0, false, nil
}

func (t *sessionTx) QuizIDAtOrder(_ context.Context, sessionID int64, order int) (int64, bool, error) {
	quizIDs := t.state.assignments[sessionID]
	if order < 0 || order >= len(quizIDs) {
		return 0, false, nil
	}
	return quizIDs[order], true, nil
}

func (t *sessionTx) HasAttempt(_ context.Context, sessionID, quizID int64) (bool, error) {
	for _, a := range t.state.attempts[sessionID] {
		if a.QuizID == quizID {
			return true, nil
		}
	}
	return false, nil
}

func (t *sessionTx) CreateAttempt(_ context.Context, a *domain.Attempt) error {
	for _, existing := range t.state.attempts[a.SessionID] {
		if existing.QuizID == a.QuizID {
			return domain.ErrAlreadyAnswered
		}
	}
	a.ID = t.state.nextAttemptID
	t.state.nextAttemptID++
	t.state.attempts[a.SessionID] = append(t.state.attempts[a.SessionID], *a)
	return nil
}

func (t *sessionTx) IncrementAnswered(_ context.Context, sessionID int64) (int, error) {
	session, ok := t.state.sessions[sessionID]
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	session.AnsweredCount++
	t.state.sessions[sessionID] = session
	return session.AnsweredCount, nil
}

func (t *sessionTx) ListAttempts(_ context.Context, sessionID int64) ([]domain.Attempt, error) {
	return append([]domain.Attempt(nil), t.state.attempts[sessionID]...), nil
}

func (t *sessionTx) CreateResult(_ context.Context, r *domain.Result) error {
	r.ID = t.state.nextResultID
	t.state.nextResultID++
	t.state.results[r.SessionID] = *r
	return nil
}

func (t *sessionTx) CompleteSession(_ context.Context, sessionID int64, at time.Time) error {
	session, ok := t.state.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Status = domain.SessionCompleted
	session.CompletedAt = &at
	t.state.sessions[sessionID] = session
	return nil
}
