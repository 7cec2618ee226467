package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/token"
)

// defaultQuestionCount is used when the caller does not ask for a specific limit.
const defaultQuestionCount = 10

// ContentStore provides read-only quiz content (owned by authoring).
type ContentStore interface {
	FindQuiz(ctx context.Context, id int64) (domain.Quiz, error)
	// FindQuizIDsRandom returns up to filter.Limit quiz IDs matching the
	// filter in unbiased random order.
	FindQuizIDsRandom(ctx context.Context, filter domain.QuizFilter) ([]int64, error)
}

// SessionStore persists session state. RunInTx executes fn atomically:
// either every write made through the SessionTx is applied, or none is.
type SessionStore interface {
	RunInTx(ctx context.Context, fn func(tx SessionTx) error) error
}

// SessionTx is the transactional view of session storage.
type SessionTx interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	// SessionForUpdate loads and write-locks the session owned by userID,
	// returning domain.ErrSessionNotFound when no such row exists.
	SessionForUpdate(ctx context.Context, sessionID, userID int64) (domain.Session, error)
	// CreateAssignments writes the fixed question order 0..len(quizIDs)-1.
	CreateAssignments(ctx context.Context, sessionID int64, quizIDs []int64) error
	// AssignmentOrder resolves a quiz's position within the session.
	AssignmentOrder(ctx context.Context, sessionID, quizID int64) (int, bool, error)
	// QuizIDAtOrder resolves the quiz assigned at the given position.
	QuizIDAtOrder(ctx context.Context, sessionID int64, order int) (int64, bool, error)
	HasAttempt(ctx context.Context, sessionID, quizID int64) (bool, error)
	// CreateAttempt inserts the attempt and its metrics, returning
	// domain.ErrAlreadyAnswered on a (session, quiz) uniqueness violation.
	CreateAttempt(ctx context.Context, a *domain.Attempt) error
	// IncrementAnswered bumps the answered count and returns the new value.
	IncrementAnswered(ctx context.Context, sessionID int64) (int, error)
	ListAttempts(ctx context.Context, sessionID int64) ([]domain.Attempt, error)
	CreateResult(ctx context.Context, r *domain.Result) error
	CompleteSession(ctx context.Context, sessionID int64, at time.Time) error
}

// Engine orchestrates the session lifecycle: start, sequential traversal,
// answer scoring, and one-time finalization.
type Engine struct {
	sessions SessionStore
	content  ContentStore
	codec    *token.Codec
	broker   *ProgressBroker
	now      func() time.Time
}

func NewEngine(sessions SessionStore, content ContentStore, codec *token.Codec, broker *ProgressBroker) *Engine {
	return NewEngineWithClock(sessions, content, codec, broker, time.Now)
}

// NewEngineWithClock is test-only for deterministic timestamps.
func NewEngineWithClock(sessions SessionStore, content ContentStore, codec *token.Codec, broker *ProgressBroker, now func() time.Time) *Engine {
	return &Engine{sessions: sessions, content: content, codec: codec, broker: broker, now: now}
}

// StartResponse is the payload returned from Start.
type StartResponse struct {
	SessionID    int64             `json:"sessionId"`
	CurrentQuiz  domain.ClientQuiz `json:"currentQuiz"`
	TotalQuizzes int               `json:"totalQuizzes"`
}

// SubmitResponse reports the outcome of one scored answer plus the next
// question, or the aggregate result when the session just completed.
type SubmitResponse struct {
	Correct        bool               `json:"correct"`
	RewardEarned   int                `json:"earnedReward"`
	ElapsedSeconds int                `json:"elapsedSeconds"`
	NextQuiz       *domain.ClientQuiz `json:"nextQuiz"`
	Result         *domain.Result     `json:"result,omitempty"`
}

// Start selects a random question sequence matching the filter, persists the
// session and its assignment order atomically, and returns the first
// question with a freshly minted start token.
func (e *Engine) Start(ctx context.Context, userID int64, filter domain.QuizFilter) (StartResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultQuestionCount
	}

	quizIDs, err := e.content.FindQuizIDsRandom(ctx, filter)
	if err != nil {
		return StartResponse{}, fmt.Errorf("select quizzes: %w", err)
	}
	if len(quizIDs) == 0 {
		return StartResponse{}, domain.ErrNoQuizzesAvailable
	}

	// Content is immutable per session, so the first quiz can be loaded
	// before the transaction opens; no external call runs inside it.
	firstQuiz, err := e.content.FindQuiz(ctx, quizIDs[0])
	if err != nil {
		return StartResponse{}, fmt.Errorf("load first quiz: %w", err)
	}

	session := &domain.Session{
		UserID:         userID,
		Status:         domain.SessionInProgress,
		StartedAt:      e.now(),
		TotalQuestions: len(quizIDs),
	}
	err = e.sessions.RunInTx(ctx, func(tx SessionTx) error {
		if err := tx.CreateSession(ctx, session); err != nil {
			return err
		}
		return tx.CreateAssignments(ctx, session.ID, quizIDs)
	})
	if err != nil {
		return StartResponse{}, fmt.Errorf("create session: %w", err)
	}

	startToken, err := e.codec.Encode(e.now())
	if err != nil {
		return StartResponse{}, fmt.Errorf("mint start token: %w", err)
	}

	return StartResponse{
		SessionID:    session.ID,
		CurrentQuiz:  firstQuiz.ClientView(0, startToken),
		TotalQuizzes: len(quizIDs),
	}, nil
}

// Submit scores one answer. answerID is nil when the client made no choice.
// Preconditions are verified and all writes applied inside one transaction;
// when the last assigned question is answered the session is finalized in
// that same transaction.
func (e *Engine) Submit(ctx context.Context, userID, sessionID, quizID int64, answerID *int64, startToken string) (SubmitResponse, error) {
	// Preload content so the transaction never waits on the content store.
	// The lookup error is only acted on after the assignment check, keeping
	// the precondition failure order stable.
	quiz, quizErr := e.content.FindQuiz(ctx, quizID)

	now := e.now()
	var (
		scored        domain.Answer
		metrics       domain.AttemptMetrics
		orderIndex    int
		nextQuizID    int64
		hasNext       bool
		answeredCount int
		totalCount    int
		result        *domain.Result
	)
	err := e.sessions.RunInTx(ctx, func(tx SessionTx) error {
		session, err := tx.SessionForUpdate(ctx, sessionID, userID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrSessionNotActive
		}
		if err != nil {
			return err
		}
		if session.Status != domain.SessionInProgress {
			return domain.ErrSessionNotActive
		}

		order, ok, err := tx.AssignmentOrder(ctx, sessionID, quizID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrQuizNotInSession
		}
		orderIndex = order

		if quizErr != nil {
			if errors.Is(quizErr, domain.ErrQuizNotFound) {
				// Assignments only reference real quizzes; a missing quiz
				// means the submitted ID was never part of this session.
				return domain.ErrQuizNotInSession
			}
			return fmt.Errorf("load quiz: %w", quizErr)
		}
		if len(quiz.Answers) == 0 {
			return fmt.Errorf("quiz %d has no answers", quizID)
		}

		answered, err := tx.HasAttempt(ctx, sessionID, quizID)
		if err != nil {
			return err
		}
		if answered {
			return domain.ErrAlreadyAnswered
		}

		issuedAt, err := e.codec.Decode(startToken)
		if err != nil {
			return domain.ErrInvalidToken
		}

		elapsed := int(now.Sub(issuedAt) / time.Second)
		if elapsed < 0 {
			elapsed = 0
		}

		// Past the limit the chosen answer is discarded: a late answer is
		// always scored as wrong, however correct the submitted ID was.
		effective := answerID
		if quiz.TimeLimit > 0 && elapsed > quiz.TimeLimit {
			effective = nil
		}
		scored = resolveScoredAnswer(quiz, effective)
		metrics = domain.AttemptMetrics{
			Correct:   scored.Correct,
			TimeTaken: elapsed,
		}
		if scored.Correct {
			metrics.RewardEarned = quiz.MaxReward
		}

		attempt := &domain.Attempt{
			SessionID: sessionID,
			QuizID:    quizID,
			UserID:    userID,
			AnswerID:  scored.ID,
			CreatedAt: now,
			Metrics:   metrics,
		}
		if err := tx.CreateAttempt(ctx, attempt); err != nil {
			return err
		}

		answeredCount, err = tx.IncrementAnswered(ctx, sessionID)
		if err != nil {
			return err
		}
		totalCount = session.TotalQuestions

		nextQuizID, hasNext, err = tx.QuizIDAtOrder(ctx, sessionID, order+1)
		if err != nil {
			return err
		}

		if !hasNext && answeredCount >= totalCount {
			result, err = e.finalize(ctx, tx, session, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SubmitResponse{}, err
	}

	resp := SubmitResponse{
		Correct:        metrics.Correct,
		RewardEarned:   metrics.RewardEarned,
		ElapsedSeconds: metrics.TimeTaken,
		Result:         result,
	}
	if hasNext {
		next, err := e.nextQuizPayload(ctx, nextQuizID, orderIndex+1)
		if err != nil {
			return SubmitResponse{}, err
		}
		resp.NextQuiz = next
	}

	if e.broker != nil {
		e.broker.Publish(Progress{
			SessionID:      sessionID,
			AnsweredCount:  answeredCount,
			TotalQuestions: totalCount,
			LastCorrect:    metrics.Correct,
			LastReward:     metrics.RewardEarned,
			Completed:      result != nil,
			Result:         result,
		})
	}
	return resp, nil
}

// nextQuizPayload loads the question at the given position and mints a fresh
// start token for it. The token stamps when this question was issued, not
// when the previous one was answered.
func (e *Engine) nextQuizPayload(ctx context.Context, quizID int64, index int) (*domain.ClientQuiz, error) {
	quiz, err := e.content.FindQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load next quiz: %w", err)
	}
	startToken, err := e.codec.Encode(e.now())
	if err != nil {
		return nil, fmt.Errorf("mint start token: %w", err)
	}
	view := quiz.ClientView(index, startToken)
	return &view, nil
}

// finalize reduces the session's attempts to an aggregate result, marks the
// session completed, and stamps the completion time. Runs inside the same
// transaction as the last answer, so it happens exactly once.
func (e *Engine) finalize(ctx context.Context, tx SessionTx, session domain.Session, now time.Time) (*domain.Result, error) {
	attempts, err := tx.ListAttempts(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	result := &domain.Result{
		SessionID:      session.ID,
		UserID:         session.UserID,
		TotalQuestions: session.TotalQuestions,
	}
	for _, a := range attempts {
		if a.Metrics.Correct {
			result.CorrectAnswers++
		}
		result.TotalTimeSpent += a.Metrics.TimeTaken
		result.TotalReward += a.Metrics.RewardEarned
		result.AttemptIDs = append(result.AttemptIDs, a.ID)
	}
	if session.TotalQuestions > 0 {
		result.Accuracy = float64(result.CorrectAnswers) / float64(session.TotalQuestions) * 100
	}

	if err := tx.CreateResult(ctx, result); err != nil {
		return nil, err
	}
	if err := tx.CompleteSession(ctx, session.ID, now); err != nil {
		return nil, err
	}
	return result, nil
}

// resolveScoredAnswer picks the answer a metrics record will reference. A
// missing or unmatched choice falls back to the lowest-ID incorrect answer,
// so "no answer" and "late answer" are scored as wrong.
func resolveScoredAnswer(quiz domain.Quiz, chosen *int64) domain.Answer {
	if chosen != nil {
		for _, a := range quiz.Answers {
			if a.ID == *chosen {
				return a
			}
		}
	}
	var wrong *domain.Answer
	for i := range quiz.Answers {
		a := &quiz.Answers[i]
		if !a.Correct && (wrong == nil || a.ID < wrong.ID) {
			wrong = a
		}
	}
	if wrong != nil {
		return *wrong
	}
	return quiz.Answers[0]
}
