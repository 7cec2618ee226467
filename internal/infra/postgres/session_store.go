package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

const pgUniqueViolation = "23505"

// SessionStore persists sessions, assignments, attempts, and results in
// Postgres. Every engine request runs through one bun transaction.
type SessionStore struct {
	db *bun.DB
}

func NewSessionStore(db *bun.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) RunInTx(ctx context.Context, fn func(tx app.SessionTx) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(&sessionTx{tx: tx})
	})
}

type sessionTx struct {
	tx bun.Tx
}

func (t *sessionTx) CreateSession(ctx context.Context, s *domain.Session) error {
	row := &sessionRow{
		UserID:         s.UserID,
		Status:         string(s.Status),
		StartedAt:      s.StartedAt,
		TotalQuestions: s.TotalQuestions,
		AnsweredCount:  s.AnsweredCount,
	}
	if _, err := t.tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	s.ID = row.ID
	return nil
}

func (t *sessionTx) SessionForUpdate(ctx context.Context, sessionID, userID int64) (domain.Session, error) {
	row := new(sessionRow)
	err := t.tx.NewSelect().Model(row).
		Where("s.id = ?", sessionID).
		Where("s.user_id = ?", userID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("select session: %w", err)
	}
	return domain.Session{
		ID:             row.ID,
		UserID:         row.UserID,
		Status:         domain.SessionStatus(row.Status),
		StartedAt:      row.StartedAt,
		CompletedAt:    row.CompletedAt,
		TotalQuestions: row.TotalQuestions,
		AnsweredCount:  row.AnsweredCount,
	}, nil
}

func (t *sessionTx) CreateAssignments(ctx context.Context, sessionID int64, quizIDs []int64) error {
	rows := make([]sessionQuizRow, len(quizIDs))
	for i, quizID := range quizIDs {
		rows[i] = sessionQuizRow{SessionID: sessionID, QuizID: quizID, Order: i}
	}
	if _, err := t.tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert assignments: %w", err)
	}
	return nil
}

func (t *sessionTx) AssignmentOrder(ctx context.Context, sessionID, quizID int64) (int, bool, error) {
	var order int
	err := t.tx.NewSelect().Model((*sessionQuizRow)(nil)).
		ColumnExpr(`sq."order"`).
		Where("sq.session_id = ?", sessionID).
		Where("sq.quiz_id = ?", quizID).
		Scan(ctx, &order)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select assignment order: %w", err)
	}
	return order, true, nil
}

func (t *sessionTx) QuizIDAtOrder(ctx context.Context, sessionID int64, order int) (int64, bool, error) {
	var quizID int64
	err := t.tx.NewSelect().Model((*sessionQuizRow)(nil)).
		Column("sq.quiz_id").
		Where("sq.session_id = ?", sessionID).
		Where(`sq."order" = ?`, order).
		Scan(ctx, &quizID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select assignment at order: %w", err)
	}
	return quizID, true, nil
}

func (t *sessionTx) HasAttempt(ctx context.Context, sessionID, quizID int64) (bool, error) {
	exists, err := t.tx.NewSelect().Model((*attemptRow)(nil)).
		Where("a.session_id = ?", sessionID).
		Where("a.quiz_id = ?", quizID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check attempt: %w", err)
	}
	return exists, nil
}

func (t *sessionTx) CreateAttempt(ctx context.Context, a *domain.Attempt) error {
	row := &attemptRow{
		SessionID: a.SessionID,
		QuizID:    a.QuizID,
		UserID:    a.UserID,
		AnswerID:  a.AnswerID,
		CreatedAt: a.CreatedAt,
	}
	if _, err := t.tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyAnswered
		}
		return fmt.Errorf("insert attempt: %w", err)
	}
	a.ID = row.ID

	metrics := &attemptMetricsRow{
		AttemptID:    row.ID,
		IsCorrect:    a.Metrics.Correct,
		TimeTaken:    a.Metrics.TimeTaken,
		RewardEarned: a.Metrics.RewardEarned,
	}
	if _, err := t.tx.NewInsert().Model(metrics).Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt metrics: %w", err)
	}
	return nil
}

func (t *sessionTx) IncrementAnswered(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := t.tx.QueryRowContext(ctx,
		`UPDATE quiz_sessions SET answered_count = answered_count + 1 WHERE id = ? RETURNING answered_count`,
		sessionID,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment answered count: %w", err)
	}
	return count, nil
}

func (t *sessionTx) ListAttempts(ctx context.Context, sessionID int64) ([]domain.Attempt, error) {
	var rows []attemptRow
	err := t.tx.NewSelect().Model(&rows).
		Relation("Metrics").
		Where("a.session_id = ?", sessionID).
		Order("a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attempts := make([]domain.Attempt, len(rows))
	for i, row := range rows {
		attempts[i] = domain.Attempt{
			ID:        row.ID,
			SessionID: row.SessionID,
			QuizID:    row.QuizID,
			UserID:    row.UserID,
			AnswerID:  row.AnswerID,
			CreatedAt: row.CreatedAt,
		}
		if row.Metrics != nil {
			attempts[i].Metrics = domain.AttemptMetrics{
				Correct:      row.Metrics.IsCorrect,
				TimeTaken:    row.Metrics.TimeTaken,
				RewardEarned: row.Metrics.RewardEarned,
			}
		}
	}
	return attempts, nil
}

func (t *sessionTx) CreateResult(ctx context.Context, r *domain.Result) error {
	row := &resultRow{
		SessionID:      r.SessionID,
		UserID:         r.UserID,
		TotalQuestions: r.TotalQuestions,
		CorrectAnswers: r.CorrectAnswers,
		TotalTimeSpent: r.TotalTimeSpent,
		TotalReward:    r.TotalReward,
		Accuracy:       r.Accuracy,
	}
	if _, err := t.tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	r.ID = row.ID

	if len(r.AttemptIDs) > 0 {
		_, err := t.tx.NewUpdate().Model((*attemptRow)(nil)).
			Set("result_id = ?", row.ID).
			Where("a.id IN (?)", bun.In(r.AttemptIDs)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("link attempts to result: %w", err)
		}
	}
	return nil
}

func (t *sessionTx) CompleteSession(ctx context.Context, sessionID int64, at time.Time) error {
	_, err := t.tx.NewUpdate().Model((*sessionRow)(nil)).
		Set("status = ?", string(domain.SessionCompleted)).
		Set("completed_at = ?", at).
		Where("s.id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation
}
