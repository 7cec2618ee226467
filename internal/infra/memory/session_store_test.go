package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

func TestSessionStoreCommit(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	var sessionID int64
	err := store.RunInTx(ctx, func(tx app.SessionTx) error {
		s := &domain.Session{UserID: 1, Status: domain.SessionInProgress, StartedAt: time.Now(), TotalQuestions: 2}
		if err := tx.CreateSession(ctx, s); err != nil {
			return err
		}
		sessionID = s.ID
		return tx.CreateAssignments(ctx, s.ID, []int64{10, 20})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	session, ok := store.Session(sessionID)
	if !ok || session.TotalQuestions != 2 {
		t.Fatalf("expected committed session, got %+v ok=%v", session, ok)
	}

	err = store.RunInTx(ctx, func(tx app.SessionTx) error {
		order, ok, err := tx.AssignmentOrder(ctx, sessionID, 20)
		if err != nil || !ok || order != 1 {
			t.Fatalf("expected quiz 20 at order 1, got order=%d ok=%v err=%v", order, ok, err)
		}
		quizID, ok, err := tx.QuizIDAtOrder(ctx, sessionID, 0)
		if err != nil || !ok || quizID != 10 {
			t.Fatalf("expected quiz 10 at order 0, got %d ok=%v err=%v", quizID, ok, err)
		}
		if _, ok, _ := tx.QuizIDAtOrder(ctx, sessionID, 2); ok {
			t.Fatalf("expected no quiz past the last order")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestSessionStoreRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	var sessionID int64
	if err := store.RunInTx(ctx, func(tx app.SessionTx) error {
		s := &domain.Session{UserID: 1, Status: domain.SessionInProgress, StartedAt: time.Now(), TotalQuestions: 1}
		if err := tx.CreateSession(ctx, s); err != nil {
			return err
		}
		sessionID = s.ID
		return tx.CreateAssignments(ctx, s.ID, []int64{10})
	}); err != nil {
		t.Fatalf("setup tx: %v", err)
	}

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(tx app.SessionTx) error {
		if err := tx.CreateAttempt(ctx, &domain.Attempt{SessionID: sessionID, QuizID: 10, UserID: 1, AnswerID: 1}); err != nil {
			return err
		}
		if _, err := tx.IncrementAnswered(ctx, sessionID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	// Nothing from the failed transaction may be visible.
	session, _ := store.Session(sessionID)
	if session.AnsweredCount != 0 {
		t.Fatalf("expected rollback, got answered count %d", session.AnsweredCount)
	}
	err = store.RunInTx(ctx, func(tx app.SessionTx) error {
		answered, err := tx.HasAttempt(ctx, sessionID, 10)
		if err != nil {
			return err
		}
		if answered {
			t.Fatalf("expected attempt rolled back")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestSessionStoreDuplicateAttempt(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	var sessionID int64
	if err := store.RunInTx(ctx, func(tx app.SessionTx) error {
		s := &domain.Session{UserID: 1, Status: domain.SessionInProgress, StartedAt: time.Now(), TotalQuestions: 1}
		if err := tx.CreateSession(ctx, s); err != nil {
			return err
		}
		sessionID = s.ID
		return tx.CreateAttempt(ctx, &domain.Attempt{SessionID: s.ID, QuizID: 10, UserID: 1, AnswerID: 1})
	}); err != nil {
		t.Fatalf("setup tx: %v", err)
	}

	err := store.RunInTx(ctx, func(tx app.SessionTx) error {
		return tx.CreateAttempt(ctx, &domain.Attempt{SessionID: sessionID, QuizID: 10, UserID: 1, AnswerID: 2})
	})
	if !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
}
