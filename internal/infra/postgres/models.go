package postgres

import (
	"time"

	"github.com/uptrace/bun"
)

type sessionRow struct {
	bun.BaseModel `bun:"table:quiz_sessions,alias:s"`

	ID             int64      `bun:"id,pk,autoincrement"`
	UserID         int64      `bun:"user_id,notnull"`
	Status         string     `bun:"status,notnull"`
	StartedAt      time.Time  `bun:"started_at,notnull"`
	CompletedAt    *time.Time `bun:"completed_at"`
	TotalQuestions int        `bun:"total_questions,notnull"`
	AnsweredCount  int        `bun:"answered_count,notnull"`
}

// sessionQuizRow is the fixed question order of a session: written once at
// start, unique per (session, order) and per (session, quiz).
type sessionQuizRow struct {
	bun.BaseModel `bun:"table:session_quizzes,alias:sq"`

	SessionID int64 `bun:"session_id,notnull"`
	QuizID    int64 `bun:"quiz_id,notnull"`
	Order     int   `bun:"order,notnull"`
}

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts,alias:a"`

	ID        int64     `bun:"id,pk,autoincrement"`
	SessionID int64     `bun:"session_id,notnull"`
	QuizID    int64     `bun:"quiz_id,notnull"`
	UserID    int64     `bun:"user_id,notnull"`
	AnswerID  int64     `bun:"answer_id,notnull"`
	ResultID  *int64    `bun:"result_id"`
	CreatedAt time.Time `bun:"created_at,notnull"`

	Metrics *attemptMetricsRow `bun:"rel:has-one,join:id=attempt_id"`
}

type attemptMetricsRow struct {
	bun.BaseModel `bun:"table:attempt_metrics,alias:am"`

	AttemptID    int64 `bun:"attempt_id,pk"`
	IsCorrect    bool  `bun:"is_correct,notnull"`
	TimeTaken    int   `bun:"time_taken,notnull"`
	RewardEarned int   `bun:"reward_earned,notnull"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:quiz_results,alias:r"`

	ID             int64   `bun:"id,pk,autoincrement"`
	SessionID      int64   `bun:"session_id,notnull"`
	UserID         int64   `bun:"user_id,notnull"`
	TotalQuestions int     `bun:"total_questions,notnull"`
	CorrectAnswers int     `bun:"correct_answers,notnull"`
	TotalTimeSpent int     `bun:"total_time_spent,notnull"`
	TotalReward    int     `bun:"total_reward,notnull"`
	Accuracy       float64 `bun:"accuracy,notnull"`
}
