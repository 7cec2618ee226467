package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-session-service/internal/domain"
)

// ContentStore reads quiz content from Postgres. It is the authoritative
// answer-key source; the engine never mutates it.
type ContentStore struct {
	pool *pgxpool.Pool
}

func NewContentStore(pool *pgxpool.Pool) *ContentStore {
	return &ContentStore{pool: pool}
}

func (s *ContentStore) FindQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.pool.QueryRow(ctx,
		`SELECT id, question, description, time_limit, max_reward, difficulty, category_id
		 FROM quizzes WHERE id = $1`, id,
	).Scan(&quiz.ID, &quiz.Question, &quiz.Description, &quiz.TimeLimit,
		&quiz.MaxReward, &quiz.Difficulty, &quiz.CategoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, label, text, is_correct FROM answers WHERE quiz_id = $1 ORDER BY id`, id)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.Label, &a.Text, &a.Correct); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan answer: %w", err)
		}
		quiz.Answers = append(quiz.Answers, a)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("read answers: %w", err)
	}
	return quiz, nil
}

// FindQuizIDsRandom selects up to filter.Limit quiz IDs in unbiased random
// order at the storage layer.
func (s *ContentStore) FindQuizIDsRandom(ctx context.Context, filter domain.QuizFilter) ([]int64, error) {
	query := `SELECT id FROM quizzes WHERE TRUE`
	args := make([]interface{}, 0, 3)
	if filter.Difficulty != "" {
		args = append(args, string(filter.Difficulty))
		query += ` AND difficulty = $` + strconv.Itoa(len(args))
	}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		query += ` AND category_id = $` + strconv.Itoa(len(args))
	}
	args = append(args, filter.Limit)
	query += ` ORDER BY RANDOM() LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select random quiz ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan quiz id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read quiz ids: %w", err)
	}
	return ids, nil
}
