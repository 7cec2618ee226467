package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

func TestContentCacheCachesQuizzes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{inner: memory.NewContentStore(map[int64]domain.Quiz{
		1: sampleQuiz(),
	})}
	cache := NewContentCache(newClient(mr), loader, time.Minute)

	quiz, err := cache.FindQuiz(context.Background(), 1)
	if err != nil {
		t.Fatalf("find quiz: %v", err)
	}
	if loader.quizCalls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.quizCalls)
	}
	if len(quiz.Answers) != 2 || !quiz.Answers[1].Correct {
		t.Fatalf("expected answers with correctness preserved, got %+v", quiz.Answers)
	}

	// Second call hits the cache and still carries the answer key.
	quiz, err = cache.FindQuiz(context.Background(), 1)
	if err != nil {
		t.Fatalf("find quiz: %v", err)
	}
	if loader.quizCalls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.quizCalls)
	}
	if !quiz.Answers[1].Correct || quiz.Answers[0].Correct {
		t.Fatalf("correctness flags lost in cache round-trip: %+v", quiz.Answers)
	}
	if quiz.TimeLimit != 10 || quiz.MaxReward != 100 {
		t.Fatalf("quiz fields lost in cache round-trip: %+v", quiz)
	}
}

func TestContentCacheRandomSelectionBypassesCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{inner: memory.NewContentStore(map[int64]domain.Quiz{
		1: sampleQuiz(),
	})}
	cache := NewContentCache(newClient(mr), loader, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := cache.FindQuizIDsRandom(context.Background(), domain.QuizFilter{Limit: 1}); err != nil {
			t.Fatalf("random ids: %v", err)
		}
	}
	if loader.randomCalls != 3 {
		t.Fatalf("expected every random selection to reach storage, got %d", loader.randomCalls)
	}
}

type countingLoader struct {
	inner       *memory.ContentStore
	quizCalls   int
	randomCalls int
}

func (l *countingLoader) FindQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	l.quizCalls++
	return l.inner.FindQuiz(ctx, id)
}

func (l *countingLoader) FindQuizIDsRandom(ctx context.Context, filter domain.QuizFilter) ([]int64, error) {
	l.randomCalls++
	return l.inner.FindQuizIDsRandom(ctx, filter)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: 1, Question: "What is 2 + 2?", TimeLimit: 10, MaxReward: 100,
		Difficulty: domain.DifficultyEasy, CategoryID: 1,
		Answers: []domain.Answer{
			{ID: 1, Label: "A", Text: "3"},
			{ID: 2, Label: "B", Text: "4", Correct: true},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}
