package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// ContentStore serves quiz content from an in-memory map (useful for tests
// and database-less demo runs).
type ContentStore struct {
	mu      sync.RWMutex
	quizzes map[int64]domain.Quiz
	rnd     *rand.Rand
}

func NewContentStore(quizzes map[int64]domain.Quiz) *ContentStore {
	return &ContentStore{
		quizzes: quizzes,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *ContentStore) FindQuiz(_ context.Context, id int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if quiz, ok := s.quizzes[id]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *ContentStore) FindQuizIDsRandom(_ context.Context, filter domain.QuizFilter) ([]int64, error) {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.quizzes))
	for id, quiz := range s.quizzes {
		if filter.Difficulty != "" && quiz.Difficulty != filter.Difficulty {
			continue
		}
		if filter.CategoryID != 0 && quiz.CategoryID != filter.CategoryID {
			continue
		}
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	// Sort before shuffling so the order only depends on the seed, not on
	// map iteration.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s.mu.Lock()
	s.rnd.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	s.mu.Unlock()

	if filter.Limit > 0 && len(ids) > filter.Limit {
		ids = ids[:filter.Limit]
	}
	return ids, nil
}
