package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-session-service/internal/domain"
)

// ContentLoader fetches quiz content from the backing store on cache miss.
type ContentLoader interface {
	FindQuiz(ctx context.Context, id int64) (domain.Quiz, error)
	FindQuizIDsRandom(ctx context.Context, filter domain.QuizFilter) ([]int64, error)
}

// ContentCache is a read-through Redis cache for quiz content. Quizzes are
// immutable per session, so a plain TTL is enough. Random ID selection is
// never cached: the unbiased ordering must come from the storage layer.
type ContentCache struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewContentCache(client *redis.Client, loader ContentLoader, ttl time.Duration) *ContentCache {
	return &ContentCache{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

// cachedQuiz mirrors domain.Quiz for cache serialization. The domain types
// hide correctness flags from client JSON, but the cache must keep them.
type cachedQuiz struct {
	ID          int64             `json:"id"`
	Question    string            `json:"question"`
	Description string            `json:"description"`
	TimeLimit   int               `json:"timeLimit"`
	MaxReward   int               `json:"maxReward"`
	Difficulty  domain.Difficulty `json:"difficulty"`
	CategoryID  int64             `json:"categoryId"`
	Answers     []cachedAnswer    `json:"answers"`
}

type cachedAnswer struct {
	ID      int64  `json:"id"`
	Label   string `json:"label"`
	Text    string `json:"text"`
	Correct bool   `json:"isCorrect"`
}

func (c *ContentCache) FindQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	key := c.quizKey(id)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if quiz, ok := decodeQuiz(raw); ok {
			return quiz, nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled it.
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			if quiz, ok := decodeQuiz(raw); ok {
				return quiz, nil
			}
		}

		quiz, err := c.loader.FindQuiz(ctx, id)
		if err != nil {
			return domain.Quiz{}, err
		}
		if data, err := json.Marshal(encodeQuiz(quiz)); err == nil {
			// best-effort: a failed SET just means another miss later
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *ContentCache) FindQuizIDsRandom(ctx context.Context, filter domain.QuizFilter) ([]int64, error) {
	return c.loader.FindQuizIDsRandom(ctx, filter)
}

func (c *ContentCache) quizKey(id int64) string {
	return "quiz:" + strconv.FormatInt(id, 10) + ":content"
}

func (c *ContentCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}

func decodeQuiz(raw []byte) (domain.Quiz, bool) {
	var cached cachedQuiz
	if err := json.Unmarshal(raw, &cached); err != nil {
		return domain.Quiz{}, false
	}
	quiz := domain.Quiz{
		ID:          cached.ID,
		Question:    cached.Question,
		Description: cached.Description,
		TimeLimit:   cached.TimeLimit,
		MaxReward:   cached.MaxReward,
		Difficulty:  cached.Difficulty,
		CategoryID:  cached.CategoryID,
	}
	for _, a := range cached.Answers {
		quiz.Answers = append(quiz.Answers, domain.Answer(a))
	}
	return quiz, true
}

func encodeQuiz(quiz domain.Quiz) cachedQuiz {
	cached := cachedQuiz{
		ID:          quiz.ID,
		Question:    quiz.Question,
		Description: quiz.Description,
		TimeLimit:   quiz.TimeLimit,
		MaxReward:   quiz.MaxReward,
		Difficulty:  quiz.Difficulty,
		CategoryID:  quiz.CategoryID,
	}
	for _, a := range quiz.Answers {
		cached.Answers = append(cached.Answers, cachedAnswer(a))
	}
	return cached
}
