package domain

import "time"

// SessionStatus is the lifecycle state of a quiz session.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionCompleted  SessionStatus = "COMPLETED"
)

// Difficulty tags quiz content for filtering at session start.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Answer is one selectable option of a quiz. Correct is never sent to
// clients before they have submitted.
type Answer struct {
	ID      int64  `json:"id"`
	Label   string `json:"label"` // "A".."D"
	Text    string `json:"text"`
	Correct bool   `json:"-"`
}

// Quiz is an immutable content unit owned by authoring; the engine only
// reads it. TimeLimit is in seconds, zero means unlimited.
type Quiz struct {
	ID          int64      `json:"id"`
	Question    string     `json:"question"`
	Description string     `json:"description,omitempty"`
	TimeLimit   int        `json:"timeLimit,omitempty"`
	MaxReward   int        `json:"maxReward"`
	Difficulty  Difficulty `json:"difficulty"`
	CategoryID  int64      `json:"categoryId"`
	Answers     []Answer   `json:"answers"`
}

// QuizFilter narrows the random selection at session start.
type QuizFilter struct {
	Difficulty Difficulty
	CategoryID int64
	Limit      int
}

// Session is one user's run through a fixed sequence of quizzes.
type Session struct {
	ID             int64
	UserID         int64
	Status         SessionStatus
	StartedAt      time.Time
	CompletedAt    *time.Time
	TotalQuestions int
	AnsweredCount  int
}

// Attempt is the scored record of one answer within one session. AnswerID
// references the answer actually scored, which for late or unmatched
// submissions differs from what the client sent.
type Attempt struct {
	ID        int64
	SessionID int64
	QuizID    int64
	UserID    int64
	AnswerID  int64
	CreatedAt time.Time
	Metrics   AttemptMetrics
}

// AttemptMetrics is attached 1:1 to an Attempt.
type AttemptMetrics struct {
	Correct      bool `json:"correct"`
	TimeTaken    int  `json:"timeTaken"` // whole seconds, server-computed
	RewardEarned int  `json:"rewardEarned"`
}

// Result is the aggregate produced exactly once when a session completes.
type Result struct {
	ID             int64   `json:"id"`
	SessionID      int64   `json:"sessionId"`
	UserID         int64   `json:"userId"`
	TotalQuestions int     `json:"totalQuestions"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalTimeSpent int     `json:"totalTimeSpent"`
	TotalReward    int     `json:"totalReward"`
	Accuracy       float64 `json:"accuracy"`
	AttemptIDs     []int64 `json:"attemptIds"`
}

// ClientAnswer is the answer view sent to clients, without the correctness flag.
type ClientAnswer struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// ClientQuiz is the question payload served to a session participant,
// tagged with its position and the encrypted issue-time token.
type ClientQuiz struct {
	ID          int64          `json:"id"`
	Question    string         `json:"question"`
	Description string         `json:"description,omitempty"`
	TimeLimit   int            `json:"timeLimit,omitempty"`
	MaxReward   int            `json:"maxReward"`
	Difficulty  Difficulty     `json:"difficulty"`
	CategoryID  int64          `json:"categoryId"`
	Answers     []ClientAnswer `json:"answers"`
	Index       int            `json:"currentQuizIndex"`
	StartToken  string         `json:"startToken"`
}

// ClientView strips correctness flags and tags the quiz for serving.
func (q Quiz) ClientView(index int, startToken string) ClientQuiz {
	answers := make([]ClientAnswer, len(q.Answers))
	for i, a := range q.Answers {
		answers[i] = ClientAnswer{ID: a.ID, Label: a.Label, Text: a.Text}
	}
	return ClientQuiz{
		ID:          q.ID,
		Question:    q.Question,
		Description: q.Description,
		TimeLimit:   q.TimeLimit,
		MaxReward:   q.MaxReward,
		Difficulty:  q.Difficulty,
		CategoryID:  q.CategoryID,
		Answers:     answers,
		Index:       index,
		StartToken:  startToken,
	}
}
