package domain

import "errors"

var (
	// ErrNoQuizzesAvailable is returned when the random selection at session
	// start matches no quiz content.
	ErrNoQuizzesAvailable = errors.New("no quizzes available")
	// ErrSessionNotActive is returned when a session is missing, belongs to a
	// different user, or has already completed.
	ErrSessionNotActive = errors.New("session not active")
	// ErrQuizNotInSession indicates a submitted quiz ID is not part of the
	// session's assignment list.
	ErrQuizNotInSession = errors.New("quiz not in session")
	// ErrAlreadyAnswered indicates the question was already scored for this session.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrInvalidToken indicates a malformed or tampered start-time token.
	ErrInvalidToken = errors.New("invalid start token")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound indicates the session record does not exist.
	ErrSessionNotFound = errors.New("session not found")
)
