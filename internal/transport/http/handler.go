package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// Handler exposes the session engine over REST.
type Handler struct {
	engine *app.Engine
}

func NewHandler(engine *app.Engine) *Handler {
	return &Handler{engine: engine}
}

// NewRouter assembles the full HTTP surface. broker may be nil, in which
// case the watch endpoint is not registered.
func NewRouter(engine *app.Engine, broker *app.ProgressBroker) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	h := NewHandler(engine)
	r.HandleFunc("/sessions", h.StartSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/answers", h.SubmitAnswer).Methods(http.MethodPost)

	if broker != nil {
		watch := NewWatchHandler(broker)
		r.HandleFunc("/sessions/{id}/watch", watch.ServeWatch).Methods(http.MethodGet)
	}
	return r
}

type startSessionRequest struct {
	Difficulty domain.Difficulty `json:"difficulty"`
	CategoryID int64             `json:"categoryId"`
	Limit      int               `json:"limit"`
}

type submitAnswerRequest struct {
	QuizID     int64  `json:"quizId"`
	AnswerID   *int64 `json:"answerId"`
	StartToken string `json:"startToken"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// StartSession handles POST /sessions.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUser(w, r)
	if !ok {
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	resp, err := h.engine.Start(r.Context(), userID, domain.QuizFilter{
		Difficulty: req.Difficulty,
		CategoryID: req.CategoryID,
		Limit:      req.Limit,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubmitAnswer handles POST /sessions/{id}/answers.
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUser(w, r)
	if !ok {
		return
	}

	sessionID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid session id"})
		return
	}

	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	resp, err := h.engine.Submit(r.Context(), userID, sessionID, req.QuizID, req.AnswerID, req.StartToken)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// authenticatedUser reads the already-authenticated numeric user ID set by
// the identity layer in front of this service.
func authenticatedUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || userID <= 0 {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid user identity"})
		return 0, false
	}
	return userID, true
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoQuizzesAvailable),
		errors.Is(err, domain.ErrSessionNotActive),
		errors.Is(err, domain.ErrQuizNotInSession),
		errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrInvalidToken):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		log.Printf("session engine error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
