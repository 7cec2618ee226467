package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gorilla/websocket"

	"quiz-session-service/internal/app"
)

func TestWatchStreamsSessionProgress(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	var started app.StartResponse
	if status := doJSON(t, server.URL+"/sessions", map[string]any{"categoryId": 1, "limit": 1}, &started); status != http.StatusOK {
		t.Fatalf("start: got %d", status)
	}

	wsURL := "ws" + server.URL[len("http"):] + "/sessions/" + itoa(started.SessionID) + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var hello progressMessage
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "watching" {
		t.Fatalf("expected watching message, got %q", hello.Type)
	}

	// Answer over REST; the watcher should see the progress event.
	var submitted app.SubmitResponse
	if status := doJSON(t, server.URL+"/sessions/"+itoa(started.SessionID)+"/answers", map[string]any{
		"quizId":     started.CurrentQuiz.ID,
		"answerId":   1002,
		"startToken": started.CurrentQuiz.StartToken,
	}, &submitted); status != http.StatusOK {
		t.Fatalf("submit: got %d", status)
	}

	var msg progressMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read progress: %v", err)
	}
	if msg.Type != "progress" {
		t.Fatalf("expected progress message, got %q", msg.Type)
	}
	if msg.Payload.AnsweredCount != 1 || msg.Payload.TotalQuestions != 1 {
		t.Fatalf("unexpected progress %+v", msg.Payload)
	}
	if !msg.Payload.Completed || msg.Payload.Result == nil {
		t.Fatalf("expected completion event with result, got %+v", msg.Payload)
	}
}

func TestWatchRejectsBadSessionID(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp, err := http.Post(server.URL+"/sessions/abc/answers", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var body json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400/401, got %d", resp.StatusCode)
	}
}
