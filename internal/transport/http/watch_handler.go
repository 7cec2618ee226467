package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"quiz-session-service/internal/app"
)

// WatchHandler streams session progress events over a websocket. It is a
// read-only companion to the REST endpoints: answers still arrive via POST,
// watchers just see each one land.
type WatchHandler struct {
	broker   *app.ProgressBroker
	upgrader websocket.Upgrader
}

func NewWatchHandler(broker *app.ProgressBroker) *WatchHandler {
	return &WatchHandler{
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type progressMessage struct {
	Type    string       `json:"type"`
	Payload app.Progress `json:"payload"`
}

// ServeWatch upgrades the request and forwards progress events for one
// session until the session completes or the client goes away.
func (h *WatchHandler) ServeWatch(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.broker.Subscribe(sessionID)
	defer cancel()

	// Confirm the subscription so clients know events can no longer be missed.
	if err := conn.WriteJSON(progressMessage{Type: "watching", Payload: app.Progress{SessionID: sessionID}}); err != nil {
		return
	}

	// Reads only serve to notice the peer closing.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(progressMessage{Type: "progress", Payload: update}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
			if update.Completed {
				return
			}
		case <-readerDone:
			return
		}
	}
}
