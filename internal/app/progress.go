package app

import (
	"sync"

	"quiz-session-service/internal/domain"
)

// Progress is published after every recorded answer of a session.
type Progress struct {
	SessionID      int64          `json:"sessionId"`
	AnsweredCount  int            `json:"answeredCount"`
	TotalQuestions int            `json:"totalQuestions"`
	LastCorrect    bool           `json:"lastCorrect"`
	LastReward     int            `json:"lastReward"`
	Completed      bool           `json:"completed"`
	Result         *domain.Result `json:"result,omitempty"`
}

// ProgressBroker fans out per-session progress events to subscribers.
type ProgressBroker struct {
	mu   sync.Mutex
	subs map[int64]map[chan Progress]struct{}
}

func NewProgressBroker() *ProgressBroker {
	return &ProgressBroker{subs: make(map[int64]map[chan Progress]struct{})}
}

// Subscribe returns a channel receiving progress updates for one session.
// The caller must invoke the returned cancel function to avoid leaks.
func (b *ProgressBroker) Subscribe(sessionID int64) (<-chan Progress, func()) {
	ch := make(chan Progress, 8)

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan Progress]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[sessionID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, sessionID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of the session. Slow
// consumers have their oldest pending event dropped rather than blocking
// the publisher.
func (b *ProgressBroker) Publish(p Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[p.SessionID] {
		select {
		case ch <- p:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- p
		}
	}
}
