package ai

import (
	"sync"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Message struct {
	Role Role
	Text string
}

// Thread is the history of one multi-turn chat with a persona.
type Thread struct {
	ID string

	mu       sync.RWMutex
	messages []Message
}

func NewThread() *Thread {
	return &Thread{ID: uuid.NewString()}
}

// Messages returns a copy of the history.
func (t *Thread) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Append records an exchange. Only successful exchanges are appended so the
// history never holds a prompt without an answer.
func (t *Thread) Append(msgs ...Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msgs...)
}

func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
