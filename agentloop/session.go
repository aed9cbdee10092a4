package agentloop

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is an in-memory conversation held by a Runner. Its history only
// lives as long as the process.
type Session struct {
	id        string
	userID    string
	appName   string
	createdAt time.Time

	mu      sync.Mutex
	history []Turn

	// turn serializes Send calls on the same session.
	turn sync.Mutex
}

func newSession(appName, userID string) *Session {
	return &Session{
		id:        uuid.New().String(),
		userID:    userID,
		appName:   appName,
		createdAt: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the user the session was created for.
func (s *Session) UserID() string { return s.userID }

// AppName returns the name of the agent that owns the session.
func (s *Session) AppName() string { return s.appName }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// History returns a copy of the conversation history.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := make([]Turn, len(s.history))
	copy(h, s.history)
	return h
}

func (s *Session) append(turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, turns...)
}

// countTurns returns the number of user and assistant turns.
func (s *Session) countTurns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.history {
		if t.Kind == TurnUser || t.Kind == TurnAssistant {
			n++
		}
	}
	return n
}
