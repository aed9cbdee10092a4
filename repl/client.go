package repl

import (
	"context"

	"github.com/martinemde/agentconsole/turnstream"
)

// SessionHandle identifies a conversation held by an AgentClient. It is
// created once per console run and reused for every turn.
type SessionHandle struct {
	ID string
}

// AgentClient is the remote agent the console talks to.
type AgentClient interface {
	// CreateSession allocates a conversation.
	CreateSession(ctx context.Context) (SessionHandle, error)

	// Send submits one user message and returns the stream of Events the
	// agent produces in response. The stream must eventually close.
	Send(ctx context.Context, session SessionHandle, message string) (*turnstream.Stream, error)
}

// SessionCloser is implemented by clients that release session resources.
type SessionCloser interface {
	CloseSession(ctx context.Context, session SessionHandle) error
}
