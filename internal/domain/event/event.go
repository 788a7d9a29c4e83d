package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAgentStarted   Type = "agent_started"
	TypeAgentThinking  Type = "agent_thinking"
	TypeToolExecuting  Type = "tool_executing"
	TypeToolCompleted  Type = "tool_completed"
	TypeAgentCompleted Type = "agent_completed"
	TypeAgentError     Type = "agent_error"
)

// IsTerminal reports whether the event closes a run from the client's view.
func (t Type) IsTerminal() bool {
	return t == TypeAgentCompleted || t == TypeAgentError
}

// Channel is a transport-level topic. All event types within a channel share
// one subscription, and backends deliver a channel in publish order.
type Channel string

// ChannelRun carries every run event, tool events included. A run's events
// must stay on one channel: separate channels are delivered by separate
// listeners and lose the started → tool_* → terminal order.
const ChannelRun Channel = "run"

var typeToChannel = map[Type]Channel{
	TypeAgentStarted:   ChannelRun,
	TypeAgentThinking:  ChannelRun,
	TypeAgentCompleted: ChannelRun,
	TypeAgentError:     ChannelRun,
	TypeToolExecuting:  ChannelRun,
	TypeToolCompleted:  ChannelRun,
}

// ChannelFor returns the channel for a given event type.
func ChannelFor(t Type) Channel { return typeToChannel[t] }

// Channels lists every channel a full subscriber has to listen on.
func Channels() []Channel { return []Channel{ChannelRun} }

// Event is one run lifecycle notification destined for a user's sockets.
type Event struct {
	Type         Type           `json:"type"`
	RunID        uuid.UUID      `json:"run_id"`
	AgentName    string         `json:"agent_name"`
	UserID       string         `json:"user_id"`
	ThreadID     string         `json:"thread_id,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	TraceContext map[string]any `json:"trace_context,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

func New(eventType Type, runID uuid.UUID, agentName, userID, threadID string) Event {
	return Event{
		Type:      eventType,
		RunID:     runID,
		AgentName: agentName,
		UserID:    userID,
		ThreadID:  threadID,
		Payload:   map[string]any{},
		Timestamp: time.Now().UTC(),
	}
}
