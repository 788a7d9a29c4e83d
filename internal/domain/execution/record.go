package execution

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusRegistered Status = "registered"
	StatusStarted    Status = "started"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var validTransitions = map[Status][]Status{
	StatusRegistered: {StatusStarted, StatusFailed},
	StatusStarted:    {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is the tracker-owned view of one execution. It is never mutated after
// it reaches a terminal status.
type Record struct {
	ID            uuid.UUID      `json:"id"`
	AgentName     string         `json:"agent_name"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	ThreadID      string         `json:"thread_id,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
	Timeout       time.Duration  `json:"timeout_ns"`
	Status        Status         `json:"status"`
	Error         string         `json:"error,omitempty"`
	Result        any            `json:"result,omitempty"`
	Metrics       map[string]any `json:"metrics,omitempty"`
	RegisteredAt  time.Time      `json:"registered_at"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

func NewRecord(agentName, correlationID, threadID, userID string, timeout time.Duration) Record {
	return Record{
		ID:            uuid.New(),
		AgentName:     agentName,
		CorrelationID: correlationID,
		ThreadID:      threadID,
		UserID:        userID,
		Timeout:       timeout,
		Status:        StatusRegistered,
		Metrics:       map[string]any{},
		RegisteredAt:  time.Now().UTC(),
	}
}

// IsOverdue reports whether a started record has outlived its timeout plus grace.
func (r *Record) IsOverdue(grace time.Duration, now time.Time) bool {
	if r.Status != StatusStarted || r.StartedAt == nil {
		return false
	}
	return now.Sub(*r.StartedAt) > r.Timeout+grace
}

type ListFilters struct {
	UserID    *string
	AgentName *string
	Status    *Status
	Limit     int
}
