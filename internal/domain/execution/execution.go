package execution

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Context describes one execution attempt. It is created by the caller and is
// read-only for the duration of the run.
type Context struct {
	AgentName     string    `json:"agent_name"`
	RunID         uuid.UUID `json:"run_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	RetryCount    int       `json:"retry_count"`
}

func NewContext(agentName, correlationID string) Context {
	return Context{
		AgentName:     agentName,
		RunID:         uuid.New(),
		CorrelationID: correlationID,
	}
}

func (c Context) Validate() error {
	if c.AgentName == "" {
		return errors.New("agent name is required")
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("retry count must be >= 0, got %d", c.RetryCount)
	}
	return nil
}

// Result is the outcome of one run. Error is non-empty iff Success is false.
// A zero Duration and nil Metrics mean "not measured" (agent-not-found path).
type Result struct {
	Success   bool           `json:"success"`
	AgentName string         `json:"agent_name"`
	Error     string         `json:"error,omitempty"`
	Duration  time.Duration  `json:"-"`
	Metrics   map[string]any `json:"metrics,omitempty"`
	Output    any            `json:"output,omitempty"`
}

func Succeeded(agentName string, output any) Result {
	return Result{Success: true, AgentName: agentName, Output: output}
}

func Failed(agentName, msg string) Result {
	if msg == "" {
		msg = "unknown error"
	}
	return Result{Success: false, AgentName: agentName, Error: msg}
}

// DurationSeconds is the float-seconds view used on the wire.
func (r Result) DurationSeconds() float64 {
	return r.Duration.Seconds()
}

// Stamp attaches the measured duration and metrics to the result.
func (r Result) Stamp(d time.Duration, metrics map[string]any) Result {
	r.Duration = d
	r.Metrics = metrics
	return r
}
