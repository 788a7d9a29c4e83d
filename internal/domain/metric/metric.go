package metric

import (
	"time"

	"github.com/google/uuid"
)

// Point is one persisted numeric metric of one execution.
type Point struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	RunID       uuid.UUID `json:"run_id"`
	AgentName   string    `json:"agent_name"`
	UserID      string    `json:"user_id,omitempty"`
	Name        string    `json:"name"`
	Value       float64   `json:"value"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Numeric converts v to float64 when it is a Go number. Booleans are not numbers.
func Numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
