package agent

import (
	"encoding/json"
)

// State carries the per-user, per-thread data an agent works on. The execution
// core reads it but never owns its lifecycle.
type State struct {
	UserID      string         `json:"user_id"`
	ThreadID    string         `json:"thread_id"`
	RunID       string         `json:"run_id,omitempty"`
	UserRequest string         `json:"user_request,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

func NewState(userID, threadID, userRequest string) *State {
	return &State{
		UserID:      userID,
		ThreadID:    threadID,
		UserRequest: userRequest,
		Context:     map[string]any{},
	}
}

// Size returns the length of the JSON encoding of the state, or 0 if it cannot
// be encoded.
func (s *State) Size() int {
	if s == nil {
		return 0
	}
	data, err := json.Marshal(s)
	if err != nil {
		return 0
	}
	return len(data)
}
