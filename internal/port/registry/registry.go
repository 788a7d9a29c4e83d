package registry

import (
	"context"
	"errors"

	portagent "github.com/alanyang/agent-exec/internal/port/agent"
)

var ErrNotFound = errors.New("agent not found")

// Registry resolves agents by name. A lookup either yields an agent or
// ErrNotFound; it never produces an execution result.
type Registry interface {
	Get(ctx context.Context, name string) (portagent.Agent, error)
	List(ctx context.Context) []string
}
