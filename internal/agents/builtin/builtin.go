// Package builtin holds the agents a fresh server can run without any
// deployment-specific code.
package builtin

import (
	"fmt"

	portagent "github.com/alanyang/agent-exec/internal/port/agent"
	agentsvc "github.com/alanyang/agent-exec/internal/service/agent"
)

// RegisterAll adds every builtin agent to the registry.
func RegisterAll(svc *agentsvc.Service) error {
	factories := map[string]agentsvc.Factory{
		EchoName: func() portagent.Agent { return NewEchoAgent() },
	}
	for name, f := range factories {
		if err := svc.Register(name, f); err != nil {
			return fmt.Errorf("register builtin %s: %w", name, err)
		}
	}
	return nil
}
