package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	portagent "github.com/alanyang/agent-exec/internal/port/agent"
	portregistry "github.com/alanyang/agent-exec/internal/port/registry"
)

var ErrDuplicate = errors.New("agent already registered")

// Factory builds a fresh agent for one run. Per-run state such as the attached
// WebSocket target or tool dispatcher lives on that instance only.
type Factory func() portagent.Agent

// Service is the agent registry.
// [SRP] Name resolution only. Running an agent is the execution core's job.
type Service struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var _ portregistry.Registry = (*Service)(nil)

func NewService() *Service {
	return &Service{factories: make(map[string]Factory)}
}

func (s *Service) Register(name string, f Factory) error {
	if name == "" {
		return errors.New("register agent: name is required")
	}
	if f == nil {
		return fmt.Errorf("register agent %s: factory is nil", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.factories[name]; exists {
		return fmt.Errorf("register agent %s: %w", name, ErrDuplicate)
	}
	s.factories[name] = f
	return nil
}

// Get returns a new instance of the named agent, or portregistry.ErrNotFound.
func (s *Service) Get(_ context.Context, name string) (portagent.Agent, error) {
	s.mu.RLock()
	f, ok := s.factories[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", name, portregistry.ErrNotFound)
	}

	a := f()
	if a == nil {
		return nil, fmt.Errorf("agent %s: factory returned nil", name)
	}
	return a, nil
}

// List returns registered agent names in sorted order.
func (s *Service) List(_ context.Context) []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.factories))
	for name := range s.factories {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}
