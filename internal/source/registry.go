package source

import (
	"errors"
	"fmt"
	"sync"

	"github.com/timmy/recordhub/internal/domain"
)

// ErrUnknownType is returned by Build for a source type with no factory.
var ErrUnknownType = errors.New("no connector for source type")

// Factory builds a connector for one source configuration.
type Factory func(cfg domain.SourceConfig) (Connector, error)

// Registry maps source types to connector factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[domain.SourceType]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[domain.SourceType]Factory)}
}

// Register installs the factory for a source type, replacing any previous one.
func (r *Registry) Register(t domain.SourceType, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[t] = f
}

// Build creates the connector for cfg.
// Parameters:
//   - cfg: source configuration.
// Returns:
//   - Connector: connector bound to cfg.
//   - error: ErrUnknownType for unregistered types, or the factory's error.
func (r *Registry) Build(cfg domain.SourceConfig) (Connector, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.SourceType()]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (source %s)", ErrUnknownType, cfg.Type, cfg.Name)
	}
	return f(cfg)
}
