package publishers

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry maps publisher types to their builders. The zero value is empty and ready to use.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// DefaultRegistry knows every transport shipped with this package.
func DefaultRegistry() *Registry {
	r := &Registry{}
	r.Register(TypeHTTP, newHTTPPublisher)
	r.Register(TypeSQS, newSQSPublisher)
	r.Register(TypeSNS, newSNSPublisher)
	r.Register(TypeGCPPubSub, newGCPPubSubPublisher)
	return r
}

// Register binds typ to builder, replacing any earlier binding. Blank types and nil builders are ignored.
func (r *Registry) Register(typ string, builder Builder) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" || builder == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.builders == nil {
		r.builders = make(map[string]Builder)
	}
	r.builders[key] = builder
}

func (r *Registry) lookup(typ string) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[strings.ToLower(typ)]
	return b, ok
}

// Build instantiates one publisher per config, in order. The first failure aborts the build
// and closes whatever was already opened.
func (r *Registry) Build(ctx context.Context, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	log = ensureLogger(log)
	built := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		builder, ok := r.lookup(cfg.Type)
		if !ok {
			_ = NewFanout(built).Close()
			return nil, fmt.Errorf("publisher %q: no builder for type %q", cfg.ID, cfg.Type)
		}
		pub, err := builder(ctx, cfg, log)
		if err != nil {
			_ = NewFanout(built).Close()
			return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
		}
		built = append(built, pub)
	}
	return built, nil
}
