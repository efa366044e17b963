package scanner

import (
	"context"
	"fmt"
	"time"

	"OpportunityScanner/internal/domain"
)

// Request carries all parameters required to execute one context scan.
type Request struct {
	Now     time.Time
	Context string
	Query   string
	Options map[string]string
}

// Collector captures a single source strategy (timeline, keyword search).
type Collector interface {
	Name() string
	Collect(ctx context.Context, req Request) ([]domain.Candidate, error)
}

// Registry keeps a mapping from source types to their collectors.
type Registry struct {
	collectors map[domain.SourceType]Collector
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{collectors: map[domain.SourceType]Collector{}}
}

// Register adds or replaces a collector for a source type.
func (r *Registry) Register(source domain.SourceType, collector Collector) {
	if r.collectors == nil {
		r.collectors = map[domain.SourceType]Collector{}
	}
	r.collectors[source] = collector
}

// Resolve returns a collector by source type or an error if it is absent.
func (r *Registry) Resolve(source domain.SourceType) (Collector, error) {
	if collector, ok := r.collectors[source]; ok {
		return collector, nil
	}
	return nil, fmt.Errorf("no collector registered for source %q", source)
}
