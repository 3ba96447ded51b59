package server

import (
	"context"
	"fmt"
)

// pingable is satisfied by index.Index and store.ScanStore.
type pingable interface {
	Ping(ctx context.Context) error
}

// DependencyPinger adapts any dependency with a Ping method to the Pinger
// interface used by GET /api/ready.
type DependencyPinger struct {
	// dep is the dependency to probe.
	dep pingable
	// name identifies the dependency in readiness responses (e.g. "qdrant").
	name string
}

// NewDependencyPinger constructs a DependencyPinger labelled name.
func NewDependencyPinger(name string, dep pingable) *DependencyPinger {
	return &DependencyPinger{dep: dep, name: name}
}

// Name returns the dependency label used in readiness responses.
func (p *DependencyPinger) Name() string { return p.name }

// Ping probes the dependency.
func (p *DependencyPinger) Ping(ctx context.Context) error {
	if err := p.dep.Ping(ctx); err != nil {
		return fmt.Errorf("%s unreachable: %w", p.name, err)
	}
	return nil
}
