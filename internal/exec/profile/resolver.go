// Package profile resolves logical resource names to enriched connection
// profiles.
package profile

import (
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/dbexec/internal/core/config"
	"github.com/vietddude/dbexec/internal/core/domain"
)

// Enrichment defaults applied when the raw configuration leaves a field zero.
const (
	DefaultConnectTimeout         = 30 * time.Second
	DefaultOperationTimeout       = 120 * time.Second
	DefaultMinConns               = 1
	DefaultMaxConns               = 20
	DefaultIdleLifetime           = 300 * time.Second
	DefaultPruneInterval          = 10 * time.Second
	DefaultKeepaliveInterval      = 30 * time.Second
	DefaultKeepaliveProbeInterval = 10 * time.Second
	DefaultStatementCacheMax      = 10
	DefaultStatementCacheMinUses  = 2
)

// Source supplies raw connection parameters for a logical name.
type Source interface {
	Resource(name string) (config.ResourceConfig, bool)
}

// Resolver enriches raw parameters into immutable ResourceProfiles and
// caches them for the lifetime of the process. Safe for concurrent use.
type Resolver struct {
	source Source

	mu    sync.RWMutex
	cache map[string]*domain.ResourceProfile
}

// NewResolver creates a Resolver backed by the given raw parameter source.
func NewResolver(source Source) *Resolver {
	return &Resolver{
		source: source,
		cache:  make(map[string]*domain.ResourceProfile),
	}
}

// Resolve returns the enriched profile for name, building and caching it on
// first use. Repeated calls for one name return the same profile.
func (r *Resolver) Resolve(name string) (*domain.ResourceProfile, error) {
	if name == "" {
		return nil, domain.NewFailure(domain.KindResourceNotFound, "empty resource name")
	}

	r.mu.RLock()
	prof, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return prof, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prof, ok := r.cache[name]; ok {
		return prof, nil
	}

	raw, ok := r.source.Resource(name)
	if !ok {
		return nil, domain.NewFailure(
			domain.KindResourceNotFound,
			fmt.Sprintf("no connection parameters for resource %q", name),
		)
	}

	prof = enrich(name, raw)
	if err := prof.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile for resource %q: %w", name, err)
	}

	r.cache[name] = prof
	return prof, nil
}

func enrich(name string, raw config.ResourceConfig) *domain.ResourceProfile {
	prof := &domain.ResourceProfile{
		Name:                   name,
		URL:                    raw.URL,
		ConnectTimeout:         raw.ConnectTimeout,
		OperationTimeout:       raw.OperationTimeout,
		MinConns:               raw.MinConns,
		MaxConns:               raw.MaxConns,
		IdleLifetime:           raw.IdleLifetime,
		PruneInterval:          raw.PruneInterval,
		KeepaliveInterval:      raw.KeepaliveInterval,
		KeepaliveProbeInterval: raw.KeepaliveProbeInterval,
		StatementCacheMax:      raw.StatementCacheMax,
		StatementCacheMinUses:  raw.StatementCacheMinUses,
		LoadBalance:            raw.LoadBalance,
	}

	if prof.ConnectTimeout == 0 {
		prof.ConnectTimeout = DefaultConnectTimeout
	}
	if prof.OperationTimeout == 0 {
		prof.OperationTimeout = DefaultOperationTimeout
	}
	if prof.MinConns == 0 {
		prof.MinConns = DefaultMinConns
	}
	if prof.MaxConns == 0 {
		prof.MaxConns = DefaultMaxConns
	}
	if prof.IdleLifetime == 0 {
		prof.IdleLifetime = DefaultIdleLifetime
	}
	if prof.PruneInterval == 0 {
		prof.PruneInterval = DefaultPruneInterval
	}
	if prof.KeepaliveInterval == 0 {
		prof.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if prof.KeepaliveProbeInterval == 0 {
		prof.KeepaliveProbeInterval = DefaultKeepaliveProbeInterval
	}
	if prof.StatementCacheMax == 0 {
		prof.StatementCacheMax = DefaultStatementCacheMax
	}
	if prof.StatementCacheMinUses == 0 {
		prof.StatementCacheMinUses = DefaultStatementCacheMinUses
	}
	return prof
}
