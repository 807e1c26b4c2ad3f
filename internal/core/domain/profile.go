package domain

import (
	"fmt"
	"time"
)

// ResourceProfile is the enriched, validated set of parameters governing how
// a logical resource name is accessed. Built once on first resolution and
// immutable afterwards.
type ResourceProfile struct {
	Name string
	URL  string

	ConnectTimeout   time.Duration
	OperationTimeout time.Duration

	MinConns int
	MaxConns int

	IdleLifetime  time.Duration
	PruneInterval time.Duration

	KeepaliveInterval      time.Duration
	KeepaliveProbeInterval time.Duration

	StatementCacheMax     int
	StatementCacheMinUses int

	LoadBalance bool
}

// Validate checks profile invariants.
func (p *ResourceProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile has empty name")
	}
	if p.MinConns > p.MaxConns {
		return fmt.Errorf("profile %s: min conns %d exceeds max conns %d", p.Name, p.MinConns, p.MaxConns)
	}
	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"connect_timeout", p.ConnectTimeout},
		{"operation_timeout", p.OperationTimeout},
		{"idle_lifetime", p.IdleLifetime},
		{"prune_interval", p.PruneInterval},
		{"keepalive_interval", p.KeepaliveInterval},
		{"keepalive_probe_interval", p.KeepaliveProbeInterval},
	} {
		if d.val <= 0 {
			return fmt.Errorf("profile %s: %s must be positive", p.Name, d.name)
		}
	}
	return nil
}
