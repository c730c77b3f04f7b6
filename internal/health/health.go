// Package health turns per-component readiness probes into cached health
// flags and a single aggregated service flag.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Pinger is a cheap component readiness probe. Nil means healthy.
type Pinger interface {
	HealthPing(ctx context.Context) error
}

// Checker exposes cached health for one component.
type Checker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

const (
	pingTimeout = 5 * time.Second
	// defaultInterval backstops non-positive probe cadences.
	defaultInterval = 30 * time.Second
)

// PingChecker polls a Pinger and caches the result. The cached flag starts
// unhealthy until the first successful ping.
type PingChecker struct {
	name    string
	pinger  Pinger
	healthy atomic.Int32
	log     zerolog.Logger
}

func NewPingChecker(name string, p Pinger, log zerolog.Logger) *PingChecker {
	return &PingChecker{name: name, pinger: p, log: log}
}

func (c *PingChecker) Name() string    { return c.name }
func (c *PingChecker) IsHealthy() bool { return c.healthy.Load() == 1 }

// Check runs one probe and updates the cached flag.
func (c *PingChecker) Check(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	err := c.pinger.HealthPing(pctx)
	if err != nil {
		c.healthy.Store(0)
		return err
	}
	c.healthy.Store(1)
	return nil
}

// Start probes on the given cadence until ctx is canceled, logging
// transitions only.
func (c *PingChecker) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := int32(-1)
	probe := func() {
		err := c.Check(ctx)
		cur := c.healthy.Load()
		if cur != prev {
			if cur == 1 {
				c.log.Info().Str("component", c.name).Msg("health: UP")
			} else {
				c.log.Warn().Str("component", c.name).Err(err).Msg("health: DOWN")
			}
			prev = cur
		}
	}

	probe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}

// ServiceHealthChecker folds component checkers into one service flag.
type ServiceHealthChecker struct {
	healthy atomic.Int32
	deps    []Checker
	log     zerolog.Logger
}

func NewServiceHealthChecker(log zerolog.Logger, deps ...Checker) *ServiceHealthChecker {
	h := &ServiceHealthChecker{deps: deps, log: log}
	h.healthy.Store(0)
	return h
}

// IsHealthy returns cached service health.
func (h *ServiceHealthChecker) IsHealthy() bool { return h.healthy.Load() == 1 }

// Start periodically re-evaluates dependency health and updates the service
// flag. Dependency checkers run their own probe loops; this only folds their
// cached flags.
func (h *ServiceHealthChecker) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := int32(-1)
	eval := func() {
		all := true
		for _, c := range h.deps {
			if !c.IsHealthy() {
				all = false
			}
		}
		if all {
			h.healthy.Store(1)
		} else {
			h.healthy.Store(0)
		}
		cur := h.healthy.Load()
		if cur != prev {
			if cur == 1 {
				h.log.Info().Msg("service health: UP")
			} else {
				h.log.Warn().Msg("service health: DOWN")
			}
			prev = cur
		}
	}

	eval()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eval()
		}
	}
}
