// SPDX-License-Identifier: MIT
package filter

import (
	"fmt"
	"sync"
	"sync/atomic"

	applog "voiceshield/internal/log"
	"voiceshield/internal/pcm"
)

type entry struct {
	filter  Filter
	faulted atomic.Bool
}

// Chain applies its filters in insertion order to the same frame set.
// Disabled filters are skipped without touching the buffers. A filter that
// panics is recovered, logged and skipped for the rest of the run.
type Chain struct {
	mu      sync.RWMutex
	entries []*entry
}

// NewChain returns a chain holding filters in the given order.
func NewChain(filters ...Filter) *Chain {
	c := &Chain{}
	for _, f := range filters {
		c.Add(f)
	}
	return c
}

// NewDefaultChain returns the six filters in processing order with default
// parameters: obfuscator, noise, formant, warp, phase, comb.
func NewDefaultChain() *Chain {
	return NewChain(
		NewObfuscator(),
		NewNoiseInjector(),
		NewFormantScrambler(),
		NewWarpPredictor(),
		NewPhaseChaoticizer(),
		NewSpectralHoleComb(),
	)
}

// Add appends f. No deduplication or reordering takes place.
func (c *Chain) Add(f Filter) {
	c.mu.Lock()
	c.entries = append(c.entries, &entry{filter: f})
	c.mu.Unlock()
}

// Len returns the number of filters in the chain.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Filters returns the members in chain order.
func (c *Chain) Filters() []Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Filter, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.filter
	}
	return out
}

// Lookup returns the first filter with the given name.
func (c *Chain) Lookup(name string) (Filter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.entries {
		if e.filter.Name() == name {
			return e.filter, true
		}
	}
	return nil, false
}

// Faulted reports whether the named filter was taken out after a panic.
func (c *Chain) Faulted(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.entries {
		if e.filter.Name() == name {
			return e.faulted.Load()
		}
	}
	return false
}

// Process runs every enabled filter over f in order. It returns
// pcm.ErrChannelMismatch without touching f when the channels differ in
// length.
func (c *Chain) Process(f pcm.Frames) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("filter chain: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.entries {
		if e.faulted.Load() || !e.filter.Enabled() {
			continue
		}
		c.run(e, f)
	}
	return nil
}

func (c *Chain) run(e *entry, f pcm.Frames) {
	defer func() {
		if r := recover(); r != nil {
			e.faulted.Store(true)
			applog.WithFields(applog.Fields{
				"filter": e.filter.Name(),
				"panic":  fmt.Sprint(r),
				"frames": f.Len(),
			}).Error("filter chain: filter faulted, disabled for the rest of the run")
		}
	}()
	e.filter.Process(f)
}
