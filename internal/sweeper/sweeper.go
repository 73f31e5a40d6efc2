// Package sweeper periodically evicts expired entries from the time-bounded stores.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultInterval = 5 * time.Minute

// SweepFunc removes expired entries and returns how many it removed.
type SweepFunc func() int

type target struct {
	name  string
	sweep SweepFunc
}

// Sweeper runs every registered target on a fixed interval.
type Sweeper struct {
	mu       sync.Mutex
	targets  []target
	interval time.Duration
}

func New(interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Sweeper{interval: interval}
}

// Register adds a named target. Targets run in registration order.
func (s *Sweeper) Register(name string, fn SweepFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, target{name: name, sweep: fn})
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("expiry sweeper stopped")
			return nil
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce runs every target once and returns the evictions per target.
// A panicking target is logged and skipped.
func (s *Sweeper) SweepOnce() map[string]int {
	s.mu.Lock()
	targets := append([]target(nil), s.targets...)
	s.mu.Unlock()

	counts := make(map[string]int, len(targets))
	for _, t := range targets {
		counts[t.name] = runTarget(t)
	}
	return counts
}

func runTarget(t target) (n int) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("target", t.name).Msg("sweep target panicked")
			n = 0
		}
	}()
	n = t.sweep()
	log.Debug().Str("target", t.name).Int("evicted", n).Msg("sweep complete")
	return n
}
