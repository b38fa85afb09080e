package store

import (
	"errors"
	"sync"
)

// Scheduler serializes commits across every store bound to it.
//
// The first Run call becomes the drainer: it executes its job, then every
// job queued while it was running, then the effects scheduled during the
// drain, and returns the joined errors of all of them. Run calls made
// while a drain is in progress (from a listener, an effect, or another
// goroutine) are queued and return nil immediately; their errors surface
// from the drainer.
//
// Stores that belong to one component share a Scheduler so that changes
// to several of them within one outer Set settle into a single drain.
type Scheduler struct {
	mu       sync.Mutex
	draining bool
	queue    []func() error
	effects  []effect
	pending  map[any]struct{}
}

type effect struct {
	key any
	fn  func() error
}

// NewScheduler creates an idle scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[any]struct{})}
}

// Draining reports whether a drain is in progress.
func (s *Scheduler) Draining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draining
}

// Run executes job now, or queues it behind the drain in progress.
func (s *Scheduler) Run(job func() error) error {
	s.mu.Lock()
	if s.draining {
		s.queue = append(s.queue, job)
		s.mu.Unlock()
		return nil
	}
	s.draining = true
	s.mu.Unlock()
	return s.drain(job)
}

// Schedule registers fx to run once, after every queued job of the
// current drain has been applied. Effects are deduplicated by key until
// they run; an effect may be scheduled again once it has started. Outside
// a drain, fx runs immediately as a drain of its own.
func (s *Scheduler) Schedule(key any, fx func() error) error {
	s.mu.Lock()
	if !s.draining {
		s.mu.Unlock()
		return s.Run(fx)
	}
	if _, ok := s.pending[key]; !ok {
		s.pending[key] = struct{}{}
		s.effects = append(s.effects, effect{key: key, fn: fx})
	}
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) drain(job func() error) error {
	var errs []error
	done := false
	defer func() {
		if done {
			return
		}
		// A job or effect panicked. Queued jobs are abandoned, but effects
		// already scheduled still run so observers catch up with the
		// commits that did happen before the panic.
		s.mu.Lock()
		s.queue = nil
		effects := s.effects
		s.effects = nil
		clear(s.pending)
		s.mu.Unlock()

		for _, fx := range effects {
			runAbandoned(fx.fn)
		}

		s.mu.Lock()
		s.queue = nil
		s.effects = nil
		clear(s.pending)
		s.draining = false
		s.mu.Unlock()
	}()

	for job != nil {
		if err := job(); err != nil {
			errs = append(errs, err)
		}
		job = s.next()
	}
	done = true
	return errors.Join(errs...)
}

// runAbandoned runs an effect while a panic is unwinding the drain. Its
// error and any panic of its own are dropped; the original panic is what
// the drainer reports.
func runAbandoned(fx func() error) {
	defer func() { recover() }()
	_ = fx()
}

// next pops the following unit of work: queued jobs first, then effects.
// When nothing is left the drain ends under the same lock, so a job queued
// concurrently is never stranded.
func (s *Scheduler) next() func() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) > 0 {
		job := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		return job
	}
	if len(s.effects) > 0 {
		fx := s.effects[0]
		s.effects[0] = effect{}
		s.effects = s.effects[1:]
		delete(s.pending, fx.key)
		return fx.fn
	}
	s.draining = false
	return nil
}
