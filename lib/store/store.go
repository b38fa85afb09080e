// Package store provides an observable holder of a single immutable value.
//
// Every change goes through a Recipe applied to a deep-copied draft of the
// current value. The previous value is never mutated: when the recipe
// returns, unchanged subtrees of the draft are swapped for the previous
// value's references and the result is committed as the new value.
//
//	counter := store.New(Counter{Label: "clicks"})
//	dispose := counter.Subscribe(func(c Counter) error {
//	    log.Printf("count is now %d", c.N)
//	    return nil
//	})
//	defer dispose()
//
//	err := counter.Set(func(draft *Counter) error {
//	    draft.N++
//	    return nil
//	})
//
// Notification policy:
//   - Listeners run synchronously, in subscription order, inside Set.
//   - Listeners only see changes committed after they subscribed; Subscribe
//     never calls the listener immediately.
//   - A recipe that leaves the value structurally equal to the current one
//     commits nothing and notifies nobody.
//   - A listener that fails or panics does not stop the others; its error
//     (ErrListenerPanic for a panic) is returned by Set after the commit.
//
// A Set issued while the store's Scheduler is already draining (typically
// from inside a listener) is queued and applied once the in-flight
// notification has completed, preserving a total order of commits.
package store

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Recipe describes a change. It receives a private draft of the current
// value and either mutates it in place or assigns a whole new value to
// *draft. The draft must not be retained after the recipe returns; values
// assigned into it are owned by the store from then on.
type Recipe[T any] func(draft *T) error

// Listener is notified with each committed value.
type Listener[T any] func(value T) error

// Disposer cancels a subscription. It is safe to call more than once and
// from inside a notification; the listener is not called again after it
// returns.
type Disposer func()

// Option configures a Store.
type Option func(*options)

type options struct {
	scheduler *Scheduler
}

// WithScheduler binds the store to a shared scheduler.
func WithScheduler(s *Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// Store holds a value of type T. The zero Store is not usable; create one
// with New or NewWithEqual.
type Store[T any] struct {
	sched *Scheduler
	equal func(a, b T) bool

	mu        sync.Mutex
	value     T
	version   uint64
	listeners []*subscription[T]
}

type subscription[T any] struct {
	fn     Listener[T]
	active atomic.Bool
}

// New creates a store seeded with initial. The store takes ownership of
// initial; pass Clone(v) if the caller keeps using v.
func New[T any](initial T, opts ...Option) *Store[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scheduler == nil {
		o.scheduler = NewScheduler()
	}
	return &Store[T]{
		sched: o.scheduler,
		value: initial,
	}
}

// NewWithEqual creates a store that uses equal, instead of structural
// equality, to decide whether a recipe changed the value.
func NewWithEqual[T any](initial T, equal func(a, b T) bool, opts ...Option) *Store[T] {
	s := New(initial, opts...)
	s.equal = equal
	return s
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Version returns the number of commits since creation.
func (s *Store[T]) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Scheduler returns the scheduler the store commits through.
func (s *Store[T]) Scheduler() *Scheduler {
	return s.sched
}

// Set applies recipe to a draft of the current value and commits the
// result if it differs from the current value.
//
// A failing or panicking recipe leaves the value unchanged and yields a
// *RecipeError. When Set drains the scheduler, the returned error also
// carries the failures of queued sets, listeners and effects that ran
// during the drain.
//
// A Set issued during a drain, whether from a listener or from another
// goroutine, is queued and returns nil at once: its recipe error is
// reported by the drainer's Set, and Get may not reflect it yet when Set
// returns. Goroutines that need their own error must serialize access to
// the store.
func (s *Store[T]) Set(recipe Recipe[T]) error {
	if recipe == nil {
		return &RecipeError{Err: errNilRecipe}
	}
	return s.sched.Run(func() error {
		return s.apply(recipe)
	})
}

// Replace commits v as the new value.
func (s *Store[T]) Replace(v T) error {
	return s.Set(func(draft *T) error {
		*draft = v
		return nil
	})
}

// Subscribe registers l for every subsequent commit.
func (s *Store[T]) Subscribe(l Listener[T]) Disposer {
	sub := &subscription[T]{fn: l}
	sub.active.Store(true)

	s.mu.Lock()
	listeners := make([]*subscription[T], len(s.listeners), len(s.listeners)+1)
	copy(listeners, s.listeners)
	s.listeners = append(listeners, sub)
	s.mu.Unlock()

	return func() {
		if !sub.active.Swap(false) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		kept := make([]*subscription[T], 0, len(s.listeners))
		for _, other := range s.listeners {
			if other != sub {
				kept = append(kept, other)
			}
		}
		s.listeners = kept
	}
}

// apply runs on the scheduler's drainer, so reads and commits of value
// never interleave with another apply.
func (s *Store[T]) apply(recipe Recipe[T]) error {
	s.mu.Lock()
	current := s.value
	s.mu.Unlock()

	draft := Clone(current)
	if err := runRecipe(recipe, &draft); err != nil {
		return &RecipeError{Err: err}
	}

	unchanged := share(reflect.ValueOf(&draft).Elem(), reflect.ValueOf(&current).Elem(), make(map[visitPair]bool))
	if s.equal != nil {
		unchanged = s.equal(current, draft)
	}
	if unchanged {
		return nil
	}

	s.mu.Lock()
	s.value = draft
	s.version++
	listeners := s.listeners
	s.mu.Unlock()

	return s.notify(draft, listeners)
}

func (s *Store[T]) notify(value T, listeners []*subscription[T]) error {
	var errs []error
	for _, sub := range listeners {
		if !sub.active.Load() {
			continue
		}
		if err := runListener(sub.fn, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func runListener[T any](l Listener[T], value T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrListenerPanic, r)
		}
	}()
	return l(value)
}

func runRecipe[T any](recipe Recipe[T], draft *T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return recipe(draft)
}
