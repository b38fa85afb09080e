package webcmp

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/a-h/templ"
	"github.com/pthm/webcmp/lib/render"
	"github.com/pthm/webcmp/lib/store"
)

// AttachHook runs when an instance is created, after its first render.
// It runs outside any drain: each Set it makes commits, renders and
// reports its own error before returning, and Get sees the write at once.
// Group several changes under State().Scheduler().Run to render them once.
type AttachHook[T any] func(ctx context.Context, inst *Instance[T]) error

// DetachHook runs when an instance is disposed, before its subscriptions
// are torn down.
type DetachHook[T any] func(inst *Instance[T])

// Definition is a component factory. It is created once per component
// type with Define and produces independent instances with New.
//
// Behaviour is added by composition rather than subclassing:
//
//	counter := webcmp.MustDefine(webcmp.Config[Counter]{
//	    Identifier:   "click-counter",
//	    DefaultState: Counter{Label: "Clicks"},
//	    TemplateFunc: counterView,
//	})
//	counter.OnAttach(func(ctx context.Context, inst *webcmp.Instance[Counter]) error {
//	    return inst.State().Set(func(c *Counter) error { c.Seen = true; return nil })
//	})
//	counter.Action("increment", func(ctx context.Context, r *http.Request, c *Counter) error {
//	    c.Count++
//	    return nil
//	})
type Definition[T any] struct {
	cfg     Config[T]
	attach  []AttachHook[T]
	detach  []DetachHook[T]
	actions map[string]*actionDef

	mu      sync.RWMutex
	encoder *Encoder
	prefix  string
	logger  *log.Logger
}

// Define validates cfg and returns a definition.
func Define[T any](cfg Config[T]) (*Definition[T], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Definition[T]{
		cfg:     cfg,
		actions: make(map[string]*actionDef),
	}, nil
}

// MustDefine is like Define but panics on an invalid configuration.
func MustDefine[T any](cfg Config[T]) *Definition[T] {
	d, err := Define(cfg)
	if err != nil {
		panic(err)
	}
	return d
}

// Identifier returns the component's identifier.
func (d *Definition[T]) Identifier() string {
	return d.cfg.Identifier
}

// IsSensitive returns whether state snapshots are encrypted.
func (d *Definition[T]) IsSensitive() bool {
	return d.cfg.Sensitive
}

// DefaultState returns a copy of the configured default state.
func (d *Definition[T]) DefaultState() T {
	return store.Clone(d.cfg.DefaultState)
}

// OnAttach registers a creation-time hook. Hooks run in registration
// order, each outside any drain; the first failure disposes the instance
// and is returned by New.
func (d *Definition[T]) OnAttach(h AttachHook[T]) *Definition[T] {
	d.attach = append(d.attach, h)
	return d
}

// OnDetach registers a teardown hook. Hooks run in reverse registration
// order.
func (d *Definition[T]) OnDetach(h DetachHook[T]) *Definition[T] {
	d.detach = append(d.detach, h)
	return d
}

// New creates an instance seeded with the default state. ctx is used for
// the first render, for attach hooks and for every automatic render.
func (d *Definition[T]) New(ctx context.Context, opts ...render.Option) (*Instance[T], error) {
	return d.instantiate(ctx, store.Clone(d.cfg.DefaultState), opts)
}

// NewWithState creates an instance seeded with state instead of the
// default. The instance takes ownership of state.
func (d *Definition[T]) NewWithState(ctx context.Context, state T, opts ...render.Option) (*Instance[T], error) {
	return d.instantiate(ctx, state, opts)
}

func (d *Definition[T]) instantiate(ctx context.Context, seed T, opts []render.Option) (*Instance[T], error) {
	sched := store.NewScheduler()
	inst := &Instance[T]{
		def:   d,
		state: store.New(seed, store.WithScheduler(sched)),
	}

	var src render.Source[T]
	if d.cfg.TemplateFunc != nil {
		src = render.Func(d.cfg.TemplateFunc)
	} else {
		inst.template = store.New(d.cfg.Template, store.WithScheduler(sched))
		src = render.FromStore[T](inst.template)
	}

	ropts := []render.Option{render.WithContext(ctx)}
	d.mu.RLock()
	if d.logger != nil {
		ropts = append(ropts, render.WithLogger(d.logger))
	}
	d.mu.RUnlock()
	if d.cfg.Renderer != nil {
		ropts = append(ropts, render.WithRenderer(d.cfg.Renderer))
	}
	coord, err := render.New(inst.state, src, append(ropts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("webcmp: %s: %w", d.cfg.Identifier, err)
	}
	inst.coord = coord

	if err := coord.Render(ctx); err != nil {
		inst.Dispose()
		return nil, err
	}

	for _, hook := range d.attach {
		if err := hook(ctx, inst); err != nil {
			inst.Dispose()
			return nil, fmt.Errorf("webcmp: attach %s: %w", d.cfg.Identifier, err)
		}
	}

	return inst, nil
}

// Instance is one live component: its own state store, optional template
// store and render coordinator. Instances share nothing with each other.
type Instance[T any] struct {
	def      *Definition[T]
	state    *store.Store[T]
	template *store.Store[templ.Component]
	coord    *render.Coordinator[T]
	detached sync.Once
}

// Definition returns the definition the instance was created from.
func (i *Instance[T]) Definition() *Definition[T] {
	return i.def
}

// State returns the instance's state store.
func (i *Instance[T]) State() *store.Store[T] {
	return i.state
}

// Template returns the instance's template store, or nil when the
// definition uses a TemplateFunc.
func (i *Instance[T]) Template() *store.Store[templ.Component] {
	return i.template
}

// Render re-renders the output. It fails with ErrDisposed after Dispose.
func (i *Instance[T]) Render(ctx context.Context) error {
	return i.coord.Render(ctx)
}

// Output returns the current rendered output.
func (i *Instance[T]) Output() string {
	return i.coord.Target().String()
}

// Target returns the instance's output root.
func (i *Instance[T]) Target() *render.Target {
	return i.coord.Target()
}

// Renders returns the number of successful renders so far.
func (i *Instance[T]) Renders() uint64 {
	return i.coord.Renders()
}

// Phase returns the coordinator's lifecycle state.
func (i *Instance[T]) Phase() render.Phase {
	return i.coord.Phase()
}

// Disposed reports whether Dispose has been called.
func (i *Instance[T]) Disposed() bool {
	return i.coord.Phase() == render.Disposed
}

// Dispose runs the detach hooks and stops all rendering. Only the first
// call has an effect.
func (i *Instance[T]) Dispose() {
	i.detached.Do(func() {
		hooks := i.def.detach
		for j := len(hooks) - 1; j >= 0; j-- {
			hooks[j](i)
		}
		i.coord.Dispose()
	})
}

// Snapshot encodes the current state into a token that Restore accepts.
// The definition must have been added to a Registry.
func (i *Instance[T]) Snapshot() (string, error) {
	enc := i.def.getEncoder()
	if enc == nil {
		return "", ErrNotRegistered
	}
	return enc.Encode(i.state.Get(), i.def.cfg.Sensitive)
}

// Restore creates an instance from a Snapshot token.
func (d *Definition[T]) Restore(ctx context.Context, token string, opts ...render.Option) (*Instance[T], error) {
	state, err := d.DecodeState(token)
	if err != nil {
		return nil, err
	}
	return d.instantiate(ctx, state, opts)
}

// DecodeState verifies a Snapshot token and returns the state it carries.
func (d *Definition[T]) DecodeState(token string) (T, error) {
	var state T
	enc := d.getEncoder()
	if enc == nil {
		return state, ErrNotRegistered
	}
	if err := enc.Decode(token, d.cfg.Sensitive, &state); err != nil {
		return state, decodeError(d.cfg.Identifier, err)
	}
	return state, nil
}

func (d *Definition[T]) getEncoder() *Encoder {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.encoder
}

func (d *Definition[T]) logf(format string, args ...any) {
	d.mu.RLock()
	logger := d.logger
	d.mu.RUnlock()
	if logger != nil {
		logger.Printf(format, args...)
	}
}
