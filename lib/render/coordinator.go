// Package render keeps an output target in sync with a state store.
//
// A Coordinator subscribes to the state store (and, for FromStore sources,
// to the template store) when it is created. Each notification marks it
// dirty and schedules a flush on the state store's Scheduler; the flush
// runs once, after every commit queued in the same drain, so a change to
// both state and template inside one outer Set renders exactly once, and
// before that Set returns.
//
// Renders go to a scratch buffer first. A failing renderer leaves the
// Target with its previous content and the failure is returned, as a
// *RenderError, to whoever triggered the render.
package render

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/a-h/templ"
	"github.com/pthm/webcmp/lib/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer coordinators obtain from the global
// provider when no tracer is configured.
const TracerName = "github.com/pthm/webcmp/lib/render"

const (
	triggerManual = "manual"
	triggerAuto   = "auto"
)

// Phase is a coordinator lifecycle state.
type Phase int32

const (
	Uninitialized Phase = iota
	Attached
	Disposed
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Attached:
		return "attached"
	case Disposed:
		return "disposed"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	renderer Renderer
	ctx      context.Context
	tracer   trace.Tracer
	logger   *log.Logger
}

// WithRenderer replaces the default TemplRenderer.
func WithRenderer(r Renderer) Option {
	return func(o *options) {
		if r != nil {
			o.renderer = r
		}
	}
}

// WithContext sets the context used for renders triggered by store
// notifications. Manual renders use the context passed to Render.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithTracer sets the tracer used for render spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithLogger logs render failures to l in addition to returning them.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Coordinator re-renders its Target whenever the stores it depends on
// change.
type Coordinator[T any] struct {
	state    *store.Store[T]
	source   Source[T]
	target   *Target
	renderer Renderer
	ctx      context.Context
	tracer   trace.Tracer
	logger   *log.Logger

	mu        sync.Mutex
	phase     Phase
	dirty     bool
	disposers []store.Disposer
	renders   atomic.Uint64
}

// New creates a coordinator bound to st and subscribes it. The target is
// empty until the first render; callers normally follow New with Render.
func New[T any](st *store.Store[T], src Source[T], opts ...Option) (*Coordinator[T], error) {
	if st == nil {
		return nil, ErrNilStore
	}
	if tmpl := src.template; tmpl != nil && tmpl.Scheduler() != st.Scheduler() {
		return nil, ErrSchedulerMismatch
	}

	o := options{
		renderer: TemplRenderer{},
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(TracerName)
	}

	c := &Coordinator[T]{
		state:    st,
		source:   src,
		target:   newTarget(),
		renderer: o.renderer,
		ctx:      o.ctx,
		tracer:   o.tracer,
		logger:   o.logger,
	}
	c.attach()
	return c, nil
}

func (c *Coordinator[T]) attach() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disposers = append(c.disposers, c.state.Subscribe(func(T) error {
		return c.invalidate()
	}))
	if tmpl := c.source.template; tmpl != nil {
		c.disposers = append(c.disposers, tmpl.Subscribe(func(templ.Component) error {
			return c.invalidate()
		}))
	}
	c.phase = Attached
}

// Phase returns the lifecycle state.
func (c *Coordinator[T]) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Target returns the output root.
func (c *Coordinator[T]) Target() *Target {
	return c.target
}

// Renders returns the number of successful renders.
func (c *Coordinator[T]) Renders() uint64 {
	return c.renders.Load()
}

// Render projects the current description onto the target, replacing its
// content. Rendering an unchanged description again leaves the target
// unchanged.
func (c *Coordinator[T]) Render(ctx context.Context) error {
	if c.Phase() == Disposed {
		return ErrDisposed
	}
	return c.render(ctx, triggerManual)
}

// Dispose unsubscribes from every store. No automatic render happens
// afterwards and Render returns ErrDisposed. Dispose is idempotent.
func (c *Coordinator[T]) Dispose() {
	c.mu.Lock()
	if c.phase == Disposed {
		c.mu.Unlock()
		return
	}
	c.phase = Disposed
	c.dirty = false
	disposers := c.disposers
	c.disposers = nil
	c.mu.Unlock()

	for _, dispose := range disposers {
		dispose()
	}
}

func (c *Coordinator[T]) invalidate() error {
	c.mu.Lock()
	if c.phase != Attached {
		c.mu.Unlock()
		return nil
	}
	c.dirty = true
	c.mu.Unlock()
	return c.state.Scheduler().Schedule(c, c.flush)
}

func (c *Coordinator[T]) flush() error {
	c.mu.Lock()
	if c.phase != Attached || !c.dirty {
		c.mu.Unlock()
		return nil
	}
	c.dirty = false
	c.mu.Unlock()
	return c.render(c.ctx, triggerAuto)
}

func (c *Coordinator[T]) render(ctx context.Context, trigger string) error {
	ctx, span := c.tracer.Start(ctx, "webcmp.render",
		trace.WithAttributes(attribute.String("webcmp.trigger", trigger)))
	defer span.End()

	state := c.state.Get()
	err := c.target.replace(func(w io.Writer) error {
		return c.project(ctx, state, w)
	})
	if err != nil {
		rerr := &RenderError{Err: err}
		span.RecordError(rerr)
		span.SetStatus(codes.Error, rerr.Error())
		if c.logger != nil {
			c.logger.Printf("webcmp: %s render failed: %v", trigger, err)
		}
		return rerr
	}

	n := c.renders.Add(1)
	span.SetAttributes(attribute.Int64("webcmp.render.count", int64(n)))
	return nil
}

// project resolves and renders the description, turning panics in either
// step into errors so the target is never left half-written.
func (c *Coordinator[T]) project(ctx context.Context, state T, w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.renderer.Render(ctx, c.source.describe(state), w)
}
