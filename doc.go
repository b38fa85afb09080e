// Package webcmp provides reactive, server-rendered components built from
// an immutable state store, an observable template and a render
// coordinator that keeps each component's output in sync with both.
//
// # Core Concepts
//
// A component type is declared once with Define. Its state type T can be
// any value the encoder can serialize; each instance receives a deep copy
// of the default state.
//
//	type Counter struct {
//	    Label string
//	    Count int
//	}
//
//	counter := webcmp.MustDefine(webcmp.Config[Counter]{
//	    Identifier:   "click-counter",
//	    DefaultState: Counter{Label: "Clicks"},
//	    TemplateFunc: counterView,
//	})
//
// Every instance owns a state store (lib/store) and, unless TemplateFunc
// is used, a template store holding its templ.Component. Both share one
// scheduler, so state and template changes made together produce a single
// render:
//
//	inst, _ := counter.New(ctx)
//	inst.State().Set(func(c *Counter) error {
//	    c.Count++
//	    return nil
//	})
//	inst.Output() // re-rendered before Set returned
//
// A recipe that fails leaves the state untouched and returns an error
// matching ErrRecipe. A renderer that fails leaves the last good output in
// place and returns an error matching ErrRender. Rendering after Dispose
// fails with ErrDisposed.
//
// # Composition
//
// Definitions are extended with hooks rather than subclassing:
//
//	counter.OnAttach(func(ctx context.Context, inst *webcmp.Instance[Counter]) error {
//	    return inst.Template().Replace(webcmp.Markup("<p>custom</p>"))
//	})
//	counter.OnDetach(func(inst *webcmp.Instance[Counter]) { ... })
//
// # Actions and Routing
//
// Actions are named, request-driven recipes:
//
//	counter.Action("increment", func(ctx context.Context, r *http.Request, c *Counter) error {
//	    c.Count++
//	    return nil
//	})
//	counter.Action("reset", reset).Method(http.MethodDelete)
//
// Definitions are served by a Registry. Each request restores an instance
// from the state snapshot it carries, applies the action and responds with
// the instance output wrapped in a host element that carries the new
// snapshot:
//
//	reg := webcmp.NewRegistry(encryptionKey)
//	reg.Add(counter)
//	http.Handle(reg.Prefix(), reg.Handler())
//
// Templates wire actions with Definition.Wire:
//
//	<button { counter.Wire("increment", state)... }>+</button>
//
// # Security Model
//
// State snapshots use one of two modes:
//   - Signed (default): HMAC-authenticated msgpack, visible but tamper-proof
//   - Encrypted: AES-GCM encrypted, opaque to clients (Config.Sensitive)
//
// CSRF protection is automatic - mutating methods (POST/PUT/DELETE/PATCH)
// require the HX-Request: true header that HTMX sends.
package webcmp
