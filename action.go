package webcmp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/a-h/templ"
)

// ActionFunc is a request-driven recipe. It receives a draft of the
// instance state and changes it the same way a store recipe does.
type ActionFunc[T any] func(ctx context.Context, r *http.Request, draft *T) error

// actionDef holds metadata about a registered action.
type actionDef struct {
	name    string
	method  string
	handler any
}

// ActionBuilder configures action registration (e.g., HTTP method override).
//
// Returned by Definition.Action() to allow optional method override:
//
//	d.Action("rename", handler)  // POST by default
//	d.Action("reset", handler).Method(http.MethodDelete)
type ActionBuilder struct {
	action *actionDef
}

// Method overrides the default POST method for an action.
func (ab *ActionBuilder) Method(m string) *ActionBuilder {
	ab.action.method = m
	return ab
}

// Action registers a named action. When the host receives a request for
// it, the action is applied through the instance's state store, so it
// renders exactly like any other Set.
func (d *Definition[T]) Action(name string, fn ActionFunc[T]) *ActionBuilder {
	d.actions[name] = &actionDef{
		name:    name,
		method:  http.MethodPost,
		handler: fn,
	}
	return &ActionBuilder{action: d.actions[name]}
}

// Actions returns the names of the registered actions.
func (d *Definition[T]) Actions() []string {
	names := make([]string, 0, len(d.actions))
	for name := range d.actions {
		names = append(names, name)
	}
	return names
}

// Path returns the URL path of an action, or of the render endpoint for
// an empty action name. It is empty until the definition is registered.
func (d *Definition[T]) Path(action string) string {
	d.mu.RLock()
	prefix := d.prefix
	d.mu.RUnlock()
	if prefix == "" {
		return ""
	}
	return prefix + d.cfg.Identifier + "/" + action
}

// Wire builds the HTMX attributes that invoke action with state. An empty
// action wires the render endpoint. The response replaces the closest
// host element:
//
//	<button { counter.Wire("increment", state)... }>+</button>
func (d *Definition[T]) Wire(action string, state T) templ.Attributes {
	return d.WireSwap(action, state, SwapOuter)
}

// WireSwap is like Wire but swaps the host element with mode.
func (d *Definition[T]) WireSwap(action string, state T, mode SwapMode) templ.Attributes {
	method := http.MethodGet
	if action != "" {
		if def, ok := d.actions[action]; ok {
			method = def.method
		}
	}

	var encoded string
	if enc := d.getEncoder(); enc != nil {
		var err error
		if encoded, err = enc.Encode(state, d.cfg.Sensitive); err != nil {
			d.logf("webcmp: encode %s state for %q: %v", d.cfg.Identifier, action, err)
		}
	}
	attrs := WireAttrs(d.Path(action), method, encoded)
	attrs["hx-target"] = hostSelector
	attrs["hx-swap"] = string(mode)
	return attrs
}

// WireAttrs builds the minimal HTMX attributes for a component action.
//
// For GET actions, returns hx-get with the state token in the URL query
// string. For POST/PUT/DELETE/PATCH, returns hx-post (etc.) with the token
// in hx-vals.
//
// All other HTMX attributes (hx-target, hx-swap, hx-trigger, etc.) are
// written directly by the user in their templates.
func WireAttrs(path, method, encoded string) templ.Attributes {
	attrs := templ.Attributes{}

	if method == http.MethodGet || method == "" {
		url := path
		if encoded != "" {
			url = path + "?" + stateParam + "=" + encoded
		}
		attrs["hx-get"] = url
	} else {
		switch method {
		case http.MethodPost:
			attrs["hx-post"] = path
		case http.MethodPut:
			attrs["hx-put"] = path
		case http.MethodPatch:
			attrs["hx-patch"] = path
		case http.MethodDelete:
			attrs["hx-delete"] = path
		}
		if encoded != "" {
			data, _ := json.Marshal(map[string]string{stateParam: encoded})
			attrs["hx-vals"] = string(data)
		}
	}

	return attrs
}
