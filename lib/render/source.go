package render

import (
	"github.com/a-h/templ"
	"github.com/pthm/webcmp/lib/store"
)

// Source resolves the description a coordinator renders. Build one with
// Static, Func or FromStore.
type Source[T any] struct {
	static   templ.Component
	fn       func(state T) templ.Component
	template *store.Store[templ.Component]
}

// Static renders the same description for every state.
func Static[T any](desc templ.Component) Source[T] {
	return Source[T]{static: desc}
}

// Func rebuilds the description from the current state on every render.
func Func[T any](fn func(state T) templ.Component) Source[T] {
	return Source[T]{fn: fn}
}

// FromStore renders whatever description tmpl currently holds. The
// coordinator subscribes to tmpl as well as to the state store.
func FromStore[T any](tmpl *store.Store[templ.Component]) Source[T] {
	return Source[T]{template: tmpl}
}

// Template returns the description store, or nil for static and func
// sources.
func (s Source[T]) Template() *store.Store[templ.Component] {
	return s.template
}

func (s Source[T]) describe(state T) templ.Component {
	switch {
	case s.fn != nil:
		return s.fn(state)
	case s.template != nil:
		return s.template.Get()
	default:
		return s.static
	}
}
