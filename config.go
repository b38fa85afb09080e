package webcmp

import (
	"fmt"
	"regexp"

	"github.com/a-h/templ"
	"github.com/pthm/webcmp/lib/render"
)

// Config describes a component definition.
//
// At most one of Template and TemplateFunc may be set:
//   - Template seeds the instance's template store. The description can be
//     swapped later through Instance.Template().
//   - TemplateFunc rebuilds the description from state on every render.
//     Instances have no template store.
//   - Neither: instances start with an empty template store that an
//     OnAttach hook (or any caller) fills in.
type Config[T any] struct {
	// Identifier names the component. It follows custom element naming:
	// lowercase, starts with a letter, contains a hyphen.
	Identifier string

	// DefaultState seeds every instance. Each instance receives its own
	// deep copy.
	DefaultState T

	Template     templ.Component
	TemplateFunc func(state T) templ.Component

	// Renderer overrides the templ renderer for this definition.
	Renderer render.Renderer

	// Sensitive encrypts state snapshots instead of signing them.
	Sensitive bool
}

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9._]*-[a-z0-9._-]*$`)

// ValidIdentifier reports whether id can name a component.
func ValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}

func (c Config[T]) validate() error {
	if !ValidIdentifier(c.Identifier) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, c.Identifier)
	}
	if c.Template != nil && c.TemplateFunc != nil {
		return fmt.Errorf("%w: %s sets both Template and TemplateFunc", ErrInvalidConfig, c.Identifier)
	}
	return nil
}
