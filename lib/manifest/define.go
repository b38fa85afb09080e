package manifest

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/a-h/templ"
	"github.com/pthm/webcmp"
	"github.com/pthm/webcmp/lib/encoding"
	"github.com/pthm/webcmp/lib/store"
)

// State is the state type of manifest components.
type State = map[string]any

// Define builds the component's definition. The template is parsed once;
// each render executes it against the current state.
func (c Component) Define() (*webcmp.Definition[State], error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	state := store.Clone(c.State)
	if state == nil {
		state = State{}
	}

	var tmpl *template.Template
	def, err := webcmp.Define(webcmp.Config[State]{
		Identifier:   c.Identifier,
		DefaultState: state,
		Sensitive:    c.Sensitive,
		TemplateFunc: func(s State) templ.Component {
			return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
				return tmpl.Execute(w, s)
			})
		},
	})
	if err != nil {
		return nil, err
	}

	tmpl, err = template.New(c.Identifier).Funcs(template.FuncMap{
		"wire": func(action string, s State) template.HTMLAttr {
			return attrString(def.Wire(action, s))
		},
	}).Parse(c.Template)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, c.Identifier, err)
	}

	for _, a := range c.Actions {
		b := def.Action(a.Name, a.recipe())
		if a.Method != "" {
			b.Method(strings.ToUpper(a.Method))
		}
	}
	return def, nil
}

func (a Action) recipe() webcmp.ActionFunc[State] {
	switch {
	case a.Set != nil:
		return func(ctx context.Context, r *http.Request, s *State) error {
			for k, v := range a.Set {
				(*s)[k] = store.Clone(v)
			}
			return nil
		}
	case a.Increment != "":
		by := a.By
		if by == 0 {
			by = 1
		}
		return func(ctx context.Context, r *http.Request, s *State) error {
			n, ok := counterValue((*s)[a.Increment])
			if !ok {
				return fmt.Errorf("%s: %q is not a number", a.Name, a.Increment)
			}
			(*s)[a.Increment] = n + by
			return nil
		}
	default:
		return func(ctx context.Context, r *http.Request, s *State) error {
			for _, field := range a.Form {
				(*s)[field] = r.FormValue(field)
			}
			return nil
		}
	}
}

// attrString renders attributes in a stable order for html/template.
func attrString(attrs templ.Attributes) template.HTMLAttr {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, `%s="%s"`, k, template.HTMLEscapeString(fmt.Sprint(attrs[k])))
	}
	return template.HTMLAttr(b.String())
}

// counterValue reads an increment target. A missing key counts as zero;
// other values must be integers that fit an int.
func counterValue(v any) (int, bool) {
	if v == nil {
		return 0, true
	}
	return encoding.Int(v)
}
