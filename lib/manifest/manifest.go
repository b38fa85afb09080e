// Package manifest declares components in YAML instead of Go.
//
// A manifest lists components with a default state, an html/template
// markup and optional actions:
//
//	components:
//	  - identifier: click-counter
//	    state:
//	      label: Clicks
//	      count: 0
//	    template: |
//	      <p>{{.label}}: {{.count}}</p>
//	      <button {{wire "increment" .}}>+</button>
//	    actions:
//	      - name: increment
//	        increment: count
//	      - name: reset
//	        set: {count: 0}
//	      - name: rename
//	        method: PUT
//	        form: [label]
//
// Each component becomes a webcmp definition over map[string]any state.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pthm/webcmp"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned for manifests that parse but cannot be defined.
var ErrInvalid = errors.New("manifest: invalid component")

// File is the top-level YAML document.
type File struct {
	Components []Component `yaml:"components"`
}

// Component declares one component.
type Component struct {
	Identifier string         `yaml:"identifier"`
	State      map[string]any `yaml:"state,omitempty"`
	Template   string         `yaml:"template"`
	Sensitive  bool           `yaml:"sensitive,omitempty"`
	Actions    []Action       `yaml:"actions,omitempty"`
}

// Action declares a named state change. Exactly one of Set, Increment and
// Form must be given.
type Action struct {
	Name   string `yaml:"name"`
	Method string `yaml:"method,omitempty"`

	// Set assigns fixed values to state keys.
	Set map[string]any `yaml:"set,omitempty"`

	// Increment adds By (default 1) to a numeric state key.
	Increment string `yaml:"increment,omitempty"`
	By        int    `yaml:"by,omitempty"`

	// Form copies the named request form values into state.
	Form []string `yaml:"form,omitempty"`
}

// Load decodes and validates a manifest.
func Load(r io.Reader) ([]Component, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	seen := make(map[string]bool, len(f.Components))
	for i := range f.Components {
		c := &f.Components[i]
		if err := c.validate(); err != nil {
			return nil, err
		}
		if seen[c.Identifier] {
			return nil, fmt.Errorf("%w: duplicate identifier %q", ErrInvalid, c.Identifier)
		}
		seen[c.Identifier] = true
	}
	return f.Components, nil
}

// LoadFile reads the manifest at path.
func LoadFile(path string) ([]Component, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (c *Component) validate() error {
	if !webcmp.ValidIdentifier(c.Identifier) {
		return fmt.Errorf("%w: identifier %q", ErrInvalid, c.Identifier)
	}
	if strings.TrimSpace(c.Template) == "" {
		return fmt.Errorf("%w: %s: empty template", ErrInvalid, c.Identifier)
	}
	names := make(map[string]bool, len(c.Actions))
	for _, a := range c.Actions {
		if a.Name == "" || strings.Contains(a.Name, "/") {
			return fmt.Errorf("%w: %s: action name %q", ErrInvalid, c.Identifier, a.Name)
		}
		if names[a.Name] {
			return fmt.Errorf("%w: %s: duplicate action %q", ErrInvalid, c.Identifier, a.Name)
		}
		names[a.Name] = true

		kinds := 0
		if a.Set != nil {
			kinds++
		}
		if a.Increment != "" {
			kinds++
		}
		if len(a.Form) > 0 {
			kinds++
		}
		if kinds != 1 {
			return fmt.Errorf("%w: %s: action %q needs exactly one of set, increment, form", ErrInvalid, c.Identifier, a.Name)
		}
		switch strings.ToUpper(a.Method) {
		case "", http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			return fmt.Errorf("%w: %s: action %q method %q", ErrInvalid, c.Identifier, a.Name, a.Method)
		}
	}
	return nil
}

// Register defines every component and adds it to reg.
func Register(reg *webcmp.Registry, comps []Component) ([]*webcmp.Definition[map[string]any], error) {
	defs := make([]*webcmp.Definition[map[string]any], 0, len(comps))
	for _, c := range comps {
		def, err := c.Define()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	for _, def := range defs {
		reg.Add(def)
	}
	return defs, nil
}
