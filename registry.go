package webcmp

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/pthm/webcmp/lib/render"
)

// DefaultPrefix is the path under which a Registry serves components.
const DefaultPrefix = "/_c/"

// stateParam is the request parameter carrying a state snapshot.
const stateParam = "s"

// Hostable is a component definition that a Registry can serve.
// *Definition[T] implements it for every T.
type Hostable interface {
	Identifier() string
	bind(reg *Registry)
	serve(w http.ResponseWriter, r *http.Request, action string) error
}

// Registry manages component registration and routing.
type Registry struct {
	mu          sync.RWMutex
	mux         *http.ServeMux
	encoder     *Encoder
	prefix      string
	logger      *log.Logger
	definitions map[string]Hostable

	// OnError is called when serving a component fails.
	// Customize this to handle errors appropriately for your application.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithPrefix mounts components under prefix instead of DefaultPrefix.
func WithPrefix(prefix string) RegistryOption {
	return func(reg *Registry) {
		if !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		reg.prefix = prefix
	}
}

// WithLogger logs render failures of served instances to l.
func WithLogger(l *log.Logger) RegistryOption {
	return func(reg *Registry) {
		reg.logger = l
	}
}

// NewRegistry creates a new component registry with the given encryption key.
func NewRegistry(encryptionKey []byte, opts ...RegistryOption) *Registry {
	enc, err := NewEncoder(encryptionKey)
	if err != nil {
		panic(fmt.Sprintf("webcmp: failed to create encoder: %v", err))
	}

	reg := &Registry{
		mux:         http.NewServeMux(),
		encoder:     enc,
		prefix:      DefaultPrefix,
		definitions: make(map[string]Hostable),
	}
	for _, opt := range opts {
		opt(reg)
	}

	reg.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		status := StatusCode(err)
		http.Error(w, http.StatusText(status), status)
	}

	return reg
}

// StatusCode maps a serving error to the HTTP status the default OnError
// responds with.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case IsDecryptionError(err), errors.Is(err, ErrInvalidFormat), IsRecipeError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Encoder returns the registry's encoder (used by definitions).
func (reg *Registry) Encoder() *Encoder {
	return reg.encoder
}

// Prefix returns the path under which components are served.
func (reg *Registry) Prefix() string {
	return reg.prefix
}

// Add registers definitions with the registry.
// Panics on an identifier collision.
func (reg *Registry) Add(defs ...Hostable) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for _, def := range defs {
		id := def.Identifier()
		if _, exists := reg.definitions[id]; exists {
			panic(fmt.Sprintf("webcmp: identifier collision for %q", id))
		}
		reg.definitions[id] = def
		def.bind(reg)

		base := reg.prefix + id + "/"
		reg.mux.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
			action := strings.TrimPrefix(r.URL.Path, base)
			if strings.Contains(action, "/") {
				reg.OnError(w, r, ErrNotFound)
				return
			}
			if err := def.serve(w, r, action); err != nil {
				if reg.logger != nil && StatusCode(err) >= http.StatusInternalServerError {
					reg.logger.Printf("webcmp: serve %s%s: %v", base, action, err)
				}
				reg.OnError(w, r, err)
			}
		})
	}
}

// Lookup returns the definition registered under id.
func (reg *Registry) Lookup(id string) (Hostable, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	def, ok := reg.definitions[id]
	return def, ok
}

// Identifiers returns the registered identifiers in sorted order.
func (reg *Registry) Identifiers() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	ids := make([]string, 0, len(reg.definitions))
	for id := range reg.definitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Handler returns the HTTP handler for component routes.
// Mount it at Prefix() in your application.
func (reg *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CSRF protection: mutating methods require HX-Request header
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if r.Header.Get("HX-Request") != "true" {
				http.Error(w, "Forbidden: HTMX request required", http.StatusForbidden)
				return
			}
		}

		reg.mux.ServeHTTP(w, r)
	})
}

func (d *Definition[T]) bind(reg *Registry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.encoder = reg.encoder
	d.prefix = reg.prefix
	d.logger = reg.logger
}

// serve handles one request: restore or create an instance, apply the
// action if any, write the wrapped output and dispose the instance.
func (d *Definition[T]) serve(w http.ResponseWriter, r *http.Request, action string) error {
	var fn ActionFunc[T]
	if action != "" {
		def, ok := d.actions[action]
		if !ok {
			return fmt.Errorf("%w: action %q on %s", ErrNotFound, action, d.cfg.Identifier)
		}
		if r.Method != def.method {
			return fmt.Errorf("%w: %s %s/%s", ErrMethodNotAllowed, r.Method, d.cfg.Identifier, action)
		}
		fn = def.handler.(ActionFunc[T])
	} else if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return fmt.Errorf("%w: %s %s", ErrMethodNotAllowed, r.Method, d.cfg.Identifier)
	}

	ctx := r.Context()
	var (
		inst *Instance[T]
		err  error
	)
	if token := r.FormValue(stateParam); token != "" {
		inst, err = d.Restore(ctx, token)
	} else {
		inst, err = d.New(ctx)
	}
	if err != nil {
		return err
	}
	defer inst.Dispose()

	if fn != nil {
		err := inst.State().Set(func(draft *T) error {
			return fn(ctx, r, draft)
		})
		if err != nil {
			return err
		}
	}

	token, err := inst.Snapshot()
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return writeHosted(w, d.cfg.Identifier, token, inst.Target())
}

// writeHosted writes out wrapped in the host element. Identifiers are
// validated and tokens are URL-safe base64, so neither needs escaping.
func writeHosted(w io.Writer, id, token string, out *render.Target) error {
	if _, err := fmt.Fprintf(w, `<div data-webcmp="%s" hx-vals='{"%s":"%s"}'>`, id, stateParam, token); err != nil {
		return err
	}
	if _, err := out.WriteTo(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</div>")
	return err
}
