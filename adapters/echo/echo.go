// Package webcmpecho provides Echo framework integration for webcmp
// components.
//
// Mount components onto an Echo instance or group:
//
//	e := echo.New()
//	reg := webcmpecho.Mount(e)
//	reg.Add(counter)
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	reg := webcmpecho.MountGroup(g)
//	reg.Add(counter)
package webcmpecho

import (
	"crypto/rand"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/webcmp"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	key    []byte
	path   string
	logger *log.Logger
}

// WithKey sets the encryption key for the registry.
// The key should be at least 32 bytes of cryptographically random data.
// If not provided, a random key is generated (suitable for development only).
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithPath sets the URL path for component routes, relative to the Echo
// instance or group. Defaults to "/_c/".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithLogger logs render failures of served components.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Mount creates a registry and mounts the component handler on an Echo instance.
//
//	e := echo.New()
//	reg := webcmpecho.Mount(e)
//	reg.Add(counter)
//
//	// With options:
//	reg := webcmpecho.Mount(e, webcmpecho.WithKey(key))
func Mount(e *echo.Echo, opts ...Option) *webcmp.Registry {
	o := newOptions(opts)
	reg := newRegistry(o, o.path)
	e.Any(o.path+"*", echo.WrapHandler(reg.Handler()))
	return reg
}

// MountGroup creates a registry and mounts the component handler on an Echo group.
// This allows components to share middleware with the group (auth, logging, etc.).
// Wired URLs include the group prefix.
//
//	g := e.Group("/app", authMiddleware)
//	reg := webcmpecho.MountGroup(g)
//	reg.Add(counter)
func MountGroup(g *echo.Group, opts ...Option) *webcmp.Registry {
	o := newOptions(opts)

	var h http.Handler
	routes := g.Any(o.path+"*", func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	})

	// Route paths carry the group prefix, which Group does not expose.
	prefix := o.path
	if len(routes) > 0 {
		prefix = strings.TrimSuffix(routes[0].Path, "*")
	}

	reg := newRegistry(o, prefix)
	h = reg.Handler()
	return reg
}

func newOptions(opts []Option) *options {
	o := &options{path: webcmp.DefaultPrefix}
	for _, opt := range opts {
		opt(o)
	}
	if !strings.HasPrefix(o.path, "/") {
		o.path = "/" + o.path
	}
	if !strings.HasSuffix(o.path, "/") {
		o.path += "/"
	}
	return o
}

func newRegistry(o *options, prefix string) *webcmp.Registry {
	key := o.key
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("webcmpecho: failed to generate random key: %v", err))
		}
	}

	regOpts := []webcmp.RegistryOption{webcmp.WithPrefix(prefix)}
	if o.logger != nil {
		regOpts = append(regOpts, webcmp.WithLogger(o.logger))
	}
	return webcmp.NewRegistry(key, regOpts...)
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return webcmpecho.Render(c, page())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	return component.Render(c.Request().Context(), c.Response())
}
