package render

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Renderer projects a description onto w. It is the external rendering
// capability: parsing, escaping and diffing all live behind it.
type Renderer interface {
	Render(ctx context.Context, desc templ.Component, w io.Writer) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, desc templ.Component, w io.Writer) error

func (f RendererFunc) Render(ctx context.Context, desc templ.Component, w io.Writer) error {
	return f(ctx, desc, w)
}

// TemplRenderer renders descriptions with templ. A nil description renders
// as empty output.
type TemplRenderer struct{}

func (TemplRenderer) Render(ctx context.Context, desc templ.Component, w io.Writer) error {
	if desc == nil {
		return nil
	}
	return desc.Render(ctx, w)
}
