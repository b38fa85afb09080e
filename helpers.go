package webcmp

import (
	"context"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context. Use this for pages that embed component output:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    webcmp.Render(w, r, page(inst))
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// Markup returns a description that writes html verbatim. It is the
// simplest template for a component:
//
//	inst.Template().Replace(webcmp.Markup("<p>loading</p>"))
func Markup(html string) templ.Component {
	return templ.Raw(html)
}

// Embed returns a description that writes an instance's current output,
// wrapped the same way the Registry wraps served components so that
// actions inside it carry the instance's state.
func Embed[T any](inst *Instance[T]) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		token, err := inst.Snapshot()
		if err != nil {
			return err
		}
		return writeHosted(w, inst.def.cfg.Identifier, token, inst.Target())
	})
}

// IsHTMX returns true if the request originated from HTMX.
//
// HTMX sends HX-Request: true on all requests. Use this to conditionally
// render partial content for HTMX vs full page for direct browser requests:
//
//	if webcmp.IsHTMX(r) {
//	    return partialView()
//	}
//	return fullPageView()
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// IsBoosted returns true if the request is a boosted navigation (hx-boost).
func IsBoosted(r *http.Request) bool {
	return r.Header.Get("HX-Boosted") == "true"
}

// CurrentURL returns the current URL from the HX-Current-URL header.
//
// This is the URL the browser is currently on (not the request URL).
// Returns empty string if header not present (non-HTMX request).
func CurrentURL(r *http.Request) string {
	return r.Header.Get("HX-Current-URL")
}

// TriggerName returns the name attribute of the element that triggered the request.
//
// Useful for actions that need to know which submit button was clicked:
//
//	if webcmp.TriggerName(r) == "save-draft" {
//	    // Handle draft save
//	}
func TriggerName(r *http.Request) string {
	return r.Header.Get("HX-Trigger-Name")
}

// TriggerID returns the id attribute of the element that triggered the request.
func TriggerID(r *http.Request) string {
	return r.Header.Get("HX-Trigger")
}

// TargetID returns the id attribute of the target element.
func TargetID(r *http.Request) string {
	return r.Header.Get("HX-Target")
}
