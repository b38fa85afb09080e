package webcmp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
)

// TestKey is the encryption key the test helpers use for definitions that
// are not registered yet.
var TestKey = []byte("webcmp-test-key")

// TestResult holds the result of rendering a component for testing.
//
// Provides convenience methods for asserting on HTML content, headers,
// status codes and the state token carried by the response.
type TestResult struct {
	HTML       string
	StatusCode int
	Headers    http.Header
	Renders    uint64

	// Token is the state snapshot the host element carries, empty for
	// results that were not served over HTTP.
	Token string
}

// TestRender creates an instance seeded with state, renders it once and
// disposes it.
//
// Use this for pure unit tests of rendering logic when you control state
// directly and don't need HTTP mechanics. Attach hooks run as they would
// in production:
//
//	result, err := webcmp.TestRender(counter, Counter{Count: 3})
//	if !result.HTMLContains("3") {
//	    t.Fatal("missing expected content")
//	}
func TestRender[T any](def *Definition[T], state T) (*TestResult, error) {
	return TestRenderWithContext(context.Background(), def, state)
}

// TestRenderWithContext is TestRender with a custom context.
//
// Use this when testing templates that read values from context
// (user authentication, request-scoped data).
func TestRenderWithContext[T any](ctx context.Context, def *Definition[T], state T) (*TestResult, error) {
	inst, err := def.NewWithState(ctx, state)
	if err != nil {
		return nil, err
	}
	defer inst.Dispose()

	return &TestResult{
		HTML:       inst.Output(),
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
		Renders:    inst.Renders(),
	}, nil
}

// TestAction simulates an action request against a definition.
//
// This tests the full HTTP lifecycle including state encoding, routing,
// action execution and response rendering. A definition that is not in a
// Registry yet is bound to a new one keyed with TestKey under the default
// prefix, so templates that Wire through it render working attributes.
// The binding outlives the call: Path, Wire and DecodeState keep using
// TestKey until the definition is added to another Registry, which
// replaces the binding.
//
//	result, err := webcmp.TestAction(counter, Counter{Count: 1}, "increment", nil)
//	next, _ := counter.DecodeState(result.Token)
func TestAction[T any](def *Definition[T], state T, action string, formData map[string]string) (*TestResult, error) {
	if def.getEncoder() == nil {
		NewRegistry(TestKey).Add(def)
	}

	token, err := def.getEncoder().Encode(state, def.cfg.Sensitive)
	if err != nil {
		return nil, err
	}

	method := http.MethodGet
	if a, ok := def.actions[action]; ok {
		method = a.method
	}

	// net/http only reads form bodies for POST, PUT and PATCH.
	b := NewTestRequest(method, def.Path(action))
	if method == http.MethodGet || method == http.MethodDelete {
		q := url.Values{stateParam: {token}}
		for k, v := range formData {
			q.Set(k, v)
		}
		b.url += "?" + q.Encode()
	} else {
		b.WithFormValues(formData).WithFormData(stateParam, token)
	}

	return b.Execute(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := def.serve(w, r, action); err != nil {
			status := StatusCode(err)
			http.Error(w, err.Error(), status)
		}
	}))
}

// TestGet is a convenience wrapper for a GET request against a handler,
// typically Registry.Handler().
func TestGet(h http.Handler, url string) (*TestResult, error) {
	return NewTestRequest(http.MethodGet, url).Execute(h)
}

// TestPost is a convenience wrapper for a POST request against a handler.
func TestPost(h http.Handler, url string, formData map[string]string) (*TestResult, error) {
	return NewTestRequest(http.MethodPost, url).WithFormValues(formData).Execute(h)
}

// HTMLContains checks if the rendered HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the rendered HTML contains all substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// HTMLContainsAny checks if the rendered HTML contains any of the substrings.
func (r *TestResult) HTMLContainsAny(substrs ...string) bool {
	for _, s := range substrs {
		if strings.Contains(r.HTML, s) {
			return true
		}
	}
	return false
}

// IsOK checks if the status code is 200 OK.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// HasHeader checks if a header is present with the given value.
func (r *TestResult) HasHeader(key, value string) bool {
	return r.Headers.Get(key) == value
}

// GetHeader returns the value of a header.
func (r *TestResult) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// parseHostToken extracts the state token from a host element.
func parseHostToken(html string) string {
	marker := `hx-vals='{"` + stateParam + `":"`
	_, rest, ok := strings.Cut(html, marker)
	if !ok {
		return ""
	}
	token, _, ok := strings.Cut(rest, `"`)
	if !ok {
		return ""
	}
	return token
}

// TestRequestBuilder provides a fluent interface for building test requests.
//
// Use this when you need fine-grained control over request construction:
//
//	result, err := webcmp.NewTestRequest("POST", "/_c/click-counter/increment").
//	    WithFormData("s", token).
//	    WithHeader("X-Custom", "header").
//	    WithContext(ctx).
//	    Execute(reg.Handler())
type TestRequestBuilder struct {
	method   string
	url      string
	formData map[string]string
	headers  map[string]string
	ctx      context.Context
}

// NewTestRequest creates a new test request builder.
func NewTestRequest(method, url string) *TestRequestBuilder {
	return &TestRequestBuilder{
		method:   method,
		url:      url,
		formData: make(map[string]string),
		headers:  make(map[string]string),
		ctx:      context.Background(),
	}
}

// WithFormData adds form data to the request.
func (b *TestRequestBuilder) WithFormData(key, value string) *TestRequestBuilder {
	b.formData[key] = value
	return b
}

// WithFormValues adds multiple form values to the request.
func (b *TestRequestBuilder) WithFormValues(data map[string]string) *TestRequestBuilder {
	for k, v := range data {
		b.formData[k] = v
	}
	return b
}

// WithHeader adds a header to the request.
func (b *TestRequestBuilder) WithHeader(key, value string) *TestRequestBuilder {
	b.headers[key] = value
	return b
}

// WithContext sets the context for the request.
func (b *TestRequestBuilder) WithContext(ctx context.Context) *TestRequestBuilder {
	b.ctx = ctx
	return b
}

// Execute executes the request against h.
func (b *TestRequestBuilder) Execute(h http.Handler) (*TestResult, error) {
	form := url.Values{}
	for k, v := range b.formData {
		form.Set(k, v)
	}

	body := strings.NewReader("")
	if len(b.formData) > 0 {
		body = strings.NewReader(form.Encode())
	}

	req := httptest.NewRequest(b.method, b.url, body)
	req = req.WithContext(b.ctx)

	// Set default HTMX header
	req.Header.Set("HX-Request", "true")

	if len(b.formData) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return &TestResult{
		HTML:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
		Token:      parseHostToken(rec.Body.String()),
	}, nil
}
