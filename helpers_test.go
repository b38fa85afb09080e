package webcmp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsHTMX(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect bool
	}{
		{"with HX-Request true", "true", true},
		{"with HX-Request false", "false", false},
		{"without header", "", false},
		{"with other value", "yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Request", tt.header)
			}

			result := IsHTMX(req)
			if result != tt.expect {
				t.Errorf("IsHTMX() = %v, want %v", result, tt.expect)
			}
		})
	}
}

func TestIsBoosted(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect bool
	}{
		{"with HX-Boosted true", "true", true},
		{"with HX-Boosted false", "false", false},
		{"without header", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Boosted", tt.header)
			}

			result := IsBoosted(req)
			if result != tt.expect {
				t.Errorf("IsBoosted() = %v, want %v", result, tt.expect)
			}
		})
	}
}

func TestCurrentURL(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect string
	}{
		{"with URL", "http://example.com/page", "http://example.com/page"},
		{"without header", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Current-URL", tt.header)
			}

			result := CurrentURL(req)
			if result != tt.expect {
				t.Errorf("CurrentURL() = %q, want %q", result, tt.expect)
			}
		})
	}
}

func TestTriggerName(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect string
	}{
		{"with name", "submit-button", "submit-button"},
		{"without header", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Trigger-Name", tt.header)
			}

			result := TriggerName(req)
			if result != tt.expect {
				t.Errorf("TriggerName() = %q, want %q", result, tt.expect)
			}
		})
	}
}

func TestTriggerID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect string
	}{
		{"with ID", "btn-123", "btn-123"},
		{"without header", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Trigger", tt.header)
			}

			result := TriggerID(req)
			if result != tt.expect {
				t.Errorf("TriggerID() = %q, want %q", result, tt.expect)
			}
		})
	}
}

func TestTargetID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect string
	}{
		{"with ID", "target-div", "target-div"},
		{"without header", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Target", tt.header)
			}

			result := TargetID(req)
			if result != tt.expect {
				t.Errorf("TargetID() = %q, want %q", result, tt.expect)
			}
		})
	}
}


func TestRenderHelper(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if err := Render(rec, req, Markup("<p>hi</p>")); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Body.String() != "<p>hi</p>" {
		t.Errorf("body = %q, want <p>hi</p>", rec.Body.String())
	}
}

func TestEmbed(t *testing.T) {
	def := MustDefine(Config[counter]{
		Identifier:   "embed-counter",
		DefaultState: counter{Count: 2},
		TemplateFunc: counterView,
	})

	inst, err := def.New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer inst.Dispose()

	var buf strings.Builder
	if err := Embed(inst).Render(context.Background(), &buf); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("Embed() before registration error = %v, want %v", err, ErrNotRegistered)
	}

	NewRegistry([]byte("test-key")).Add(def)
	buf.Reset()
	if err := Embed(inst).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	html := buf.String()
	if !strings.HasPrefix(html, `<div data-webcmp="embed-counter" hx-vals='{"s":"`) {
		t.Errorf("Embed() = %q, want host element", html)
	}
	if !strings.Contains(html, "<span>2</span>") || !strings.HasSuffix(html, "</div>") {
		t.Errorf("Embed() = %q, want wrapped output", html)
	}
}
