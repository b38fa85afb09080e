package render

import (
	"bytes"
	"io"
	"sync"
)

// Target is the output root owned by a Coordinator. Readers may inspect it
// at any time; only the owning coordinator writes to it, and every write
// replaces the whole content at once.
type Target struct {
	mu       sync.RWMutex
	content  []byte
	rendered bool
}

func newTarget() *Target {
	return &Target{}
}

// String returns the current content.
func (t *Target) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return string(t.content)
}

// Bytes returns a copy of the current content.
func (t *Target) Bytes() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return bytes.Clone(t.content)
}

// Len returns the size of the current content in bytes.
func (t *Target) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.content)
}

// Rendered reports whether at least one render has completed.
func (t *Target) Rendered() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rendered
}

// WriteTo writes the current content to w.
func (t *Target) WriteTo(w io.Writer) (int64, error) {
	t.mu.RLock()
	content := t.content
	t.mu.RUnlock()
	n, err := w.Write(content)
	return int64(n), err
}

// replace runs fill against a scratch buffer and swaps the result in only
// if fill succeeds.
func (t *Target) replace(fill func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := fill(&buf); err != nil {
		return err
	}
	t.mu.Lock()
	t.content = buf.Bytes()
	t.rendered = true
	t.mu.Unlock()
	return nil
}
