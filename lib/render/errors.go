package render

import (
	"errors"
	"fmt"
)

// Sentinel errors for coordinator operations.
var (
	ErrRender            = errors.New("render: renderer failed")
	ErrDisposed          = errors.New("render: coordinator disposed")
	ErrNilStore          = errors.New("render: nil state store")
	ErrSchedulerMismatch = errors.New("render: template store does not share the state store's scheduler")
)

// RenderError reports a renderer failure. The target keeps the content of
// the last successful render.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: renderer failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func (e *RenderError) Is(target error) bool {
	return target == ErrRender
}

// IsRenderError checks if err is, or wraps, a renderer failure.
func IsRenderError(err error) bool {
	return errors.Is(err, ErrRender)
}

// IsDisposed checks if err reports use of a disposed coordinator.
func IsDisposed(err error) bool {
	return errors.Is(err, ErrDisposed)
}
