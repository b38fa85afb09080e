package webcmp

import (
	"errors"

	"github.com/pthm/webcmp/lib/render"
	"github.com/pthm/webcmp/lib/store"
)

// Sentinel errors for component operations.
var (
	ErrNotFound          = errors.New("webcmp: resource not found")
	ErrMethodNotAllowed  = errors.New("webcmp: method not allowed")
	ErrInvalidIdentifier = errors.New("webcmp: invalid identifier")
	ErrInvalidConfig     = errors.New("webcmp: invalid configuration")
	ErrNotRegistered     = errors.New("webcmp: definition is not registered")
	ErrDecryptFailed     = errors.New("webcmp: state decryption failed")
	ErrSignatureInvalid  = errors.New("webcmp: signature verification failed")
	ErrInvalidFormat     = errors.New("webcmp: invalid state format")
)

// Errors raised by the state store and render coordinator, re-exported so
// callers only need this package.
var (
	// ErrRecipe matches a state recipe that failed; the state is unchanged.
	ErrRecipe = store.ErrRecipe
	// ErrRender matches a renderer failure; the output keeps its last good
	// content.
	ErrRender = render.ErrRender
	// ErrDisposed is returned when rendering a disposed instance.
	ErrDisposed = render.ErrDisposed
)

// IsNotFound checks if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDecryptionError checks if err is a decryption or signature error.
func IsDecryptionError(err error) bool {
	return errors.Is(err, ErrDecryptFailed) || errors.Is(err, ErrSignatureInvalid)
}

// IsRecipeError checks if err carries a failed state recipe.
func IsRecipeError(err error) bool {
	return errors.Is(err, ErrRecipe)
}

// IsRenderError checks if err carries a renderer failure.
func IsRenderError(err error) bool {
	return errors.Is(err, ErrRender)
}

// IsDisposed checks if err reports use of a disposed instance.
func IsDisposed(err error) bool {
	return errors.Is(err, ErrDisposed)
}
